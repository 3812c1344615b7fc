package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openpantry/priceintel/internal/contracts"
)

// schema holds the engine's tables. Price points are append-only; trends
// are one row per series key; assessments keep the nested result as JSONB
// with the lookup columns pulled out.
const schema = `
	CREATE TABLE IF NOT EXISTS price_points (
		id TEXT PRIMARY KEY,
		component_id TEXT NOT NULL,
		store_id TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		price_per_unit DOUBLE PRECISION NOT NULL,
		recorded_date DATE NOT NULL,
		is_deal BOOLEAN NOT NULL DEFAULT FALSE,
		is_sale_price BOOLEAN NOT NULL DEFAULT FALSE,
		original_price DOUBLE PRECISION,
		savings_amount DOUBLE PRECISION,
		source TEXT NOT NULL,
		captured_by TEXT NOT NULL DEFAULT '',
		data_quality TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_price_points_series
		ON price_points (component_id, store_id, recorded_date);

	CREATE TABLE IF NOT EXISTS price_trends (
		component_id TEXT NOT NULL,
		store_id TEXT NOT NULL,
		payload JSONB NOT NULL,
		last_updated TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (component_id, store_id)
	);

	CREATE TABLE IF NOT EXISTS deal_assessments (
		id TEXT PRIMARY KEY,
		component_id TEXT NOT NULL,
		store_id TEXT NOT NULL,
		ad_deal_id TEXT NOT NULL DEFAULT '',
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deal_assessments_ad_deal
		ON deal_assessments (ad_deal_id) WHERE ad_deal_id <> '';
`

// EnsureSchema creates the engine tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure pricing schema: %w", err)
	}
	return nil
}

// PostgresPriceStore implements contracts.PriceStore on pgx.
type PostgresPriceStore struct {
	pool *pgxpool.Pool
}

// NewPostgresPriceStore creates a Postgres-backed price store.
func NewPostgresPriceStore(pool *pgxpool.Pool) *PostgresPriceStore {
	return &PostgresPriceStore{pool: pool}
}

// Append inserts one observation. Points are never updated or deleted.
func (r *PostgresPriceStore) Append(ctx context.Context, p *contracts.PricePoint) error {
	query := `
		INSERT INTO price_points (
			id, component_id, store_id, price, quantity, unit, price_per_unit,
			recorded_date, is_deal, is_sale_price, original_price, savings_amount,
			source, captured_by, data_quality, notes, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.ComponentID, p.StoreID, p.Price, p.Quantity, p.Unit, p.PricePerUnit,
		p.RecordedDate, p.IsDeal, p.IsSalePrice, p.OriginalPrice, p.SavingsAmount,
		string(p.Source), p.CapturedBy, string(p.DataQualityAtCapture), p.Notes, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append price point: %w", err)
	}
	return nil
}

// List returns every point for the key.
func (r *PostgresPriceStore) List(ctx context.Context, key contracts.SeriesKey) ([]*contracts.PricePoint, error) {
	query := `
		SELECT id, component_id, store_id, price, quantity, unit, price_per_unit,
			recorded_date, is_deal, is_sale_price, original_price, savings_amount,
			source, captured_by, data_quality, notes, created_at
		FROM price_points
		WHERE component_id = $1 AND store_id = $2
		ORDER BY recorded_date ASC
	`

	rows, err := r.pool.Query(ctx, query, key.ComponentID, key.StoreID)
	if err != nil {
		return nil, fmt.Errorf("list price points: %w", err)
	}
	defer rows.Close()

	var points []*contracts.PricePoint
	for rows.Next() {
		var p contracts.PricePoint
		var source, quality string
		if err := rows.Scan(
			&p.ID, &p.ComponentID, &p.StoreID, &p.Price, &p.Quantity, &p.Unit, &p.PricePerUnit,
			&p.RecordedDate, &p.IsDeal, &p.IsSalePrice, &p.OriginalPrice, &p.SavingsAmount,
			&source, &p.CapturedBy, &quality, &p.Notes, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		p.Source = contracts.PriceSource(source)
		p.DataQualityAtCapture = contracts.DataQualityStatus(quality)
		points = append(points, &p)
	}
	return points, rows.Err()
}

// Count returns the number of points for the key.
func (r *PostgresPriceStore) Count(ctx context.Context, key contracts.SeriesKey) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM price_points WHERE component_id = $1 AND store_id = $2`,
		key.ComponentID, key.StoreID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count price points: %w", err)
	}
	return count, nil
}

// ListKeys returns the distinct series keys, optionally restricted to one
// component.
func (r *PostgresPriceStore) ListKeys(ctx context.Context, componentID string) ([]contracts.SeriesKey, error) {
	query := `
		SELECT DISTINCT component_id, store_id
		FROM price_points
		WHERE $1 = '' OR component_id = $1
		ORDER BY component_id, store_id
	`

	rows, err := r.pool.Query(ctx, query, componentID)
	if err != nil {
		return nil, fmt.Errorf("list series keys: %w", err)
	}
	defer rows.Close()

	var keys []contracts.SeriesKey
	for rows.Next() {
		var key contracts.SeriesKey
		if err := rows.Scan(&key.ComponentID, &key.StoreID); err != nil {
			return nil, fmt.Errorf("scan series key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// PostgresTrendStore implements contracts.TrendStore on pgx. The full
// trend travels as a JSONB payload so the schema never lags the struct.
type PostgresTrendStore struct {
	pool *pgxpool.Pool
}

// NewPostgresTrendStore creates a Postgres-backed trend store.
func NewPostgresTrendStore(pool *pgxpool.Pool) *PostgresTrendStore {
	return &PostgresTrendStore{pool: pool}
}

// Get returns the cached trend for a key, or nil when none exists.
func (r *PostgresTrendStore) Get(ctx context.Context, key contracts.SeriesKey) (*contracts.PriceTrend, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM price_trends WHERE component_id = $1 AND store_id = $2`,
		key.ComponentID, key.StoreID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trend: %w", err)
	}

	var trend contracts.PriceTrend
	if err := json.Unmarshal(payload, &trend); err != nil {
		return nil, fmt.Errorf("decode trend payload: %w", err)
	}
	return &trend, nil
}

// Put fully replaces the trend for its key.
func (r *PostgresTrendStore) Put(ctx context.Context, trend *contracts.PriceTrend) error {
	payload, err := json.Marshal(trend)
	if err != nil {
		return fmt.Errorf("encode trend payload: %w", err)
	}

	query := `
		INSERT INTO price_trends (component_id, store_id, payload, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (component_id, store_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			last_updated = EXCLUDED.last_updated
	`
	key := contracts.NewSeriesKey(trend.ComponentID, trend.StoreID)
	if _, err := r.pool.Exec(ctx, query, key.ComponentID, key.StoreID, payload, trend.LastUpdated); err != nil {
		return fmt.Errorf("put trend: %w", err)
	}
	return nil
}

// All returns every cached trend.
func (r *PostgresTrendStore) All(ctx context.Context) ([]*contracts.PriceTrend, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT payload FROM price_trends ORDER BY component_id, store_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list trends: %w", err)
	}
	defer rows.Close()

	var trends []*contracts.PriceTrend
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan trend payload: %w", err)
		}
		var trend contracts.PriceTrend
		if err := json.Unmarshal(payload, &trend); err != nil {
			return nil, fmt.Errorf("decode trend payload: %w", err)
		}
		trends = append(trends, &trend)
	}
	return trends, rows.Err()
}

// PostgresAssessmentStore implements contracts.AssessmentStore on pgx.
type PostgresAssessmentStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAssessmentStore creates a Postgres-backed assessment store.
func NewPostgresAssessmentStore(pool *pgxpool.Pool) *PostgresAssessmentStore {
	return &PostgresAssessmentStore{pool: pool}
}

// Save stores an assessment.
func (r *PostgresAssessmentStore) Save(ctx context.Context, a *contracts.DealQualityAssessment) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode assessment payload: %w", err)
	}

	query := `
		INSERT INTO deal_assessments (id, component_id, store_id, ad_deal_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload
	`
	if _, err := r.pool.Exec(ctx, query, a.ID, a.ComponentID, a.StoreID, a.AdDealID, payload, a.CreatedAt); err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}
	return nil
}

// Get returns the assessment with the given id, or nil.
func (r *PostgresAssessmentStore) Get(ctx context.Context, id string) (*contracts.DealQualityAssessment, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM deal_assessments WHERE id = $1`, id,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}

	var a contracts.DealQualityAssessment
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode assessment payload: %w", err)
	}
	return &a, nil
}

// ListByAdDeal returns all assessments linked to an ad deal id.
func (r *PostgresAssessmentStore) ListByAdDeal(ctx context.Context, adDealID string) ([]*contracts.DealQualityAssessment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT payload FROM deal_assessments WHERE ad_deal_id = $1 ORDER BY created_at ASC`,
		adDealID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assessments by ad deal: %w", err)
	}
	defer rows.Close()

	var out []*contracts.DealQualityAssessment
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan assessment payload: %w", err)
		}
		var a contracts.DealQualityAssessment
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, fmt.Errorf("decode assessment payload: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
