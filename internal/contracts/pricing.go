package contracts

import "time"

// AggregateStoreID is the store id used when an observation is not tied to
// a specific store. It groups observations under the aggregate series.
const AggregateStoreID = "all"

// PriceSource identifies where an observation came from.
type PriceSource string

const (
	SourceAd      PriceSource = "ad"
	SourceReceipt PriceSource = "receipt"
	SourceManual  PriceSource = "manual"
	SourceAPI     PriceSource = "api"
)

// Valid reports whether the source is one of the known capture channels.
func (s PriceSource) Valid() bool {
	switch s {
	case SourceAd, SourceReceipt, SourceManual, SourceAPI:
		return true
	}
	return false
}

// SeriesKey identifies one price series: a (component, store) pair.
type SeriesKey struct {
	ComponentID string `json:"component_id"`
	StoreID     string `json:"store_id"`
}

// NewSeriesKey builds a key, mapping an empty store id to the aggregate.
func NewSeriesKey(componentID, storeID string) SeriesKey {
	if storeID == "" {
		storeID = AggregateStoreID
	}
	return SeriesKey{ComponentID: componentID, StoreID: storeID}
}

// String renders the key in its canonical "component:store" form.
func (k SeriesKey) String() string {
	return k.ComponentID + ":" + k.StoreID
}

// PricePoint is a single immutable price observation. Points are never
// edited or deleted; corrections arrive as new points.
type PricePoint struct {
	ID            string      `json:"id"`
	ComponentID   string      `json:"component_id"`
	StoreID       string      `json:"store_id"`
	Price         float64     `json:"price"`
	Quantity      float64     `json:"quantity"`
	Unit          string      `json:"unit,omitempty"`
	PricePerUnit  float64     `json:"price_per_unit"`
	RecordedDate  time.Time   `json:"recorded_date"` // calendar date, midnight UTC
	IsDeal        bool        `json:"is_deal"`
	IsSalePrice   bool        `json:"is_sale_price"`
	OriginalPrice *float64    `json:"original_price,omitempty"`
	SavingsAmount *float64    `json:"savings_amount,omitempty"`
	Source        PriceSource `json:"source"`
	CapturedBy    string      `json:"captured_by,omitempty"`

	// DataQualityAtCapture is the stage of the series at the moment this
	// point was recorded, kept for audit.
	DataQualityAtCapture DataQualityStatus `json:"data_quality_at_capture"`

	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Key returns the series key this point belongs to.
func (p *PricePoint) Key() SeriesKey {
	return NewSeriesKey(p.ComponentID, p.StoreID)
}

// EffectiveUnitPrice returns price-per-unit, falling back to the raw price
// when the per-unit figure was not derivable.
func (p *PricePoint) EffectiveUnitPrice() float64 {
	if p.PricePerUnit > 0 {
		return p.PricePerUnit
	}
	return p.Price
}

// OnSale reports whether the point was flagged as a deal or sale price.
func (p *PricePoint) OnSale() bool {
	return p.IsDeal || p.IsSalePrice
}

// DataQualityStatus is the four-level confidence label derived purely from
// observation count.
type DataQualityStatus string

const (
	QualityInsufficient DataQualityStatus = "insufficient"
	QualityEmerging     DataQualityStatus = "emerging"
	QualityReliable     DataQualityStatus = "reliable"
	QualityMature       DataQualityStatus = "mature"
)

// DataQuality is the classifier output for a series.
type DataQuality struct {
	Count      int               `json:"count"`
	Status     DataQualityStatus `json:"status"`
	NeedsMore  int               `json:"needs_more"`
	CanPredict bool              `json:"can_predict"`
	HasTrends  bool              `json:"has_trends"`
}

// QualityBreakpoints are the fixed observation-count thresholds between
// data-quality stages.
type QualityBreakpoints struct {
	Emerging int // below this: insufficient
	Reliable int
	Mature   int
}

// DefaultQualityBreakpoints returns the standard 5/10/20 staging.
func DefaultQualityBreakpoints() QualityBreakpoints {
	return QualityBreakpoints{
		Emerging: 5,
		Reliable: 10,
		Mature:   20,
	}
}

// CaptureOptions carries the optional fields of a price capture.
type CaptureOptions struct {
	StoreID       string
	Quantity      float64 // default 1
	Unit          string
	RecordedDate  time.Time // default today
	IsDeal        bool
	IsSalePrice   bool
	OriginalPrice *float64
	CapturedBy    string
	Notes         string
}

// CaptureResult is returned by CapturePrice.
type CaptureResult struct {
	Price         *PricePoint `json:"price"`
	DataQuality   DataQuality `json:"data_quality"`
	TrendsUpdated bool        `json:"trends_updated"`
}

// HistoryOptions filters a price-history query.
type HistoryOptions struct {
	StoreID   string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// PriceHistory is the result of a history query: newest-first points plus
// the cached trend for the key, when one exists.
type PriceHistory struct {
	Prices []*PricePoint `json:"prices"`
	Trend  *PriceTrend   `json:"trend,omitempty"`
	Count  int           `json:"count"`
}

// StoreComparison is one store's entry in a cross-store comparison.
type StoreComparison struct {
	StoreID     string            `json:"store_id"`
	LatestPrice float64           `json:"latest_price"`
	LatestDate  time.Time         `json:"latest_date"`
	Avg30Day    *float64          `json:"avg_30_day,omitempty"`
	TrendType   TrendType         `json:"trend_type,omitempty"`
	DataQuality DataQualityStatus `json:"data_quality"`
	DataPoints  int               `json:"data_points"`
}

// StoreRecommendation names the store a shopper should prefer.
type StoreRecommendation struct {
	StoreID string `json:"store_id"`
	Reason  string `json:"reason"`
}

// CrossStoreComparison is the result of ComparePricesAcrossStores.
type CrossStoreComparison struct {
	ComponentID    string               `json:"component_id"`
	Comparisons    []StoreComparison    `json:"comparisons"`
	Recommendation *StoreRecommendation `json:"recommendation,omitempty"`
}

// PriceDropAlert flags a key whose 7-day average has fallen at least 20%
// below its 30-day average.
type PriceDropAlert struct {
	ComponentID string  `json:"component_id"`
	StoreID     string  `json:"store_id"`
	Avg7Day     float64 `json:"avg_7_day"`
	Avg30Day    float64 `json:"avg_30_day"`
	DropPercent float64 `json:"drop_percent"`
}
