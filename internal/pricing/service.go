package pricing

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openpantry/priceintel/internal/contracts"
	"github.com/openpantry/priceintel/pkg/config"
)

// Service is the library surface of the price intelligence engine. It owns
// the capture read-modify-write path and every analytics read. Storage is
// injected; the service itself holds no durable state beyond its per-key
// locks.
type Service struct {
	store       contracts.PriceStore
	trends      contracts.TrendStore
	assessments contracts.AssessmentStore

	classifier *Classifier
	calculator *Calculator
	predictor  *Predictor
	cycles     *CyclePredictor
	scorer     *Scorer

	breakpoints contracts.QualityBreakpoints
	cfg         config.PricingConfig
	locks       *keyLocks
	log         zerolog.Logger
	now         func() time.Time
}

// NewService wires the engine components around the given stores.
func NewService(
	store contracts.PriceStore,
	trends contracts.TrendStore,
	assessments contracts.AssessmentStore,
	cfg config.PricingConfig,
	log zerolog.Logger,
) *Service {
	breakpoints := contracts.DefaultQualityBreakpoints()
	predictor := NewPredictor(breakpoints, log)
	cycles := NewCyclePredictor(log)

	return &Service{
		store:       store,
		trends:      trends,
		assessments: assessments,
		classifier:  NewClassifier(breakpoints),
		calculator:  NewCalculator(breakpoints, contracts.DefaultTrendThresholds(), predictor, cycles, log),
		predictor:   predictor,
		cycles:      cycles,
		scorer:      NewScorer(contracts.DefaultScoreWeights(), cfg, log),
		breakpoints: breakpoints,
		cfg:         cfg,
		locks:       newKeyLocks(),
		log:         log.With().Str("component", "pricing.service").Logger(),
		now:         time.Now,
	}
}

// CapturePrice records one observation and, once the series has enough
// points, recomputes its trend. The whole sequence is serialized per key.
func (s *Service) CapturePrice(
	ctx context.Context,
	componentID string,
	price float64,
	source contracts.PriceSource,
	opts contracts.CaptureOptions,
) (*contracts.CaptureResult, error) {
	if err := validateCapture(componentID, price, opts); err != nil {
		return nil, err
	}
	if source == "" {
		source = contracts.SourceManual
	}
	if !source.Valid() {
		return nil, contracts.NewValidationError("source", fmt.Sprintf("unknown source %q", source))
	}

	key := contracts.NewSeriesKey(componentID, opts.StoreID)

	unlock := s.locks.acquire(key.String())
	defer unlock()

	series, err := s.store.List(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}

	// The audit snapshot must be final before the point reaches the store;
	// durable backends write it at insert time and readers share the point.
	quality := s.classifier.Classify(len(series) + 1)

	point := s.buildPoint(key, price, source, opts)
	point.DataQualityAtCapture = quality.Status

	if err := s.store.Append(ctx, point); err != nil {
		return nil, fmt.Errorf("append price point: %w", err)
	}
	series = append(series, point)

	trendsUpdated := false
	if len(series) >= s.breakpoints.Emerging {
		trend := s.calculator.Calculate(key, series)
		if err := s.trends.Put(ctx, trend); err != nil {
			return nil, fmt.Errorf("store trend: %w", err)
		}
		trendsUpdated = true
	}

	s.log.Info().
		Str("key", key.String()).
		Float64("price", point.Price).
		Str("source", string(source)).
		Str("quality", string(quality.Status)).
		Bool("trends_updated", trendsUpdated).
		Msg("price captured")

	return &contracts.CaptureResult{
		Price:         point,
		DataQuality:   quality,
		TrendsUpdated: trendsUpdated,
	}, nil
}

// buildPoint assembles the immutable observation record.
func (s *Service) buildPoint(
	key contracts.SeriesKey,
	price float64,
	source contracts.PriceSource,
	opts contracts.CaptureOptions,
) *contracts.PricePoint {
	quantity := opts.Quantity
	if quantity == 0 {
		quantity = 1
	}

	pricePerUnit := price
	if quantity > 0 {
		pricePerUnit = round4(price / quantity)
	}

	recorded := opts.RecordedDate
	if recorded.IsZero() {
		recorded = s.now()
	}

	point := &contracts.PricePoint{
		ID:            uuid.NewString(),
		ComponentID:   key.ComponentID,
		StoreID:       key.StoreID,
		Price:         round2(price),
		Quantity:      quantity,
		Unit:          opts.Unit,
		PricePerUnit:  pricePerUnit,
		RecordedDate:  dateOnly(recorded),
		IsDeal:        opts.IsDeal,
		IsSalePrice:   opts.IsSalePrice,
		OriginalPrice: opts.OriginalPrice,
		Source:        source,
		CapturedBy:    opts.CapturedBy,
		Notes:         opts.Notes,
		CreatedAt:     s.now(),
	}

	if opts.IsDeal && opts.OriginalPrice != nil && *opts.OriginalPrice > price {
		point.SavingsAmount = float64Ptr(round2(*opts.OriginalPrice - price))
	}

	return point
}

// GetDataQualityStatus reports the staging of one series.
func (s *Service) GetDataQualityStatus(ctx context.Context, componentID, storeID string) (*contracts.DataQuality, error) {
	if componentID == "" {
		return nil, contracts.NewValidationError("component_id", "must not be empty")
	}

	key := contracts.NewSeriesKey(componentID, storeID)
	count, err := s.store.Count(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("count series: %w", err)
	}

	quality := s.classifier.Classify(count)
	return &quality, nil
}

// GetPriceHistory returns the newest-first observations for a component,
// with the cached trend when one exists. Count is the number of points
// matching the filter, before the limit is applied.
func (s *Service) GetPriceHistory(ctx context.Context, componentID string, opts contracts.HistoryOptions) (*contracts.PriceHistory, error) {
	if componentID == "" {
		return nil, contracts.NewValidationError("component_id", "must not be empty")
	}

	key := contracts.NewSeriesKey(componentID, opts.StoreID)
	series, err := s.store.List(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}

	filtered := series[:0:0]
	for _, p := range series {
		if opts.StartDate != nil && p.RecordedDate.Before(dateOnly(*opts.StartDate)) {
			continue
		}
		if opts.EndDate != nil && p.RecordedDate.After(dateOnly(*opts.EndDate)) {
			continue
		}
		filtered = append(filtered, p)
	}

	sorted := sortDescending(filtered)
	total := len(sorted)
	if opts.Limit > 0 && len(sorted) > opts.Limit {
		sorted = sorted[:opts.Limit]
	}

	trend, err := s.trends.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get trend: %w", err)
	}

	return &contracts.PriceHistory{
		Prices: sorted,
		Trend:  trend,
		Count:  total,
	}, nil
}

// ComparePricesAcrossStores lines up every store tracking a component and
// recommends the cheapest.
func (s *Service) ComparePricesAcrossStores(ctx context.Context, componentID string) (*contracts.CrossStoreComparison, error) {
	if componentID == "" {
		return nil, contracts.NewValidationError("component_id", "must not be empty")
	}

	keys, err := s.store.ListKeys(ctx, componentID)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	result := &contracts.CrossStoreComparison{ComponentID: componentID}
	now := s.now()

	for _, key := range keys {
		if key.StoreID == contracts.AggregateStoreID {
			continue
		}

		series, err := s.store.List(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("list series for %s: %w", key, err)
		}
		if len(series) == 0 {
			continue
		}

		latest := sortDescending(series)[0]
		comparison := contracts.StoreComparison{
			StoreID:     key.StoreID,
			LatestPrice: latest.EffectiveUnitPrice(),
			LatestDate:  latest.RecordedDate,
			Avg30Day:    windowAverage(series, 30, now),
			DataQuality: s.classifier.Classify(len(series)).Status,
			DataPoints:  len(series),
		}

		if trend, err := s.trends.Get(ctx, key); err == nil && trend != nil {
			comparison.TrendType = trend.TrendType
		}

		result.Comparisons = append(result.Comparisons, comparison)
	}

	sort.Slice(result.Comparisons, func(i, j int) bool {
		return result.Comparisons[i].LatestPrice < result.Comparisons[j].LatestPrice
	})

	if len(result.Comparisons) > 0 {
		best := result.Comparisons[0]
		result.Recommendation = &contracts.StoreRecommendation{
			StoreID: best.StoreID,
			Reason:  fmt.Sprintf("lowest current price at $%.2f per unit", best.LatestPrice),
		}
	}

	return result, nil
}

// TrendingOptions filters the trending-prices listing.
type TrendingOptions struct {
	TrendType   contracts.TrendType
	MinStrength float64 // default 10
	Limit       int     // default 20
}

// TrendingPrices is the result of GetTrendingPrices.
type TrendingPrices struct {
	Trends   []*contracts.PriceTrend `json:"trends"`
	Rising   int                     `json:"rising"`
	Falling  int                     `json:"falling"`
	Volatile int                     `json:"volatile"`
}

// GetTrendingPrices lists the strongest trends across all keys.
func (s *Service) GetTrendingPrices(ctx context.Context, opts TrendingOptions) (*TrendingPrices, error) {
	minStrength := opts.MinStrength
	if minStrength == 0 {
		minStrength = 10
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	all, err := s.trends.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list trends: %w", err)
	}

	result := &TrendingPrices{}
	var qualifying []*contracts.PriceTrend
	for _, t := range all {
		if t.TrendType == contracts.TrendInsufficientData || t.TrendStrength < minStrength {
			continue
		}

		switch t.TrendType {
		case contracts.TrendRising:
			result.Rising++
		case contracts.TrendFalling:
			result.Falling++
		case contracts.TrendVolatile:
			result.Volatile++
		}

		if opts.TrendType != "" && t.TrendType != opts.TrendType {
			continue
		}
		qualifying = append(qualifying, t)
	}

	sort.Slice(qualifying, func(i, j int) bool {
		return qualifying[i].TrendStrength > qualifying[j].TrendStrength
	})
	if len(qualifying) > limit {
		qualifying = qualifying[:limit]
	}
	result.Trends = qualifying

	return result, nil
}

// GetPriceDropAlerts reports keys whose 7-day average sits at or below the
// configured share of the 30-day average (a 20% drop by default).
func (s *Service) GetPriceDropAlerts(ctx context.Context) ([]*contracts.PriceDropAlert, error) {
	all, err := s.trends.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list trends: %w", err)
	}

	var alerts []*contracts.PriceDropAlert
	for _, t := range all {
		if t.Avg7Day == nil || t.Avg30Day == nil || *t.Avg30Day == 0 {
			continue
		}
		if *t.Avg7Day > *t.Avg30Day*s.cfg.DropAlertRatio {
			continue
		}

		alerts = append(alerts, &contracts.PriceDropAlert{
			ComponentID: t.ComponentID,
			StoreID:     t.StoreID,
			Avg7Day:     *t.Avg7Day,
			Avg30Day:    *t.Avg30Day,
			DropPercent: round2((1 - *t.Avg7Day / *t.Avg30Day) * 100),
		})
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].DropPercent > alerts[j].DropPercent
	})

	return alerts, nil
}

// PredictFuturePrice forecasts the price of one series 30 days out. The
// insufficient-data return is a normal outcome carrying the counts needed
// to progress, not an error.
func (s *Service) PredictFuturePrice(ctx context.Context, componentID, storeID string) (*contracts.PricePrediction, *contracts.InsufficientData, error) {
	if componentID == "" {
		return nil, nil, contracts.NewValidationError("component_id", "must not be empty")
	}

	key := contracts.NewSeriesKey(componentID, storeID)
	series, err := s.store.List(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("list series: %w", err)
	}

	prediction, insufficient := s.predictor.Predict(key, series)
	return prediction, insufficient, nil
}

// AssessDeal scores a candidate deal price against the current trend for
// the key and retains the assessment for later lookup.
func (s *Service) AssessDeal(
	ctx context.Context,
	dealPrice float64,
	componentID, storeID string,
	opts contracts.AssessOptions,
) (*contracts.DealQualityAssessment, error) {
	if componentID == "" {
		return nil, contracts.NewValidationError("component_id", "must not be empty")
	}
	if math.IsNaN(dealPrice) || math.IsInf(dealPrice, 0) || dealPrice < 0 {
		return nil, contracts.NewValidationError("deal_price", "must be a non-negative number")
	}

	key := contracts.NewSeriesKey(componentID, storeID)

	trend, err := s.trends.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get trend: %w", err)
	}

	series, err := s.store.List(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	cycle := s.cycles.Predict(key, series)
	assessment := s.scorer.Assess(key, trend, cycle, dealPrice, opts)
	if assessment.Insufficient != nil && trend == nil {
		assessment.Insufficient.Actual = len(series)
	}

	if err := s.assessments.Save(ctx, assessment); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}

	return assessment, nil
}

// PredictNextSale estimates the next sale date for a key from its deal
// history.
func (s *Service) PredictNextSale(ctx context.Context, componentID, storeID string) (*contracts.SaleCyclePrediction, error) {
	if componentID == "" {
		return nil, contracts.NewValidationError("component_id", "must not be empty")
	}

	key := contracts.NewSeriesKey(componentID, storeID)
	series, err := s.store.List(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}

	return s.cycles.Predict(key, series), nil
}

// FlagFakeDeals scans the assessments of one ad campaign and reports the
// ones categorized as fake deals.
func (s *Service) FlagFakeDeals(ctx context.Context, adDealID string) (*contracts.FakeDealReport, error) {
	if adDealID == "" {
		return nil, contracts.NewValidationError("ad_deal_id", "must not be empty")
	}

	assessments, err := s.assessments.ListByAdDeal(ctx, adDealID)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}

	report := &contracts.FakeDealReport{AdDealID: adDealID}
	for _, a := range assessments {
		if a.Category == contracts.DealFake {
			report.FlaggedDeals = append(report.FlaggedDeals, a)
		}
	}
	report.FlaggedCount = len(report.FlaggedDeals)

	return report, nil
}

// RecomputeTrends replays every tracked key through the trend calculator.
// Used by the nightly job and the CLI.
func (s *Service) RecomputeTrends(ctx context.Context) (int, error) {
	keys, err := s.store.ListKeys(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list keys: %w", err)
	}

	updated := 0
	for _, key := range keys {
		select {
		case <-ctx.Done():
			return updated, ctx.Err()
		default:
		}

		unlock := s.locks.acquire(key.String())
		series, err := s.store.List(ctx, key)
		if err != nil {
			unlock()
			return updated, fmt.Errorf("list series for %s: %w", key, err)
		}
		if len(series) < s.breakpoints.Emerging {
			unlock()
			continue
		}

		trend := s.calculator.Calculate(key, series)
		err = s.trends.Put(ctx, trend)
		unlock()
		if err != nil {
			return updated, fmt.Errorf("store trend for %s: %w", key, err)
		}
		updated++
	}

	s.log.Info().Int("updated", updated).Int("keys", len(keys)).Msg("trend recompute completed")
	return updated, nil
}

// validateCapture rejects malformed capture input.
func validateCapture(componentID string, price float64, opts contracts.CaptureOptions) error {
	if componentID == "" {
		return contracts.NewValidationError("component_id", "must not be empty")
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return contracts.NewValidationError("price", "must be a finite number")
	}
	if price < 0 {
		return contracts.NewValidationError("price", "must not be negative")
	}
	if opts.Quantity < 0 {
		return contracts.NewValidationError("quantity", "must not be negative")
	}
	if opts.OriginalPrice != nil && (*opts.OriginalPrice < 0 || math.IsNaN(*opts.OriginalPrice)) {
		return contracts.NewValidationError("original_price", "must be a non-negative number")
	}
	return nil
}
