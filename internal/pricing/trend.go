package pricing

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/openpantry/priceintel/internal/contracts"
)

// Rolling-average windows, in days.
var trendWindows = []int{7, 30, 60, 90}

// Calculator derives a PriceTrend from a full series. Every call is a full
// recompute over all points; the result overwrites any previous trend for
// the key.
type Calculator struct {
	breakpoints contracts.QualityBreakpoints
	thresholds  contracts.TrendThresholds
	classifier  *Classifier
	predictor   *Predictor
	cycles      *CyclePredictor
	log         zerolog.Logger
	now         func() time.Time
}

// NewCalculator creates a trend calculator.
func NewCalculator(
	breakpoints contracts.QualityBreakpoints,
	thresholds contracts.TrendThresholds,
	predictor *Predictor,
	cycles *CyclePredictor,
	log zerolog.Logger,
) *Calculator {
	return &Calculator{
		breakpoints: breakpoints,
		thresholds:  thresholds,
		classifier:  NewClassifier(breakpoints),
		predictor:   predictor,
		cycles:      cycles,
		log:         log.With().Str("component", "pricing.trend").Logger(),
		now:         time.Now,
	}
}

// Calculate computes the trend for one series. Series shorter than the
// emerging breakpoint get an insufficient_data placeholder with all
// numeric fields zeroed.
func (c *Calculator) Calculate(key contracts.SeriesKey, series []*contracts.PricePoint) *contracts.PriceTrend {
	now := c.now()
	quality := c.classifier.Classify(len(series))

	trend := &contracts.PriceTrend{
		ComponentID:       key.ComponentID,
		StoreID:           key.StoreID,
		DataPointsCount:   len(series),
		DataQualityStatus: quality.Status,
		LastUpdated:       now,
	}

	if len(series) < c.breakpoints.Emerging {
		trend.TrendType = contracts.TrendInsufficientData
		return trend
	}

	sorted := sortDescending(series)

	// Rolling averages over the fixed windows
	averages := make(map[int]*float64, len(trendWindows))
	for _, w := range trendWindows {
		averages[w] = windowAverage(sorted, w, now)
	}
	trend.Avg7Day = averages[7]
	trend.Avg30Day = averages[30]
	trend.Avg60Day = averages[60]
	trend.Avg90Day = averages[90]

	low, high := c.applyExtremes(trend, series)

	prices := make([]float64, len(sorted))
	for i, p := range sorted {
		prices[i] = p.EffectiveUnitPrice()
	}
	trend.PriceStdDev = round2(popStdDev(prices))

	c.classify(trend)

	// Current percentile of the latest price within the historical range.
	// Computed from the unrounded extremes; the stored fields round to
	// cents, which can land the latest price outside the rounded range.
	latest := sorted[0].EffectiveUnitPrice()
	if high == low {
		trend.CurrentPercentile = 50
	} else {
		pct := clamp((latest-low)/(high-low)*100, 0, 100)
		trend.CurrentPercentile = round4(pct)
	}

	// Regression and sale-cycle outputs only for mature series
	if len(series) >= c.breakpoints.Mature {
		c.applyPredictions(trend, key, series)
	}

	c.log.Debug().
		Str("key", key.String()).
		Str("trend_type", string(trend.TrendType)).
		Float64("strength", trend.TrendStrength).
		Int("points", trend.DataPointsCount).
		Msg("trend recomputed")

	return trend
}

// applyExtremes records the all-time low and high and the date of the
// first point achieving each. Returns the unrounded extremes for the
// percentile computation.
func (c *Calculator) applyExtremes(trend *contracts.PriceTrend, series []*contracts.PricePoint) (float64, float64) {
	ascending := sortAscending(series)

	low := math.Inf(1)
	high := math.Inf(-1)
	var lowDate, highDate time.Time

	for _, p := range ascending {
		price := p.EffectiveUnitPrice()
		if price < low {
			low = price
			lowDate = p.RecordedDate
		}
		if price > high {
			high = price
			highDate = p.RecordedDate
		}
	}

	trend.HistoricalLow = round2(low)
	trend.HistoricalLowDate = lowDate
	trend.HistoricalHigh = round2(high)
	trend.HistoricalHighDate = highDate

	return low, high
}

// classify labels the series using the 30/60-day averages and volatility.
func (c *Calculator) classify(trend *contracts.PriceTrend) {
	if trend.Avg30Day == nil || trend.Avg60Day == nil {
		trend.TrendType = contracts.TrendStable
		trend.TrendStrength = 0
		return
	}

	avg30 := *trend.Avg30Day
	avg60 := *trend.Avg60Day
	change := (avg30 - avg60) / avg60
	volatility := trend.PriceStdDev / avg30

	switch {
	case volatility > c.thresholds.VolatilityRatio:
		trend.TrendType = contracts.TrendVolatile
		trend.TrendStrength = round4(math.Min(100, volatility*100))
	case change > c.thresholds.RiseChange:
		trend.TrendType = contracts.TrendRising
		trend.TrendStrength = round4(math.Min(100, change*100))
	case change < c.thresholds.FallChange:
		trend.TrendType = contracts.TrendFalling
		trend.TrendStrength = round4(math.Min(100, math.Abs(change)*100))
	default:
		trend.TrendType = contracts.TrendStable
		trend.TrendStrength = round4(100 - math.Min(100, math.Abs(change)*200))
	}
}

// applyPredictions embeds the regression forecast and the sale-cycle
// prediction for a mature series.
func (c *Calculator) applyPredictions(trend *contracts.PriceTrend, key contracts.SeriesKey, series []*contracts.PricePoint) {
	prediction, insufficient := c.predictor.Predict(key, series)
	if insufficient != nil {
		// Cannot happen for a mature series, but never embed partial output.
		return
	}

	trend.PredictedNextPrice = float64Ptr(prediction.PredictedPrice)
	trend.PredictionConfidence = float64Ptr(prediction.Confidence)

	cycle := c.cycles.Predict(key, series)
	if cycle.Confidence > 0 && cycle.PredictedDate != nil {
		trend.PredictedLowDate = cycle.PredictedDate
	} else {
		trend.PredictedLowDate = prediction.PredictedLowDate
	}
}
