package contracts

import "time"

// TrendType classifies the direction of a price series.
type TrendType string

const (
	TrendInsufficientData TrendType = "insufficient_data"
	TrendRising           TrendType = "rising"
	TrendFalling          TrendType = "falling"
	TrendStable           TrendType = "stable"
	TrendVolatile         TrendType = "volatile"
)

// PriceTrend is the derived, cached statistics object for one series. It is
// fully overwritten on each recompute, never merged.
type PriceTrend struct {
	ComponentID string `json:"component_id"`
	StoreID     string `json:"store_id"`

	TrendType     TrendType `json:"trend_type"`
	TrendStrength float64   `json:"trend_strength"` // 0-100

	Avg7Day  *float64 `json:"avg_7_day,omitempty"`
	Avg30Day *float64 `json:"avg_30_day,omitempty"`
	Avg60Day *float64 `json:"avg_60_day,omitempty"`
	Avg90Day *float64 `json:"avg_90_day,omitempty"`

	HistoricalLow      float64   `json:"historical_low"`
	HistoricalLowDate  time.Time `json:"historical_low_date"`
	HistoricalHigh     float64   `json:"historical_high"`
	HistoricalHighDate time.Time `json:"historical_high_date"`

	CurrentPercentile float64 `json:"current_percentile"`
	PriceStdDev       float64 `json:"price_std_dev"`

	DataPointsCount   int               `json:"data_points_count"`
	DataQualityStatus DataQualityStatus `json:"data_quality_status"`

	// Regression outputs, present only for mature series.
	PredictedNextPrice   *float64   `json:"predicted_next_price,omitempty"`
	PredictionConfidence *float64   `json:"prediction_confidence,omitempty"`
	PredictedLowDate     *time.Time `json:"predicted_low_date,omitempty"`

	LastUpdated time.Time `json:"last_updated"`
}

// TrendThresholds are the fixed ratios used to classify a series.
type TrendThresholds struct {
	// VolatilityRatio: stddev/avg30 above this is volatile.
	VolatilityRatio float64
	// RiseChange: (avg30-avg60)/avg60 above this is rising.
	RiseChange float64
	// FallChange: change below this is falling.
	FallChange float64
}

// DefaultTrendThresholds returns the standard classification thresholds.
func DefaultTrendThresholds() TrendThresholds {
	return TrendThresholds{
		VolatilityRatio: 0.15,
		RiseChange:      0.05,
		FallChange:      -0.05,
	}
}

// PricePrediction is the linear-regression forecast for a mature series.
type PricePrediction struct {
	ComponentID string `json:"component_id"`
	StoreID     string `json:"store_id"`

	PredictedPrice float64 `json:"predicted_price"`
	Confidence     float64 `json:"confidence"` // R^2 * 100, clamped 0-100
	Trend          string  `json:"trend"`      // rising | falling | stable
	Slope          float64 `json:"slope"`      // price change per day

	// TargetDate is 30 days past the last observation.
	TargetDate       time.Time  `json:"target_date"`
	PredictedLowDate *time.Time `json:"predicted_low_date,omitempty"`

	DataPoints  int       `json:"data_points"`
	GeneratedAt time.Time `json:"generated_at"`
}
