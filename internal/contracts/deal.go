package contracts

import "time"

// DealCategory labels a 1-10 quality score.
type DealCategory string

const (
	DealExcellent DealCategory = "excellent"
	DealGood      DealCategory = "good"
	DealAverage   DealCategory = "average"
	DealPoor      DealCategory = "poor"
	DealFake      DealCategory = "fake_deal"
)

// ScoreWeights are the fixed weights applied to benchmark deltas when
// computing the composite score. A missing benchmark's weight is dropped
// and the remainder renormalized, so absence never biases toward zero.
// The 60-day delta is reported but carries no weight.
type ScoreWeights struct {
	Vs7   float64
	Vs30  float64
	Vs90  float64
	VsLow float64
}

// DefaultScoreWeights returns the standard composite weights.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Vs7:   0.20,
		Vs30:  0.30,
		Vs90:  0.25,
		VsLow: 0.25,
	}
}

// DealComparisons are the percent deltas of a candidate price against each
// available benchmark, rounded to 4 decimals. Nil means the benchmark was
// not available.
type DealComparisons struct {
	Vs7Day           *float64 `json:"vs_7_day,omitempty"`
	Vs30Day          *float64 `json:"vs_30_day,omitempty"`
	Vs60Day          *float64 `json:"vs_60_day,omitempty"`
	Vs90Day          *float64 `json:"vs_90_day,omitempty"`
	VsHistoricalLow  *float64 `json:"vs_historical_low,omitempty"`
	VsHistoricalHigh *float64 `json:"vs_historical_high,omitempty"`
}

// StockUpRecommendation advises how many units to buy at the deal price.
type StockUpRecommendation struct {
	Recommended bool    `json:"recommended"`
	Quantity    float64 `json:"quantity"`
	Reason      string  `json:"reason"`
	StorageDays int     `json:"storage_days"`
	WeeklyUsage float64 `json:"weekly_usage"`
}

// AssessOptions carries the optional inputs of a deal assessment.
type AssessOptions struct {
	RegularPrice *float64
	StorageDays  int     // default 90
	WeeklyUsage  float64 // default 1
	Unit         string
	MaxBudget    *float64
	AdDealID     string
}

// DealQualityAssessment is a point-in-time judgment of one candidate price
// against the trend snapshot for its key. Immutable once created; retained
// for later lookup by id and cross-referencing by ad deal id.
type DealQualityAssessment struct {
	ID          string `json:"id"`
	ComponentID string `json:"component_id"`
	StoreID     string `json:"store_id"`
	AdDealID    string `json:"ad_deal_id,omitempty"`

	DealPrice      float64      `json:"deal_price"`
	QualityScore   int          `json:"quality_score"` // 1-10, 5 when insufficient
	Category       DealCategory `json:"category"`
	CompositeScore float64      `json:"composite_score"`

	Comparisons    DealComparisons        `json:"comparisons"`
	Recommendation *StockUpRecommendation `json:"recommendation,omitempty"`
	SaleCycle      *SaleCyclePrediction   `json:"sale_cycle,omitempty"`

	Insights []string `json:"insights,omitempty"`
	Analysis string   `json:"analysis"`

	// Insufficient is set when the series was below the scorer's gating
	// threshold; the score is then a neutral 5 with no recommendation.
	Insufficient *InsufficientData `json:"insufficient,omitempty"`

	DataPointsCount   int               `json:"data_points_count"`
	DataQualityStatus DataQualityStatus `json:"data_quality_status"`

	CreatedAt time.Time `json:"created_at"`
}

// FakeDealReport is the result of scanning a campaign for fake deals.
type FakeDealReport struct {
	AdDealID     string                   `json:"ad_deal_id"`
	FlaggedCount int                      `json:"flagged_count"`
	FlaggedDeals []*DealQualityAssessment `json:"flagged_deals"`
}
