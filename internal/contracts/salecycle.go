package contracts

import "time"

// CycleType labels the periodicity of a key's sale events.
type CycleType string

const (
	CycleWeekly    CycleType = "weekly"
	CycleBiweekly  CycleType = "biweekly"
	CycleMonthly   CycleType = "monthly"
	CycleSixWeek   CycleType = "six_week"
	CycleIrregular CycleType = "irregular"
)

// Sale-cycle advisory recommendations.
const (
	CycleAdviceWait           = "wait"
	CycleAdviceMayWait        = "may_wait"
	CycleAdviceNoImminentSale = "no_imminent_sale"
)

// SaleCyclePrediction summarizes the recurring sale pattern of one key and
// predicts the next sale. When fewer than three sale events exist the
// prediction carries zero confidence, a nil DaysUntil and an explanatory
// message; that is a normal outcome, not an error.
type SaleCyclePrediction struct {
	ComponentID string `json:"component_id"`
	StoreID     string `json:"store_id"`

	DealCount     int     `json:"deal_count"`
	AvgGapDays    float64 `json:"avg_gap_days"`
	MinGapDays    int     `json:"min_gap_days"`
	MaxGapDays    int     `json:"max_gap_days"`
	GapStdDev     float64 `json:"gap_std_dev"`
	SalesPerMonth float64 `json:"sales_per_month"`

	Confidence float64   `json:"confidence"` // 0-100
	CycleType  CycleType `json:"cycle_type,omitempty"`

	// PreferredWeekday is set when at least 40% of sales land on the same
	// weekday.
	PreferredWeekday *time.Weekday `json:"preferred_weekday,omitempty"`

	LastSaleDate  *time.Time `json:"last_sale_date,omitempty"`
	PredictedDate *time.Time `json:"predicted_date,omitempty"`
	DaysUntil     *int       `json:"days_until,omitempty"`

	Recommendation string `json:"recommendation,omitempty"`
	Message        string `json:"message"`
}
