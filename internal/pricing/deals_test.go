package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpantry/priceintel/internal/contracts"
	"github.com/openpantry/priceintel/pkg/config"
)

func newTestScorer() *Scorer {
	defaults := config.PricingConfig{
		DefaultStorageDays: 90,
		DefaultWeeklyUsage: 1,
	}
	s := NewScorer(contracts.DefaultScoreWeights(), defaults, testLogger())
	s.now = frozenNow
	return s
}

// matureTrend builds a trend snapshot with only the given benchmarks set.
func matureTrend(avg7, avg30, avg90, low *float64) *contracts.PriceTrend {
	trend := &contracts.PriceTrend{
		ComponentID:       "test",
		StoreID:           "all",
		TrendType:         contracts.TrendStable,
		Avg7Day:           avg7,
		Avg30Day:          avg30,
		Avg90Day:          avg90,
		DataPointsCount:   20,
		DataQualityStatus: contracts.QualityMature,
	}
	if low != nil {
		trend.HistoricalLow = *low
		trend.HistoricalHigh = *low * 3
	}
	return trend
}

func TestScoreFromComposite_Ladder(t *testing.T) {
	tests := []struct {
		composite float64
		score     int
	}{
		{-0.50, 10},
		{-0.30, 10}, // band edges are inclusive on the lower side
		{-0.2999, 9},
		{-0.25, 9},
		{-0.21, 9},
		{-0.16, 8},
		{-0.10, 8},
		{-0.06, 7},
		{-0.05, 7},
		{0.00, 6},
		{0.05, 5},
		{0.09, 4},
		{0.10, 4},
		{0.20, 3},
		{0.30, 2},
		{0.31, 1},
		{1.00, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.score, scoreFromComposite(tt.composite), "composite %.4f", tt.composite)
	}
}

func TestCategoryFromScore(t *testing.T) {
	tests := []struct {
		score    int
		category contracts.DealCategory
	}{
		{10, contracts.DealExcellent},
		{9, contracts.DealExcellent},
		{8, contracts.DealGood},
		{7, contracts.DealGood},
		{6, contracts.DealAverage},
		{5, contracts.DealAverage},
		{4, contracts.DealPoor},
		{3, contracts.DealPoor},
		{2, contracts.DealFake},
		{1, contracts.DealFake},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.category, categoryFromScore(tt.score), "score %d", tt.score)
	}
}

func TestScorer_RenormalizesMissingBenchmarks(t *testing.T) {
	scorer := newTestScorer()
	key := contracts.NewSeriesKey("test", "")

	// Only the 30-day average exists, so the composite must equal the
	// 30-day delta exactly.
	trend := matureTrend(nil, float64Ptr(4.00), nil, nil)

	assessment := scorer.Assess(key, trend, nil, 3.00, contracts.AssessOptions{})

	assert.InDelta(t, -0.25, assessment.CompositeScore, 0.0001)
	assert.Equal(t, 9, assessment.QualityScore)
	assert.Equal(t, contracts.DealExcellent, assessment.Category)
	assert.Nil(t, assessment.Insufficient)
}

func TestScorer_NearHistoricalLowDeal(t *testing.T) {
	scorer := newTestScorer()
	key := contracts.NewSeriesKey("chicken-breast", "costco")

	trend := matureTrend(nil, float64Ptr(4.00), nil, float64Ptr(2.50))

	assessment := scorer.Assess(key, trend, nil, 2.99, contracts.AssessOptions{})

	// vs30 = (2.99-4.00)/4.00 weighted 0.30, low term = (2.50-2.99)/2.99
	// weighted 0.25, renormalized over 0.55.
	assert.InDelta(t, -0.2122, assessment.CompositeScore, 0.0005)
	assert.Equal(t, 9, assessment.QualityScore)
	assert.Equal(t, contracts.DealExcellent, assessment.Category)

	// The reported low comparison stays benchmark-relative.
	require.NotNil(t, assessment.Comparisons.VsHistoricalLow)
	assert.InDelta(t, 0.196, *assessment.Comparisons.VsHistoricalLow, 0.0005)

	// Excellent deals triple the stock-up baseline: 12 weeks at the
	// default usage of one per week.
	require.NotNil(t, assessment.Recommendation)
	assert.True(t, assessment.Recommendation.Recommended)
	assert.InDelta(t, 36, assessment.Recommendation.Quantity, 0.001)
	assert.Equal(t, 90, assessment.Recommendation.StorageDays)
}

func TestScorer_StockUpBudgetCap(t *testing.T) {
	scorer := newTestScorer()
	key := contracts.NewSeriesKey("chicken-breast", "costco")

	trend := matureTrend(nil, float64Ptr(4.00), nil, float64Ptr(2.50))
	opts := contracts.AssessOptions{MaxBudget: float64Ptr(20)}

	assessment := scorer.Assess(key, trend, nil, 2.99, opts)

	require.NotNil(t, assessment.Recommendation)
	assert.InDelta(t, 6, assessment.Recommendation.Quantity, 0.001)
	assert.Contains(t, assessment.Recommendation.Reason, "budget")
}

func TestScorer_GoodDealDoublesBaseline(t *testing.T) {
	scorer := newTestScorer()
	key := contracts.NewSeriesKey("test", "")

	// vs30 = -0.125: score 8, good.
	trend := matureTrend(nil, float64Ptr(4.00), nil, nil)

	assessment := scorer.Assess(key, trend, nil, 3.50, contracts.AssessOptions{
		StorageDays: 28,
		WeeklyUsage: 2,
	})

	assert.Equal(t, 8, assessment.QualityScore)
	assert.Equal(t, contracts.DealGood, assessment.Category)

	// 4 storage weeks x 2 weekly x 2 for a good deal.
	require.NotNil(t, assessment.Recommendation)
	assert.InDelta(t, 16, assessment.Recommendation.Quantity, 0.001)
}

func TestScorer_ConfiguredDefaultsFillOmittedInputs(t *testing.T) {
	defaults := config.PricingConfig{
		DefaultStorageDays: 28,
		DefaultWeeklyUsage: 2,
	}
	scorer := NewScorer(contracts.DefaultScoreWeights(), defaults, testLogger())
	scorer.now = frozenNow
	key := contracts.NewSeriesKey("test", "")

	trend := matureTrend(nil, float64Ptr(4.00), nil, float64Ptr(2.50))

	// No storage or usage in the request: the configured defaults apply.
	// Excellent deal, so 4 storage weeks x 2 weekly x 3.
	assessment := scorer.Assess(key, trend, nil, 2.99, contracts.AssessOptions{})

	require.NotNil(t, assessment.Recommendation)
	assert.Equal(t, 28, assessment.Recommendation.StorageDays)
	assert.InDelta(t, 2, assessment.Recommendation.WeeklyUsage, 0.001)
	assert.InDelta(t, 24, assessment.Recommendation.Quantity, 0.001)
}

func TestScorer_RegularPriceClaimInsights(t *testing.T) {
	scorer := newTestScorer()
	key := contracts.NewSeriesKey("test", "")

	trend := matureTrend(nil, float64Ptr(4.00), nil, nil)
	opts := contracts.AssessOptions{RegularPrice: float64Ptr(8.00)}

	assessment := scorer.Assess(key, trend, nil, 3.00, opts)

	// The advertised discount is reported, and the inflated regular-price
	// claim is called out against the 30-day average.
	require.NotEmpty(t, assessment.Insights)
	joined := assessment.Analysis
	assert.Contains(t, joined, "$8.00 regular price")
	assert.Contains(t, joined, "well above the $4.00 30-day average")

	// A plausible regular price draws no inflation call-out.
	honest := scorer.Assess(key, trend, nil, 3.00, contracts.AssessOptions{
		RegularPrice: float64Ptr(4.25),
	})
	assert.NotContains(t, honest.Analysis, "well above")
	assert.Contains(t, honest.Analysis, "$4.25 regular price")
}

func TestScorer_FakeDeal(t *testing.T) {
	scorer := newTestScorer()
	key := contracts.NewSeriesKey("test", "")

	trend := matureTrend(nil, float64Ptr(4.00), nil, nil)

	assessment := scorer.Assess(key, trend, nil, 6.00, contracts.AssessOptions{AdDealID: "ad-77"})

	assert.InDelta(t, 0.50, assessment.CompositeScore, 0.0001)
	assert.Equal(t, 1, assessment.QualityScore)
	assert.Equal(t, contracts.DealFake, assessment.Category)
	assert.Equal(t, "ad-77", assessment.AdDealID)
	assert.Nil(t, assessment.Recommendation)
}

func TestScorer_AverageDealGetsNoRecommendation(t *testing.T) {
	scorer := newTestScorer()
	key := contracts.NewSeriesKey("test", "")

	trend := matureTrend(nil, float64Ptr(4.00), nil, nil)

	assessment := scorer.Assess(key, trend, nil, 4.00, contracts.AssessOptions{})

	assert.Equal(t, 6, assessment.QualityScore)
	assert.Equal(t, contracts.DealAverage, assessment.Category)
	assert.Nil(t, assessment.Recommendation)
}

func TestScorer_ThinSeriesIsInsufficient(t *testing.T) {
	scorer := newTestScorer()
	key := contracts.NewSeriesKey("test", "")

	trend := matureTrend(nil, float64Ptr(4.00), nil, nil)
	trend.DataPointsCount = 9
	trend.DataQualityStatus = contracts.QualityEmerging

	assessment := scorer.Assess(key, trend, nil, 2.00, contracts.AssessOptions{})

	assert.Equal(t, 5, assessment.QualityScore)
	assert.Equal(t, contracts.DealAverage, assessment.Category)
	require.NotNil(t, assessment.Insufficient)
	assert.Equal(t, 10, assessment.Insufficient.Required)
	assert.Equal(t, 9, assessment.Insufficient.Actual)
	assert.Nil(t, assessment.Recommendation)
	assert.Zero(t, assessment.CompositeScore)
}

func TestScorer_NilTrendIsInsufficient(t *testing.T) {
	scorer := newTestScorer()
	key := contracts.NewSeriesKey("test", "")

	assessment := scorer.Assess(key, nil, nil, 2.00, contracts.AssessOptions{})

	assert.Equal(t, 5, assessment.QualityScore)
	assert.Equal(t, contracts.DealAverage, assessment.Category)
	require.NotNil(t, assessment.Insufficient)
	assert.Equal(t, contracts.QualityInsufficient, assessment.DataQualityStatus)
}

func TestScorer_CycleMessageJoinsAnalysis(t *testing.T) {
	scorer := newTestScorer()
	key := contracts.NewSeriesKey("test", "")

	trend := matureTrend(nil, float64Ptr(4.00), nil, nil)
	cycle := &contracts.SaleCyclePrediction{
		Message: "sale expected within 5 days - worth waiting",
	}

	assessment := scorer.Assess(key, trend, cycle, 3.00, contracts.AssessOptions{})

	assert.Contains(t, assessment.Analysis, "sale expected within 5 days")
	assert.Same(t, cycle, assessment.SaleCycle)
}
