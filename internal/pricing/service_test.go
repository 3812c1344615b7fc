package pricing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpantry/priceintel/internal/contracts"
	"github.com/openpantry/priceintel/internal/pricing/store"
	"github.com/openpantry/priceintel/pkg/config"
)

func newTestService() *Service {
	cfg := config.PricingConfig{
		DefaultStorageDays: 90,
		DefaultWeeklyUsage: 1,
		DropAlertRatio:     0.80,
		TrendCacheTTL:      10 * time.Minute,
	}
	return NewService(
		store.NewMemoryPriceStore(),
		store.NewMemoryTrendStore(),
		store.NewMemoryAssessmentStore(),
		cfg,
		testLogger(),
	)
}

// captureAt records a price with an explicit recorded date.
func captureAt(t *testing.T, s *Service, componentID string, price float64, daysAgo int, opts contracts.CaptureOptions) *contracts.CaptureResult {
	t.Helper()
	opts.RecordedDate = time.Now().UTC().AddDate(0, 0, -daysAgo)
	result, err := s.CapturePrice(context.Background(), componentID, price, contracts.SourceManual, opts)
	require.NoError(t, err)
	return result
}

func TestCapturePrice_Validation(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	tests := []struct {
		name        string
		componentID string
		price       float64
		source      contracts.PriceSource
		opts        contracts.CaptureOptions
	}{
		{"empty component", "", 1.99, contracts.SourceManual, contracts.CaptureOptions{}},
		{"negative price", "milk", -1, contracts.SourceManual, contracts.CaptureOptions{}},
		{"unknown source", "milk", 1.99, "telepathy", contracts.CaptureOptions{}},
		{"negative quantity", "milk", 1.99, contracts.SourceManual, contracts.CaptureOptions{Quantity: -2}},
		{"negative original price", "milk", 1.99, contracts.SourceManual, contracts.CaptureOptions{OriginalPrice: float64Ptr(-5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CapturePrice(ctx, tt.componentID, tt.price, tt.source, tt.opts)
			require.Error(t, err)

			var verr *contracts.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestCapturePrice_SavingsRoundTrip(t *testing.T) {
	s := newTestService()

	deal := captureAt(t, s, "cheese", 6.00, 0, contracts.CaptureOptions{
		IsDeal:        true,
		OriginalPrice: float64Ptr(10.00),
	})
	require.NotNil(t, deal.Price.SavingsAmount)
	assert.InDelta(t, 4.00, *deal.Price.SavingsAmount, 0.001)

	// Without the deal flag no savings are derived even with an original
	// price attached.
	plain := captureAt(t, s, "cheese", 6.00, 0, contracts.CaptureOptions{
		OriginalPrice: float64Ptr(10.00),
	})
	assert.Nil(t, plain.Price.SavingsAmount)

	// An original price at or below the paid price yields no savings.
	noSave := captureAt(t, s, "cheese", 6.00, 0, contracts.CaptureOptions{
		IsDeal:        true,
		OriginalPrice: float64Ptr(6.00),
	})
	assert.Nil(t, noSave.Price.SavingsAmount)
}

func TestCapturePrice_UnitPriceFromQuantity(t *testing.T) {
	s := newTestService()

	result := captureAt(t, s, "eggs", 7.49, 0, contracts.CaptureOptions{
		Quantity: 12,
		Unit:     "egg",
	})

	assert.InDelta(t, 0.6242, result.Price.PricePerUnit, 0.0001)
	assert.Equal(t, float64(12), result.Price.Quantity)

	// Quantity defaults to one.
	single := captureAt(t, s, "eggs", 7.49, 0, contracts.CaptureOptions{})
	assert.Equal(t, float64(1), single.Price.Quantity)
	assert.InDelta(t, 7.49, single.Price.PricePerUnit, 0.001)
}

func TestCapturePrice_FifthPointPromotesToEmerging(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	key := contracts.NewSeriesKey("oatmeal", "")

	// Four points: still insufficient, no trend is stored.
	for i := 0; i < 4; i++ {
		result := captureAt(t, s, "oatmeal", 3.99, 10-i, contracts.CaptureOptions{})
		assert.Equal(t, contracts.QualityInsufficient, result.DataQuality.Status)
		assert.False(t, result.TrendsUpdated)
	}

	trend, err := s.trends.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, trend)

	// The fifth point promotes the series and triggers the first trend.
	result := captureAt(t, s, "oatmeal", 3.79, 0, contracts.CaptureOptions{})
	assert.Equal(t, contracts.QualityEmerging, result.DataQuality.Status)
	assert.True(t, result.TrendsUpdated)
	assert.Equal(t, contracts.QualityEmerging, result.Price.DataQualityAtCapture)

	trend, err = s.trends.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, trend)
	assert.NotEqual(t, contracts.TrendInsufficientData, trend.TrendType)
	assert.Equal(t, 5, trend.DataPointsCount)
	require.NotNil(t, trend.Avg7Day)
}

// auditStore records the audit field of each point as it is persisted,
// the way a durable backend would write it.
type auditStore struct {
	contracts.PriceStore
	mu   sync.Mutex
	seen []contracts.DataQualityStatus
}

func (a *auditStore) Append(ctx context.Context, p *contracts.PricePoint) error {
	a.mu.Lock()
	a.seen = append(a.seen, p.DataQualityAtCapture)
	a.mu.Unlock()
	return a.PriceStore.Append(ctx, p)
}

func TestCapturePrice_AuditSnapshotSetBeforePersist(t *testing.T) {
	audit := &auditStore{PriceStore: store.NewMemoryPriceStore()}
	s := NewService(
		audit,
		store.NewMemoryTrendStore(),
		store.NewMemoryAssessmentStore(),
		config.PricingConfig{DropAlertRatio: 0.80},
		testLogger(),
	)

	for i := 0; i < 6; i++ {
		captureAt(t, s, "yogurt", 1.29, 6-i, contracts.CaptureOptions{})
	}

	// The stage written at insert time counts the point being captured:
	// points one through four are insufficient, five and six emerging.
	require.Len(t, audit.seen, 6)
	for i, status := range audit.seen {
		expected := contracts.QualityInsufficient
		if i >= 4 {
			expected = contracts.QualityEmerging
		}
		assert.Equal(t, expected, status, "point %d", i+1)
	}
}

func TestGetDataQualityStatus(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		captureAt(t, s, "butter", 4.99, i, contracts.CaptureOptions{})
	}

	quality, err := s.GetDataQualityStatus(ctx, "butter", "")
	require.NoError(t, err)
	assert.Equal(t, 12, quality.Count)
	assert.Equal(t, contracts.QualityReliable, quality.Status)
	assert.True(t, quality.HasTrends)
	assert.False(t, quality.CanPredict)

	// Unknown series report zero points, not an error.
	empty, err := s.GetDataQualityStatus(ctx, "nonexistent", "")
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
	assert.Equal(t, contracts.QualityInsufficient, empty.Status)
}

func TestGetPriceHistory_FiltersAndLimit(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		captureAt(t, s, "milk", 3.00+float64(i)*0.10, 9-i, contracts.CaptureOptions{})
	}

	start := time.Now().UTC().AddDate(0, 0, -5)
	history, err := s.GetPriceHistory(ctx, "milk", contracts.HistoryOptions{
		StartDate: &start,
		Limit:     3,
	})
	require.NoError(t, err)

	// Count reflects the filter, not the limit.
	assert.Equal(t, 6, history.Count)
	require.Len(t, history.Prices, 3)

	// Newest first.
	for i := 1; i < len(history.Prices); i++ {
		assert.False(t, history.Prices[i].RecordedDate.After(history.Prices[i-1].RecordedDate))
	}

	// The trend rides along once the series is large enough.
	require.NotNil(t, history.Trend)
	assert.Equal(t, 10, history.Trend.DataPointsCount)
}

func TestComparePricesAcrossStores(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		captureAt(t, s, "chicken", 5.49, 5-i, contracts.CaptureOptions{StoreID: "kroger"})
		captureAt(t, s, "chicken", 4.99, 5-i, contracts.CaptureOptions{StoreID: "costco"})
	}
	// Aggregate series must not appear as a store.
	captureAt(t, s, "chicken", 5.25, 0, contracts.CaptureOptions{})

	comparison, err := s.ComparePricesAcrossStores(ctx, "chicken")
	require.NoError(t, err)

	require.Len(t, comparison.Comparisons, 2)
	assert.Equal(t, "costco", comparison.Comparisons[0].StoreID)
	assert.Equal(t, "kroger", comparison.Comparisons[1].StoreID)

	require.NotNil(t, comparison.Recommendation)
	assert.Equal(t, "costco", comparison.Recommendation.StoreID)
	assert.Contains(t, comparison.Recommendation.Reason, "4.99")
}

func TestGetTrendingPrices(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	put := func(component string, trendType contracts.TrendType, strength float64) {
		require.NoError(t, s.trends.Put(ctx, &contracts.PriceTrend{
			ComponentID:   component,
			StoreID:       "all",
			TrendType:     trendType,
			TrendStrength: strength,
		}))
	}

	put("a", contracts.TrendRising, 50)
	put("b", contracts.TrendFalling, 30)
	put("c", contracts.TrendVolatile, 80)
	put("d", contracts.TrendRising, 5) // below the default strength floor
	put("e", contracts.TrendInsufficientData, 99)

	trending, err := s.GetTrendingPrices(ctx, TrendingOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, trending.Rising)
	assert.Equal(t, 1, trending.Falling)
	assert.Equal(t, 1, trending.Volatile)

	require.Len(t, trending.Trends, 3)
	assert.Equal(t, "c", trending.Trends[0].ComponentID)
	assert.Equal(t, "a", trending.Trends[1].ComponentID)
	assert.Equal(t, "b", trending.Trends[2].ComponentID)

	// Type filter narrows the listing but not the counters.
	rising, err := s.GetTrendingPrices(ctx, TrendingOptions{TrendType: contracts.TrendRising})
	require.NoError(t, err)
	assert.Equal(t, 1, rising.Falling)
	require.Len(t, rising.Trends, 1)
	assert.Equal(t, "a", rising.Trends[0].ComponentID)
}

func TestGetPriceDropAlerts(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	require.NoError(t, s.trends.Put(ctx, &contracts.PriceTrend{
		ComponentID: "dropped",
		StoreID:     "all",
		Avg7Day:     float64Ptr(3.00),
		Avg30Day:    float64Ptr(4.00),
	}))
	require.NoError(t, s.trends.Put(ctx, &contracts.PriceTrend{
		ComponentID: "steady",
		StoreID:     "all",
		Avg7Day:     float64Ptr(3.90),
		Avg30Day:    float64Ptr(4.00),
	}))

	alerts, err := s.GetPriceDropAlerts(ctx)
	require.NoError(t, err)

	require.Len(t, alerts, 1)
	assert.Equal(t, "dropped", alerts[0].ComponentID)
	assert.InDelta(t, 25, alerts[0].DropPercent, 0.001)
}

func TestPredictFuturePrice_InsufficientSeries(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		captureAt(t, s, "tea", 5.99, i, contracts.CaptureOptions{})
	}

	prediction, insufficient, err := s.PredictFuturePrice(ctx, "tea", "")
	require.NoError(t, err)
	assert.Nil(t, prediction)
	require.NotNil(t, insufficient)
	assert.Equal(t, 20, insufficient.Required)
	assert.Equal(t, 8, insufficient.Actual)
}

func TestAssessDeal_EmergingSeriesStillInsufficient(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	// Seven points: a trend exists but the scorer's own gate is ten.
	for i := 0; i < 7; i++ {
		captureAt(t, s, "granola", 4.50, 7-i, contracts.CaptureOptions{})
	}

	assessment, err := s.AssessDeal(ctx, 3.00, "granola", "", contracts.AssessOptions{})
	require.NoError(t, err)

	assert.Equal(t, 5, assessment.QualityScore)
	assert.Equal(t, contracts.DealAverage, assessment.Category)
	require.NotNil(t, assessment.Insufficient)
	assert.Equal(t, 7, assessment.Insufficient.Actual)
}

func TestAssessDeal_PersistsForCampaignLookup(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	// Twelve steady points around 4.00, then an "ad deal" priced above
	// every benchmark.
	for i := 0; i < 12; i++ {
		captureAt(t, s, "soda", 4.00, 12-i, contracts.CaptureOptions{})
	}

	fake, err := s.AssessDeal(ctx, 6.00, "soda", "", contracts.AssessOptions{AdDealID: "flyer-9"})
	require.NoError(t, err)
	assert.Equal(t, contracts.DealFake, fake.Category)

	good, err := s.AssessDeal(ctx, 3.00, "soda", "", contracts.AssessOptions{AdDealID: "flyer-9"})
	require.NoError(t, err)
	assert.NotEqual(t, contracts.DealFake, good.Category)

	report, err := s.FlagFakeDeals(ctx, "flyer-9")
	require.NoError(t, err)
	assert.Equal(t, 1, report.FlaggedCount)
	require.Len(t, report.FlaggedDeals, 1)
	assert.Equal(t, fake.ID, report.FlaggedDeals[0].ID)

	// Unknown campaigns report zero flags, not an error.
	empty, err := s.FlagFakeDeals(ctx, "unknown")
	require.NoError(t, err)
	assert.Zero(t, empty.FlaggedCount)
}

func TestRecomputeTrends(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		captureAt(t, s, "apples", 2.99, 6-i, contracts.CaptureOptions{})
	}
	// Too short to earn a trend.
	captureAt(t, s, "pears", 3.49, 0, contracts.CaptureOptions{})

	updated, err := s.RecomputeTrends(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
}

func TestCapturePrice_ConcurrentSameKey(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	key := contracts.NewSeriesKey("bread", "")

	const writers = 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			opts := contracts.CaptureOptions{
				RecordedDate: time.Now().UTC().AddDate(0, 0, -i),
			}
			_, err := s.CapturePrice(ctx, "bread", 2.50, contracts.SourceManual, opts)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	count, err := s.store.Count(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, writers, count)

	// Captures are serialized per key, so the last trend write saw the
	// complete series.
	trend, err := s.trends.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, trend)
	assert.Equal(t, writers, trend.DataPointsCount)
}
