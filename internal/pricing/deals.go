package pricing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openpantry/priceintel/internal/contracts"
	"github.com/openpantry/priceintel/pkg/config"
)

// scorerGateCount is the scorer's own minimum series size. It is
// deliberately stricter than the trend calculator's guard: a 5-9 point
// series has a trend but is still refused an assessment.
const scorerGateCount = 10

// maxStorageWeeks caps stock-up horizons regardless of storage days.
const maxStorageWeeks = 12

// scoreLadder maps the composite to a 1-10 score. Bands are inclusive on
// the lower side; the first matching entry wins, scanning from the most
// negative (cheapest) composite.
var scoreLadder = []struct {
	threshold float64
	score     int
}{
	{-0.30, 10},
	{-0.25, 9},
	{-0.20, 9},
	{-0.15, 8},
	{-0.10, 8},
	{-0.05, 7},
	{0.00, 6},
	{0.05, 5},
	{0.10, 4},
	{0.20, 3},
	{0.30, 2},
}

var categoryDescriptions = map[contracts.DealCategory]string{
	contracts.DealExcellent: "Exceptional price, at or near historical lows",
	contracts.DealGood:      "Solid deal, meaningfully below typical prices",
	contracts.DealAverage:   "Ordinary price, no urgency to buy",
	contracts.DealPoor:      "Above typical prices, not a real bargain",
	contracts.DealFake:      "Advertised deal is worse than everyday prices",
}

// Scorer judges candidate deal prices against the cached trend for their
// key. The configured defaults fill in storage and usage when a request
// omits them.
type Scorer struct {
	weights  contracts.ScoreWeights
	defaults config.PricingConfig
	log      zerolog.Logger
	now      func() time.Time
}

// NewScorer creates a deal quality scorer.
func NewScorer(weights contracts.ScoreWeights, defaults config.PricingConfig, log zerolog.Logger) *Scorer {
	return &Scorer{
		weights:  weights,
		defaults: defaults,
		log:      log.With().Str("component", "pricing.deals").Logger(),
		now:      time.Now,
	}
}

// Assess scores a candidate deal price against the trend snapshot. A nil
// trend or one backed by fewer than ten points yields a neutral
// insufficient-data assessment (score 5, no recommendation).
func (s *Scorer) Assess(
	key contracts.SeriesKey,
	trend *contracts.PriceTrend,
	cycle *contracts.SaleCyclePrediction,
	dealPrice float64,
	opts contracts.AssessOptions,
) *contracts.DealQualityAssessment {
	assessment := &contracts.DealQualityAssessment{
		ID:          uuid.NewString(),
		ComponentID: key.ComponentID,
		StoreID:     key.StoreID,
		AdDealID:    opts.AdDealID,
		DealPrice:   round2(dealPrice),
		SaleCycle:   cycle,
		CreatedAt:   s.now(),
	}

	count := 0
	if trend != nil {
		count = trend.DataPointsCount
		assessment.DataPointsCount = count
		assessment.DataQualityStatus = trend.DataQualityStatus
	} else {
		assessment.DataQualityStatus = contracts.QualityInsufficient
	}

	if trend == nil || count < scorerGateCount {
		assessment.QualityScore = 5
		assessment.Category = contracts.DealAverage
		assessment.Insufficient = contracts.NewInsufficientData(
			fmt.Sprintf("need %d price points to assess deal quality, have %d", scorerGateCount, count),
			scorerGateCount, count,
		)
		assessment.Analysis = "Not enough price history to judge this deal; capture more prices first."
		return assessment
	}

	assessment.Comparisons = s.compare(dealPrice, trend)
	assessment.CompositeScore = s.composite(dealPrice, trend)
	assessment.QualityScore = scoreFromComposite(assessment.CompositeScore)
	assessment.Category = categoryFromScore(assessment.QualityScore)
	assessment.Insights = s.insights(dealPrice, trend, assessment.Comparisons, opts)
	assessment.Recommendation = s.stockUp(dealPrice, assessment.QualityScore, assessment.Category, opts)
	assessment.Analysis = s.analysis(assessment)

	s.log.Debug().
		Str("key", key.String()).
		Float64("deal_price", dealPrice).
		Float64("composite", assessment.CompositeScore).
		Int("score", assessment.QualityScore).
		Str("category", string(assessment.Category)).
		Msg("deal assessed")

	return assessment
}

// compare builds the per-benchmark percent deltas, each rounded to 4
// decimals. Missing benchmarks stay nil.
func (s *Scorer) compare(dealPrice float64, trend *contracts.PriceTrend) contracts.DealComparisons {
	delta := func(benchmark *float64) *float64 {
		if benchmark == nil || *benchmark == 0 {
			return nil
		}
		return float64Ptr(round4((dealPrice - *benchmark) / *benchmark))
	}

	comparisons := contracts.DealComparisons{
		Vs7Day:  delta(trend.Avg7Day),
		Vs30Day: delta(trend.Avg30Day),
		Vs60Day: delta(trend.Avg60Day),
		Vs90Day: delta(trend.Avg90Day),
	}
	if trend.HistoricalLow > 0 {
		comparisons.VsHistoricalLow = delta(&trend.HistoricalLow)
	}
	if trend.HistoricalHigh > 0 {
		comparisons.VsHistoricalHigh = delta(&trend.HistoricalHigh)
	}
	return comparisons
}

// composite is the weighted average of the scoring deltas, renormalized by
// the weights actually present so a missing benchmark never drags the
// result toward zero. The rolling-average terms are (deal-avg)/avg; the
// historical-low term is (low-deal)/deal, which rewards prices close to
// the floor.
func (s *Scorer) composite(dealPrice float64, trend *contracts.PriceTrend) float64 {
	var weighted, totalWeight float64

	add := func(delta, weight float64) {
		weighted += delta * weight
		totalWeight += weight
	}

	if trend.Avg7Day != nil && *trend.Avg7Day != 0 {
		add((dealPrice-*trend.Avg7Day)/ *trend.Avg7Day, s.weights.Vs7)
	}
	if trend.Avg30Day != nil && *trend.Avg30Day != 0 {
		add((dealPrice-*trend.Avg30Day)/ *trend.Avg30Day, s.weights.Vs30)
	}
	if trend.Avg90Day != nil && *trend.Avg90Day != 0 {
		add((dealPrice-*trend.Avg90Day)/ *trend.Avg90Day, s.weights.Vs90)
	}
	if trend.HistoricalLow > 0 && dealPrice > 0 {
		add((trend.HistoricalLow-dealPrice)/dealPrice, s.weights.VsLow)
	}

	if totalWeight == 0 {
		return 0
	}
	return round4(weighted / totalWeight)
}

// scoreFromComposite walks the ladder from the most negative band; more
// negative composite means cheaper, so a better score.
func scoreFromComposite(composite float64) int {
	for _, band := range scoreLadder {
		if composite <= band.threshold {
			return band.score
		}
	}
	return 1
}

func categoryFromScore(score int) contracts.DealCategory {
	switch {
	case score >= 9:
		return contracts.DealExcellent
	case score >= 7:
		return contracts.DealGood
	case score >= 5:
		return contracts.DealAverage
	case score >= 3:
		return contracts.DealPoor
	default:
		return contracts.DealFake
	}
}

// insights appends qualitative observations for borderline-notable deals.
func (s *Scorer) insights(dealPrice float64, trend *contracts.PriceTrend, comparisons contracts.DealComparisons, opts contracts.AssessOptions) []string {
	var insights []string

	if trend.HistoricalLow > 0 {
		aboveLow := (dealPrice - trend.HistoricalLow) / trend.HistoricalLow
		if aboveLow >= 0.05 && aboveLow <= 0.20 {
			insights = append(insights, fmt.Sprintf(
				"within %.0f%% of the historical low of $%.2f",
				aboveLow*100, trend.HistoricalLow,
			))
		}
	}

	if comparisons.Vs30Day != nil && *comparisons.Vs30Day < -0.15 {
		insights = append(insights, fmt.Sprintf(
			"price is %.0f%% below the 30-day average",
			math.Abs(*comparisons.Vs30Day)*100,
		))
	}

	// The advertised regular price is a claim; judge it against history.
	if opts.RegularPrice != nil && *opts.RegularPrice > dealPrice {
		discount := (*opts.RegularPrice - dealPrice) / *opts.RegularPrice
		insights = append(insights, fmt.Sprintf(
			"advertised as %.0f%% off a $%.2f regular price",
			discount*100, *opts.RegularPrice,
		))
		if trend.Avg30Day != nil && *opts.RegularPrice > *trend.Avg30Day*1.2 {
			insights = append(insights, fmt.Sprintf(
				"claimed regular price is well above the $%.2f 30-day average",
				*trend.Avg30Day,
			))
		}
	}

	return insights
}

// stockUp builds a quantity recommendation for deals scoring 7 or better.
func (s *Scorer) stockUp(dealPrice float64, score int, category contracts.DealCategory, opts contracts.AssessOptions) *contracts.StockUpRecommendation {
	if score < 7 {
		return nil
	}

	storageDays := opts.StorageDays
	if storageDays <= 0 {
		storageDays = s.defaults.DefaultStorageDays
	}
	if storageDays <= 0 {
		storageDays = 90
	}
	weeklyUsage := opts.WeeklyUsage
	if weeklyUsage <= 0 {
		weeklyUsage = s.defaults.DefaultWeeklyUsage
	}
	if weeklyUsage <= 0 {
		weeklyUsage = 1
	}

	storageWeeks := math.Min(math.Floor(float64(storageDays)/7), maxStorageWeeks)
	quantity := storageWeeks * weeklyUsage

	switch category {
	case contracts.DealExcellent:
		quantity *= 3
	case contracts.DealGood:
		quantity *= 2
	}

	reason := fmt.Sprintf("%s deal; covers %.0f weeks of usage", category, storageWeeks)
	if opts.MaxBudget != nil && dealPrice > 0 {
		budgetCap := math.Floor(*opts.MaxBudget / dealPrice)
		if quantity > budgetCap {
			quantity = budgetCap
			reason += fmt.Sprintf(", capped by a $%.2f budget", *opts.MaxBudget)
		}
	}

	return &contracts.StockUpRecommendation{
		Recommended: quantity > weeklyUsage,
		Quantity:    quantity,
		Reason:      reason,
		StorageDays: storageDays,
		WeeklyUsage: weeklyUsage,
	}
}

// analysis assembles the free-text summary from the category, insights and
// the sale-cycle advisory.
func (s *Scorer) analysis(a *contracts.DealQualityAssessment) string {
	parts := []string{categoryDescriptions[a.Category]}
	parts = append(parts, a.Insights...)
	if a.SaleCycle != nil && a.SaleCycle.Message != "" {
		parts = append(parts, a.SaleCycle.Message)
	}
	return strings.Join(parts, ". ") + "."
}
