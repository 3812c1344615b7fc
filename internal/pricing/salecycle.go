package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/openpantry/priceintel/internal/contracts"
)

// minDealsForCycle is the minimum number of sale events before a cycle can
// be estimated.
const minDealsForCycle = 3

// weekdayPreferenceShare is the fraction of sales that must land on the
// same weekday before it counts as a preference.
const weekdayPreferenceShare = 0.4

// CyclePredictor estimates the recurring periodicity of a key's sale
// events from the deal-flagged subset of its series.
type CyclePredictor struct {
	log zerolog.Logger
	now func() time.Time
}

// NewCyclePredictor creates a sale-cycle predictor.
func NewCyclePredictor(log zerolog.Logger) *CyclePredictor {
	return &CyclePredictor{
		log: log.With().Str("component", "pricing.salecycle").Logger(),
		now: time.Now,
	}
}

// Predict analyzes the sale events of a series. With fewer than three sale
// events the result has zero confidence and a nil DaysUntil; that is a
// normal response, not a failure.
func (cp *CyclePredictor) Predict(key contracts.SeriesKey, series []*contracts.PricePoint) *contracts.SaleCyclePrediction {
	prediction := &contracts.SaleCyclePrediction{
		ComponentID: key.ComponentID,
		StoreID:     key.StoreID,
	}

	var deals []*contracts.PricePoint
	for _, p := range series {
		if p.OnSale() {
			deals = append(deals, p)
		}
	}
	prediction.DealCount = len(deals)

	if len(deals) < minDealsForCycle {
		prediction.Message = fmt.Sprintf(
			"not enough deal history: need %d sale observations, have %d",
			minDealsForCycle, len(deals),
		)
		return prediction
	}

	sorted := sortAscending(deals)

	gaps := make([]float64, 0, len(sorted)-1)
	minGap, maxGap := math.MaxInt32, 0
	for i := 1; i < len(sorted); i++ {
		gap := daysBetween(sorted[i-1].RecordedDate, sorted[i].RecordedDate)
		gaps = append(gaps, float64(gap))
		if gap < minGap {
			minGap = gap
		}
		if gap > maxGap {
			maxGap = gap
		}
	}

	avgGap := mean(gaps)
	gapStdDev := popStdDev(gaps)

	prediction.AvgGapDays = round2(avgGap)
	prediction.MinGapDays = minGap
	prediction.MaxGapDays = maxGap
	prediction.GapStdDev = round2(gapStdDev)
	prediction.CycleType = cycleType(avgGap)
	prediction.PreferredWeekday = preferredWeekday(sorted)

	if avgGap > 0 {
		prediction.SalesPerMonth = round2(30 / avgGap)
		prediction.Confidence = round4(clamp(100-gapStdDev/avgGap*100, 0, 100))
	}

	lastSale := dateOnly(sorted[len(sorted)-1].RecordedDate)
	prediction.LastSaleDate = &lastSale

	today := dateOnly(cp.now())
	daysSinceLast := daysBetween(lastSale, today)
	daysUntil := int(math.Max(0, math.Round(avgGap-float64(daysSinceLast))))
	predictedDate := today.AddDate(0, 0, daysUntil)

	prediction.DaysUntil = &daysUntil
	prediction.PredictedDate = &predictedDate

	switch {
	case daysUntil <= 7:
		prediction.Recommendation = contracts.CycleAdviceWait
		prediction.Message = fmt.Sprintf("sale expected within %d days - worth waiting", daysUntil)
	case daysUntil <= 14:
		prediction.Recommendation = contracts.CycleAdviceMayWait
		prediction.Message = fmt.Sprintf("sale may arrive in about %d days - consider waiting", daysUntil)
	default:
		prediction.Recommendation = contracts.CycleAdviceNoImminentSale
		prediction.Message = "no imminent sale expected - buy if needed"
	}

	cp.log.Debug().
		Str("key", key.String()).
		Int("deals", prediction.DealCount).
		Float64("avg_gap", prediction.AvgGapDays).
		Float64("confidence", prediction.Confidence).
		Msg("sale cycle predicted")

	return prediction
}

// cycleType buckets the average gap into the known retail cadences. Each
// band carries a tolerance above its nominal length.
func cycleType(avgGap float64) contracts.CycleType {
	switch {
	case avgGap <= 7+3:
		return contracts.CycleWeekly
	case avgGap <= 14+4:
		return contracts.CycleBiweekly
	case avgGap <= 30+7:
		return contracts.CycleMonthly
	case avgGap <= 42+10:
		return contracts.CycleSixWeek
	default:
		return contracts.CycleIrregular
	}
}

// preferredWeekday returns the modal weekday of the sales when it covers
// at least 40% of them.
func preferredWeekday(deals []*contracts.PricePoint) *time.Weekday {
	counts := make(map[time.Weekday]int)
	for _, d := range deals {
		counts[d.RecordedDate.Weekday()]++
	}

	var best time.Weekday
	bestCount := 0
	for day, count := range counts {
		if count > bestCount || (count == bestCount && day < best) {
			best = day
			bestCount = count
		}
	}

	if float64(bestCount) < weekdayPreferenceShare*float64(len(deals)) {
		return nil
	}
	return &best
}
