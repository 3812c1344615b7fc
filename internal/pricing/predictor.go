package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/openpantry/priceintel/internal/contracts"
)

// forecastHorizonDays is how far past the last observation the regression
// is projected.
const forecastHorizonDays = 30

// minDealsForLowDate is the number of sale-flagged points needed before a
// predicted low date is derived from historical deal gaps.
const minDealsForLowDate = 3

// Slope thresholds (price units per day) for the qualitative trend label.
const (
	slopeRising  = 0.001
	slopeFalling = -0.001
)

// Predictor forecasts future prices with ordinary least squares over the
// day-indexed series. Only mature series qualify; shorter series get an
// explicit insufficient-data status rather than an error.
type Predictor struct {
	breakpoints contracts.QualityBreakpoints
	log         zerolog.Logger
	now         func() time.Time
}

// NewPredictor creates a price predictor.
func NewPredictor(breakpoints contracts.QualityBreakpoints, log zerolog.Logger) *Predictor {
	return &Predictor{
		breakpoints: breakpoints,
		log:         log.With().Str("component", "pricing.predictor").Logger(),
		now:         time.Now,
	}
}

// Predict fits a least-squares line through the series and projects it 30
// days past the last observation. The second return value is non-nil when
// the series has fewer points than the mature threshold.
func (p *Predictor) Predict(key contracts.SeriesKey, series []*contracts.PricePoint) (*contracts.PricePrediction, *contracts.InsufficientData) {
	required := p.breakpoints.Mature
	if len(series) < required {
		return nil, contracts.NewInsufficientData(
			fmt.Sprintf("need %d price points for prediction, have %d", required, len(series)),
			required, len(series),
		)
	}

	sorted := sortAscending(series)
	first := sorted[0].RecordedDate

	n := float64(len(sorted))
	var sumX, sumY, sumXY, sumXX float64
	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))

	for i, point := range sorted {
		x := float64(daysBetween(first, point.RecordedDate))
		y := point.EffectiveUnitPrice()
		xs[i] = x
		ys[i] = y
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	var slope, intercept float64
	denom := n*sumXX - sumX*sumX
	if denom != 0 {
		slope = (n*sumXY - sumX*sumY) / denom
		intercept = (sumY - slope*sumX) / n
	} else {
		// Every point on the same day; the best fit is the flat mean.
		slope = 0
		intercept = sumY / n
	}

	lastX := xs[len(xs)-1]
	predicted := math.Max(0, intercept+slope*(lastX+forecastHorizonDays))

	confidence := clamp(rSquared(xs, ys, slope, intercept)*100, 0, 100)

	label := "stable"
	switch {
	case slope > slopeRising:
		label = "rising"
	case slope < slopeFalling:
		label = "falling"
	}

	prediction := &contracts.PricePrediction{
		ComponentID:      key.ComponentID,
		StoreID:          key.StoreID,
		PredictedPrice:   round2(predicted),
		Confidence:       round4(confidence),
		Trend:            label,
		Slope:            round4(slope),
		TargetDate:       dateOnly(sorted[len(sorted)-1].RecordedDate).AddDate(0, 0, forecastHorizonDays),
		PredictedLowDate: p.predictedLowDate(sorted),
		DataPoints:       len(sorted),
		GeneratedAt:      p.now(),
	}

	p.log.Debug().
		Str("key", key.String()).
		Float64("predicted_price", prediction.PredictedPrice).
		Float64("confidence", prediction.Confidence).
		Str("trend", prediction.Trend).
		Msg("price forecast generated")

	return prediction, nil
}

// rSquared measures how well the fitted line explains the series.
func rSquared(xs, ys []float64, slope, intercept float64) float64 {
	yMean := mean(ys)

	var ssRes, ssTot float64
	for i := range xs {
		fitted := intercept + slope*xs[i]
		ssRes += (ys[i] - fitted) * (ys[i] - fitted)
		ssTot += (ys[i] - yMean) * (ys[i] - yMean)
	}

	if ssTot == 0 {
		// Flat series: the mean explains it perfectly.
		return 1
	}
	return 1 - ssRes/ssTot
}

// predictedLowDate extends the average gap between historical deals past
// the most recent one. Needs at least three deal-flagged points.
func (p *Predictor) predictedLowDate(ascending []*contracts.PricePoint) *time.Time {
	var dealDates []time.Time
	for _, point := range ascending {
		if point.OnSale() {
			dealDates = append(dealDates, point.RecordedDate)
		}
	}
	if len(dealDates) < minDealsForLowDate {
		return nil
	}

	totalGap := 0
	for i := 1; i < len(dealDates); i++ {
		totalGap += daysBetween(dealDates[i-1], dealDates[i])
	}
	avgGap := float64(totalGap) / float64(len(dealDates)-1)

	lowDate := dateOnly(dealDates[len(dealDates)-1]).AddDate(0, 0, int(math.Round(avgGap)))
	return &lowDate
}
