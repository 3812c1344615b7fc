package pricing

import (
	"math"
	"sort"
	"time"

	"github.com/openpantry/priceintel/internal/contracts"
)

// round2 rounds currency values to cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// round4 rounds ratio values to 4 decimals.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// popStdDev is the population standard deviation.
func popStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// dateOnly truncates a timestamp to its calendar date in UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}

// sortAscending orders points oldest-first by recorded date.
func sortAscending(series []*contracts.PricePoint) []*contracts.PricePoint {
	sorted := make([]*contracts.PricePoint, len(series))
	copy(sorted, series)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecordedDate.Before(sorted[j].RecordedDate)
	})
	return sorted
}

// sortDescending orders points newest-first by recorded date.
func sortDescending(series []*contracts.PricePoint) []*contracts.PricePoint {
	sorted := make([]*contracts.PricePoint, len(series))
	copy(sorted, series)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecordedDate.After(sorted[j].RecordedDate)
	})
	return sorted
}

// windowAverage averages the effective unit price of points recorded on or
// after now minus the window. Returns nil when no point falls inside.
func windowAverage(series []*contracts.PricePoint, windowDays int, now time.Time) *float64 {
	cutoff := dateOnly(now).AddDate(0, 0, -windowDays)

	var sum float64
	var n int
	for _, p := range series {
		if !p.RecordedDate.Before(cutoff) {
			sum += p.EffectiveUnitPrice()
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := round2(sum / float64(n))
	return &avg
}

func float64Ptr(v float64) *float64 {
	return &v
}
