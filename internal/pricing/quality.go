package pricing

import (
	"github.com/openpantry/priceintel/internal/contracts"
)

// Classifier maps observation counts to data-quality stages. It is a pure
// computation: no side effects, no I/O, safe to call on every capture and
// every read.
type Classifier struct {
	breakpoints contracts.QualityBreakpoints
}

// NewClassifier creates a classifier with the given breakpoints.
func NewClassifier(breakpoints contracts.QualityBreakpoints) *Classifier {
	return &Classifier{breakpoints: breakpoints}
}

// Classify derives the stage and capability flags for a series of the
// given size. NeedsMore is the distance to the next breakpoint, zero only
// at the mature stage.
func (c *Classifier) Classify(count int) contracts.DataQuality {
	bp := c.breakpoints

	q := contracts.DataQuality{
		Count:      count,
		CanPredict: count >= bp.Mature,
		HasTrends:  count >= bp.Reliable,
	}

	switch {
	case count < bp.Emerging:
		q.Status = contracts.QualityInsufficient
		q.NeedsMore = bp.Emerging - count
	case count < bp.Reliable:
		q.Status = contracts.QualityEmerging
		q.NeedsMore = bp.Reliable - count
	case count < bp.Mature:
		q.Status = contracts.QualityReliable
		q.NeedsMore = bp.Mature - count
	default:
		q.Status = contracts.QualityMature
		q.NeedsMore = 0
	}

	return q
}
