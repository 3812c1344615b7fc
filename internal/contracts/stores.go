package contracts

import "context"

// PriceStore is the append-only observation store. Implementations must
// preserve every point ever written for a key; points are never updated
// or deleted.
type PriceStore interface {
	// Append adds one observation to its series.
	Append(ctx context.Context, point *PricePoint) error

	// List returns every point for the key, in no guaranteed order.
	List(ctx context.Context, key SeriesKey) ([]*PricePoint, error)

	// Count returns the number of points for the key.
	Count(ctx context.Context, key SeriesKey) (int, error)

	// ListKeys returns all series keys, optionally restricted to one
	// component. An empty componentID matches everything.
	ListKeys(ctx context.Context, componentID string) ([]SeriesKey, error)
}

// TrendStore caches the derived trend per key. Put fully overwrites any
// previous trend for the same key.
type TrendStore interface {
	// Get returns the cached trend, or nil when none has been computed.
	Get(ctx context.Context, key SeriesKey) (*PriceTrend, error)

	// Put replaces the trend for the key.
	Put(ctx context.Context, trend *PriceTrend) error

	// All returns every cached trend.
	All(ctx context.Context) ([]*PriceTrend, error)
}

// AssessmentStore retains deal assessments for later lookup and campaign
// cross-referencing.
type AssessmentStore interface {
	// Save stores an assessment.
	Save(ctx context.Context, assessment *DealQualityAssessment) error

	// Get returns the assessment with the given id, or nil.
	Get(ctx context.Context, id string) (*DealQualityAssessment, error)

	// ListByAdDeal returns all assessments linked to an ad deal id.
	ListByAdDeal(ctx context.Context, adDealID string) ([]*DealQualityAssessment, error)
}
