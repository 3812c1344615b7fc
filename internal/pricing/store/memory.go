package store

import (
	"context"
	"sort"
	"sync"

	"github.com/openpantry/priceintel/internal/contracts"
)

// MemoryPriceStore keeps all observations in process memory. Reads hand
// out copies of the slices so callers never observe a torn series.
type MemoryPriceStore struct {
	mu     sync.RWMutex
	points map[string][]*contracts.PricePoint
}

// NewMemoryPriceStore creates an empty in-memory price store.
func NewMemoryPriceStore() *MemoryPriceStore {
	return &MemoryPriceStore{points: make(map[string][]*contracts.PricePoint)}
}

// Append adds one observation to its series.
func (m *MemoryPriceStore) Append(ctx context.Context, point *contracts.PricePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := point.Key().String()
	m.points[key] = append(m.points[key], point)
	return nil
}

// List returns a copy of every point for the key.
func (m *MemoryPriceStore) List(ctx context.Context, key contracts.SeriesKey) ([]*contracts.PricePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	series := m.points[key.String()]
	out := make([]*contracts.PricePoint, len(series))
	copy(out, series)
	return out, nil
}

// Count returns the number of points for the key.
func (m *MemoryPriceStore) Count(ctx context.Context, key contracts.SeriesKey) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.points[key.String()]), nil
}

// ListKeys returns all series keys, optionally restricted to a component.
func (m *MemoryPriceStore) ListKeys(ctx context.Context, componentID string) ([]contracts.SeriesKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []contracts.SeriesKey
	for _, series := range m.points {
		if len(series) == 0 {
			continue
		}
		key := series[0].Key()
		if componentID != "" && key.ComponentID != componentID {
			continue
		}
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys, nil
}

// MemoryTrendStore caches derived trends keyed by series.
type MemoryTrendStore struct {
	mu     sync.RWMutex
	trends map[string]*contracts.PriceTrend
}

// NewMemoryTrendStore creates an empty in-memory trend store.
func NewMemoryTrendStore() *MemoryTrendStore {
	return &MemoryTrendStore{trends: make(map[string]*contracts.PriceTrend)}
}

// Get returns the cached trend for a key, or nil.
func (m *MemoryTrendStore) Get(ctx context.Context, key contracts.SeriesKey) (*contracts.PriceTrend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.trends[key.String()], nil
}

// Put replaces the trend for a key.
func (m *MemoryTrendStore) Put(ctx context.Context, trend *contracts.PriceTrend) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := contracts.NewSeriesKey(trend.ComponentID, trend.StoreID)
	m.trends[key.String()] = trend
	return nil
}

// All returns every cached trend, ordered by component then store.
func (m *MemoryTrendStore) All(ctx context.Context) ([]*contracts.PriceTrend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*contracts.PriceTrend, 0, len(m.trends))
	for _, t := range m.trends {
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ComponentID != out[j].ComponentID {
			return out[i].ComponentID < out[j].ComponentID
		}
		return out[i].StoreID < out[j].StoreID
	})
	return out, nil
}

// MemoryAssessmentStore retains assessments and an ad-deal index.
type MemoryAssessmentStore struct {
	mu          sync.RWMutex
	assessments map[string]*contracts.DealQualityAssessment
	byAdDeal    map[string][]string
}

// NewMemoryAssessmentStore creates an empty in-memory assessment store.
func NewMemoryAssessmentStore() *MemoryAssessmentStore {
	return &MemoryAssessmentStore{
		assessments: make(map[string]*contracts.DealQualityAssessment),
		byAdDeal:    make(map[string][]string),
	}
}

// Save stores an assessment and indexes it by ad deal id.
func (m *MemoryAssessmentStore) Save(ctx context.Context, assessment *contracts.DealQualityAssessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.assessments[assessment.ID] = assessment
	if assessment.AdDealID != "" {
		m.byAdDeal[assessment.AdDealID] = append(m.byAdDeal[assessment.AdDealID], assessment.ID)
	}
	return nil
}

// Get returns the assessment with the given id, or nil.
func (m *MemoryAssessmentStore) Get(ctx context.Context, id string) (*contracts.DealQualityAssessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.assessments[id], nil
}

// ListByAdDeal returns all assessments linked to an ad deal id.
func (m *MemoryAssessmentStore) ListByAdDeal(ctx context.Context, adDealID string) ([]*contracts.DealQualityAssessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byAdDeal[adDealID]
	out := make([]*contracts.DealQualityAssessment, 0, len(ids))
	for _, id := range ids {
		if a, ok := m.assessments[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}
