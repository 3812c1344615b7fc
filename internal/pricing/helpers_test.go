package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openpantry/priceintel/internal/contracts"
)

// testNow is the frozen clock used by component tests that inject it.
var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func frozenNow() time.Time { return testNow }

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// pointAt builds an observation recorded daysAgo days before testNow.
func pointAt(componentID, storeID string, price float64, daysAgo int) *contracts.PricePoint {
	recorded := time.Date(testNow.Year(), testNow.Month(), testNow.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -daysAgo)
	return &contracts.PricePoint{
		ID:           uuid.NewString(),
		ComponentID:  componentID,
		StoreID:      storeID,
		Price:        price,
		Quantity:     1,
		PricePerUnit: price,
		RecordedDate: recorded,
		Source:       contracts.SourceManual,
		CreatedAt:    testNow,
	}
}

// dealAt builds a deal-flagged observation.
func dealAt(componentID, storeID string, price float64, daysAgo int) *contracts.PricePoint {
	p := pointAt(componentID, storeID, price, daysAgo)
	p.IsDeal = true
	return p
}
