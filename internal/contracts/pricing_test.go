package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSeriesKey(t *testing.T) {
	assert.Equal(t, SeriesKey{ComponentID: "milk", StoreID: "costco"}, NewSeriesKey("milk", "costco"))

	// An empty store maps to the aggregate series.
	key := NewSeriesKey("milk", "")
	assert.Equal(t, AggregateStoreID, key.StoreID)
	assert.Equal(t, "milk:all", key.String())
}

func TestPriceSource_Valid(t *testing.T) {
	for _, s := range []PriceSource{SourceAd, SourceReceipt, SourceManual, SourceAPI} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, PriceSource("").Valid())
	assert.False(t, PriceSource("scraper").Valid())
}

func TestPricePoint_EffectiveUnitPrice(t *testing.T) {
	p := &PricePoint{Price: 7.49, PricePerUnit: 0.62}
	assert.Equal(t, 0.62, p.EffectiveUnitPrice())

	// Falls back to the raw price when no per-unit figure exists.
	p = &PricePoint{Price: 7.49}
	assert.Equal(t, 7.49, p.EffectiveUnitPrice())
}

func TestPricePoint_OnSale(t *testing.T) {
	assert.False(t, (&PricePoint{}).OnSale())
	assert.True(t, (&PricePoint{IsDeal: true}).OnSale())
	assert.True(t, (&PricePoint{IsSalePrice: true}).OnSale())
}

func TestPricePoint_Key(t *testing.T) {
	p := &PricePoint{ComponentID: "milk", RecordedDate: time.Now()}
	assert.Equal(t, "milk:all", p.Key().String())
}

func TestDefaultScoreWeights_SumToOne(t *testing.T) {
	w := DefaultScoreWeights()
	assert.InDelta(t, 1.0, w.Vs7+w.Vs30+w.Vs90+w.VsLow, 0.0001)
}
