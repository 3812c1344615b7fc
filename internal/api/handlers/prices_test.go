package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpantry/priceintel/internal/contracts"
	"github.com/openpantry/priceintel/internal/pricing"
	"github.com/openpantry/priceintel/internal/pricing/store"
	"github.com/openpantry/priceintel/pkg/config"
	"github.com/openpantry/priceintel/pkg/logger"
	"github.com/openpantry/priceintel/pkg/redis"
)

// newTestRouter wires the handlers against in-memory stores and a
// disabled cache.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Env: "development",
		Pricing: config.PricingConfig{
			DefaultStorageDays: 90,
			DefaultWeeklyUsage: 1,
			DropAlertRatio:     0.80,
			TrendCacheTTL:      time.Minute,
		},
		LogLevel:  "error",
		LogFormat: "json",
	}
	log := logger.New(cfg)

	redisClient, err := redis.New(cfg)
	require.NoError(t, err)
	cache := redis.NewCache(redisClient, "test")

	service := pricing.NewService(
		store.NewMemoryPriceStore(),
		store.NewMemoryTrendStore(),
		store.NewMemoryAssessmentStore(),
		cfg.Pricing,
		log.Zerolog(),
	)

	priceHandler := NewPriceHandler(service, cache, cfg, log)
	dealHandler := NewDealHandler(service, log)

	r := mux.NewRouter()
	r.HandleFunc("/api/prices", priceHandler.Capture).Methods("POST")
	r.HandleFunc("/api/prices/{componentID}/quality", priceHandler.GetQuality).Methods("GET")
	r.HandleFunc("/api/prices/{componentID}/history", priceHandler.GetHistory).Methods("GET")
	r.HandleFunc("/api/trends/trending", priceHandler.GetTrending).Methods("GET")
	r.HandleFunc("/api/deals/assess", dealHandler.Assess).Methods("POST")
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestNewPriceHandler_TrendCacheTTL(t *testing.T) {
	cfg := &config.Config{
		Env:       "development",
		Pricing:   config.PricingConfig{TrendCacheTTL: 5 * time.Minute},
		LogLevel:  "error",
		LogFormat: "json",
	}
	log := logger.New(cfg)

	client, err := redis.New(cfg)
	require.NoError(t, err)
	cache := redis.NewCache(client, "test")

	h := NewPriceHandler(nil, cache, cfg, log)
	assert.Equal(t, 5*time.Minute, h.trendTTL)

	// Without a configured TTL the handler falls back to the default.
	cfg.Pricing.TrendCacheTTL = 0
	h = NewPriceHandler(nil, cache, cfg, log)
	assert.Equal(t, redis.TTLDefault, h.trendTTL)
}

func TestCapture_CreatesPoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/prices", `{
		"component_id": "milk",
		"store_id": "costco",
		"price": 3.99,
		"source": "receipt"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var result contracts.CaptureResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "milk", result.Price.ComponentID)
	assert.Equal(t, "costco", result.Price.StoreID)
	assert.InDelta(t, 3.99, result.Price.Price, 0.001)
	assert.Equal(t, contracts.QualityInsufficient, result.DataQuality.Status)
	assert.False(t, result.TrendsUpdated)
}

func TestCapture_RejectsBadInput(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing component", `{"price": 1.99}`},
		{"negative price", `{"component_id": "milk", "price": -1}`},
		{"bad source", `{"component_id": "milk", "price": 1.99, "source": "carrier-pigeon"}`},
		{"bad date", `{"component_id": "milk", "price": 1.99, "recorded_date": "June 1st"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, "POST", "/api/prices", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestQualityAndHistory_Flow(t *testing.T) {
	router := newTestRouter(t)

	for i := 0; i < 6; i++ {
		rec := doJSON(t, router, "POST", "/api/prices", `{
			"component_id": "eggs",
			"price": 5.99
		}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, router, "GET", "/api/prices/eggs/quality", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var quality contracts.DataQuality
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quality))
	assert.Equal(t, 6, quality.Count)
	assert.Equal(t, contracts.QualityEmerging, quality.Status)

	rec = doJSON(t, router, "GET", "/api/prices/eggs/history?limit=4", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var history contracts.PriceHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, 6, history.Count)
	assert.Len(t, history.Prices, 4)
	require.NotNil(t, history.Trend)
}

func TestHistory_RejectsBadQuery(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/prices/eggs/history?start=notadate", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, "GET", "/api/prices/eggs/history?limit=-3", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrending_EmptyEngine(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/trends/trending", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var trending pricing.TrendingPrices
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trending))
	assert.Zero(t, trending.Rising)
	assert.Empty(t, trending.Trends)
}

func TestAssess_InsufficientSeries(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/deals/assess", `{
		"component_id": "salmon",
		"deal_price": 7.99
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var assessment contracts.DealQualityAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assessment))
	assert.Equal(t, 5, assessment.QualityScore)
	assert.Equal(t, contracts.DealAverage, assessment.Category)
	require.NotNil(t, assessment.Insufficient)
}
