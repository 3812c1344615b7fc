package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/openpantry/priceintel/internal/contracts"
	"github.com/openpantry/priceintel/internal/pricing"
	"github.com/openpantry/priceintel/pkg/config"
	"github.com/openpantry/priceintel/pkg/logger"
	"github.com/openpantry/priceintel/pkg/redis"
)

// PriceHandler handles price capture and analytics endpoints.
type PriceHandler struct {
	service  *pricing.Service
	cache    *redis.Cache
	trendTTL time.Duration
	logger   *logger.Logger
}

// NewPriceHandler creates a new price handler. The trending-listing cache
// lives for the configured trend TTL.
func NewPriceHandler(service *pricing.Service, cache *redis.Cache, cfg *config.Config, log *logger.Logger) *PriceHandler {
	trendTTL := cfg.Pricing.TrendCacheTTL
	if trendTTL <= 0 {
		trendTTL = redis.TTLDefault
	}

	return &PriceHandler{
		service:  service,
		cache:    cache,
		trendTTL: trendTTL,
		logger:   log,
	}
}

// CaptureRequest is the body of a price capture.
type CaptureRequest struct {
	ComponentID   string   `json:"component_id"`
	StoreID       string   `json:"store_id,omitempty"`
	Price         float64  `json:"price"`
	Source        string   `json:"source,omitempty"`
	Quantity      float64  `json:"quantity,omitempty"`
	Unit          string   `json:"unit,omitempty"`
	RecordedDate  string   `json:"recorded_date,omitempty"` // YYYY-MM-DD
	IsDeal        bool     `json:"is_deal,omitempty"`
	IsSalePrice   bool     `json:"is_sale_price,omitempty"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	CapturedBy    string   `json:"captured_by,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// Capture records a price observation
// POST /api/prices
func (h *PriceHandler) Capture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	opts := contracts.CaptureOptions{
		StoreID:       req.StoreID,
		Quantity:      req.Quantity,
		Unit:          req.Unit,
		IsDeal:        req.IsDeal,
		IsSalePrice:   req.IsSalePrice,
		OriginalPrice: req.OriginalPrice,
		CapturedBy:    req.CapturedBy,
		Notes:         req.Notes,
	}
	if req.RecordedDate != "" {
		recorded, err := time.Parse("2006-01-02", req.RecordedDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'recorded_date' format (expected YYYY-MM-DD)")
			return
		}
		opts.RecordedDate = recorded
	}

	result, err := h.service.CapturePrice(ctx, req.ComponentID, req.Price, contracts.PriceSource(req.Source), opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// Captures invalidate the trending listing; the trend itself is
	// recomputed synchronously.
	if result.TrendsUpdated {
		if err := h.cache.Delete(ctx, redis.TrendingKey("")); err != nil {
			h.logger.WithError(err).Warn("Failed to invalidate trending cache")
		}
	}

	respondJSON(w, http.StatusCreated, result)
}

// GetQuality reports the data-quality stage of a series
// GET /api/prices/{componentID}/quality
func (h *PriceHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	componentID := mux.Vars(r)["componentID"]
	storeID := r.URL.Query().Get("store_id")

	quality, err := h.service.GetDataQualityStatus(ctx, componentID, storeID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quality)
}

// GetHistory returns newest-first observations plus the cached trend
// GET /api/prices/{componentID}/history
func (h *PriceHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	componentID := mux.Vars(r)["componentID"]
	query := r.URL.Query()

	opts := contracts.HistoryOptions{StoreID: query.Get("store_id")}

	if raw := query.Get("start"); raw != "" {
		start, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'start' date format (expected YYYY-MM-DD)")
			return
		}
		opts.StartDate = &start
	}
	if raw := query.Get("end"); raw != "" {
		end, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'end' date format (expected YYYY-MM-DD)")
			return
		}
		opts.EndDate = &end
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected non-negative integer)")
			return
		}
		opts.Limit = limit
	}

	history, err := h.service.GetPriceHistory(ctx, componentID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// CompareStores lines up every store tracking a component
// GET /api/prices/{componentID}/stores
func (h *PriceHandler) CompareStores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	componentID := mux.Vars(r)["componentID"]

	comparison, err := h.service.ComparePricesAcrossStores(ctx, componentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, comparison)
}

// GetTrending lists the strongest trends across all tracked keys
// GET /api/trends/trending
func (h *PriceHandler) GetTrending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	opts := pricing.TrendingOptions{
		TrendType: contracts.TrendType(query.Get("type")),
	}
	if raw := query.Get("min_strength"); raw != "" {
		minStrength, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'min_strength' (expected number)")
			return
		}
		opts.MinStrength = minStrength
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected non-negative integer)")
			return
		}
		opts.Limit = limit
	}

	// Only the unfiltered default listing is cached.
	cacheable := opts.TrendType == "" && opts.MinStrength == 0 && opts.Limit == 0
	cacheKey := redis.TrendingKey("")

	if cacheable {
		var cached pricing.TrendingPrices
		if hit, err := h.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			respondJSON(w, http.StatusOK, &cached)
			return
		}
	}

	trending, err := h.service.GetTrendingPrices(ctx, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if cacheable {
		if err := h.cache.Set(ctx, cacheKey, trending, h.trendTTL); err != nil {
			h.logger.WithError(err).Warn("Failed to cache trending listing")
		}
	}

	respondJSON(w, http.StatusOK, trending)
}

// GetPriceDrops reports keys whose 7-day average fell below the alert
// threshold
// GET /api/alerts/price-drops
func (h *PriceHandler) GetPriceDrops(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	alerts, err := h.service.GetPriceDropAlerts(ctx)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// PredictResponse wraps a prediction or its insufficient-data status.
type PredictResponse struct {
	Prediction   *contracts.PricePrediction  `json:"prediction,omitempty"`
	Insufficient *contracts.InsufficientData `json:"insufficient_data,omitempty"`
}

// Predict forecasts the price of one series 30 days out
// GET /api/prices/{componentID}/prediction
func (h *PriceHandler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	componentID := mux.Vars(r)["componentID"]
	storeID := r.URL.Query().Get("store_id")

	prediction, insufficient, err := h.service.PredictFuturePrice(ctx, componentID, storeID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PredictResponse{
		Prediction:   prediction,
		Insufficient: insufficient,
	})
}
