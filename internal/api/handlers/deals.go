package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openpantry/priceintel/internal/contracts"
	"github.com/openpantry/priceintel/internal/pricing"
	"github.com/openpantry/priceintel/pkg/logger"
)

// DealHandler handles deal assessment endpoints.
type DealHandler struct {
	service *pricing.Service
	logger  *logger.Logger
}

// NewDealHandler creates a new deal handler.
func NewDealHandler(service *pricing.Service, log *logger.Logger) *DealHandler {
	return &DealHandler{
		service: service,
		logger:  log,
	}
}

// AssessRequest is the body of a deal assessment.
type AssessRequest struct {
	ComponentID  string   `json:"component_id"`
	StoreID      string   `json:"store_id,omitempty"`
	DealPrice    float64  `json:"deal_price"`
	RegularPrice *float64 `json:"regular_price,omitempty"`
	StorageDays  int      `json:"storage_days,omitempty"`
	WeeklyUsage  float64  `json:"weekly_usage,omitempty"`
	Unit         string   `json:"unit,omitempty"`
	MaxBudget    *float64 `json:"max_budget,omitempty"`
	AdDealID     string   `json:"ad_deal_id,omitempty"`
}

// Assess scores a candidate deal price
// POST /api/deals/assess
func (h *DealHandler) Assess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AssessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	opts := contracts.AssessOptions{
		RegularPrice: req.RegularPrice,
		StorageDays:  req.StorageDays,
		WeeklyUsage:  req.WeeklyUsage,
		Unit:         req.Unit,
		MaxBudget:    req.MaxBudget,
		AdDealID:     req.AdDealID,
	}

	assessment, err := h.service.AssessDeal(ctx, req.DealPrice, req.ComponentID, req.StoreID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, assessment)
}

// NextSale predicts the next sale date for a series
// GET /api/deals/{componentID}/next-sale
func (h *DealHandler) NextSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	componentID := mux.Vars(r)["componentID"]
	storeID := r.URL.Query().Get("store_id")

	prediction, err := h.service.PredictNextSale(ctx, componentID, storeID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, prediction)
}

// FakeDeals scans a campaign's assessments for fake deals
// GET /api/deals/campaigns/{adDealID}/fake-deals
func (h *DealHandler) FakeDeals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adDealID := mux.Vars(r)["adDealID"]

	report, err := h.service.FlagFakeDeals(ctx, adDealID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}
