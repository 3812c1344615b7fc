package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openpantry/priceintel/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondServiceError maps engine errors onto HTTP statuses. Validation
// failures are the caller's fault; everything else is a 500.
func respondServiceError(w http.ResponseWriter, err error) {
	var verr *contracts.ValidationError
	if errors.As(err, &verr) {
		respondError(w, http.StatusBadRequest, verr.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, "Internal server error")
}
