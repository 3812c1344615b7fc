package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/openpantry/priceintel/internal/api/handlers"
	"github.com/openpantry/priceintel/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(
	priceHandler *handlers.PriceHandler,
	dealHandler *handlers.DealHandler,
	alertHub *AlertHub,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Price endpoints
	api.HandleFunc("/prices", priceHandler.Capture).Methods("POST")
	api.HandleFunc("/prices/{componentID}/quality", priceHandler.GetQuality).Methods("GET")
	api.HandleFunc("/prices/{componentID}/history", priceHandler.GetHistory).Methods("GET")
	api.HandleFunc("/prices/{componentID}/stores", priceHandler.CompareStores).Methods("GET")
	api.HandleFunc("/prices/{componentID}/prediction", priceHandler.Predict).Methods("GET")

	// Trend and alert endpoints
	api.HandleFunc("/trends/trending", priceHandler.GetTrending).Methods("GET")
	api.HandleFunc("/alerts/price-drops", priceHandler.GetPriceDrops).Methods("GET")

	// Deal endpoints
	api.HandleFunc("/deals/assess", dealHandler.Assess).Methods("POST")
	api.HandleFunc("/deals/{componentID}/next-sale", dealHandler.NextSale).Methods("GET")
	api.HandleFunc("/deals/campaigns/{adDealID}/fake-deals", dealHandler.FakeDeals).Methods("GET")

	// Live alert stream
	r.HandleFunc("/ws/alerts", alertHub.HandleWS).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	r.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(50), 100)))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "priceintel-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware rejects requests beyond the shared token bucket.
func rateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
