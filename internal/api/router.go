package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vvnuui/cerisier/internal/api/handlers"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Recommendations *handlers.RecommendationHandler
	Analysis        *handlers.AnalysisHandler
	Stocks          *handlers.StockHandler
	Portfolios      *handlers.PortfolioHandler
	Weights         *handlers.WeightsHandler
	Tasks           *handlers.TaskHandler
	Stream          *StreamHub
}

// NewRouter creates and configures the HTTP router.
// SSOT: route registration happens only in this function.
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api/v1").Subrouter()

	// Recommendations and analysis
	api.HandleFunc("/recommendations", h.Recommendations.List).Methods("GET")
	api.HandleFunc("/recommendations/{code}/history", h.Recommendations.History).Methods("GET")
	api.HandleFunc("/analysis", h.Analysis.Analyze).Methods("POST")
	api.HandleFunc("/ai/report", h.Analysis.Report).Methods("POST")

	// Stock data
	api.HandleFunc("/stocks", h.Stocks.List).Methods("GET")
	api.HandleFunc("/stocks/{code}", h.Stocks.Get).Methods("GET")
	api.HandleFunc("/stocks/{code}/klines", h.Stocks.Klines).Methods("GET")
	api.HandleFunc("/stocks/{code}/moneyflow", h.Stocks.MoneyFlow).Methods("GET")
	api.HandleFunc("/stocks/{code}/financials", h.Stocks.Financials).Methods("GET")
	api.HandleFunc("/stocks/{code}/news", h.Stocks.News).Methods("GET")

	// Paper trading
	api.HandleFunc("/portfolios", h.Portfolios.Create).Methods("POST")
	api.HandleFunc("/portfolios", h.Portfolios.List).Methods("GET")
	api.HandleFunc("/portfolios/{id}", h.Portfolios.Get).Methods("GET")
	api.HandleFunc("/portfolios/{id}", h.Portfolios.Delete).Methods("DELETE")
	api.HandleFunc("/portfolios/{id}/trades", h.Portfolios.Trade).Methods("POST")
	api.HandleFunc("/portfolios/{id}/trades", h.Portfolios.Trades).Methods("GET")
	api.HandleFunc("/portfolios/{id}/positions", h.Portfolios.Positions).Methods("GET")
	api.HandleFunc("/portfolios/{id}/performance", h.Portfolios.Performance).Methods("GET")
	api.HandleFunc("/portfolios/{id}/calculate-performance", h.Portfolios.CalculatePerformance).Methods("POST")

	// Configuration
	api.HandleFunc("/config/weights", h.Weights.Get).Methods("GET")
	api.HandleFunc("/config/weights", h.Weights.Put).Methods("PUT")

	// Background tasks and progress stream
	api.HandleFunc("/tasks", h.Tasks.Trigger).Methods("POST")
	api.HandleFunc("/tasks", h.Tasks.List).Methods("GET")
	api.HandleFunc("/stream", h.Stream.HandleStream).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "cerisier-api",
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
