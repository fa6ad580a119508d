package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lalith1997/quantscreen/internal/api/handlers"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// Handlers groups the endpoint handlers served by the router
type Handlers struct {
	Screener  *handlers.ScreenerHandler
	Backtest  *handlers.BacktestHandler
	Indicator *handlers.IndicatorHandler
	Data      *handlers.DataHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, limit RateLimit, log *logger.Logger) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()
	// a subrouter reports method mismatches only through its own handler
	api.NotFoundHandler = r.NotFoundHandler
	api.MethodNotAllowedHandler = r.MethodNotAllowedHandler

	// Screener endpoints
	api.HandleFunc("/screener/presets", h.Screener.ListPresets).Methods("GET")
	api.HandleFunc("/screener/metrics", h.Screener.ListMetrics).Methods("GET")
	api.HandleFunc("/screener/run", h.Screener.Run).Methods("POST")
	api.HandleFunc("/screener/presets/{id}/run", h.Screener.RunPreset).Methods("POST")
	api.HandleFunc("/screener/runs/{id}", h.Screener.GetRun).Methods("GET")

	// Backtest endpoints
	api.HandleFunc("/backtest/run", h.Backtest.Run).Methods("POST")
	api.HandleFunc("/backtest/runs", h.Backtest.ListRuns).Methods("GET")
	api.HandleFunc("/backtest/runs/{id}", h.Backtest.GetRun).Methods("GET")

	// Indicator endpoints
	api.HandleFunc("/indicators", h.Indicator.ListKinds).Methods("GET")
	api.HandleFunc("/indicators/{company}/{kind}", h.Indicator.GetSeries).Methods("GET")

	// Data endpoints
	api.HandleFunc("/data/quality", h.Data.GetQuality).Methods("GET")
	api.HandleFunc("/data/universe", h.Data.GetUniverse).Methods("GET")

	// Rate limits apply to the API only; /health stays open
	if limit.PerSecond > 0 && limit.Burst > 0 {
		api.Use(rateLimitMiddleware(limit, log))
	}

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
		"service": "quantscreen-api",
	})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
