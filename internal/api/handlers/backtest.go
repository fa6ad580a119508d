package handlers

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lalith1997/quantscreen/internal/backtest"
	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/strategyconfig"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// maxConfigBytes bounds a backtest definition body
const maxConfigBytes = 1 << 20

// BacktestHandler handles backtest endpoints
// ⭐ SSOT: 백테스트 API 핸들러는 이 구조체에서만
type BacktestHandler struct {
	engine *backtest.Engine
	repo   *backtest.Repository
	logger *logger.Logger
}

// NewBacktestHandler creates a new backtest handler; repo may be nil
func NewBacktestHandler(engine *backtest.Engine, repo *backtest.Repository, log *logger.Logger) *BacktestHandler {
	return &BacktestHandler{
		engine: engine,
		repo:   repo,
		logger: log.WithComponent("backtest_api"),
	}
}

// Run executes a backtest synchronously.
// The body is a YAML definition (Content-Type application/yaml or text/yaml)
// or a JSON BacktestConfig. ?save=true stores the result.
// POST /api/backtest/run
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxConfigBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	cfg, err := parseBacktestBody(r.Header.Get("Content-Type"), data)
	if err != nil {
		respondEngineError(w, err, "Invalid backtest definition")
		return
	}
	for _, warn := range strategyconfig.Warn(cfg) {
		h.logger.WithFields(map[string]interface{}{
			"code":    warn.Code,
			"message": warn.Message,
		}).Warn("Backtest configuration warning")
	}

	result, err := h.engine.Run(r.Context(), *cfg)
	if err != nil {
		h.logger.WithError(err).Warn("Backtest failed")
		respondEngineError(w, err, "Failed to run backtest")
		return
	}

	if save, _ := strconv.ParseBool(r.URL.Query().Get("save")); save && h.repo != nil {
		if err := h.repo.SaveResult(r.Context(), result); err != nil {
			h.logger.WithError(err).Error("Failed to save backtest result")
			respondError(w, http.StatusInternalServerError, "Failed to save backtest result")
			return
		}
	}

	h.logger.WithFields(map[string]interface{}{
		"id":         result.ID,
		"rebalances": len(result.Rebalances),
		"cagr":       result.Summary.CAGR,
		"partial":    result.Partial,
	}).Info("Backtest served")

	respondJSON(w, http.StatusOK, result)
}

// GetRun returns a stored backtest result
// GET /api/backtest/runs/{id}
func (h *BacktestHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusNotImplemented, "Result storage is not configured")
		return
	}
	result, err := h.repo.GetResult(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondEngineError(w, err, "Failed to retrieve backtest")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListRuns returns the most recent stored backtests
// GET /api/backtest/runs?limit=20
func (h *BacktestHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusNotImplemented, "Result storage is not configured")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}
	runs, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		respondEngineError(w, err, "Failed to list backtests")
		return
	}
	respondJSON(w, http.StatusOK, runs)
}

func parseBacktestBody(contentType string, data []byte) (*contracts.BacktestConfig, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return strategyconfig.ParseBacktest(data)
	}

	var cfg contracts.BacktestConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, strategyconfig.ValidationError{Field: "body", Message: err.Error()}
	}
	cfg.Screen = cfg.Screen.WithDefaults()
	if err := strategyconfig.ValidateBacktest(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
