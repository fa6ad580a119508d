package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/selection"
	"github.com/lalith1997/quantscreen/pkg/logger"
	"github.com/lalith1997/quantscreen/pkg/redis"
)

// ScreenerHandler handles screening endpoints
// ⭐ SSOT: 스크리너 API 핸들러는 이 구조체에서만
type ScreenerHandler struct {
	service *selection.Service
	runs    *selection.Repository
	cache   *redis.Cache // preset responses, optional
	logger  *logger.Logger
}

// NewScreenerHandler creates a new screener handler; runs may be nil
func NewScreenerHandler(service *selection.Service, runs *selection.Repository, log *logger.Logger) *ScreenerHandler {
	return &ScreenerHandler{
		service: service,
		runs:    runs,
		logger:  log.WithComponent("screener_api"),
	}
}

// WithCache caches preset responses for redis.TTLMedium
func (h *ScreenerHandler) WithCache(c *redis.Cache) *ScreenerHandler {
	h.cache = c
	return h
}

type runScreenRequest struct {
	Screen contracts.Screen `json:"screen"`
	AsOf   string           `json:"as_of,omitempty"`
	Save   bool             `json:"save,omitempty"`
}

type runPresetRequest struct {
	AsOf  string `json:"as_of,omitempty"`
	Limit int    `json:"limit,omitempty"`
	Save  bool   `json:"save,omitempty"`
}

type screenRunResponse struct {
	*contracts.ScreenerResponse
	RunID *uuid.UUID `json:"run_id,omitempty"`
}

// ListPresets returns the built-in screens
// GET /api/screener/presets
func (h *ScreenerHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, selection.Presets())
}

// ListMetrics returns the metric catalog usable in filters
// GET /api/screener/metrics
func (h *ScreenerHandler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, contracts.Catalog())
}

// Run screens the universe with a caller-supplied screen
// POST /api/screener/run
func (h *ScreenerHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runScreenRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	asOf, err := parseDate(req.AsOf)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)")
		return
	}

	resp, err := h.service.Run(r.Context(), req.Screen, asOf)
	if err != nil {
		h.logger.WithError(err).Warn("Screen run failed")
		respondEngineError(w, err, "Failed to run screen")
		return
	}

	h.respondRun(w, r, req.Screen.Name, resp, req.Save)
}

// RunPreset runs a built-in screen
// POST /api/screener/presets/{id}/run
func (h *ScreenerHandler) RunPreset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req runPresetRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Limit < 0 {
		respondError(w, http.StatusBadRequest, "limit must be >= 0")
		return
	}
	asOf, err := parseDate(req.AsOf)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)")
		return
	}

	// saved runs always recompute so the stored row matches a fresh run
	key := redis.ScreenKey(id+":"+strconv.Itoa(req.Limit), asOf.Format("2006-01-02"))
	if h.cache != nil && !req.Save {
		var cached contracts.ScreenerResponse
		found, err := h.cache.Get(r.Context(), key, &cached)
		if err != nil {
			h.logger.WithError(err).Warn("Screen cache read failed")
		}
		if found {
			respondJSON(w, http.StatusOK, screenRunResponse{ScreenerResponse: &cached})
			return
		}
	}

	resp, err := h.service.RunPreset(r.Context(), id, req.Limit, asOf)
	if err != nil {
		h.logger.WithError(err).WithField("preset", id).Warn("Preset run failed")
		respondEngineError(w, err, "Failed to run preset")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), key, resp, redis.TTLMedium); err != nil {
			h.logger.WithError(err).Warn("Screen cache write failed")
		}
	}

	h.respondRun(w, r, id, resp, req.Save)
}

// GetRun returns a stored screen run
// GET /api/screener/runs/{id}
func (h *ScreenerHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusNotImplemented, "Run storage is not configured")
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid run id")
		return
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		respondEngineError(w, err, "Failed to retrieve run")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

func (h *ScreenerHandler) respondRun(w http.ResponseWriter, r *http.Request, name string, resp *contracts.ScreenerResponse, save bool) {
	out := screenRunResponse{ScreenerResponse: resp}
	if save && h.runs != nil {
		id, err := h.runs.SaveRun(r.Context(), name, resp)
		if err != nil {
			h.logger.WithError(err).Error("Failed to save screen run")
			respondError(w, http.StatusInternalServerError, "Failed to save screen run")
			return
		}
		out.RunID = &id
	}

	h.logger.WithFields(map[string]interface{}{
		"screen":  name,
		"results": len(resp.Results),
		"omitted": len(resp.Omitted),
	}).Info("Screen run served")

	respondJSON(w, http.StatusOK, out)
}
