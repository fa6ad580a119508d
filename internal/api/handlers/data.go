package handlers

import (
	"errors"
	"net/http"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/s0_data/quality"
	"github.com/lalith1997/quantscreen/internal/s1_universe"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// DataHandler handles data-related API endpoints
// ⭐ SSOT: 데이터 API 핸들러는 이 구조체에서만
type DataHandler struct {
	provider     contracts.DataProvider
	qualityGate  *quality.QualityGate
	qualityRepo  *quality.Repository
	universeRepo *s1_universe.Repository
	logger       *logger.Logger
}

// NewDataHandler creates a new data handler; the repositories may be nil
func NewDataHandler(
	provider contracts.DataProvider,
	qualityGate *quality.QualityGate,
	qualityRepo *quality.Repository,
	universeRepo *s1_universe.Repository,
	log *logger.Logger,
) *DataHandler {
	return &DataHandler{
		provider:     provider,
		qualityGate:  qualityGate,
		qualityRepo:  qualityRepo,
		universeRepo: universeRepo,
		logger:       log.WithComponent("data_api"),
	}
}

// GetQuality returns a data quality report.
// Without a date the latest stored report is returned when storage is configured;
// otherwise the gate runs live against the provider.
// GET /api/data/quality?date=YYYY-MM-DD
func (h *DataHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dateParam := r.URL.Query().Get("date")

	if dateParam == "" && h.qualityRepo != nil {
		report, err := h.qualityRepo.GetLatest(ctx)
		if err == nil {
			respondJSON(w, http.StatusOK, report)
			return
		}
		if !errors.Is(err, contracts.ErrNotFound) {
			h.logger.WithError(err).Error("Failed to get quality report")
			respondError(w, http.StatusInternalServerError, "Failed to retrieve quality report")
			return
		}
	}

	date, err := parseDate(dateParam)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)")
		return
	}
	report, err := h.qualityGate.Check(ctx, date)
	if err != nil {
		h.logger.WithError(err).Error("Quality check failed")
		respondEngineError(w, err, "Failed to check data quality")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GetUniverse returns the investable universe as of a date.
// A stored snapshot is preferred; without one the universe is built from the provider.
// GET /api/data/universe?as_of=YYYY-MM-DD
func (h *DataHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	asOf, err := parseDate(r.URL.Query().Get("as_of"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)")
		return
	}

	if h.universeRepo != nil {
		universe, err := h.universeRepo.GetUniverse(ctx, asOf)
		if err == nil {
			respondJSON(w, http.StatusOK, universe)
			return
		}
		if !errors.Is(err, contracts.ErrNotFound) {
			h.logger.WithError(err).Error("Failed to get universe")
			respondError(w, http.StatusInternalServerError, "Failed to retrieve universe")
			return
		}
	}

	universe, err := s1_universe.NewBuilder(h.provider, s1_universe.Policy{}, h.logger).Build(ctx, asOf)
	if err != nil {
		h.logger.WithError(err).Error("Failed to build universe")
		respondEngineError(w, err, "Failed to build universe")
		return
	}
	respondJSON(w, http.StatusOK, universe)
}
