package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/technical"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

// IndicatorHandler serves technical indicator series
type IndicatorHandler struct {
	provider contracts.DataProvider
	lookback time.Duration
	logger   *logger.Logger
}

// NewIndicatorHandler creates a new indicator handler.
// lookback is the default window when the request has no from date.
func NewIndicatorHandler(provider contracts.DataProvider, lookbackDays int, log *logger.Logger) *IndicatorHandler {
	if lookbackDays <= 0 {
		lookbackDays = 400
	}
	return &IndicatorHandler{
		provider: provider,
		lookback: time.Duration(lookbackDays) * 24 * time.Hour,
		logger:   log.WithComponent("indicator_api"),
	}
}

type indicatorResponse struct {
	Company string            `json:"company"`
	Kind    technical.Kind    `json:"kind"`
	From    time.Time         `json:"from"`
	AsOf    time.Time         `json:"as_of"`
	Points  []technical.Point `json:"points"`
}

// ListKinds returns the supported indicator kinds
// GET /api/indicators
func (h *IndicatorHandler) ListKinds(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, technical.Kinds())
}

// GetSeries computes one indicator series for a company
// GET /api/indicators/{company}/{kind}?from=&as_of=&period=&fast=&slow=&signal=&stddev=
func (h *IndicatorHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	q := r.URL.Query()

	asOf, err := parseDate(q.Get("as_of"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)")
		return
	}
	from := asOf.Add(-h.lookback)
	if v := q.Get("from"); v != "" {
		if from, err = time.Parse(dateLayout, v); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)")
			return
		}
	}
	if from.After(asOf) {
		respondError(w, http.StatusBadRequest, "from must not be after as_of")
		return
	}

	params, err := parseParams(q)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := technical.Request{
		Company: vars["company"],
		Kind:    technical.Kind(vars["kind"]),
		Params:  params,
		From:    from,
		AsOf:    asOf,
	}
	points, err := technical.FromProvider(r.Context(), h.provider, req)
	if err != nil {
		h.logger.WithError(err).WithField("company", req.Company).Debug("Indicator request failed")
		respondEngineError(w, err, "Failed to compute indicator")
		return
	}

	respondJSON(w, http.StatusOK, indicatorResponse{
		Company: req.Company,
		Kind:    req.Kind,
		From:    from,
		AsOf:    asOf,
		Points:  points,
	})
}

func parseParams(q map[string][]string) (technical.Params, error) {
	var p technical.Params
	ints := []struct {
		name string
		dst  *int
	}{
		{"period", &p.Period},
		{"fast", &p.Fast},
		{"slow", &p.Slow},
		{"signal", &p.Signal},
		{"tenkan", &p.Tenkan},
		{"kijun", &p.Kijun},
		{"senkou_b", &p.SenkouB},
		{"displacement", &p.Displacement},
	}
	for _, f := range ints {
		v := first(q, f.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("invalid %s: %q", f.name, v)
		}
		*f.dst = n
	}
	if v := first(q, "stddev"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("invalid stddev: %q", v)
		}
		p.StdDev = f
	}
	return p, nil
}

func first(q map[string][]string, key string) string {
	if vs := q[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}
