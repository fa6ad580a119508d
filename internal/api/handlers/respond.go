package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/strategyconfig"
)

const dateLayout = "2006-01-02"

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

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	var (
		filterErr *contracts.InvalidFilterError
		cfgErr    *contracts.ConfigurationError
		validErr  strategyconfig.ValidationError
	)
	switch {
	case errors.As(err, &filterErr), errors.As(err, &cfgErr), errors.As(err, &validErr):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrNotFound), contracts.IsMissingData(err):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondEngineError writes err with its mapped status; internal errors hide their message
func respondEngineError(w http.ResponseWriter, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		respondError(w, status, fallback)
		return
	}
	respondError(w, status, err.Error())
}

// parseDate reads an optional YYYY-MM-DD value; empty means today (UTC)
func parseDate(value string) (time.Time, error) {
	if value == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(dateLayout, value)
}

// decodeBody decodes an optional JSON body; an empty body leaves v untouched
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
