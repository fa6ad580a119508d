package contracts

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories and providers for unknown keys
var ErrNotFound = errors.New("not found")

// MissingDataError means an entire per-company computation is impossible.
// Missing individual inputs never produce this error; they null the metric.
type MissingDataError struct {
	Company string
	Reason  string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing data for %s: %s", e.Company, e.Reason)
}

// InvalidFilterError rejects a Screen before any computation runs
type InvalidFilterError struct {
	Index   int // filter position, -1 for screen-level fields
	Field   string
	Message string
}

func (e *InvalidFilterError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid screen: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid filter #%d: %s: %s", e.Index, e.Field, e.Message)
}

// ConfigurationError rejects a BacktestConfig or engine parameter eagerly
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// IsMissingData reports whether err wraps a MissingDataError
func IsMissingData(err error) bool {
	var target *MissingDataError
	return errors.As(err, &target)
}
