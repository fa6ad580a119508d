package strategyconfig

import (
	"errors"
	"fmt"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/selection"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// ValidateScreen checks a screen definition
func ValidateScreen(screen contracts.Screen) error {
	if err := selection.ValidateScreen(screen); err != nil {
		var filterErr *contracts.InvalidFilterError
		if errors.As(err, &filterErr) {
			if filterErr.Index < 0 {
				return ValidationError{"screen." + filterErr.Field, filterErr.Message}
			}
			return ValidationError{fmt.Sprintf("screen.filters[%d].%s", filterErr.Index, filterErr.Field), filterErr.Message}
		}
		return ValidationError{"screen", err.Error()}
	}
	return nil
}

// ValidateBacktest checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func ValidateBacktest(cfg *contracts.BacktestConfig) error {
	if err := cfg.Validate(); err != nil {
		var cfgErr *contracts.ConfigurationError
		if errors.As(err, &cfgErr) {
			return ValidationError{cfgErr.Field, cfgErr.Message}
		}
		return err
	}
	if err := validatePctRange(cfg.RiskFreeRate, "risk_free_rate"); err != nil {
		return err
	}

	f := cfg.UniverseFilter
	if f.MinMarketCap != nil && *f.MinMarketCap < 0 {
		return ValidationError{"universe_filter.min_market_cap", "must be >= 0"}
	}
	if f.MinMarketCap != nil && f.MaxMarketCap != nil && *f.MinMarketCap > *f.MaxMarketCap {
		return ValidationError{"universe_filter", "min_market_cap must be <= max_market_cap"}
	}

	return ValidateScreen(cfg.Screen)
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *contracts.BacktestConfig) []Warning {
	var warnings []Warning

	if cfg.Benchmark == "" {
		warnings = append(warnings, Warning{
			Code:    "NO_BENCHMARK",
			Message: "no benchmark: yearly excess returns will be empty",
		})
	}

	if cfg.CommissionRate == 0 {
		warnings = append(warnings, Warning{
			Code:    "ZERO_COMMISSION",
			Message: "commission_rate is 0: returns ignore trading costs",
		})
	}

	// 비중 상한 × 종목 수 < 1 이면 현금 잔류
	limit := cfg.Screen.WithDefaults().Limit
	if cfg.MaxPositionWeight > 0 && cfg.MaxPositionWeight*float64(limit) < 1 {
		warnings = append(warnings, Warning{
			Code:    "CASH_DRAG",
			Message: fmt.Sprintf("max_position_weight %.2f x %d holdings < 1: the remainder stays in cash", cfg.MaxPositionWeight, limit),
		})
	}

	if cfg.RebalanceFrequency == contracts.RebalanceWeekly && cfg.CommissionRate > 0.001 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_TURNOVER",
			Message: "weekly rebalancing with commission > 0.1%: costs may dominate",
		})
	}

	return warnings
}

// === Helper Functions ===

// validatePctRange는 퍼센트 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
