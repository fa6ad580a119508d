package strategyconfig

import (
	"time"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// ScreenFile is the YAML form of a screen definition.
// preset names a built-in screen used as the base; fields set in the file override it.
type ScreenFile struct {
	Preset           string `yaml:"preset,omitempty" json:"preset,omitempty"`
	contracts.Screen `yaml:",inline"`
}

// BacktestFile is the YAML form of a backtest definition
type BacktestFile struct {
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
	Preset string `yaml:"preset,omitempty" json:"preset,omitempty"` // base screen for config.screen

	contracts.BacktestConfig `yaml:",inline"`
}

// DecisionSnapshot 의사결정 스냅샷 (재현성용)
type DecisionSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

// mergeScreen overlays every non-zero field of override onto base
func mergeScreen(base, override contracts.Screen) contracts.Screen {
	if override.Name != "" {
		base.Name = override.Name
	}
	if override.Description != "" {
		base.Description = override.Description
	}
	if len(override.Filters) > 0 {
		base.Filters = override.Filters
	}
	if override.Logic != "" {
		base.Logic = override.Logic
	}
	if override.SortBy != "" {
		base.SortBy = override.SortBy
	}
	if override.SortOrder != "" {
		base.SortOrder = override.SortOrder
	}
	if override.Limit != 0 {
		base.Limit = override.Limit
	}
	if override.Offset != 0 {
		base.Offset = override.Offset
	}
	if len(override.ExcludeSectors) > 0 {
		base.ExcludeSectors = override.ExcludeSectors
	}
	if override.MinMarketCap != nil {
		base.MinMarketCap = override.MinMarketCap
	}
	if override.MaxMarketCap != nil {
		base.MaxMarketCap = override.MaxMarketCap
	}
	return base
}
