package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Operator compares a metric against a Filter operand
type Operator string

const (
	OpGT      Operator = ">"
	OpLT      Operator = "<"
	OpGTE     Operator = ">="
	OpLTE     Operator = "<="
	OpEQ      Operator = "=="
	OpBetween Operator = "between"
	OpIn      Operator = "in"
)

// Valid reports whether op is a known operator
func (op Operator) Valid() bool {
	switch op {
	case OpGT, OpLT, OpGTE, OpLTE, OpEQ, OpBetween, OpIn:
		return true
	}
	return false
}

// Logic combines the filters of a Screen
type Logic string

const (
	LogicAND Logic = "AND"
	LogicOR  Logic = "OR"
)

// SortOrder is asc or desc
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Operand is a Filter value: a scalar (number, bool, text) or a list of scalars
type Operand struct {
	Value MetricValue `json:"-"`
	List  []Operand   `json:"-"`
	isSet bool
}

// NumberOperand builds a numeric scalar operand
func NumberOperand(v float64) Operand { return Operand{Value: Number(v), isSet: true} }

// FlagOperand builds a boolean scalar operand
func FlagOperand(b bool) Operand { return Operand{Value: Flag(b), isSet: true} }

// TextOperand builds a string scalar operand
func TextOperand(s string) Operand { return Operand{Value: Text(s), isSet: true} }

// ListOperand builds a list operand
func ListOperand(items ...Operand) Operand {
	return Operand{List: items, isSet: true}
}

// NumberRange builds the two-element operand used by between
func NumberRange(lo, hi float64) Operand {
	return ListOperand(NumberOperand(lo), NumberOperand(hi))
}

// IsList reports whether the operand is a list
func (o Operand) IsList() bool { return o.List != nil }

// IsZero reports whether the operand was never set
func (o Operand) IsZero() bool { return !o.isSet }

// MarshalJSON encodes scalars as JSON scalars and lists as arrays
func (o Operand) MarshalJSON() ([]byte, error) {
	if o.List != nil {
		return json.Marshal(o.List)
	}
	return o.Value.MarshalJSON()
}

// UnmarshalJSON accepts a JSON scalar or array of scalars
func (o *Operand) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []Operand
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		if items == nil {
			items = []Operand{}
		}
		*o = Operand{List: items, isSet: true}
		return nil
	}
	var v MetricValue
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	*o = Operand{Value: v, isSet: true}
	return nil
}

// UnmarshalYAML accepts a YAML scalar or sequence of scalars
func (o *Operand) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		items := make([]Operand, 0, len(node.Content))
		for _, child := range node.Content {
			var item Operand
			if err := item.UnmarshalYAML(child); err != nil {
				return err
			}
			items = append(items, item)
		}
		*o = Operand{List: items, isSet: true}
		return nil
	case yaml.ScalarNode:
		*o = Operand{Value: scalarFromYAML(node), isSet: true}
		return nil
	}
	return fmt.Errorf("line %d: filter value must be a scalar or a list", node.Line)
}

func scalarFromYAML(node *yaml.Node) MetricValue {
	switch node.Tag {
	case "!!null":
		return Null
	case "!!bool":
		b, _ := strconv.ParseBool(node.Value)
		return Flag(b)
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return Text(node.Value)
		}
		return Number(f)
	}
	return Text(node.Value)
}

// Filter is one declarative condition of a Screen
type Filter struct {
	Metric         string   `json:"metric" yaml:"metric"`
	Operator       Operator `json:"operator" yaml:"operator"`
	Value          Operand  `json:"value" yaml:"value"`
	Percentile     bool     `json:"percentile,omitempty" yaml:"percentile,omitempty"`
	SectorRelative bool     `json:"sector_relative,omitempty" yaml:"sector_relative,omitempty"`
}

func (f Filter) String() string {
	prefix := ""
	if f.Percentile {
		prefix = "pct:"
		if f.SectorRelative {
			prefix = "sector_pct:"
		}
	}
	val, _ := json.Marshal(f.Value)
	return fmt.Sprintf("%s%s %s %s", prefix, f.Metric, f.Operator, val)
}

// Screen is an ordered filter list with combination logic, sort and limit.
// ⭐ SSOT: Screen은 순수 값 객체 (숨은 상태 없음)
type Screen struct {
	Name           string    `json:"name,omitempty" yaml:"name,omitempty"`
	Description    string    `json:"description,omitempty" yaml:"description,omitempty"`
	Filters        []Filter  `json:"filters" yaml:"filters"`
	Logic          Logic     `json:"logic,omitempty" yaml:"logic,omitempty"`
	SortBy         string    `json:"sort_by,omitempty" yaml:"sort_by,omitempty"`
	SortOrder      SortOrder `json:"sort_order,omitempty" yaml:"sort_order,omitempty"`
	Limit          int       `json:"limit,omitempty" yaml:"limit,omitempty"`
	Offset         int       `json:"offset,omitempty" yaml:"offset,omitempty"`
	ExcludeSectors []string  `json:"exclude_sectors,omitempty" yaml:"exclude_sectors,omitempty"`
	MinMarketCap   *float64  `json:"min_market_cap,omitempty" yaml:"min_market_cap,omitempty"`
	MaxMarketCap   *float64  `json:"max_market_cap,omitempty" yaml:"max_market_cap,omitempty"`
}

// Screen defaults
const (
	DefaultSortBy = MetricMarketCap
	DefaultLimit  = 50
)

// WithDefaults returns a copy with logic, sort and limit defaults applied
func (s Screen) WithDefaults() Screen {
	if s.Logic == "" {
		s.Logic = LogicAND
	}
	if s.SortBy == "" {
		s.SortBy = DefaultSortBy
	}
	if s.SortOrder == "" {
		s.SortOrder = SortDesc
	}
	if s.Limit == 0 {
		s.Limit = DefaultLimit
	}
	return s
}

// Describe returns a human readable filter list
func (s Screen) Describe() []string {
	out := make([]string, len(s.Filters))
	for i, f := range s.Filters {
		out[i] = f.String()
	}
	return out
}

// ScreenerResult is one qualifying company
type ScreenerResult struct {
	Company   string     `json:"company"`
	Name      string     `json:"name"`
	Sector    string     `json:"sector,omitempty"`
	MarketCap *float64   `json:"market_cap"`
	Metrics   *MetricMap `json:"metrics"`
	Rank      int        `json:"rank"`
}

// OmittedCompany records a company dropped before filtering
type OmittedCompany struct {
	Company string `json:"company"`
	Reason  string `json:"reason"`
}

// ScreenerResponse is the output of one screener run
type ScreenerResponse struct {
	Results         []ScreenerResult `json:"results"`
	TotalCount      int              `json:"total_count"`
	FiltersApplied  []string         `json:"filters_applied"`
	ExecutionTimeMS int64            `json:"execution_time_ms"`
	AsOf            time.Time        `json:"as_of"`
	Omitted         []OmittedCompany `json:"omitted,omitempty"`
}
