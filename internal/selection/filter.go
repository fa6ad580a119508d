package selection

import (
	"fmt"
	"strings"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// ValidateScreen rejects a malformed screen before any data is touched.
// Defaults are applied first, so empty logic/sort/limit are accepted.
func ValidateScreen(screen contracts.Screen) error {
	s := screen.WithDefaults()

	if s.Logic != contracts.LogicAND && s.Logic != contracts.LogicOR {
		return &contracts.InvalidFilterError{Index: -1, Field: "logic", Message: fmt.Sprintf("must be AND or OR, got %q", s.Logic)}
	}
	if s.SortOrder != contracts.SortAsc && s.SortOrder != contracts.SortDesc {
		return &contracts.InvalidFilterError{Index: -1, Field: "sort_order", Message: fmt.Sprintf("must be asc or desc, got %q", s.SortOrder)}
	}
	if !contracts.KnownMetric(s.SortBy) {
		return &contracts.InvalidFilterError{Index: -1, Field: "sort_by", Message: fmt.Sprintf("unknown metric %q", s.SortBy)}
	}
	if s.Limit < 0 {
		return &contracts.InvalidFilterError{Index: -1, Field: "limit", Message: "must be >= 0"}
	}
	if s.Offset < 0 {
		return &contracts.InvalidFilterError{Index: -1, Field: "offset", Message: "must be >= 0"}
	}
	if s.MinMarketCap != nil && s.MaxMarketCap != nil && *s.MinMarketCap > *s.MaxMarketCap {
		return &contracts.InvalidFilterError{Index: -1, Field: "min_market_cap", Message: "must not exceed max_market_cap"}
	}

	for i, f := range s.Filters {
		if err := validateFilter(i, f); err != nil {
			return err
		}
	}
	return nil
}

func validateFilter(i int, f contracts.Filter) error {
	invalid := func(field, format string, args ...interface{}) error {
		return &contracts.InvalidFilterError{Index: i, Field: field, Message: fmt.Sprintf(format, args...)}
	}

	info, ok := contracts.LookupMetric(f.Metric)
	if !ok {
		return invalid("metric", "unknown metric %q", f.Metric)
	}
	if !f.Operator.Valid() {
		return invalid("operator", "unknown operator %q", f.Operator)
	}
	if f.Value.IsZero() {
		return invalid("value", "missing")
	}
	if f.SectorRelative && !f.Percentile {
		return invalid("sector_relative", "requires percentile")
	}

	// Ranks are numbers whatever the metric kind
	kind := info.Kind
	if f.Percentile {
		if kind != contracts.KindNumber {
			return invalid("percentile", "metric %q is not numeric", f.Metric)
		}
	}

	switch f.Operator {
	case contracts.OpBetween:
		if kind != contracts.KindNumber {
			return invalid("operator", "between needs a numeric metric")
		}
		if len(f.Value.List) != 2 {
			return invalid("value", "between needs exactly 2 bounds")
		}
		lo, okLo := f.Value.List[0].Value.Float()
		hi, okHi := f.Value.List[1].Value.Float()
		if !okLo || !okHi {
			return invalid("value", "between bounds must be numbers")
		}
		if lo > hi {
			return invalid("value", "lower bound %g exceeds upper bound %g", lo, hi)
		}
		if f.Percentile && (lo < 0 || hi > 100) {
			return invalid("value", "percentile bounds must be within 0..100")
		}
		return nil

	case contracts.OpIn:
		if !f.Value.IsList() || len(f.Value.List) == 0 {
			return invalid("value", "in needs a non-empty list")
		}
		if kind == contracts.KindFlag {
			return invalid("operator", "flag metrics only support ==")
		}
		for _, item := range f.Value.List {
			if item.IsList() || item.Value.Kind() != kind {
				return invalid("value", "list items must match the %s metric %q", kindName(kind), f.Metric)
			}
		}
		return nil
	}

	// Scalar comparisons
	if f.Value.IsList() {
		return invalid("value", "operator %s needs a scalar", f.Operator)
	}
	if f.Value.Value.Kind() != kind {
		return invalid("value", "metric %q needs a %s operand", f.Metric, kindName(kind))
	}
	if kind != contracts.KindNumber && f.Operator != contracts.OpEQ {
		return invalid("operator", "%s metrics only support ==", kindName(kind))
	}
	if f.Percentile {
		if v, _ := f.Value.Value.Float(); v < 0 || v > 100 {
			return invalid("value", "percentile threshold must be within 0..100")
		}
	}
	return nil
}

func kindName(k contracts.ValueKind) string {
	switch k {
	case contracts.KindNumber:
		return "numeric"
	case contracts.KindFlag:
		return "flag"
	case contracts.KindText:
		return "text"
	}
	return "null"
}

// Evaluate combines the screen's filters with AND (all pass) or OR (any passes).
// A screen without filters passes every company.
// ⭐ SSOT: 필터 평가는 여기서만
func Evaluate(screen contracts.Screen, metrics *contracts.MetricMap) bool {
	if len(screen.Filters) == 0 {
		return true
	}

	if screen.Logic == contracts.LogicOR {
		for _, f := range screen.Filters {
			if EvaluateFilter(f, metrics) {
				return true
			}
		}
		return false
	}

	for _, f := range screen.Filters {
		if !EvaluateFilter(f, metrics) {
			return false
		}
	}
	return true
}

// EvaluateFilter resolves the operand (raw value or percentile rank) and compares.
// A missing metric or rank evaluates to false.
func EvaluateFilter(f contracts.Filter, metrics *contracts.MetricMap) bool {
	var lhs contracts.MetricValue
	if f.Percentile {
		rank, ok := metrics.Percentile(f.Metric, f.SectorRelative)
		if !ok {
			return false
		}
		lhs = contracts.Number(float64(rank))
	} else {
		lhs = metrics.Get(f.Metric)
	}
	if lhs.IsNull() {
		return false
	}

	switch f.Operator {
	case contracts.OpBetween:
		x, ok := lhs.Float()
		if !ok || len(f.Value.List) != 2 {
			return false
		}
		lo, okLo := f.Value.List[0].Value.Float()
		hi, okHi := f.Value.List[1].Value.Float()
		return okLo && okHi && x >= lo && x <= hi

	case contracts.OpIn:
		for _, item := range f.Value.List {
			if equal(lhs, item.Value) {
				return true
			}
		}
		return false

	case contracts.OpEQ:
		return equal(lhs, f.Value.Value)
	}

	x, ok := lhs.Float()
	if !ok {
		return false
	}
	y, ok := f.Value.Value.Float()
	if !ok {
		return false
	}
	switch f.Operator {
	case contracts.OpGT:
		return x > y
	case contracts.OpLT:
		return x < y
	case contracts.OpGTE:
		return x >= y
	case contracts.OpLTE:
		return x <= y
	}
	return false
}

func equal(a, b contracts.MetricValue) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case contracts.KindNumber:
		x, _ := a.Float()
		y, _ := b.Float()
		return x == y
	case contracts.KindFlag:
		x, _ := a.Bool()
		y, _ := b.Bool()
		return x == y
	case contracts.KindText:
		x, _ := a.Str()
		y, _ := b.Str()
		return strings.EqualFold(strings.TrimSpace(x), strings.TrimSpace(y))
	}
	return false
}
