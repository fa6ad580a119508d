package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ValueKind tags the variant held by a MetricValue
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindNumber
	KindFlag
	KindText
)

// MetricValue is a nullable number, flag, or text attribute
type MetricValue struct {
	kind ValueKind
	num  float64
	flag bool
	text string
}

// Null is the absent value
var Null = MetricValue{}

// Number wraps a float; NaN and ±Inf collapse to Null
func Number(v float64) MetricValue {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Null
	}
	return MetricValue{kind: KindNumber, num: v}
}

// NumberPtr wraps a nullable float
func NumberPtr(v *float64) MetricValue {
	if v == nil {
		return Null
	}
	return Number(*v)
}

// Flag wraps a boolean
func Flag(b bool) MetricValue {
	return MetricValue{kind: KindFlag, flag: b}
}

// Text wraps a string attribute; empty strings are Null
func Text(s string) MetricValue {
	if s == "" {
		return Null
	}
	return MetricValue{kind: KindText, text: s}
}

func (v MetricValue) Kind() ValueKind { return v.kind }
func (v MetricValue) IsNull() bool    { return v.kind == KindNull }

// Float returns the numeric value, if any
func (v MetricValue) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Bool returns the flag value, if any
func (v MetricValue) Bool() (bool, bool) {
	return v.flag, v.kind == KindFlag
}

// Str returns the text value, if any
func (v MetricValue) Str() (string, bool) {
	return v.text, v.kind == KindText
}

func (v MetricValue) String() string {
	switch v.kind {
	case KindNumber:
		return fmt.Sprintf("%g", v.num)
	case KindFlag:
		return fmt.Sprintf("%t", v.flag)
	case KindText:
		return v.text
	}
	return "null"
}

// MarshalJSON encodes null, number, bool or string
func (v MetricValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindFlag:
		return json.Marshal(v.flag)
	case KindText:
		return json.Marshal(v.text)
	}
	return []byte("null"), nil
}

// UnmarshalJSON decodes null, number, bool or string
func (v *MetricValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Null
		return nil
	}
	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Flag(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("metric value: %w", err)
		}
		*v = Number(f)
	}
	return nil
}

// MetricMap holds every metric computed for one company as of one date
// ⭐ SSOT: S2 → selection 전달 단위
type MetricMap struct {
	Company     string                 `json:"company"`
	AsOf        time.Time              `json:"as_of"`
	Values      map[string]MetricValue `json:"values"`
	Percentiles map[string]int         `json:"percentiles,omitempty"`
}

// NewMetricMap creates an empty map for company as of asOf
func NewMetricMap(company string, asOf time.Time) *MetricMap {
	return &MetricMap{
		Company: company,
		AsOf:    asOf,
		Values:  make(map[string]MetricValue),
	}
}

// Get returns the value for name; absent names are Null
func (m *MetricMap) Get(name string) MetricValue {
	if m == nil || m.Values == nil {
		return Null
	}
	return m.Values[name]
}

// Set stores a value; Null values are stored so the metric is reported as computed
func (m *MetricMap) Set(name string, v MetricValue) {
	if m.Values == nil {
		m.Values = make(map[string]MetricValue)
	}
	m.Values[name] = v
}

// Merge copies every value of other into m, overwriting
func (m *MetricMap) Merge(other *MetricMap) {
	if other == nil {
		return
	}
	for k, v := range other.Values {
		m.Set(k, v)
	}
}

// PercentileKey names a rank in Percentiles
func PercentileKey(metric string, sectorRelative bool) string {
	if sectorRelative {
		return metric + "@sector"
	}
	return metric
}

// Percentile returns the rank (1-100) of metric, if ranked
func (m *MetricMap) Percentile(metric string, sectorRelative bool) (int, bool) {
	if m == nil || m.Percentiles == nil {
		return 0, false
	}
	r, ok := m.Percentiles[PercentileKey(metric, sectorRelative)]
	return r, ok
}

// SetPercentile stores a rank
func (m *MetricMap) SetPercentile(metric string, sectorRelative bool, rank int) {
	if m.Percentiles == nil {
		m.Percentiles = make(map[string]int)
	}
	m.Percentiles[PercentileKey(metric, sectorRelative)] = rank
}

// Clone returns a deep copy
func (m *MetricMap) Clone() *MetricMap {
	out := NewMetricMap(m.Company, m.AsOf)
	for k, v := range m.Values {
		out.Values[k] = v
	}
	if m.Percentiles != nil {
		out.Percentiles = make(map[string]int, len(m.Percentiles))
		for k, v := range m.Percentiles {
			out.Percentiles[k] = v
		}
	}
	return out
}
