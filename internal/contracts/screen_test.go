package contracts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestOperand_JSON(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		isList bool
		check  func(t *testing.T, o Operand)
	}{
		{
			name:  "number",
			input: `8`,
			check: func(t *testing.T, o Operand) {
				v, ok := o.Value.Float()
				require.True(t, ok)
				assert.Equal(t, 8.0, v)
			},
		},
		{
			name:  "bool",
			input: `false`,
			check: func(t *testing.T, o Operand) {
				v, ok := o.Value.Bool()
				require.True(t, ok)
				assert.False(t, v)
			},
		},
		{
			name:   "range",
			input:  `[1, 2.5]`,
			isList: true,
			check: func(t *testing.T, o Operand) {
				require.Len(t, o.List, 2)
				hi, _ := o.List[1].Value.Float()
				assert.Equal(t, 2.5, hi)
			},
		},
		{
			name:   "text set",
			input:  `["Technology", "Energy"]`,
			isList: true,
			check: func(t *testing.T, o Operand) {
				s, ok := o.List[0].Value.Str()
				require.True(t, ok)
				assert.Equal(t, "Technology", s)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o Operand
			require.NoError(t, json.Unmarshal([]byte(tt.input), &o))
			assert.False(t, o.IsZero())
			assert.Equal(t, tt.isList, o.IsList())
			tt.check(t, o)
		})
	}
}

func TestFilter_YAML(t *testing.T) {
	doc := `
- metric: acquirers_multiple
  operator: "<"
  value: 8
- metric: m_score_flag
  operator: "=="
  value: false
- metric: roe
  operator: between
  value: [10, 30]
  percentile: true
  sector_relative: true
`
	var filters []Filter
	require.NoError(t, yaml.Unmarshal([]byte(doc), &filters))
	require.Len(t, filters, 3)

	v, ok := filters[0].Value.Value.Float()
	require.True(t, ok)
	assert.Equal(t, 8.0, v)
	assert.Equal(t, OpLT, filters[0].Operator)

	b, ok := filters[1].Value.Value.Bool()
	require.True(t, ok)
	assert.False(t, b)

	assert.True(t, filters[2].Percentile)
	assert.True(t, filters[2].SectorRelative)
	require.Len(t, filters[2].Value.List, 2)
	assert.Equal(t, "sector_pct:roe between [10,30]", filters[2].String())
}

func TestScreen_WithDefaults(t *testing.T) {
	s := Screen{}.WithDefaults()

	assert.Equal(t, LogicAND, s.Logic)
	assert.Equal(t, MetricMarketCap, s.SortBy)
	assert.Equal(t, SortDesc, s.SortOrder)
	assert.Equal(t, DefaultLimit, s.Limit)

	custom := Screen{Logic: LogicOR, SortBy: MetricROE, SortOrder: SortAsc, Limit: 5}.WithDefaults()
	assert.Equal(t, LogicOR, custom.Logic)
	assert.Equal(t, MetricROE, custom.SortBy)
	assert.Equal(t, 5, custom.Limit)
}
