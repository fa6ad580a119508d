package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567.4, "1,234,567"},
		{-100000, "-100,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.in))
	}
}

func TestFormatPct(t *testing.T) {
	assert.Equal(t, "+10.00%", formatPct(0.1))
	assert.Equal(t, "-2.50%", formatPct(-0.025))
}

func TestFormatOptional(t *testing.T) {
	v := 1.5
	assert.Equal(t, "1.50", formatOptional(&v, "%.2f"))
	assert.Equal(t, "-", formatOptional(nil, "%.2f"))
}

func TestParseAsOf(t *testing.T) {
	d, err := parseAsOf("2024-06-28")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC), d)

	_, err = parseAsOf("06/28/2024")
	assert.Error(t, err)

	today, err := parseAsOf("")
	require.NoError(t, err)
	assert.Equal(t, 0, today.Hour())
}
