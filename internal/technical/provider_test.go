package technical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/s0_data"
)

func TestFromProvider(t *testing.T) {
	p := s0_data.NewMemoryProvider()
	require.NoError(t, p.AddPrices(barsFromCloses(linear(30, 10, 1)...)...))

	req := Request{Company: "TEST", Kind: KindSMA, Params: Params{Period: 5}, From: start, AsOf: start.AddDate(0, 0, 29)}
	points, err := FromProvider(context.Background(), p, req)
	require.NoError(t, err)
	require.Len(t, points, 26)
	assert.InDelta(t, 12.0, points[0].Value, 1e-9)

	// as-of cuts the series
	req.AsOf = start.AddDate(0, 0, 9)
	points, err = FromProvider(context.Background(), p, req)
	require.NoError(t, err)
	assert.Len(t, points, 6)

	// warm-up longer than the range yields no points
	req.Params.Period = 50
	points, err = FromProvider(context.Background(), p, req)
	require.NoError(t, err)
	assert.Empty(t, points)
	assert.NotNil(t, points)
}

func TestFromProvider_Errors(t *testing.T) {
	p := s0_data.NewMemoryProvider()
	require.NoError(t, p.AddPrices(barsFromCloses(1, 2, 3)...))

	_, err := FromProvider(context.Background(), p, Request{Company: "NONE", Kind: KindRSI, From: start, AsOf: start.AddDate(0, 0, 5)})
	assert.True(t, contracts.IsMissingData(err))

	_, err = FromProvider(context.Background(), p, Request{Company: "TEST", Kind: "nope", From: start, AsOf: start.AddDate(0, 0, 5)})
	var cfgErr *contracts.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
