package api

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalith1997/quantscreen/internal/api/handlers"
	"github.com/lalith1997/quantscreen/internal/backtest"
	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/s0_data"
	"github.com/lalith1997/quantscreen/internal/s0_data/quality"
	"github.com/lalith1997/quantscreen/internal/s2_metrics"
	"github.com/lalith1997/quantscreen/internal/selection"
	"github.com/lalith1997/quantscreen/internal/technical"
	"github.com/lalith1997/quantscreen/pkg/logger"
)

var start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// testProvider holds two companies with twelve months of monthly bars and a flat benchmark
func testProvider(t *testing.T) *s0_data.MemoryProvider {
	t.Helper()
	p := s0_data.NewMemoryProvider()
	for _, id := range []string{"A", "B"} {
		require.NoError(t, p.AddCompany(s0_data.Listing{Company: contracts.Company{ID: id, Name: id, Sector: "Technology"}}))
		require.NoError(t, p.AddFundamentals(contracts.FundamentalRecord{
			Company:           id,
			PeriodEnd:         start.AddDate(0, 0, -1),
			PeriodType:        contracts.PeriodFY,
			SharesOutstanding: contracts.Dec(1000),
		}))
	}

	bar := func(company string, date time.Time, px float64) contracts.PriceBar {
		d := decimal.NewFromFloat(px)
		return contracts.PriceBar{Company: company, Date: date, Open: d, High: d, Low: d, Close: d, AdjustedClose: d, Volume: 1000}
	}
	var bars []contracts.PriceBar
	for m := 0; m <= 12; m++ {
		date := start.AddDate(0, m, 0)
		bars = append(bars,
			bar("A", date, 100*math.Pow(1.1, float64(m)/12)),
			bar("B", date, 50),
			bar("BENCH", date, 20),
		)
	}
	require.NoError(t, p.AddPrices(bars...))
	return p
}

func newTestRouter(t *testing.T, limit RateLimit) http.Handler {
	t.Helper()
	provider := testProvider(t)
	log := logger.Nop()
	opts := s2_metrics.BuilderOptions{Workers: 2}

	h := Handlers{
		Screener:  handlers.NewScreenerHandler(selection.NewService(provider, opts, log), nil, log),
		Backtest:  handlers.NewBacktestHandler(backtest.NewEngine(provider, opts, log), nil, log),
		Indicator: handlers.NewIndicatorHandler(provider, 400, log),
		Data:      handlers.NewDataHandler(provider, quality.NewQualityGate(provider, quality.DefaultConfig(), log), nil, nil, log),
	}
	return NewRouter(h, limit, log)
}

func do(t *testing.T, router http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	rec := do(t, newTestRouter(t, RateLimit{}), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRouter_Fallbacks(t *testing.T) {
	router := newTestRouter(t, RateLimit{})

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"api wrong method", http.MethodGet, "/api/backtest/run", http.StatusMethodNotAllowed},
		{"api wrong method with vars", http.MethodDelete, "/api/screener/presets/magic_formula/run", http.StatusMethodNotAllowed},
		{"root wrong method", http.MethodPost, "/health", http.StatusMethodNotAllowed},
		{"api unknown path", http.MethodGet, "/api/nope", http.StatusNotFound},
		{"unknown path", http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.path, "", "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestRouter_Screener(t *testing.T) {
	router := newTestRouter(t, RateLimit{})

	t.Run("presets", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/api/screener/presets", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var presets []selection.Preset
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &presets))
		assert.Len(t, presets, len(selection.Presets()))
	})

	t.Run("run", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/api/screener/run", "application/json",
			`{"screen":{"limit":1},"as_of":"2020-06-01"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp contracts.ScreenerResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Results, 1)
	})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown metric", http.MethodPost, "/api/screener/run", `{"screen":{"filters":[{"metric":"nope","operator":">","value":1}]}}`, http.StatusBadRequest},
		{"bad date", http.MethodPost, "/api/screener/run", `{"as_of":"06/01/2020"}`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/screener/run", `{"scren":{}}`, http.StatusBadRequest},
		{"unknown preset", http.MethodPost, "/api/screener/presets/nope/run", "", http.StatusNotFound},
		{"negative limit", http.MethodPost, "/api/screener/presets/magic_formula/run", `{"limit":-1}`, http.StatusBadRequest},
		{"no run storage", http.MethodGet, "/api/screener/runs/0b0f6c0e-8f43-4c1b-9d53-1c7c1d2e3f40", "", http.StatusNotImplemented},
		{"wrong method", http.MethodGet, "/api/screener/run", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.path, "application/json", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_Backtest(t *testing.T) {
	router := newTestRouter(t, RateLimit{})

	t.Run("json config", func(t *testing.T) {
		body := `{
			"screen": {},
			"rebalance_frequency": "quarterly",
			"position_sizing": "equal_weight",
			"period_start": "2020-01-01T00:00:00Z",
			"period_end": "2021-01-01T00:00:00Z",
			"starting_capital": 100000,
			"benchmark": "BENCH"
		}`
		rec := do(t, router, http.MethodPost, "/api/backtest/run", "application/json", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result contracts.BacktestResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.False(t, result.Partial)
		assert.Len(t, result.EquityCurve, 13)
		assert.NotEmpty(t, result.Rebalances)
		assert.NotNil(t, result.Benchmark)
	})

	t.Run("yaml config", func(t *testing.T) {
		body := "name: yaml run\n" +
			"rebalance_frequency: annual\n" +
			"position_sizing: equal_weight\n" +
			"period_start: 2020-01-01T00:00:00Z\n" +
			"period_end: 2021-01-01T00:00:00Z\n" +
			"starting_capital: 1000\n"
		rec := do(t, router, http.MethodPost, "/api/backtest/run", "application/yaml", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"end before start", "application/json", `{"rebalance_frequency":"annual","position_sizing":"equal_weight","period_start":"2021-01-01T00:00:00Z","period_end":"2020-01-01T00:00:00Z","starting_capital":1}`},
		{"unknown sizing", "application/json", `{"rebalance_frequency":"annual","position_sizing":"kelly","period_start":"2020-01-01T00:00:00Z","period_end":"2021-01-01T00:00:00Z","starting_capital":1}`},
		{"malformed json", "application/json", `{`},
		{"unknown yaml field", "application/yaml", "nonsense: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/backtest/run", tt.contentType, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_Indicators(t *testing.T) {
	router := newTestRouter(t, RateLimit{})

	rec := do(t, router, http.MethodGet, "/api/indicators/A/sma?period=3&from=2020-01-01&as_of=2021-01-01", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Points []technical.Point `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Points, 11)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown kind", "/api/indicators/A/nope?as_of=2021-01-01", http.StatusBadRequest},
		{"bad period", "/api/indicators/A/sma?period=x", http.StatusBadRequest},
		{"negative period", "/api/indicators/A/sma?period=-2&as_of=2021-01-01", http.StatusBadRequest},
		{"from after as_of", "/api/indicators/A/sma?from=2021-02-01&as_of=2021-01-01", http.StatusBadRequest},
		{"unknown company", "/api/indicators/ZZZ/rsi?as_of=2021-01-01", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, tt.path, "", "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_Data(t *testing.T) {
	router := newTestRouter(t, RateLimit{})

	rec := do(t, router, http.MethodGet, "/api/data/universe?as_of=2020-06-01", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var universe struct {
		TotalCount int `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &universe))
	assert.Equal(t, 2, universe.TotalCount)

	rec = do(t, router, http.MethodGet, "/api/data/quality?date=2020-06-01", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report quality.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.TotalCompanies)
}

func TestRouter_RateLimit(t *testing.T) {
	router := newTestRouter(t, RateLimit{PerSecond: 0.001, Burst: 2})

	for i := 0; i < 2; i++ {
		rec := do(t, router, http.MethodGet, "/api/screener/presets", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, router, http.MethodGet, "/api/screener/presets", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// other clients and the health check are unaffected
	req := httptest.NewRequest(http.MethodGet, "/api/screener/presets", bytes.NewReader(nil))
	req.RemoteAddr = "198.51.100.7:4000"
	other := httptest.NewRecorder()
	router.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/health", "", "").Code)
}

func TestClientLimiters_EvictsIdle(t *testing.T) {
	c := newClientLimiters(1, 1)
	now := time.Now()

	assert.True(t, c.allow("a", now))
	assert.False(t, c.allow("a", now))

	later := now.Add(2 * idleLimiterTTL)
	assert.True(t, c.allow("b", later))
	_, kept := c.clients["a"]
	assert.False(t, kept)
}
