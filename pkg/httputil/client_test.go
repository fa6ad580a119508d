package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalith1997/quantscreen/pkg/logger"
)

func newTestClient() *Client {
	return New(nil, logger.Nop()).WithRetry(2, time.Millisecond)
}

func TestNew(t *testing.T) {
	client := New(nil, nil)
	require.NotNil(t, client.httpClient)
	assert.NotNil(t, client.logger)
	assert.Equal(t, 3, client.retryConfig.MaxRetries)
	assert.True(t, client.retryConfig.Enabled)

	client = NewWithTimeout(nil, logger.Nop(), 5*time.Second)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)

	assert.False(t, client.DisableRetry().retryConfig.Enabled)
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"companies":[]}`))
	}))
	defer server.Close()

	data, err := newTestClient().Download(context.Background(), server.URL, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"companies":[]}`, string(data))

	_, err = newTestClient().Download(context.Background(), server.URL, 4)
	assert.ErrorContains(t, err, "exceeds 4 bytes")
}

func TestDownload_StatusError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := newTestClient().Download(context.Background(), server.URL, 0)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestRetryOnRetryableStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"server error", http.StatusBadGateway},
		{"too many requests", http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) < 3 {
					w.WriteHeader(tt.status)
					return
				}
				w.Write([]byte("ok"))
			}))
			defer server.Close()

			data, err := newTestClient().Download(context.Background(), server.URL, 0)
			require.NoError(t, err)
			assert.Equal(t, "ok", string(data))
			assert.Equal(t, int32(3), calls.Load())
		})
	}
}

func TestRetryExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient().Download(context.Background(), server.URL, 0)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryWhenDisabled(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient().DisableRetry().Download(context.Background(), server.URL, 0)
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{200, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryableError(tt.code), "status %d", tt.code)
	}
}
