package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teilomillet/chatline/errors"
	"github.com/teilomillet/chatline/server/metrics"
	"github.com/teilomillet/chatline/server/middleware"
	"go.uber.org/zap/zaptest"
)

func TestRateLimitMetrics(t *testing.T) {
	m := metrics.NewMetrics()
	limiter := middleware.NewRateLimiter(5, time.Second, m, zaptest.NewLogger(t))

	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	testIP := "192.0.2.10"

	// One more than the limit
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest("POST", "/v1/chat", nil)
		req.RemoteAddr = testIP + ":1234"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if i < 5 {
			assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
			continue
		}

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "12", rec.Header().Get("Retry-After"))

		var body errors.ChatError
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, errors.RateLimitError, body.Type)
		assert.EqualValues(t, 5, body.Details["limit"])

		assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimitHits.WithLabelValues("/v1/chat")))
	}
}

func TestRateLimitPerClient(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, 0, nil, nil)
	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(addr string) int {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	// Same host, different port
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:2000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"))

	limiter.Reset()
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
}
