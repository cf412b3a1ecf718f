package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teilomillet/chatline/config"
	"github.com/teilomillet/chatline/server/handlers"
	"github.com/teilomillet/chatline/server/metrics"
	"github.com/teilomillet/chatline/server/middleware"
	"github.com/teilomillet/chatline/storage"
	"github.com/teilomillet/chatline/textutil"
	"go.uber.org/zap/zaptest"
)

func newTestRouter(t *testing.T, cfg *config.Config, chat http.Handler, checks map[string]HealthCheck) (*Router, *metrics.Metrics) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	m := metrics.NewMetrics()
	slots := storage.NewSlots(storage.NewMemoryStore(), cfg.Storage, logger)

	r := NewRouter(Options{
		Config: cfg,
		Handlers: Handlers{
			Chat: chat,
			Text: handlers.NewTextHandler(
				textutil.NewCleaner(),
				textutil.NewClassifier(cfg.Keywords()),
				textutil.NewValidator(cfg.App.MaxMessageLength),
			),
			Storage: handlers.NewStorageHandler(slots),
			Config:  handlers.Config(func() *config.Config { return cfg }),
		},
		Metrics:     m,
		RateLimiter: middleware.NewRateLimiter(cfg.Security.MaxRequestsPerMinute, cfg.Performance.ThrottleDelay, m, logger),
		Checks:      checks,
		Logger:      logger,
	})
	return r, m
}

func mockConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Dev.MockAPI = true
	return cfg
}

func okChat() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":"hi"}`))
	})
}

func send(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = "192.0.2.1:5000"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouterRoutes(t *testing.T) {
	r, _ := newTestRouter(t, mockConfig(), okChat(), nil)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodPost, "/v1/chat", `{"message":"hi"}`, http.StatusOK},
		{http.MethodGet, "/v1/chat", "", http.StatusMethodNotAllowed},
		{http.MethodPost, "/v1/clean", `{"text":"AI: hello"}`, http.StatusOK},
		{http.MethodPost, "/v1/classify", `{"message":"hello"}`, http.StatusOK},
		{http.MethodPost, "/v1/validate", `{"kind":"email","value":"a@b.co"}`, http.StatusOK},
		{http.MethodPut, "/v1/storage/theme", `"dark"`, http.StatusNoContent},
		{http.MethodGet, "/v1/storage/theme", "", http.StatusOK},
		{http.MethodDelete, "/v1/storage/theme", "", http.StatusNoContent},
		{http.MethodDelete, "/v1/storage", "", http.StatusNoContent},
		{http.MethodGet, "/v1/storage/unknown", "", http.StatusNotFound},
		{http.MethodGet, "/v1/config", "", http.StatusOK},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			rec := send(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestRouterStoragePutNeedsJSON(t *testing.T) {
	r, _ := newTestRouter(t, mockConfig(), okChat(), nil)

	req := httptest.NewRequest(http.MethodPut, "/v1/storage/theme", strings.NewReader("dark"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterChatNeedsCredentials(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API.Provider = "deepai"
	cfg.API.DeepAI.Key = ""

	called := false
	r, _ := newTestRouter(t, cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}), nil)

	rec := send(r, http.MethodPost, "/v1/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	// Local tools keep working without a key
	rec = send(r, http.MethodPost, "/v1/classify", `{"message":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterRateLimitsChatOnly(t *testing.T) {
	cfg := mockConfig()
	cfg.Security.MaxRequestsPerMinute = 2
	r, _ := newTestRouter(t, cfg, okChat(), nil)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, send(r, http.MethodPost, "/v1/chat", `{"message":"hi"}`).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, send(r, http.MethodPost, "/v1/chat", `{"message":"hi"}`).Code)
	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/v1/config", "").Code)
}

func TestRouterHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthCheck
		wantStatus int
		wantBody   HealthStatus
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantBody:   HealthStatus{Status: "ok"},
		},
		{
			name: "all healthy",
			checks: map[string]HealthCheck{
				"storage": func(context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantBody:   HealthStatus{Status: "ok", Checks: map[string]string{"storage": "healthy"}},
		},
		{
			name: "breaker open",
			checks: map[string]HealthCheck{
				"storage":    func(context.Context) error { return nil },
				"generation": func(context.Context) error { return fmt.Errorf("circuit breaker open") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody: HealthStatus{Status: "degraded", Checks: map[string]string{
				"storage":    "healthy",
				"generation": "unhealthy: circuit breaker open",
			}},
		},
		{
			name: "panicking check",
			checks: map[string]HealthCheck{
				"storage": func(context.Context) error { panic("disk on fire") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody: HealthStatus{Status: "degraded", Checks: map[string]string{
				"storage": "unhealthy: check panicked",
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t, mockConfig(), okChat(), tt.checks)
			rec := send(r, http.MethodGet, "/health", "")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body HealthStatus
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantBody.Status, body.Status)
			if len(tt.wantBody.Checks) > 0 {
				assert.Equal(t, tt.wantBody.Checks, body.Checks)
			}
		})
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, mockConfig(), okChat(), nil)

	send(r, http.MethodGet, "/v1/storage/theme", "")
	rec := send(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chatline_http_requests_total{endpoint="/v1/storage/{slot}",status="200"} 1`)
}

func TestRouterRecoversPanics(t *testing.T) {
	r, _ := newTestRouter(t, mockConfig(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), nil)

	rec := send(r, http.MethodPost, "/v1/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouterUnknownRoutesAnswerJSON(t *testing.T) {
	r, _ := newTestRouter(t, mockConfig(), okChat(), nil)

	tests := []struct {
		method   string
		path     string
		wantCode int
		wantType string
	}{
		{http.MethodGet, "/nope", http.StatusNotFound, "not_found"},
		{http.MethodGet, "/v1/chat", http.StatusMethodNotAllowed, "method_not_allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := send(r, tt.method, tt.path, "")
			assert.Equal(t, tt.wantCode, rec.Code)

			var body struct {
				Type      string `json:"type"`
				RequestID string `json:"request_id"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantType, body.Type)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}
