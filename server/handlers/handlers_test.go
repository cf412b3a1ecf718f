package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teilomillet/chatline/config"
	"github.com/teilomillet/chatline/errors"
	"github.com/teilomillet/chatline/server/metrics"
	"github.com/teilomillet/chatline/server/middleware"
	"github.com/teilomillet/chatline/server/mocks"
	"github.com/teilomillet/chatline/server/processing"
	"github.com/teilomillet/chatline/storage"
	"github.com/teilomillet/chatline/textutil"
	"go.uber.org/zap/zaptest"
)

type errorBody struct {
	Type      errors.ErrorType       `json:"type"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"request_id"`
	Details   map[string]interface{} `json:"details"`
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-test")
	rec := httptest.NewRecorder()
	middleware.RequestID(h).ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func newChatHandler(t *testing.T, cfg *config.Config, gen *mocks.MockGenerator, m *metrics.Metrics) *ChatHandler {
	t.Helper()
	proc, err := processing.NewProcessor(cfg, gen, zaptest.NewLogger(t))
	require.NoError(t, err)
	return NewChatHandler(proc, m, zaptest.NewLogger(t))
}

func TestChatHandler(t *testing.T) {
	m := metrics.NewMetrics()
	h := newChatHandler(t, config.DefaultConfig(), mocks.NewStaticGenerator("Once upon a time, a fox."), m)

	rec := post(t, h, "/v1/chat", `{"message":"Tell me a story"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp processing.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Once upon a time, a fox.", resp.Content)
	assert.Equal(t, string(textutil.CategoryStory), resp.Category)
	assert.Equal(t, 1, resp.Attempts)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Classifications.WithLabelValues("story")))
}

func TestChatHandlerErrors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API.DeepAI.RetryDelay = 0

	tests := []struct {
		name        string
		body        string
		gen         *mocks.MockGenerator
		wantStatus  int
		wantType    errors.ErrorType
		wantMessage string
	}{
		{
			name:        "empty message",
			body:        `{"message":"   "}`,
			gen:         mocks.NewStaticGenerator("unused response"),
			wantStatus:  http.StatusBadRequest,
			wantType:    errors.ValidationError,
			wantMessage: textutil.ReasonEmpty,
		},
		{
			name:        "message too long",
			body:        `{"message":"` + strings.Repeat("a", 2001) + `"}`,
			gen:         mocks.NewStaticGenerator("unused response"),
			wantStatus:  http.StatusBadRequest,
			wantType:    errors.ValidationError,
			wantMessage: "Message too long (max 2000 characters)",
		},
		{
			name: "bad api key",
			body: `{"message":"hello"}`,
			gen: mocks.NewMockGenerator(func(context.Context, string) (string, error) {
				return "", &errors.StatusError{StatusCode: http.StatusUnauthorized}
			}),
			wantStatus:  http.StatusUnauthorized,
			wantType:    errors.InvalidAPIKeyError,
			wantMessage: cfg.Errors.APIKey,
		},
		{
			name:        "responses always too short",
			body:        `{"message":"hello"}`,
			gen:         mocks.NewStaticGenerator("ok"),
			wantStatus:  errors.StatusFor(errors.NoResponseError),
			wantType:    errors.NoResponseError,
			wantMessage: cfg.Errors.NoResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.NewMetrics()
			h := newChatHandler(t, cfg, tt.gen, m)

			rec := post(t, h, "/v1/chat", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			body := decodeError(t, rec)
			assert.Equal(t, tt.wantType, body.Type)
			assert.Equal(t, "req-test", body.RequestID)
			assert.Equal(t, tt.wantMessage, body.Details["user_message"])
			assert.Equal(t, float64(1), testutil.ToFloat64(m.ChatFailures.WithLabelValues(string(tt.wantType))))
		})
	}
}

func TestChatHandlerRejectsBadBody(t *testing.T) {
	h := newChatHandler(t, config.DefaultConfig(), mocks.NewStaticGenerator("never called"), nil)

	rec := post(t, h, "/v1/chat", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ValidationError, decodeError(t, rec).Type)
}

func TestTextHandler(t *testing.T) {
	cfg := config.DefaultConfig()
	h := NewTextHandler(
		textutil.NewCleaner(),
		textutil.NewClassifier(cfg.Keywords()),
		textutil.NewValidator(cfg.App.MaxMessageLength),
	)

	t.Run("clean", func(t *testing.T) {
		rec := post(t, http.HandlerFunc(h.Clean), "/v1/clean",
			`{"text":"Hello world! Hello world! How are you?","prompt":"Hello world!"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp CleanResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, textutil.CleanResponse("Hello world! Hello world! How are you?", "Hello world!"), resp.Text)
	})

	t.Run("clean accepts empty text", func(t *testing.T) {
		rec := post(t, http.HandlerFunc(h.Clean), "/v1/clean", `{"text":"","prompt":""}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp CleanResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "", resp.Text)
	})

	t.Run("classify empty message", func(t *testing.T) {
		rec := post(t, http.HandlerFunc(h.Classify), "/v1/classify", `{"message":""}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp ClassifyResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, textutil.CategoryGeneric, resp.Category)
	})

	t.Run("classify", func(t *testing.T) {
		rec := post(t, http.HandlerFunc(h.Classify), "/v1/classify", `{"message":"What is Go?"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp ClassifyResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, textutil.CategoryQuestion, resp.Category)
	})

	validateTests := []struct {
		body       string
		wantValid  bool
		wantReason string
	}{
		{`{"kind":"message","value":"hi"}`, true, ""},
		{`{"kind":"message","value":""}`, false, textutil.ReasonEmpty},
		{`{"kind":"api_key","value":"abcde-12345"}`, true, ""},
		{`{"kind":"api_key","value":"short"}`, false, "Invalid API key format"},
		{`{"kind":"email","value":"user@example.com"}`, true, ""},
		{`{"kind":"email","value":"nope"}`, false, "Invalid email address"},
	}
	for _, tt := range validateTests {
		t.Run("validate "+tt.body, func(t *testing.T) {
			rec := post(t, http.HandlerFunc(h.Validate), "/v1/validate", tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			var result textutil.ValidationResult
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
			assert.Equal(t, tt.wantValid, result.Valid)
			assert.Equal(t, tt.wantReason, result.Reason)
		})
	}
}

func newStorageRouter(t *testing.T) (http.Handler, *storage.Slots) {
	t.Helper()
	cfg := config.DefaultConfig()
	slots := storage.NewSlots(storage.NewMemoryStore(), cfg.Storage, zaptest.NewLogger(t))
	h := NewStorageHandler(slots)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Get("/v1/storage/{slot}", h.Get)
	r.Put("/v1/storage/{slot}", h.Put)
	r.Delete("/v1/storage/{slot}", h.Delete)
	r.Delete("/v1/storage", h.Clear)
	return r, slots
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestStorageHandler(t *testing.T) {
	r, slots := newStorageRouter(t)

	rec := do(r, http.MethodGet, "/v1/storage/theme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got SlotValue
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.False(t, got.Found)
	assert.JSONEq(t, "null", string(got.Value))

	rec = do(r, http.MethodPut, "/v1/storage/theme", `"dark"`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var theme string
	assert.True(t, slots.Get(context.Background(), storage.SlotTheme, &theme))
	assert.Equal(t, "dark", theme)

	rec = do(r, http.MethodGet, "/v1/storage/theme", "")
	got = SlotValue{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.True(t, got.Found)
	assert.JSONEq(t, `"dark"`, string(got.Value))

	rec = do(r, http.MethodDelete, "/v1/storage/theme", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, slots.Get(context.Background(), storage.SlotTheme, &theme))
}

func TestStorageHandlerErrors(t *testing.T) {
	r, _ := newStorageRouter(t)

	rec := do(r, http.MethodGet, "/v1/storage/passwords", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.NotFoundError, decodeError(t, rec).Type)

	rec = do(r, http.MethodPut, "/v1/storage/settings", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ValidationError, decodeError(t, rec).Type)
}

func TestStorageHandlerClear(t *testing.T) {
	r, slots := newStorageRouter(t)
	ctx := context.Background()

	require.True(t, slots.Set(ctx, storage.SlotTheme, "light"))
	require.True(t, slots.Set(ctx, storage.SlotPreferences, map[string]bool{"sound": true}))

	rec := do(r, http.MethodDelete, "/v1/storage", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	for _, slot := range storage.AllSlots {
		_, found := slots.GetRaw(ctx, slot)
		assert.False(t, found, slot)
	}
}

func TestConfigHandler(t *testing.T) {
	cfg := config.DefaultConfig()
	rec := httptest.NewRecorder()
	Config(func() *config.Config { return cfg })(rec, httptest.NewRequest(http.MethodGet, "/v1/config", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	assert.Equal(t, float64(cfg.App.MaxMessageLength), body["max_message_length"])
	assert.Equal(t, float64(cfg.App.MaxResponseLength), body["max_response_length"])
	assert.Equal(t, float64(100), body["throttle_delay_ms"])
	assert.Equal(t, false, body["cache_responses"])
	assert.Contains(t, body, "features")
	assert.Contains(t, body, "errors")
	assert.NotContains(t, body, "api_key")
	assert.NotContains(t, strings.ToLower(rec.Body.String()), "deepai")
}

func TestConfigHandlerDevice(t *testing.T) {
	cfg := config.DefaultConfig()
	h := Config(func() *config.Config { return cfg })

	tests := []struct {
		name   string
		target string
		ua     string
		want   string
	}{
		{"width hint", "/v1/config?width=400", "", "mobile"},
		{"tablet width", "/v1/config?width=700", "", "tablet"},
		{"wide viewport beats agent", "/v1/config?width=1400", "Mozilla/5.0 (iPhone)", "desktop"},
		{"mobile agent", "/v1/config", "Mozilla/5.0 (Linux; Android 14)", "mobile"},
		{"unknown", "/v1/config?width=abc", "curl/8.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			req.Header.Set("User-Agent", tt.ua)
			rec := httptest.NewRecorder()
			h(rec, req)

			var body ConfigResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.want, body.Device)
		})
	}
}
