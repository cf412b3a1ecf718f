package generation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teilomillet/chatline/config"
	"github.com/teilomillet/chatline/errors"
	"github.com/teilomillet/chatline/generation"
)

func deepAIConfig(baseURL string) config.DeepAIConfig {
	cfg := config.DefaultConfig().API.DeepAI
	cfg.BaseURL = baseURL
	cfg.Key = "test-key-123"
	return cfg
}

func TestDeepAIGenerator(t *testing.T) {
	var gotText, gotKey, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		gotText = r.PostForm.Get("text")
		gotKey = r.Header.Get("api-key")
		gotPath = r.URL.Path

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"output": "Dragons fly."})
	}))
	defer server.Close()

	gen := generation.NewDeepAIGenerator(deepAIConfig(server.URL), server.Client())
	out, err := gen.Generate(context.Background(), "Tell me about dragons")

	require.NoError(t, err)
	assert.Equal(t, "Dragons fly.", out)
	assert.Equal(t, "Tell me about dragons", gotText)
	assert.Equal(t, "test-key-123", gotKey)
	assert.Equal(t, "/text-generator", gotPath)
}

func TestDeepAIGeneratorFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType errors.ErrorType
	}{
		{"unauthorized", http.StatusUnauthorized, `{"err":"bad key"}`, errors.InvalidAPIKeyError},
		{"forbidden", http.StatusForbidden, ``, errors.InvalidAPIKeyError},
		{"rate limited", http.StatusTooManyRequests, ``, errors.RateLimitError},
		{"server error", http.StatusBadGateway, `oops`, errors.ServerError},
		{"bad request", http.StatusBadRequest, ``, errors.GenericError},
		{"empty output", http.StatusOK, `{"output":"   "}`, errors.NoResponseError},
		{"missing output", http.StatusOK, `{"id":"x"}`, errors.NoResponseError},
		{"not json", http.StatusOK, `<html>`, errors.InvalidResponseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			gen := generation.NewDeepAIGenerator(deepAIConfig(server.URL), server.Client())
			_, err := gen.Generate(context.Background(), "hello")

			require.Error(t, err)
			assert.Equal(t, tt.wantType, errors.Classify(err))
		})
	}
}

func TestDeepAIGeneratorTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	cfg := deepAIConfig(server.URL)
	cfg.Timeout = 20 * time.Millisecond

	gen := generation.NewDeepAIGenerator(cfg, server.Client())
	_, err := gen.Generate(context.Background(), "hello")

	require.Error(t, err)
	assert.Equal(t, errors.TimeoutError, errors.Classify(err))
}

func TestDeepAIGeneratorUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	gen := generation.NewDeepAIGenerator(deepAIConfig(url), nil)
	_, err := gen.Generate(context.Background(), "hello")

	require.Error(t, err)
	assert.Equal(t, errors.NetworkError, errors.Classify(err))
}
