package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/teilomillet/chatline/config"
	"github.com/teilomillet/chatline/errors"
)

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 512

// DeepAIGenerator calls the DeepAI text generator endpoint.
type DeepAIGenerator struct {
	cfg    config.DeepAIConfig
	client *http.Client
}

type deepAIResponse struct {
	Output string `json:"output"`
}

// NewDeepAIGenerator returns a generator for cfg. A nil client gets one
// with no overall timeout; each attempt is bounded by cfg.Timeout instead.
func NewDeepAIGenerator(cfg config.DeepAIConfig, client *http.Client) *DeepAIGenerator {
	if client == nil {
		client = &http.Client{}
	}
	return &DeepAIGenerator{cfg: cfg, client: client}
}

// Generate posts the prompt as form field "text" and returns the "output"
// field of the JSON answer.
func (g *DeepAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	form := url.Values{"text": {prompt}}
	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + g.cfg.Endpoints.TextGenerator

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", g.cfg.Key)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &errors.StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var out deepAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w: %v", errors.ErrInvalidResponse, err)
	}
	if strings.TrimSpace(out.Output) == "" {
		return "", errors.ErrNoResponse
	}
	return out.Output, nil
}
