// Package generation talks to the text-generation backend. A Generator
// produces raw text for a prompt; Client puts concurrency limits, request
// coalescing, a circuit breaker and bounded retries in front of one.
package generation

import (
	"context"
	"fmt"

	"github.com/teilomillet/chatline/config"
	"github.com/teilomillet/chatline/textutil"
	"go.uber.org/zap"
)

// Generator produces raw text for a prompt. Implementations return plain
// errors; Client classifies them.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// New picks the backend from configuration: canned responses when
// Dev.MockAPI is set, DeepAI for the "deepai" provider and gollm for
// everything else.
func New(cfg *config.Config, logger *zap.Logger) (Generator, error) {
	if cfg.Dev.MockAPI {
		logger.Info("Using mock generator")
		return NewMockGenerator(textutil.NewClassifier(cfg.Keywords())), nil
	}

	switch cfg.API.Provider {
	case "deepai":
		return NewDeepAIGenerator(cfg.API.DeepAI, nil), nil
	default:
		g, err := NewGollmGenerator(cfg.API.Provider, cfg.API.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize provider %s: %w", cfg.API.Provider, err)
		}
		return g, nil
	}
}
