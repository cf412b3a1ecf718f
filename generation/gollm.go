package generation

import (
	"context"
	"strings"

	"github.com/teilomillet/chatline/errors"
	"github.com/teilomillet/gollm"
)

// GollmGenerator generates through any provider gollm supports.
type GollmGenerator struct {
	llm gollm.LLM
}

// NewGollmGenerator builds a gollm client for provider and model. The API
// key is read by gollm from the provider's usual environment variable.
func NewGollmGenerator(provider, model string) (*GollmGenerator, error) {
	llm, err := gollm.NewLLM(
		gollm.SetProvider(provider),
		gollm.SetModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &GollmGenerator{llm: llm}, nil
}

// NewGollmGeneratorWithLLM wraps an existing client.
func NewGollmGeneratorWithLLM(llm gollm.LLM) *GollmGenerator {
	return &GollmGenerator{llm: llm}
}

func (g *GollmGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := g.llm.Generate(ctx, g.llm.NewPrompt(prompt))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", errors.ErrNoResponse
	}
	return out, nil
}
