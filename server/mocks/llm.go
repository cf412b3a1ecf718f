package mocks

import (
	"context"
	"sync/atomic"

	"github.com/teilomillet/gollm"
	"github.com/teilomillet/gollm/llm"
)

// MockLLM stands in for a gollm client. Only NewPrompt and Generate are
// implemented; any other method panics on the nil embedded interface.
//
//	mockLLM := NewMockLLM(func(ctx context.Context, prompt *gollm.Prompt) (string, error) {
//	    return "mocked response", nil
//	})
type MockLLM struct {
	gollm.LLM

	GenerateFunc func(context.Context, *gollm.Prompt) (string, error)

	calls atomic.Int32
}

// NewMockLLM creates a MockLLM. A nil generateFunc answers "".
func NewMockLLM(generateFunc func(context.Context, *gollm.Prompt) (string, error)) *MockLLM {
	return &MockLLM{GenerateFunc: generateFunc}
}

// Generate calls GenerateFunc; opts are ignored.
func (m *MockLLM) Generate(ctx context.Context, prompt *gollm.Prompt, opts ...llm.GenerateOption) (string, error) {
	m.calls.Add(1)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "", nil
}

// Calls returns how many times Generate was called.
func (m *MockLLM) Calls() int {
	return int(m.calls.Load())
}

// NewPrompt wraps text in a single user message.
func (m *MockLLM) NewPrompt(text string) *gollm.Prompt {
	return &gollm.Prompt{
		Messages: []gollm.PromptMessage{
			{Role: "user", Content: text},
		},
	}
}
