package mocks

import (
	"context"
	"sync"
	"sync/atomic"
)

// MockGenerator records prompts and answers through GenerateFunc.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	calls   atomic.Int32
	mu      sync.Mutex
	prompts []string
}

// NewMockGenerator returns a generator driven by fn.
func NewMockGenerator(fn func(ctx context.Context, prompt string) (string, error)) *MockGenerator {
	return &MockGenerator{GenerateFunc: fn}
}

// NewStaticGenerator always answers with response.
func NewStaticGenerator(response string) *MockGenerator {
	return NewMockGenerator(func(context.Context, string) (string, error) {
		return response, nil
	})
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "", nil
}

// Calls returns how many times Generate was called.
func (m *MockGenerator) Calls() int {
	return int(m.calls.Load())
}

// Prompts returns the prompts seen so far, oldest first.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// MockTokenizer counts whitespace-separated words in place of tokens.
type MockTokenizer struct{}

func (MockTokenizer) CountTokens(text string) int {
	n, inWord := 0, false
	for _, r := range text {
		space := r == ' ' || r == '\n' || r == '\t'
		if !space && !inWord {
			n++
		}
		inWord = !space
	}
	return n
}
