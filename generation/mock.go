package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/teilomillet/chatline/internal/util"
	"github.com/teilomillet/chatline/textutil"
)

var mockResponses = map[textutil.Category][]string{
	textutil.CategoryStory: {
		"Once upon a time, in a quiet village at the edge of a great forest, " +
			"a curious child found a map that led somewhere no one had been in a hundred years.",
		"Once upon a time, a lighthouse keeper noticed that one of the stars " +
			"blinked back at her every night at exactly nine o'clock.",
	},
	textutil.CategoryQuestion: {
		"That's a good question. Here is a short answer from the mock backend: " +
			"it depends, but the details are worth exploring.",
		"Interesting question! The mock backend can't look it up, but it would " +
			"start with the basics and work outwards.",
	},
	textutil.CategoryGreeting: {
		"Hi there! I'm running in mock mode, but I'm happy to chat.",
		"Good to see you! This is the mock backend saying hi.",
	},
	textutil.CategoryGeneric: {
		"I see. Tell me more about that and I'll do my best to help.",
		"Noted. What would you like to do next?",
	},
}

// MockGenerator answers with a random canned response for the prompt's
// category.
type MockGenerator struct {
	classifier *textutil.Classifier

	// Delay simulates upstream latency
	Delay time.Duration
}

// NewMockGenerator returns a MockGenerator using classifier to pick answers.
func NewMockGenerator(classifier *textutil.Classifier) *MockGenerator {
	return &MockGenerator{classifier: classifier}
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.Delay):
		}
	}

	category := m.classifier.Classify(prompt)
	resp, ok := util.RandomItem(mockResponses[category])
	if !ok {
		return "", fmt.Errorf("no mock response for category %s", category)
	}
	return resp, nil
}
