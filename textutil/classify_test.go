package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/teilomillet/chatline/config"
)

func newDefaultClassifier() *Classifier {
	return NewClassifier(config.DefaultConfig().Keywords())
}

func TestClassify(t *testing.T) {
	c := newDefaultClassifier()

	tests := []struct {
		name  string
		input string
		want  Category
	}{
		{"story keyword", "Write a tale about a magical forest", CategoryStory},
		{"story phrase", "once upon a time", CategoryStory},
		{"question word", "What is artificial intelligence", CategoryQuestion},
		{"question mark", "really?", CategoryQuestion},
		{"greeting", "hello there", CategoryGreeting},
		{"greeting phrase", "good morning!", CategoryGreeting},
		{"generic", "ok thanks", CategoryGeneric},
		{"empty", "", CategoryGeneric},
		{"story beats question", "What happens in chapter two?", CategoryStory},
		{"question beats greeting", "hey, why is the sky blue", CategoryQuestion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.input))
		})
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	c := newDefaultClassifier()

	for _, input := range []string{"hello", "HELLO", "Hello", "hElLo"} {
		assert.Equal(t, CategoryGreeting, c.Classify(input), "input %q", input)
	}
	assert.Equal(t, c.Classify("tell me a STORY"), c.Classify("TELL ME A story"))
}

func TestClassifyStoryOnly(t *testing.T) {
	c := newDefaultClassifier()
	kw := config.DefaultConfig().Keywords()

	// Each story keyword on its own, padded with text that matches nothing else
	for _, keyword := range kw.Story {
		input := "zzz " + keyword + " zzz"
		if ContainsKeywords(input, kw.Question) || ContainsKeywords(input, kw.Greeting) {
			continue
		}
		assert.Equal(t, CategoryStory, c.Classify(input), "keyword %q", keyword)
	}
}

func TestClassifyCustomKeywords(t *testing.T) {
	c := NewClassifier(config.KeywordLists{
		Story:    []string{"SAGA"},
		Question: []string{"Query"},
		Greeting: []string{"yo"},
	})

	assert.Equal(t, CategoryStory, c.Classify("an epic saga"))
	assert.Equal(t, CategoryQuestion, c.Classify("QUERY: status"))
	assert.Equal(t, CategoryGreeting, c.Classify("Yo!"))
	assert.Equal(t, CategoryGeneric, c.Classify(strings.Repeat("x", 50)))
}

func TestContainsKeywords(t *testing.T) {
	assert.True(t, ContainsKeywords("Tell Me About cats", []string{"tell me about"}))
	assert.False(t, ContainsKeywords("cats", []string{"dogs", "birds"}))
	assert.False(t, ContainsKeywords("anything", nil))
	assert.False(t, ContainsKeywords("anything", []string{""}))
}
