// Package textutil holds the pure text functions of the chat pipeline:
// intent classification, response cleanup, message validation and HTML-safe
// formatting. Nothing here performs I/O or fails; every function is total
// over its string inputs.
package textutil

import (
	"strings"

	"github.com/teilomillet/chatline/config"
)

// Category is the intent label assigned to a message.
type Category string

const (
	CategoryStory    Category = "story"
	CategoryQuestion Category = "question"
	CategoryGreeting Category = "greeting"
	CategoryGeneric  Category = "generic"
)

// Classifier labels text by keyword containment. Groups are checked in a
// fixed priority order and the first group with a hit wins.
type Classifier struct {
	groups []keywordGroup
}

type keywordGroup struct {
	category Category
	keywords []string
}

// NewClassifier builds a Classifier from the configured keyword lists.
// Keywords are lower-cased once here.
func NewClassifier(kw config.KeywordLists) *Classifier {
	return &Classifier{
		groups: []keywordGroup{
			{CategoryStory, lowerAll(kw.Story)},
			{CategoryQuestion, lowerAll(kw.Question)},
			{CategoryGreeting, lowerAll(kw.Greeting)},
		},
	}
}

// Classify returns the category of text, or CategoryGeneric when no
// keyword matches.
func (c *Classifier) Classify(text string) Category {
	lower := strings.ToLower(text)
	for _, g := range c.groups {
		if containsAny(lower, g.keywords) {
			return g.category
		}
	}
	return CategoryGeneric
}

// ContainsKeywords reports whether text contains any keyword, ignoring case.
func ContainsKeywords(text string, keywords []string) bool {
	return containsAny(strings.ToLower(text), lowerAll(keywords))
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
