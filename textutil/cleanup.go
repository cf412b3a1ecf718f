package textutil

import (
	"regexp"
	"strings"
)

// Rule is one artifact replacement. Rules run in slice order and later rules
// assume the earlier ones already ran.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// DefaultRules returns the artifact rules in their fixed order. Leading
// punctuation is stripped before whitespace runs are collapsed.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "role_label",
			Pattern: regexp.MustCompile(`(?i)^(Human:|AI:|Assistant:|Bot:)`),
		},
		{
			Name:    "leading_punctuation",
			Pattern: regexp.MustCompile(`^[:\-\s]+`),
		},
		{
			Name:        "blank_lines",
			Pattern:     regexp.MustCompile(`\n{3,}`),
			Replacement: "\n\n",
		},
		{
			Name:        "space_runs",
			Pattern:     regexp.MustCompile(` {3,}`),
			Replacement: " ",
		},
	}
}

// Cleaner strips echoed prompts and API artifacts from generated text.
type Cleaner struct {
	rules []Rule
}

// NewCleaner returns a Cleaner using rules, or DefaultRules when none are given.
func NewCleaner(rules ...Rule) *Cleaner {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Cleaner{rules: rules}
}

var defaultCleaner = NewCleaner()

// CleanResponse cleans raw with the default rules.
func CleanResponse(raw, prompt string) string {
	return defaultCleaner.Clean(raw, prompt)
}

// Clean returns raw with every case-insensitive occurrence of prompt removed
// and the artifact rules applied. Empty input yields "".
//
// The rule pass repeats until the text stops changing, so Clean(Clean(s, ""), "")
// equals Clean(s, ""). The default rules only ever shorten the text; the pass
// count is capped at the input length for custom rules that don't.
func (c *Cleaner) Clean(raw, prompt string) string {
	if raw == "" {
		return ""
	}

	cleaned := strings.TrimSpace(raw)

	if prompt != "" {
		echo := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(prompt))
		cleaned = echo.ReplaceAllLiteralString(cleaned, "")
	}

	for i := 0; i <= len(raw); i++ {
		next := c.pass(cleaned)
		if next == cleaned {
			break
		}
		cleaned = next
	}
	return cleaned
}

func (c *Cleaner) pass(s string) string {
	for _, rule := range c.rules {
		s = rule.Pattern.ReplaceAllLiteralString(s, rule.Replacement)
	}
	return strings.TrimSpace(s)
}
