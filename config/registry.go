package config

import "time"

// Limits is the numeric view of the registry used by the text pipeline and
// the generation client.
type Limits struct {
	MaxMessageLength      int
	MaxResponseLength     int
	MinResponseLength     int
	RetryAttempts         int
	RetryDelay            time.Duration
	Timeout               time.Duration
	MaxConcurrentRequests int
	MaxRequestsPerMinute  int
}

// KeywordLists holds the classifier keyword groups.
type KeywordLists struct {
	Story    []string
	Question []string
	Greeting []string
}

// Limits returns the numeric limits.
func (c *Config) Limits() Limits {
	return Limits{
		MaxMessageLength:      c.App.MaxMessageLength,
		MaxResponseLength:     c.App.MaxResponseLength,
		MinResponseLength:     c.Processing.MinResponseLength,
		RetryAttempts:         c.API.DeepAI.RetryAttempts,
		RetryDelay:            c.API.DeepAI.RetryDelay,
		Timeout:               c.API.DeepAI.Timeout,
		MaxConcurrentRequests: c.Performance.MaxConcurrentRequests,
		MaxRequestsPerMinute:  c.Security.MaxRequestsPerMinute,
	}
}

// Keywords returns copies of the keyword lists so callers can't write
// through to the registry.
func (c *Config) Keywords() KeywordLists {
	return KeywordLists{
		Story:    append([]string(nil), c.Processing.StoryKeywords...),
		Question: append([]string(nil), c.Processing.QuestionKeywords...),
		Greeting: append([]string(nil), c.Processing.GreetingKeywords...),
	}
}

// ErrorMessages returns the user-facing failure text table.
func (c *Config) ErrorMessages() ErrorMessages {
	return c.Errors
}

// Public is the subset of the registry safe to hand to the browser.
type Public struct {
	Name             string          `json:"name"`
	Version          string          `json:"version"`
	Theme            string          `json:"theme"`
	MaxMessageLength int             `json:"max_message_length"`
	TypingDelayMS    int64           `json:"typing_delay_ms"`
	DebounceDelayMS  int64           `json:"debounce_delay_ms"`
	ThrottleDelayMS  int64           `json:"throttle_delay_ms"`
	CacheResponses   bool            `json:"cache_responses"`
	WelcomeMessage   bool            `json:"welcome_message"`
	Features         FeatureFlags    `json:"features"`
	Messages         SuccessMessages `json:"messages"`
}

// Public returns the browser-facing view of the configuration.
func (c *Config) Public() Public {
	return Public{
		Name:             c.App.Name,
		Version:          c.App.Version,
		Theme:            c.App.Theme,
		MaxMessageLength: c.App.MaxMessageLength,
		TypingDelayMS:    c.App.TypingDelay.Milliseconds(),
		DebounceDelayMS:  c.Performance.DebounceDelay.Milliseconds(),
		ThrottleDelayMS:  c.Performance.ThrottleDelay.Milliseconds(),
		CacheResponses:   c.Performance.CacheResponses,
		WelcomeMessage:   c.App.WelcomeMessage,
		Features:         c.Features,
		Messages:         c.Messages,
	}
}
