// Package processing runs a user message through the chat pipeline:
// validation, classification, generation, cleanup and formatting.
package processing

// Request is an incoming chat message.
type Request struct {
	Message string `json:"message"`

	// RequestID ties log lines and errors to the HTTP request
	RequestID string `json:"-"`
}

// Tokens is the token estimate of an exchange.
type Tokens struct {
	Prompt   int `json:"prompt"`
	Response int `json:"response"`
}

// Response is the processed reply.
type Response struct {
	// Content is the cleaned, length-limited reply text
	Content string `json:"content"`

	// HTML is Content escaped (when XSS protection is on) and with line
	// breaks rendered for display
	HTML string `json:"html"`

	Category string  `json:"category"`
	Tokens   *Tokens `json:"tokens,omitempty"`

	// Attempts is the number of generations needed to get a usable reply
	Attempts int `json:"attempts"`
}
