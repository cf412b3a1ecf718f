package validation

// ChatRequest is the body of POST /v1/chat. Message content rules (blank,
// length) live in the chat pipeline so they are reported with its wording.
type ChatRequest struct {
	Message string `json:"message"`
}

// CleanRequest is the body of POST /v1/clean. Any text is accepted,
// including none.
type CleanRequest struct {
	Text   string `json:"text"`
	Prompt string `json:"prompt"`
}

// ClassifyRequest is the body of POST /v1/classify.
type ClassifyRequest struct {
	Message string `json:"message"`
}

// ValidateRequest is the body of POST /v1/validate. Kind selects the check.
type ValidateRequest struct {
	Kind  string `json:"kind" validate:"required,oneof=message api_key email"`
	Value string `json:"value"`
}
