package textutil

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Validation failure reasons.
const (
	ReasonEmpty = "Message cannot be empty"
)

// ValidationResult is the outcome of validating a message. Failures are
// data, not errors; Reason is meant for display.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Validator checks user messages against the configured length limit.
type Validator struct {
	maxLength int
}

// NewValidator returns a Validator that accepts messages of up to maxLength
// characters.
func NewValidator(maxLength int) *Validator {
	return &Validator{maxLength: maxLength}
}

// MaxLength returns the configured limit.
func (v *Validator) MaxLength() int {
	return v.maxLength
}

// ValidateMessage rejects messages that are blank after trimming or longer
// than the limit. Length counts characters, not bytes; surrounding
// whitespace counts toward it.
func (v *Validator) ValidateMessage(message string) ValidationResult {
	if strings.TrimSpace(message) == "" {
		return ValidationResult{Valid: false, Reason: ReasonEmpty}
	}
	if utf8.RuneCountInString(message) > v.maxLength {
		return ValidationResult{
			Valid:  false,
			Reason: fmt.Sprintf("Message too long (max %d characters)", v.maxLength),
		}
	}
	return ValidationResult{Valid: true}
}

// ValidateAPIKey applies the basic DeepAI key shape check: at least ten
// characters and at least one dash.
func ValidateAPIKey(key string) bool {
	return len(key) >= 10 && strings.Contains(key, "-")
}

var validate = validator.New()

// ValidateEmail reports whether email is a well-formed address.
func ValidateEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}
