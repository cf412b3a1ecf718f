// Package errors provides the error taxonomy for chatline. Every failure the
// chat pipeline can report is a *ChatError carrying one ErrorType, and each
// upstream-facing type maps to exactly one user-facing message from the
// configuration registry.
//
// Basic usage:
//
//	// Classify an upstream failure
//	chatErr := errors.Wrap(requestID, err)
//
//	// Show the user the configured text
//	msg := errors.UserMessage(chatErr.Type, cfg.ErrorMessages())
//
//	// Or write it as a JSON response
//	errors.WriteError(w, chatErr)
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DefaultLogger is the default zap logger instance used throughout the package.
// It is initialized to a production configuration but can be overridden using SetLogger.
var DefaultLogger *zap.Logger

func init() {
	var err error
	DefaultLogger, err = zap.NewProduction()
	if err != nil {
		DefaultLogger = zap.NewNop()
	}
}

// SetLogger allows setting a custom zap logger instance.
// If nil is provided, the function will do nothing to prevent
// accidentally disabling logging.
func SetLogger(logger *zap.Logger) {
	if logger != nil {
		DefaultLogger = logger
	}
}

// ErrorType is a failure class.
type ErrorType string

// Upstream failure classes. Each has a configured user message.
const (
	NetworkError         ErrorType = "network"
	TimeoutError         ErrorType = "timeout"
	InvalidAPIKeyError   ErrorType = "invalid_api_key"
	RateLimitError       ErrorType = "rate_limited"
	ServerError          ErrorType = "server_error"
	InvalidResponseError ErrorType = "invalid_response"
	NoResponseError      ErrorType = "no_response"
	GenericError         ErrorType = "generic"
)

// HTTP-layer failure classes.
const (
	// ValidationError represents input validation failures
	ValidationError ErrorType = "validation_error"

	// InternalError represents unexpected internal server errors
	InternalError ErrorType = "internal_error"

	// NotFoundError represents resource not found errors
	NotFoundError ErrorType = "not_found"

	// QueueFullError is returned when the request queue has no room
	QueueFullError ErrorType = "queue_full"

	// MethodNotAllowedError is returned for a known path with the wrong method
	MethodNotAllowedError ErrorType = "method_not_allowed"
)

// ChatError implements the error interface and carries the failure class,
// an HTTP status, and optional details for JSON responses.
type ChatError struct {
	// Type categorizes the error for client handling
	Type ErrorType `json:"type"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Code is the HTTP status code (not exposed in JSON)
	Code int `json:"-"`

	// RequestID links the error to a specific request
	RequestID string `json:"request_id"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`

	// err is the underlying error (not exposed in JSON)
	err error
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *ChatError) Unwrap() error {
	return e.err
}

// Is matches on Type only, so errors.Is(err, &ChatError{Type: TimeoutError})
// works regardless of message or request.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WriteError writes a ChatError as a JSON response.
func WriteError(w http.ResponseWriter, err *ChatError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
}

// ErrorWithType writes a bare ChatError of errType, picking up the request
// ID from the response headers.
func ErrorWithType(w http.ResponseWriter, message string, errType ErrorType, code int) {
	WriteError(w, &ChatError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: w.Header().Get("X-Request-ID"),
	})
}
