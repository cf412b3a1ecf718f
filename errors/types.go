package errors

import (
	"net/http"
)

// NewError creates a ChatError with full control over its fields.
//
// Example:
//
//	err := NewError(ServerError, "upstream failed", 502, "req_123", nil, upstreamErr)
func NewError(errType ErrorType, message string, code int, requestID string, details map[string]interface{}, err error) *ChatError {
	return &ChatError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Details:   details,
		err:       err,
	}
}

// NewValidationError creates a validation error. Message validation failures
// are returned as data by textutil; the HTTP layer turns them into this.
//
// Example:
//
//	err := NewValidationError("req_123", "Message cannot be empty", map[string]interface{}{
//	    "field": "message",
//	})
func NewValidationError(requestID, message string, validationDetails map[string]interface{}) *ChatError {
	return &ChatError{
		Type:      ValidationError,
		Message:   message,
		Code:      http.StatusBadRequest,
		RequestID: requestID,
		Details:   validationDetails,
	}
}

// NewRateLimitError creates a rate limit error for clients over their quota.
func NewRateLimitError(requestID string, retryAfter int) *ChatError {
	return &ChatError{
		Type:      RateLimitError,
		Message:   "Rate limit exceeded",
		Code:      http.StatusTooManyRequests,
		RequestID: requestID,
		Details: map[string]interface{}{
			"retry_after": retryAfter,
		},
	}
}

// NewInternalError creates an internal server error for panics and other
// unexpected failures.
func NewInternalError(requestID string, err error) *ChatError {
	return &ChatError{
		Type:      InternalError,
		Message:   "An internal error occurred",
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(requestID, message string) *ChatError {
	return &ChatError{
		Type:      NotFoundError,
		Message:   message,
		Code:      http.StatusNotFound,
		RequestID: requestID,
	}
}

// NewUpstreamError creates an error for a failed generation call. The HTTP
// status follows the failure class.
func NewUpstreamError(errType ErrorType, requestID, message string, err error) *ChatError {
	return &ChatError{
		Type:      errType,
		Message:   message,
		Code:      StatusFor(errType),
		RequestID: requestID,
		err:       err,
	}
}

// StatusFor returns the HTTP status used when reporting errType.
func StatusFor(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case InvalidAPIKeyError:
		return http.StatusUnauthorized
	case RateLimitError:
		return http.StatusTooManyRequests
	case TimeoutError:
		return http.StatusGatewayTimeout
	case QueueFullError:
		return http.StatusServiceUnavailable
	case MethodNotAllowedError:
		return http.StatusMethodNotAllowed
	case NetworkError, ServerError, InvalidResponseError, NoResponseError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
