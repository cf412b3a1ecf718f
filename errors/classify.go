package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/teilomillet/chatline/config"
)

var (
	// ErrNoResponse is returned when the upstream answered with no text.
	ErrNoResponse = errors.New("empty response from upstream")

	// ErrInvalidResponse is returned when the upstream body can't be decoded.
	ErrInvalidResponse = errors.New("invalid response from upstream")
)

// StatusError is a non-2xx answer from the upstream API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Classify maps any error to a failure class. nil yields "".
func Classify(err error) ErrorType {
	if err == nil {
		return ""
	}

	var chatErr *ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Type
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutError
	}
	if errors.Is(err, ErrNoResponse) {
		return NoResponseError
	}
	if errors.Is(err, ErrInvalidResponse) {
		return InvalidResponseError
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode)
	}

	// Covers *url.Error, *net.OpError and *net.DNSError
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return TimeoutError
		}
		return NetworkError
	}

	return GenericError
}

func classifyStatus(code int) ErrorType {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return InvalidAPIKeyError
	case code == http.StatusTooManyRequests:
		return RateLimitError
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return TimeoutError
	case code >= 500:
		return ServerError
	default:
		return GenericError
	}
}

// Retryable reports whether a failure of this class is worth another attempt.
func Retryable(t ErrorType) bool {
	switch t {
	case NetworkError, TimeoutError, RateLimitError, ServerError:
		return true
	default:
		return false
	}
}

// UserMessage returns the configured text for a failure class. Classes
// without their own entry get the generic message.
func UserMessage(t ErrorType, msgs config.ErrorMessages) string {
	switch t {
	case NetworkError:
		return msgs.Network
	case TimeoutError:
		return msgs.Timeout
	case InvalidAPIKeyError:
		return msgs.APIKey
	case RateLimitError:
		return msgs.RateLimit
	case ServerError:
		return msgs.ServerError
	case InvalidResponseError:
		return msgs.InvalidResponse
	case NoResponseError:
		return msgs.NoResponse
	default:
		return msgs.Generic
	}
}

// Wrap classifies err and wraps it in a ChatError whose message is the
// class name. Existing ChatErrors are returned unchanged.
func Wrap(requestID string, err error) *ChatError {
	if err == nil {
		return nil
	}
	var chatErr *ChatError
	if errors.As(err, &chatErr) {
		return chatErr
	}
	t := Classify(err)
	return NewUpstreamError(t, requestID, string(t), err)
}
