package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/teilomillet/chatline/errors"
)

// Timeout puts a deadline on the request context. Handlers are expected to
// honour it; if one returns after the deadline without writing, a 504 is
// sent on its behalf. A zero timeout disables the middleware.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			rw := NewResponseWriter(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			if ctx.Err() == context.DeadlineExceeded && !rw.Written() {
				errors.WriteError(w, errors.NewError(
					errors.TimeoutError,
					"Request timeout",
					http.StatusGatewayTimeout,
					GetRequestID(r.Context()),
					map[string]interface{}{
						"timeout": timeout.String(),
					},
					ctx.Err(),
				))
			}
		})
	}
}
