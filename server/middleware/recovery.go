package middleware

import (
	"fmt"
	"net/http"

	"github.com/teilomillet/chatline/errors"
	"github.com/teilomillet/chatline/server/metrics"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 InternalError response. An
// aborted handler is re-panicked so net/http can drop the connection.
// m may be nil.
func Recovery(logger *zap.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestID := GetRequestID(r.Context())
				logger.Error("Panic recovered",
					zap.String("request_id", requestID),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				if m != nil {
					m.Panics.Inc()
				}

				errors.WriteError(w, errors.NewInternalError(requestID, fmt.Errorf("panic: %v", rec)))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
