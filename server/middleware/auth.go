package middleware

import (
	"net/http"

	"github.com/teilomillet/chatline/config"
	"github.com/teilomillet/chatline/errors"
)

// RequireCredentials rejects requests that would need the DeepAI API while
// no key is configured. Mock mode and other providers pass through.
func RequireCredentials(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.API.Provider == "deepai" && cfg.API.DeepAI.Key == "" && !cfg.Dev.MockAPI {
				resp := errors.NewUpstreamError(errors.InvalidAPIKeyError, GetRequestID(r.Context()),
					"API key not configured", nil)
				resp.Details = map[string]interface{}{
					"user_message": cfg.Errors.APIKey,
				}
				errors.WriteError(w, resp)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
