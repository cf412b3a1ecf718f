package handlers

import (
	"net/http"
	"strconv"

	"github.com/teilomillet/chatline/config"
	"github.com/teilomillet/chatline/internal/util"
)

// ConfigResponse is the browser-facing configuration.
type ConfigResponse struct {
	config.Public
	MaxResponseLength int                  `json:"max_response_length"`
	MaxRequestsPerMin int                  `json:"max_requests_per_minute"`
	Errors            config.ErrorMessages `json:"errors"`

	// Device is set from the ?width= viewport hint, or guessed from the
	// user agent when no width is given.
	Device string `json:"device,omitempty"`
}

func deviceFor(r *http.Request) string {
	if w, err := strconv.Atoi(r.URL.Query().Get("width")); err == nil && w > 0 {
		return util.DeviceType(w)
	}
	if util.IsMobileUserAgent(r.UserAgent()) {
		return "mobile"
	}
	return ""
}

// Config serves GET /v1/config from the snapshot returned by current, so a
// reloaded file shows up without a restart.
func Config(current func() *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := current()
		limits := cfg.Limits()
		writeJSON(w, http.StatusOK, ConfigResponse{
			Public:            cfg.Public(),
			MaxResponseLength: limits.MaxResponseLength,
			MaxRequestsPerMin: limits.MaxRequestsPerMinute,
			Errors:            cfg.ErrorMessages(),
			Device:            deviceFor(r),
		})
	}
}
