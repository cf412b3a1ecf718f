package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return describeValidationErrors(verrs)
		}
		return fmt.Errorf("validate: %w", err)
	}

	// Cross-group checks the tags can't express
	if c.API.Provider != "deepai" && c.API.Model == "" {
		return fmt.Errorf("empty model for provider %q", c.API.Provider)
	}
	if c.App.MaxResponseLength < c.Processing.MinResponseLength {
		return fmt.Errorf("max response length (%d) is below min response length (%d)",
			c.App.MaxResponseLength, c.Processing.MinResponseLength)
	}
	seen := make(map[string]bool)
	for _, key := range c.Storage.Keys() {
		if seen[key] {
			return fmt.Errorf("duplicate storage key: %s", key)
		}
		seen[key] = true
	}

	return nil
}

// describeValidationErrors turns validator output into "invalid <field>" messages.
func describeValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Drop the leading "Config." from the namespace
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("invalid %s: failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("invalid %s: failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// CheckCredentials warns when the upstream credential is missing. It never
// fails: the server still starts and mock mode keeps working.
func (c *Config) CheckCredentials(logger *zap.Logger) bool {
	ok := true
	if c.API.Provider == "deepai" && c.API.DeepAI.Key == "" && !c.Dev.MockAPI {
		logger.Warn("DeepAI API key not configured",
			zap.String("hint", "set api.deepai.key or DEEPAI_API_KEY"),
		)
		ok = false
	}

	if c.Dev.Debug {
		logger.Debug("Application configuration loaded",
			zap.String("provider", c.API.Provider),
			zap.String("base_url", c.API.DeepAI.BaseURL),
			zap.String("api_key", redact(c.API.DeepAI.Key)),
			zap.Int("max_message_length", c.App.MaxMessageLength),
			zap.Int("retry_attempts", c.API.DeepAI.RetryAttempts),
			zap.Duration("retry_delay", c.API.DeepAI.RetryDelay),
			zap.Bool("mock_api", c.Dev.MockAPI),
			zap.String("storage_driver", c.Storage.Driver),
		)
	}
	return ok
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-4)
}
