// Package config provides the configuration registry for the chatline server.
// A Config is built once at startup (defaults, then YAML, then environment
// expansion) and handed to every consumer by pointer. Nothing in the module
// mutates a loaded Config; hot reload publishes a new snapshot instead.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration.
type Config struct {
	API            APIConfig            `yaml:"api"`
	App            AppConfig            `yaml:"app"`
	Storage        StorageConfig        `yaml:"storage"`
	Processing     ProcessingConfig     `yaml:"processing"`
	Errors         ErrorMessages        `yaml:"errors"`
	Messages       SuccessMessages      `yaml:"messages"`
	Dev            DevConfig            `yaml:"dev"`
	Features       FeatureFlags         `yaml:"features"`
	Security       SecurityConfig       `yaml:"security"`
	Performance    PerformanceConfig    `yaml:"performance"`
	Server         ServerConfig         `yaml:"server"`
	Logging        LoggingConfig        `yaml:"logging"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Queue          QueueConfig          `yaml:"queue"`
}

// APIConfig holds the upstream text-generation API settings.
type APIConfig struct {
	DeepAI DeepAIConfig `yaml:"deepai"`

	// Provider selects the generation backend: "deepai" or any provider
	// supported by gollm (e.g. "openai", "anthropic", "ollama").
	Provider string `yaml:"provider" validate:"required"`

	// Model is only used by gollm-backed providers.
	Model string `yaml:"model"`
}

// DeepAIConfig holds DeepAI-specific configuration.
type DeepAIConfig struct {
	// Key is the DeepAI API key. Use ${DEEPAI_API_KEY} in YAML.
	Key string `yaml:"key"`

	BaseURL   string          `yaml:"base_url" validate:"required,url"`
	Endpoints DeepAIEndpoints `yaml:"endpoints"`

	// Timeout bounds a single attempt (default: 30s)
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`

	// RetryAttempts is the total number of attempts per request (default: 3)
	RetryAttempts int `yaml:"retry_attempts" validate:"gte=1,lte=10"`

	// RetryDelay is the fixed pause between attempts (default: 1s)
	RetryDelay time.Duration `yaml:"retry_delay" validate:"gte=0"`
}

// DeepAIEndpoints are paths relative to BaseURL.
type DeepAIEndpoints struct {
	TextGenerator string `yaml:"text_generator" validate:"required,startswith=/"`
	Chatbot       string `yaml:"chatbot" validate:"required,startswith=/"`
}

// AppConfig holds application limits and presentation defaults.
type AppConfig struct {
	Name              string        `yaml:"name" validate:"required"`
	Version           string        `yaml:"version"`
	Author            string        `yaml:"author"`
	MaxMessageLength  int           `yaml:"max_message_length" validate:"gt=0"`
	MaxResponseLength int           `yaml:"max_response_length" validate:"gt=0"`
	TypingDelay       time.Duration `yaml:"typing_delay" validate:"gte=0"`
	WelcomeMessage    bool          `yaml:"welcome_message"`
	SoundEffects      bool          `yaml:"sound_effects"`
	Animations        bool          `yaml:"animations"`
	Theme             string        `yaml:"theme" validate:"oneof=light dark auto"`
}

// StorageConfig names the persistence slots and picks a backend.
type StorageConfig struct {
	APIKey          string `yaml:"api_key" validate:"required"`
	Settings        string `yaml:"settings" validate:"required"`
	Theme           string `yaml:"theme" validate:"required"`
	ChatHistory     string `yaml:"chat_history" validate:"required"`
	UserPreferences string `yaml:"user_preferences" validate:"required"`

	// Driver is "memory" or "sqlite"
	Driver string `yaml:"driver" validate:"oneof=memory sqlite"`

	// Path is the sqlite database file; ":memory:" is allowed
	Path string `yaml:"path" validate:"required_if=Driver sqlite"`

	// HistoryLimit caps the number of exchanges kept in the history slot
	HistoryLimit int `yaml:"history_limit" validate:"gte=0"`
}

// Keys returns every configured slot key, in a fixed order.
func (s StorageConfig) Keys() []string {
	return []string{s.APIKey, s.Settings, s.Theme, s.ChatHistory, s.UserPreferences}
}

// ProcessingConfig drives classification and response cleanup.
type ProcessingConfig struct {
	StoryKeywords      []string `yaml:"story_keywords" validate:"required,min=1,dive,required"`
	QuestionKeywords   []string `yaml:"question_keywords" validate:"required,min=1,dive,required"`
	GreetingKeywords   []string `yaml:"greeting_keywords" validate:"required,min=1,dive,required"`
	MaxCleanupAttempts int      `yaml:"max_cleanup_attempts" validate:"gte=1"`
	MinResponseLength  int      `yaml:"min_response_length" validate:"gte=0"`

	// CleanJSON strips markdown code fences from responses using gollm
	CleanJSON bool `yaml:"clean_json"`

	// TokenEncoding names the tiktoken encoding used for token estimates
	// (e.g. cl100k_base). Empty turns estimates off.
	TokenEncoding string `yaml:"token_encoding"`
}

// ErrorMessages is the user-facing text for every failure class.
type ErrorMessages struct {
	Network         string `yaml:"network" validate:"required" json:"network"`
	Timeout         string `yaml:"timeout" validate:"required" json:"timeout"`
	APIKey          string `yaml:"api_key" validate:"required" json:"api_key"`
	RateLimit       string `yaml:"rate_limit" validate:"required" json:"rate_limit"`
	ServerError     string `yaml:"server_error" validate:"required" json:"server_error"`
	Generic         string `yaml:"generic" validate:"required" json:"generic"`
	NoResponse      string `yaml:"no_response" validate:"required" json:"no_response"`
	InvalidResponse string `yaml:"invalid_response" validate:"required" json:"invalid_response"`
}

// SuccessMessages is the user-facing text for successful operations.
type SuccessMessages struct {
	Connected     string `yaml:"connected" json:"connected"`
	SettingsSaved string `yaml:"settings_saved" json:"settings_saved"`
	SettingsReset string `yaml:"settings_reset" json:"settings_reset"`
	ChatCleared   string `yaml:"chat_cleared" json:"chat_cleared"`
	ThemeChanged  string `yaml:"theme_changed" json:"theme_changed"`
}

// DevConfig holds development switches.
type DevConfig struct {
	// Debug enables debug logging and dumps the loaded configuration
	Debug bool `yaml:"debug"`

	// MockAPI replaces the upstream API with canned responses
	MockAPI bool `yaml:"mock_api"`

	LogLevel              string `yaml:"log_level" validate:"oneof=debug info warn error"`
	PerformanceMonitoring bool   `yaml:"performance_monitoring"`
}

// FeatureFlags toggles optional behaviour exposed to the UI.
type FeatureFlags struct {
	DarkMode          bool `yaml:"dark_mode" json:"dark_mode"`
	SoundEffects      bool `yaml:"sound_effects" json:"sound_effects"`
	FileUpload        bool `yaml:"file_upload" json:"file_upload"`
	VoiceInput        bool `yaml:"voice_input" json:"voice_input"`
	ExportChat        bool `yaml:"export_chat" json:"export_chat"`
	SettingsModal     bool `yaml:"settings_modal" json:"settings_modal"`
	CharacterCounter  bool `yaml:"character_counter" json:"character_counter"`
	TypingIndicator   bool `yaml:"typing_indicator" json:"typing_indicator"`
	MessageTimestamps bool `yaml:"message_timestamps" json:"message_timestamps"`
	MessageActions    bool `yaml:"message_actions" json:"message_actions"`
}

// SecurityConfig holds input hardening settings.
type SecurityConfig struct {
	SanitizeInput        bool `yaml:"sanitize_input"`
	MaxRequestsPerMinute int  `yaml:"max_requests_per_minute" validate:"gte=1"`
	InputValidation      bool `yaml:"input_validation"`
	XSSProtection        bool `yaml:"xss_protection"`
}

// PerformanceConfig holds throughput tuning.
type PerformanceConfig struct {
	DebounceDelay         time.Duration `yaml:"debounce_delay" validate:"gte=0"`
	ThrottleDelay         time.Duration `yaml:"throttle_delay" validate:"gte=0"`
	MaxConcurrentRequests int           `yaml:"max_concurrent_requests" validate:"gte=1"`
	CacheResponses        bool          `yaml:"cache_responses"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port specifies the HTTP server port (default: 8080)
	Port int `yaml:"port" validate:"gte=0,lte=65535"`

	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`

	// RequestTimeout bounds a whole /v1/chat request including retries
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gte=0"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	// Level sets logging verbosity: debug, info, warn, error
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format specifies log output format: json or text
	Format string `yaml:"format" validate:"oneof=json text"`
}

// CircuitBreakerConfig configures the breaker around the upstream API.
type CircuitBreakerConfig struct {
	// MaxRequests allowed through while half-open
	MaxRequests uint32 `yaml:"max_requests"`

	// Interval is the cyclic period of the closed state
	Interval time.Duration `yaml:"interval" validate:"gte=0"`

	// Timeout is the period of the open state until it becomes half-open
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	// FailureThreshold is the number of consecutive failures that trips the breaker
	FailureThreshold uint32 `yaml:"failure_threshold" validate:"gte=1"`
}

// QueueConfig defines the request queue in front of the chat endpoint.
type QueueConfig struct {
	Enabled bool `yaml:"enabled"`

	// MaxWaiting is the number of requests allowed to wait for a slot
	MaxWaiting int64 `yaml:"max_waiting" validate:"gte=0"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Provider: "deepai",
			DeepAI: DeepAIConfig{
				BaseURL: "https://api.deepai.org/api",
				Endpoints: DeepAIEndpoints{
					TextGenerator: "/text-generator",
					Chatbot:       "/text-generator",
				},
				Timeout:       30 * time.Second,
				RetryAttempts: 3,
				RetryDelay:    time.Second,
			},
		},

		App: AppConfig{
			Name:              "AI Chatbot Assistant",
			Version:           "1.0.0",
			Author:            "AI Chatbot Project",
			MaxMessageLength:  2000,
			MaxResponseLength: 1000,
			TypingDelay:       time.Second,
			WelcomeMessage:    true,
			SoundEffects:      false,
			Animations:        true,
			Theme:             "auto",
		},

		Storage: StorageConfig{
			APIKey:          "chatbot_api_key",
			Settings:        "chatbot_settings",
			Theme:           "chatbot_theme",
			ChatHistory:     "chatbot_history",
			UserPreferences: "chatbot_preferences",
			Driver:          "memory",
			HistoryLimit:    50,
		},

		Processing: ProcessingConfig{
			StoryKeywords: []string{
				"story", "tale", "narrative", "write", "create",
				"tell me about", "once upon", "fiction", "adventure",
				"character", "plot", "chapter",
			},
			QuestionKeywords: []string{
				"what", "why", "how", "when", "where", "who",
				"explain", "describe", "tell me", "?",
			},
			GreetingKeywords: []string{
				"hello", "hi", "hey", "greetings", "good morning",
				"good afternoon", "good evening", "howdy",
			},
			MaxCleanupAttempts: 3,
			MinResponseLength:  10,
		},

		Errors: ErrorMessages{
			Network:         "Network error. Please check your connection and try again.",
			Timeout:         "Request timed out. Please try again.",
			APIKey:          "Invalid API key. Please check your settings.",
			RateLimit:       "Rate limit exceeded. Please wait a moment before trying again.",
			ServerError:     "Server error. The AI service is temporarily unavailable.",
			Generic:         "An unexpected error occurred. Please try again.",
			NoResponse:      "No response received from the AI. Please try again.",
			InvalidResponse: "Received an invalid response. Please try again.",
		},

		Messages: SuccessMessages{
			Connected:     "Successfully connected to AI service",
			SettingsSaved: "Settings saved successfully",
			SettingsReset: "Settings reset to default",
			ChatCleared:   "Chat history cleared",
			ThemeChanged:  "Theme changed successfully",
		},

		Dev: DevConfig{
			LogLevel: "info",
		},

		Features: FeatureFlags{
			DarkMode:         true,
			SoundEffects:     true,
			ExportChat:       true,
			SettingsModal:    true,
			CharacterCounter: true,
			TypingIndicator:  true,
		},

		Security: SecurityConfig{
			SanitizeInput:        true,
			MaxRequestsPerMinute: 20,
			InputValidation:      true,
			XSSProtection:        true,
		},

		Performance: PerformanceConfig{
			DebounceDelay:         300 * time.Millisecond,
			ThrottleDelay:         100 * time.Millisecond,
			MaxConcurrentRequests: 3,
		},

		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  100 * time.Second,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},

		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},

		Queue: QueueConfig{
			Enabled:    false,
			MaxWaiting: 10,
		},
	}
}

// LoadFile loads configuration from a YAML file
func LoadFile(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load loads configuration from an io.Reader
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded, err := expandEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("expand environment variables: %w", err)
	}

	// Start with defaults
	config := DefaultConfig()

	// An empty document leaves the defaults untouched
	if strings.TrimSpace(expanded) != "" {
		dec := yaml.NewDecoder(strings.NewReader(expanded))
		dec.KnownFields(true)
		if err := dec.Decode(config); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}
