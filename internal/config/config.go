// Package config defines client configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Loading and validation errors wrap this package's sentinel kinds.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Identity store backends.
const (
	IdentityBackendFile   = "file"
	IdentityBackendSQLite = "sqlite"
	IdentityBackendMemory = "memory"
)

// DefaultBaseURL is the hosted wellness service.
const DefaultBaseURL = "https://fitness-api-backed-001-ahmed2.azurewebsites.net"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// BaseURL is the remote wellness service address.
	BaseURL string `koanf:"base_url"`

	// ModelID selects the predictor used by predict-wellness.
	ModelID string `koanf:"model_id"`

	// RequestTimeoutMS bounds a single remote round trip.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// RateLimitRPS throttles outbound calls; 0 disables throttling.
	RateLimitRPS float64 `koanf:"rate_limit_rps"`

	// IdentityBackend is one of file, sqlite, memory.
	IdentityBackend string `koanf:"identity_backend"`

	// IdentityPath overrides the default location of the identity file or database.
	IdentityPath string `koanf:"identity_path"`

	// NotifyQueueSize bounds pending state transitions for the presentation layer.
	NotifyQueueSize int `koanf:"notify_queue_size"`

	// MetricsAddr, when set, exposes /metrics from long-running commands.
	MetricsAddr string `koanf:"metrics_addr"`

	// StubAddr is the listen address of wellness-stub.
	StubAddr string `koanf:"stub_addr"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "warn",
		LogFormat:        "text",
		BaseURL:          DefaultBaseURL,
		ModelID:          "1",
		RequestTimeoutMS: 15_000,
		RateLimitRPS:     0,
		IdentityBackend:  IdentityBackendFile,
		NotifyQueueSize:  256,
		StubAddr:         ":9090",
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("%w: base_url must not be empty", ErrInvalidConfig)
	case err != nil || u.Scheme == "" || u.Host == "":
		return fmt.Errorf("%w: base_url must be an absolute URL", ErrInvalidConfig)
	case strings.TrimSpace(c.ModelID) == "":
		return fmt.Errorf("%w: model_id must not be empty", ErrInvalidConfig)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case c.RateLimitRPS < 0:
		return fmt.Errorf("%w: rate_limit_rps must not be negative", ErrInvalidConfig)
	case c.NotifyQueueSize <= 0:
		return fmt.Errorf("%w: notify_queue_size must be positive", ErrInvalidConfig)
	}
	switch c.IdentityBackend {
	case IdentityBackendFile, IdentityBackendSQLite, IdentityBackendMemory:
	default:
		return fmt.Errorf("%w: unknown identity_backend %q", ErrInvalidConfig, c.IdentityBackend)
	}
	return nil
}
