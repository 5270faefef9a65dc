// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; Load layers an optional YAML file and the
//   environment on top.
// - Every loaded Config is checked with Validate before it is returned.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"context"
	"time"
)

// Default values.
const (
	defaultAddr              = ":9080"
	defaultReadTimeout       = 10 * time.Second
	defaultWriteTimeout      = 10 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultShutdownTimeout   = 30 * time.Second
	defaultWSMaxMessageBytes = 1024
	defaultWSPingInterval    = 54 * time.Second
	defaultMetricsNamespace  = "zscore"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// HTTP server timeouts.
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// AllowedOrigins lists origins permitted to call the API cross-site.
	// Empty means same-origin only.
	AllowedOrigins []string `koanf:"allowed_origins" validate:"dive,required"`

	// VerboseCORS logs CORS decisions.
	VerboseCORS bool `koanf:"verbose_cors"`

	// WSMaxMessageBytes caps a single live form frame from the client.
	WSMaxMessageBytes int64 `koanf:"ws_max_message_bytes" validate:"gt=0"`

	// WSPingInterval is how often the live form pings idle clients.
	WSPingInterval time.Duration `koanf:"ws_ping_interval" validate:"gt=0"`

	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace" validate:"required"`
}

// New returns a Config populated with defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              defaultAddr,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ShutdownTimeout:   defaultShutdownTimeout,
		AllowedOrigins:    []string{},
		WSMaxMessageBytes: defaultWSMaxMessageBytes,
		WSPingInterval:    defaultWSPingInterval,
		MetricsNamespace:  defaultMetricsNamespace,
	}
}
