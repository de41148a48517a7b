// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config holding every default.
// - Load layers file and environment values over those defaults.
// - Errors wrap this package's sentinels so callers can use errors.Is.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr" validate:"required"`

	// AutoScheduleCron, when set, creates an auto DR test on that cron
	// schedule (standard five-field syntax or descriptors like @weekly).
	AutoScheduleCron string `koanf:"auto_schedule_cron" validate:"omitempty,cron"`

	// AutoLeadDays is how far ahead an auto event is placed.
	AutoLeadDays int `koanf:"auto_lead_days" validate:"gte=1"`

	// AutoStartHour is the local hour an auto event starts at.
	AutoStartHour int `koanf:"auto_start_hour" validate:"gte=0,lte=23"`

	// AutoDurationMinutes is the length of an auto event.
	AutoDurationMinutes int `koanf:"auto_duration_minutes" validate:"gte=1"`

	// RateLimitRPS and RateLimitBurst bound requests per client IP.
	// RPS <= 0 disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst int     `koanf:"rate_limit_burst" validate:"gte=0"`

	// HTTP server timeouts.
	ReadTimeoutMS     int `koanf:"read_timeout_ms" validate:"gt=0"`
	WriteTimeoutMS    int `koanf:"write_timeout_ms" validate:"gt=0"`
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms" validate:"gt=0"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":5000",
		AutoScheduleCron:    "",
		AutoLeadDays:        49,
		AutoStartHour:       9,
		AutoDurationMinutes: 120,
		RateLimitRPS:        0,
		RateLimitBurst:      20,
		ReadTimeoutMS:       10_000,
		WriteTimeoutMS:      10_000,
		ShutdownTimeoutMS:   10_000,
	}
}

// ReadTimeout returns ReadTimeoutMS as a duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

// WriteTimeout returns WriteTimeoutMS as a duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// AutoLeadTime returns AutoLeadDays as a duration.
func (c *Config) AutoLeadTime() time.Duration {
	return time.Duration(c.AutoLeadDays) * 24 * time.Hour
}

// AutoDuration returns AutoDurationMinutes as a duration.
func (c *Config) AutoDuration() time.Duration {
	return time.Duration(c.AutoDurationMinutes) * time.Minute
}
