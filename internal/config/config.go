// Package config defines and loads the application configuration.
package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port           int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel       string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// SchedulerConfig contains the scheduler tunables.
type SchedulerConfig struct {
	// LockWindowSeconds is how long a computed suggestion stays cached and
	// locked before a new request recomputes it.
	LockWindowSeconds int `mapstructure:"lock_window_seconds" validate:"required,gt=0"`

	// LockRetryAttempts bounds retries on row-lock contention.
	LockRetryAttempts int `mapstructure:"lock_retry_attempts" validate:"required,gt=0"`
}
