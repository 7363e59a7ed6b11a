package logger

import "log/slog"

// Config selects the log level, the output format and optional Sentry reporting.
type Config struct {
	Level             slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	Format            string     `env:"LOG_FORMAT" envDefault:"json"` // "json" or "text"
	SentryDSN         string     `env:"SENTRY_DSN"`
	SentryEnvironment string     `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	// SentryMinLevel is the lowest level stored as a Sentry log; errors always create issues.
	SentryMinLevel slog.Level `env:"SENTRY_MIN_LEVEL" envDefault:"warn"`
}
