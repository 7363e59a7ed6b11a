// Package logger builds slog loggers with context extractors and optional
// Sentry reporting.
//
// A ContextExtractor pulls a request-scoped value out of the logging context,
// so handlers only pass ctx to get the request id or user id on each line:
//
//	log := logger.New(
//		middlewares.RequestIDExtractor(),
//		social.UserIDExtractor(),
//	)
//	log.InfoContext(r.Context(), "connection created", slog.String("provider_id", "github"))
//
// NewWithSentry adds a Sentry handler when SENTRY_DSN is configured. Errors
// become Sentry issues; records at or above SentryMinLevel are stored as
// Sentry logs. Without a DSN, or when Sentry fails to initialize, output goes
// to stdout only.
//
// Config carries env tags and is loaded with caarlos0/env alongside the rest
// of the application configuration.
package logger
