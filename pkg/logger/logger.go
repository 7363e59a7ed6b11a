package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// New creates an info level JSON logger on stdout.
func New(extractors ...ContextExtractor) *slog.Logger {
	return NewWithConfig(os.Stdout, Config{Level: slog.LevelInfo, Format: "json"}, extractors...)
}

// NewWithConfig creates a logger writing to w.
func NewWithConfig(w io.Writer, cfg Config, extractors ...ContextExtractor) *slog.Logger {
	return slog.New(WithExtractors(newHandler(w, cfg), extractors...))
}

func newHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// NewWithSentry logs to stdout and, when cfg.SentryDSN is set, to Sentry.
// A failing Sentry setup is reported on stdout and logging continues there.
func NewWithSentry(cfg Config, extractors ...ContextExtractor) *slog.Logger {
	stdout := newHandler(os.Stdout, cfg)
	if cfg.SentryDSN == "" {
		return slog.New(WithExtractors(stdout, extractors...))
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		EnableLogs:  true,
	}); err != nil {
		slog.New(stdout).Error("sentry init failed", slog.Any("error", err))
		return slog.New(WithExtractors(stdout, extractors...))
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   sentryLogLevels(cfg.SentryMinLevel),
	}.NewSentryHandler(context.Background())

	return slog.New(WithExtractors(fanout{stdout, sentryHandler}, extractors...))
}

func sentryLogLevels(min slog.Level) []slog.Level {
	var levels []slog.Level
	for _, l := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if l >= min {
			levels = append(levels, l)
		}
	}
	return levels
}

// NewNope returns a logger that discards everything.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Component returns log with a component attribute.
func Component(log *slog.Logger, name string) *slog.Logger {
	if log == nil {
		log = NewNope()
	}
	return log.With(slog.String("component", name))
}
