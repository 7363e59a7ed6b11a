package signal

import (
	"context"
	"log/slog"
	"time"
)

// Kind names a flow outcome.
type Kind string

const (
	ConnectionCreated Kind = "connection_created"
	ConnectionFailed  Kind = "connection_failed"
	ConnectionRemoved Kind = "connection_removed"
	LoginFailed       Kind = "login_failed"
	LoginCompleted    Kind = "login_completed"
)

// Event describes one flow outcome.
type Event struct {
	At             time.Time `json:"at"`
	Kind           Kind      `json:"kind"`
	ProviderID     string    `json:"provider_id"`
	ProviderUserID string    `json:"provider_user_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	ConnectionID   string    `json:"connection_id,omitempty"`
	Reason         string    `json:"reason,omitempty"`
}

// Notifier receives flow events.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, e Event)

func (f Func) Notify(ctx context.Context, e Event) { f(ctx, e) }

type multi []Notifier

// Multi fans an event out to every non-nil notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	out := make(multi, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (m multi) Notify(ctx context.Context, e Event) {
	for _, n := range m {
		n.Notify(ctx, e)
	}
}

// Nop discards events.
var Nop Notifier = Func(func(context.Context, Event) {})

// LogNotifier writes events to a structured logger.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a notifier logging to log, or to slog.Default when nil.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, e Event) {
	level := slog.LevelInfo
	if e.Kind == LoginFailed || e.Kind == ConnectionFailed {
		level = slog.LevelWarn
	}
	n.log.LogAttrs(ctx, level, "social event", e.Attrs()...)
}

// Attrs returns the event as log attributes, omitting empty fields.
func (e Event) Attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("kind", string(e.Kind)),
		slog.String("provider_id", e.ProviderID),
	}
	if e.ProviderUserID != "" {
		attrs = append(attrs, slog.String("provider_user_id", e.ProviderUserID))
	}
	if e.UserID != "" {
		attrs = append(attrs, slog.String("user_id", e.UserID))
	}
	if e.ConnectionID != "" {
		attrs = append(attrs, slog.String("connection_id", e.ConnectionID))
	}
	if e.Reason != "" {
		attrs = append(attrs, slog.String("reason", e.Reason))
	}
	return attrs
}
