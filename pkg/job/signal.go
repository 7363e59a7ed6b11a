package job

import (
	"context"
	"io"
	"log/slog"

	"github.com/dmitrymomot/social/pkg/signal"
)

// SignalTaskName is the task that delivers flow events on a worker.
const SignalTaskName = "social_signal"

// Queuer enqueues jobs. Both Enqueuer and Manager satisfy it.
type Queuer interface {
	Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) error
}

// Notifier is a signal.Notifier that defers delivery to a River worker.
// An event that cannot be enqueued is logged and dropped.
type Notifier struct {
	queue  Queuer
	logger *slog.Logger
	opts   []EnqueueOption
}

// NewNotifier returns a notifier enqueuing a SignalTaskName job per event.
func NewNotifier(q Queuer, logger *slog.Logger, opts ...EnqueueOption) *Notifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifier{queue: q, logger: logger, opts: opts}
}

func (n *Notifier) Notify(ctx context.Context, e signal.Event) {
	if err := n.queue.Enqueue(ctx, SignalTaskName, e, n.opts...); err != nil {
		n.logger.ErrorContext(ctx, "enqueue social event",
			slog.String("kind", string(e.Kind)),
			slog.String("provider_id", e.ProviderID),
			slog.Any("error", err),
		)
	}
}

// SignalTask hands dequeued events to a notifier on the worker side.
type SignalTask struct {
	handler signal.Notifier
}

// NewSignalTask creates the worker-side task. Register it with WithTask.
func NewSignalTask(handler signal.Notifier) *SignalTask {
	return &SignalTask{handler: handler}
}

func (t *SignalTask) Name() string { return SignalTaskName }

func (t *SignalTask) Handle(ctx context.Context, e signal.Event) error {
	t.handler.Notify(ctx, e)
	return nil
}
