package job

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/social/pkg/signal"
)

type config struct {
	registry   *taskRegistry
	queues     map[string]int
	logger     *slog.Logger
	schedules  []schedule
	maxWorkers int
}

type schedule struct {
	handle func(context.Context) error
	name   string
	expr   string
}

func newConfig() *config {
	return &config{
		registry: newTaskRegistry(),
		queues:   make(map[string]int),
	}
}

// Option configures the job manager.
type Option func(*config)

// WithTask registers a task. The payload type P must match Handle:
//
//	job.WithTask[signal.Event](job.NewSignalTask(notifier))
func WithTask[P any, T interface {
	Name() string
	Handle(context.Context, P) error
}](task T) Option {
	return func(c *config) {
		c.registry.register(task.Name(), typedTask[P, T]{task: task})
	}
}

// WithSignalTask registers the worker side of the asynchronous notifier.
func WithSignalTask(handler signal.Notifier) Option {
	return WithTask[signal.Event](NewSignalTask(handler))
}

// WithScheduledTask registers a periodic task. Schedule returns a five field
// cron expression (minute hour day month weekday).
//
//	job.WithScheduledTask(job.NewSessionCleanupTask(store, "", log))
func WithScheduledTask[T interface {
	Name() string
	Schedule() string
	Handle(context.Context) error
}](task T) Option {
	return func(c *config) {
		c.schedules = append(c.schedules, schedule{
			name:   task.Name(),
			expr:   task.Schedule(),
			handle: task.Handle,
		})
	}
}

// WithQueue adds a named queue with its own worker count.
func WithQueue(name string, workers int) Option {
	return func(c *config) {
		if workers > 0 {
			c.queues[name] = workers
		}
	}
}

// WithLogger sets the logger. A discarding logger is used by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxWorkers sets the worker count of the default queue (100 when unset).
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}
