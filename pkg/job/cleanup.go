package job

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// SessionCleanupTaskName is the periodic task removing expired sessions.
const SessionCleanupTaskName = "social_session_cleanup"

// DefaultCleanupSchedule runs the cleanup every fifteen minutes.
const DefaultCleanupSchedule = "*/15 * * * *"

// ExpiredDeleter removes expired records and reports how many went.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionCleanupTask periodically deletes expired sessions.
type SessionCleanupTask struct {
	store    ExpiredDeleter
	logger   *slog.Logger
	schedule string
}

// NewSessionCleanupTask creates the task. An empty schedule means DefaultCleanupSchedule.
func NewSessionCleanupTask(store ExpiredDeleter, schedule string, logger *slog.Logger) *SessionCleanupTask {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SessionCleanupTask{store: store, schedule: schedule, logger: logger}
}

func (t *SessionCleanupTask) Name() string     { return SessionCleanupTaskName }
func (t *SessionCleanupTask) Schedule() string { return t.schedule }

func (t *SessionCleanupTask) Handle(ctx context.Context) error {
	n, err := t.store.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("job: delete expired sessions: %w", err)
	}
	if n > 0 {
		t.logger.InfoContext(ctx, "expired sessions removed", slog.Int64("count", n))
	}
	return nil
}
