package job

import "errors"

var (
	// ErrUnknownTask is returned when a job names a task no worker registered.
	ErrUnknownTask = errors.New("job: unknown task")

	// ErrInvalidPayload is returned when a job payload does not decode into the task's payload type.
	ErrInvalidPayload = errors.New("job: invalid payload")

	// ErrAlreadyStarted is returned by Start on a running manager.
	ErrAlreadyStarted = errors.New("job: already started")

	// ErrNotStarted is returned by Stop on a manager that is not running.
	ErrNotStarted = errors.New("job: not started")

	// ErrPoolRequired is returned when a manager or enqueuer is built without a pool.
	ErrPoolRequired = errors.New("job: pool is required")

	// ErrHealthcheckFailed is returned when the manager health check fails.
	ErrHealthcheckFailed = errors.New("job: healthcheck failed")
)
