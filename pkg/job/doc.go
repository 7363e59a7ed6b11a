// Package job runs social signal delivery and session maintenance on River,
// a PostgreSQL backed job queue.
//
// Web processes enqueue flow events with a Notifier; a worker process runs a
// Manager that delivers them to the real notifier and periodically removes
// expired sessions.
//
//	// web process
//	enq, err := job.NewEnqueuer(pool, log)
//	ext, err := social.New(social.WithNotifier(job.NewNotifier(enq, log)))
//
//	// worker process
//	if err := job.Migrate(ctx, pool, log); err != nil {
//		return err
//	}
//	m, err := job.NewManager(pool,
//		job.WithLogger(log),
//		job.WithSignalTask(signal.NewLogNotifier(log)),
//		job.WithScheduledTask(job.NewSessionCleanupTask(sessions, "", log)),
//	)
//	if err := m.Start(ctx); err != nil {
//		return err
//	}
//	defer m.Stop(context.Background())
//
// Scheduled tasks use five field cron expressions parsed by robfig/cron.
// Tasks with a payload are registered with WithTask and explicit payload type.
package job
