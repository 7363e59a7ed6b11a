// Package signal reports the outcomes of social login and connect flows.
//
// The flow controller emits one Event per outcome through a Notifier. A
// Notifier never fails a request: delivery errors are the notifier's own
// concern, so Notify has no error return.
//
// # Kinds
//
//   - ConnectionCreated: a provider account was linked to the current user
//   - ConnectionFailed: the provider account was already linked
//   - ConnectionRemoved: one or all connections to a provider were removed
//   - LoginFailed: the provider denied access or the account is not linked
//   - LoginCompleted: a user signed in through a linked provider account
//
// # Usage
//
//	notifier := signal.Multi(
//		signal.NewLogNotifier(log),
//		signal.Func(func(ctx context.Context, e signal.Event) {
//			if e.Kind == signal.ConnectionCreated {
//				metrics.Inc("social.connections")
//			}
//		}),
//	)
//
// Asynchronous delivery through a River queue is provided by job.NewNotifier.
package signal
