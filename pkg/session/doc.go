// Package session defines the browser session model and its stores.
//
// The extension keeps the OAuth markers of an in-flight flow (state, PKCE
// verifier and the post-flow redirect target) and, with the default
// authenticator, the logged-in user id in a Session. Three stores are
// provided:
//
//   - NewMemoryStore: process memory, for tests and single instance setups
//   - NewRedisStore: JSON records that expire with the session
//   - NewPostgresStore: the social_sessions table; pair it with
//     job.NewSessionCleanupTask to delete expired rows
//
// Values are persisted as JSON. Store strings, or read numbers back as float64.
package session
