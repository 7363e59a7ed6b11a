// Package middlewares provides middleware for the social extension's flow
// routes.
//
// # Request ID
//
// RequestID tags each request with an ID taken from X-Request-ID or
// X-Correlation-ID, or a new UUID. Pair it with RequestIDExtractor so every
// flow log line carries the ID:
//
//	log := logger.New(middlewares.RequestIDExtractor())
//	ext, err := social.New(
//	    social.WithLogger(log),
//	    social.WithMiddleware(middlewares.RequestID()),
//	)
//
// # Recover
//
// Recover converts a panic into a *PanicError, which the error handler
// answers with a 500.
//
// # Timeout
//
// Timeout puts a deadline on the request context. Provider calls and the
// connection datastore honor it; a flow that fails past the deadline is
// answered with a 504.
//
//	social.WithMiddleware(
//	    middlewares.Recover(),
//	    middlewares.RequestID(),
//	    middlewares.Timeout(15*time.Second),
//	)
package middlewares
