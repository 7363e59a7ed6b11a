package internal

// HandlerFunc is the signature for extension route handlers.
// Returning a non-nil error hands it to the configured ErrorHandler.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc to add cross-cutting concerns.
//
// Example:
//
//	func Audit(next social.HandlerFunc) social.HandlerFunc {
//	    return func(c social.Context) error {
//	        c.LogInfo("social request", "path", c.Request().URL.Path)
//	        return next(c)
//	    }
//	}
type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler renders errors returned from handlers.
type ErrorHandler func(Context, error) error
