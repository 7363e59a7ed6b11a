package social

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/social/internal"
	"github.com/dmitrymomot/social/pkg/connection"
	"github.com/dmitrymomot/social/pkg/job"
	"github.com/dmitrymomot/social/pkg/logger"
	"github.com/dmitrymomot/social/pkg/oauth"
	"github.com/dmitrymomot/social/pkg/session"
	"github.com/dmitrymomot/social/pkg/signal"
)

// Type aliases - public API
type (
	// Extension serves the social login and connect flows.
	// It implements http.Handler; mount it into the host router.
	Extension = internal.Extension

	// Config holds the extension settings, read from SOCIAL_ variables.
	Config = internal.Config

	// Option configures the extension.
	Option = internal.Option

	// Context provides request/response access to flow handlers and middleware.
	Context = internal.Context

	// HandlerFunc is the signature of flow handlers.
	HandlerFunc = internal.HandlerFunc

	// Middleware wraps a HandlerFunc.
	Middleware = internal.Middleware

	// ErrorHandler renders errors returned by flow handlers.
	ErrorHandler = internal.ErrorHandler

	// HTTPError is an error with an HTTP status code.
	HTTPError = internal.HTTPError

	// Authenticator bridges the flows to the host's login state.
	Authenticator = internal.Authenticator

	// SessionAuthenticator keeps the logged in user in the extension session.
	SessionAuthenticator = internal.SessionAuthenticator

	// SessionOption configures the session cookie.
	SessionOption = internal.SessionOption

	// CheckFunc is a named dependency check for Healthcheck.
	CheckFunc = internal.CheckFunc

	// ContextExtractor extracts a slog attribute from context.
	ContextExtractor = logger.ContextExtractor

	// Connection links a local user to a provider account.
	Connection = connection.Connection

	// Datastore hands out connection units of work.
	Datastore = connection.Datastore

	// Provider is a configured OAuth provider.
	Provider = oauth.Provider

	// ProviderConfig configures one provider.
	ProviderConfig = oauth.ProviderConfig

	// Event describes a flow outcome.
	Event = signal.Event

	// Notifier receives flow events.
	Notifier = signal.Notifier

	// SessionStore persists extension sessions.
	SessionStore = session.Store
)

// Event kinds.
const (
	ConnectionCreated = signal.ConnectionCreated
	ConnectionFailed  = signal.ConnectionFailed
	ConnectionRemoved = signal.ConnectionRemoved
	LoginFailed       = signal.LoginFailed
	LoginCompleted    = signal.LoginCompleted
)

// Errors
var (
	ErrDatastoreRequired    = internal.ErrDatastoreRequired
	ErrCookieSecretRequired = internal.ErrCookieSecretRequired
	ErrNoProviders          = internal.ErrNoProviders
	ErrUnknownProvider      = internal.ErrUnknownProvider
	ErrStateMismatch        = internal.ErrStateMismatch
	ErrNoSession            = internal.ErrNoSession
)

// New builds the extension. Settings come from SOCIAL_ environment
// variables unless WithConfig is given; providers come from SOCIAL_<ID>_
// variables, the optional providers file and the provider options.
//
// Example:
//
//	ext, err := social.New(
//	    social.WithDatastore(connection.NewPostgresDatastore(pool)),
//	    social.WithSessionStore(session.NewPostgresStore(pool)),
//	    social.WithLogger(log),
//	)
//	if err != nil {
//	    return err
//	}
//	r.Mount("/", ext)
func New(opts ...Option) (*Extension, error) {
	return internal.New(opts...)
}

// DefaultConfig returns the configuration with every default applied.
func DefaultConfig() Config {
	return internal.DefaultConfig()
}

// LoadConfig parses SOCIAL_ variables from a KEY=VALUE list such as os.Environ().
func LoadConfig(environ []string) (Config, error) {
	return internal.LoadConfig(environ)
}

// Options

// WithConfig replaces environment configuration.
func WithConfig(cfg Config) Option {
	return internal.WithConfig(cfg)
}

// WithEnviron sets the KEY=VALUE list read for configuration instead of os.Environ().
func WithEnviron(environ []string) Option {
	return internal.WithEnviron(environ)
}

// WithLogger sets the extension logger.
func WithLogger(l *slog.Logger) Option {
	return internal.WithLogger(l)
}

// WithDatastore sets the connection datastore. Required.
func WithDatastore(ds Datastore) Option {
	return internal.WithDatastore(ds)
}

// WithProviderConfig overrides the configuration of one provider.
func WithProviderConfig(id string, cfg ProviderConfig) Option {
	return internal.WithProviderConfig(id, cfg)
}

// WithProvider registers a provider built by the host.
func WithProvider(p Provider) Option {
	return internal.WithProvider(p)
}

// WithProviderHTTPClient sets the HTTP client used for provider calls.
func WithProviderHTTPClient(client *http.Client) Option {
	return internal.WithProviderHTTPClient(client)
}

// WithSessionStore sets the session backend. Defaults to an in-memory store.
func WithSessionStore(store SessionStore) Option {
	return internal.WithSessionStore(store)
}

// WithSessionOptions configures the session cookie.
func WithSessionOptions(opts ...SessionOption) Option {
	return internal.WithSessionOptions(opts...)
}

// WithAuthenticator replaces the session authenticator.
func WithAuthenticator(a Authenticator) Option {
	return internal.WithAuthenticator(a)
}

// WithNotifier adds a receiver of flow events.
func WithNotifier(n Notifier) Option {
	return internal.WithNotifier(n)
}

// WithNotifierFunc adds a function receiving flow events.
func WithNotifierFunc(fn signal.Func) Option {
	return internal.WithNotifier(fn)
}

// WithQueuedNotifier delivers flow events through the job queue. Register
// job.WithSignalTask on the worker to receive them.
func WithQueuedNotifier(q job.Queuer, opts ...job.EnqueueOption) Option {
	return internal.WithNotifier(job.NewNotifier(q, nil, opts...))
}

// WithErrorHandler replaces the default error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return internal.WithErrorHandler(h)
}

// WithMiddleware adds middleware to every flow route.
func WithMiddleware(mw ...Middleware) Option {
	return internal.WithMiddleware(mw...)
}

// WithHealthCheck adds a named check to Healthcheck.
func WithHealthCheck(name string, fn CheckFunc) Option {
	return internal.WithHealthCheck(name, fn)
}

// Session options

// WithSessionCookieName sets the session cookie name.
func WithSessionCookieName(name string) SessionOption {
	return internal.WithSessionCookieName(name)
}

// WithSessionMaxAge sets how long an idle session lives.
func WithSessionMaxAge(d time.Duration) SessionOption {
	return internal.WithSessionMaxAge(d)
}

// UserIDExtractor adds "user_id" to log records of logged in requests.
func UserIDExtractor() ContextExtractor {
	return internal.UserIDExtractor()
}

// MethodOverride lets HTML forms reach the DELETE routes.
func MethodOverride(next http.Handler) http.Handler {
	return internal.MethodOverride(next)
}
