package internal

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/social/pkg/connection"
	"github.com/dmitrymomot/social/pkg/oauth"
	"github.com/dmitrymomot/social/pkg/session"
	"github.com/dmitrymomot/social/pkg/signal"
)

// Option configures the extension.
type Option func(*options)

type options struct {
	cfg             *Config
	environ         []string
	logger          *slog.Logger
	registry        *oauth.Registry
	providerConfigs map[string]oauth.ProviderConfig
	providers       []oauth.Provider
	providerOpts    []oauth.Option
	datastore       connection.Datastore
	sessionStore    session.Store
	sessionOpts     []SessionOption
	auth            Authenticator
	notifiers       []signal.Notifier
	errorHandler    ErrorHandler
	middlewares     []Middleware
	checks          map[string]CheckFunc
}

// WithConfig sets the configuration instead of reading SOCIAL_ variables.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = &cfg
	}
}

// WithEnviron sets the KEY=VALUE list configuration and provider variables
// are read from. Defaults to os.Environ().
func WithEnviron(environ []string) Option {
	return func(o *options) {
		o.environ = environ
	}
}

// WithLogger sets the logger. Records carry a component attribute with the
// blueprint name.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDatastore sets the connection datastore. Required.
func WithDatastore(ds connection.Datastore) Option {
	return func(o *options) {
		o.datastore = ds
	}
}

// WithRegistry uses a prebuilt provider registry. Provider configuration
// from the environment and the providers file is then ignored.
func WithRegistry(r *oauth.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithProviderConfig adds or overrides the configuration of one provider.
// It is merged over the environment and file configuration.
func WithProviderConfig(id string, cfg oauth.ProviderConfig) Option {
	return func(o *options) {
		if o.providerConfigs == nil {
			o.providerConfigs = make(map[string]oauth.ProviderConfig)
		}
		o.providerConfigs[id] = o.providerConfigs[id].Merge(cfg)
	}
}

// WithProviderConfigs adds several provider configurations at once.
func WithProviderConfigs(configs map[string]oauth.ProviderConfig) Option {
	return func(o *options) {
		for id, cfg := range configs {
			WithProviderConfig(id, cfg)(o)
		}
	}
}

// WithProvider registers a hand-built provider.
func WithProvider(p oauth.Provider) Option {
	return func(o *options) {
		o.providers = append(o.providers, p)
	}
}

// WithProviderHTTPClient sets the HTTP client used for provider calls.
func WithProviderHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.providerOpts = append(o.providerOpts, oauth.WithHTTPClient(client))
	}
}

// WithSessionStore sets the session store. Defaults to an in-memory store.
func WithSessionStore(store session.Store) Option {
	return func(o *options) {
		o.sessionStore = store
	}
}

// WithSessionOptions configures the session manager beyond Config.
func WithSessionOptions(opts ...SessionOption) Option {
	return func(o *options) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

// WithAuthenticator plugs in the host application's login system.
// Defaults to SessionAuthenticator.
func WithAuthenticator(a Authenticator) Option {
	return func(o *options) {
		o.auth = a
	}
}

// WithNotifier adds a receiver of flow events. Events are always logged.
func WithNotifier(n signal.Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifiers = append(o.notifiers, n)
		}
	}
}

// WithErrorHandler sets the renderer for handler errors.
// Defaults to DefaultErrorHandler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		o.errorHandler = h
	}
}

// WithMiddleware adds middleware around every extension route, in order.
func WithMiddleware(mw ...Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, mw...)
	}
}

// WithHealthCheck adds a named check to Healthcheck.
//
// Example:
//
//	social.WithHealthCheck("redis", redis.Healthcheck(client))
func WithHealthCheck(name string, fn CheckFunc) Option {
	return func(o *options) {
		if o.checks == nil {
			o.checks = make(map[string]CheckFunc)
		}
		o.checks[name] = fn
	}
}
