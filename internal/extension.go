package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/social/pkg/connection"
	"github.com/dmitrymomot/social/pkg/cookie"
	"github.com/dmitrymomot/social/pkg/logger"
	"github.com/dmitrymomot/social/pkg/oauth"
	"github.com/dmitrymomot/social/pkg/session"
	"github.com/dmitrymomot/social/pkg/signal"
)

// Extension serves the social login and account linking routes.
// It is immutable after New and safe for concurrent use.
type Extension struct {
	cfg          Config
	logger       *slog.Logger
	registry     *oauth.Registry
	datastore    connection.Datastore
	auth         Authenticator
	sessions     *SessionManager
	cookies      *cookie.Manager
	notifier     signal.Notifier
	errorHandler ErrorHandler
	middlewares  []Middleware
	checks       map[string]CheckFunc
	router       chi.Router
}

// New builds the extension. It fails when no datastore is given, when
// flash messages are enabled without a cookie secret, or when a provider
// is misconfigured.
//
// Example:
//
//	ext, err := social.New(
//	    social.WithDatastore(connection.NewPostgresDatastore(pool)),
//	    social.WithAuthenticator(myAuth),
//	)
//	if err != nil {
//	    return err
//	}
//	mux.Mount("/", ext)
func New(opts ...Option) (*Extension, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.environ == nil {
		o.environ = os.Environ()
	}

	var cfg Config
	if o.cfg != nil {
		cfg = o.cfg.normalize()
	} else {
		var err error
		if cfg, err = LoadConfig(o.environ); err != nil {
			return nil, err
		}
	}

	if o.datastore == nil {
		return nil, ErrDatastoreRequired
	}
	if cfg.FlashMessages && cfg.CookieSecret == "" {
		return nil, ErrCookieSecretRequired
	}

	cookies, err := cookie.New(
		cookie.WithSecret(cfg.CookieSecret),
		cookie.WithDomain(cfg.CookieDomain),
		cookie.WithSecure(cfg.CookieSecure),
	)
	if err != nil {
		return nil, fmt.Errorf("social: cookie manager: %w", err)
	}

	registry, err := buildRegistry(cfg, o)
	if err != nil {
		return nil, err
	}

	log := logger.Component(o.logger, cfg.BlueprintName)

	store := o.sessionStore
	if store == nil {
		store = session.NewMemoryStore()
	}
	sessionOpts := append([]SessionOption{
		WithSessionCookieName(cfg.SessionCookieName),
		WithSessionMaxAge(cfg.SessionMaxAge),
	}, o.sessionOpts...)
	sessions := NewSessionManager(store, cookies, sessionOpts...)
	sessions.SetLogger(log)

	e := &Extension{
		cfg:          cfg,
		logger:       log,
		registry:     registry,
		datastore:    o.datastore,
		auth:         o.auth,
		sessions:     sessions,
		cookies:      cookies,
		notifier:     signal.Multi(append([]signal.Notifier{signal.NewLogNotifier(log)}, o.notifiers...)...),
		errorHandler: o.errorHandler,
		middlewares:  o.middlewares,
		checks:       o.checks,
	}
	if e.auth == nil {
		e.auth = SessionAuthenticator{}
	}
	if e.errorHandler == nil {
		e.errorHandler = DefaultErrorHandler
	}
	e.router = e.routes()

	log.Info("social extension ready",
		slog.Int("providers", registry.Len()),
		slog.String("url_prefix", cfg.URLPrefix),
	)
	return e, nil
}

// buildRegistry merges file, env and option provider configuration and
// registers hand-built providers on top.
func buildRegistry(cfg Config, o *options) (*oauth.Registry, error) {
	registry := o.registry
	if registry == nil {
		configs, err := oauth.LoadConfigs(EnvPrefix, o.environ, cfg.ProvidersFile)
		if err != nil {
			return nil, fmt.Errorf("social: load providers: %w", err)
		}
		for id, pc := range o.providerConfigs {
			configs[id] = configs[id].Merge(pc)
		}
		if registry, err = oauth.NewRegistry(configs, o.providerOpts...); err != nil {
			return nil, fmt.Errorf("social: %w", err)
		}
	}
	for _, p := range o.providers {
		if err := registry.Register(p); err != nil {
			return nil, fmt.Errorf("social: %w", err)
		}
	}
	if registry.Len() == 0 {
		return nil, ErrNoProviders
	}
	return registry, nil
}

// routes builds the router of the flow handlers.
func (e *Extension) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(MethodOverride)
	r.NotFound(e.handle(func(c Context) error {
		return ErrNotFound("page not found")
	}))
	r.MethodNotAllowed(e.handle(func(c Context) error {
		return ErrMethodNotAllowed("method not allowed")
	}))

	register := func(r chi.Router) {
		r.Post("/login/{provider}", e.handle(e.startLogin))
		r.Get("/login/{provider}", e.handle(e.loginCallback))
		r.Post("/connect/{provider}", e.handle(e.startConnect, e.requireUser))
		r.Get("/connect/{provider}", e.handle(e.connectCallback, e.requireUser))
		r.Post("/reconnect/{provider}", e.handle(e.reconnect, e.requireUser))
		r.Delete("/connect/{provider}", e.handle(e.removeAllConnections, e.requireUser))
		r.Delete("/connect/{provider}/{provider_user_id}", e.handle(e.removeConnection, e.requireUser))
	}
	if e.cfg.URLPrefix == "" {
		register(r)
	} else {
		r.Route(e.cfg.URLPrefix, register)
	}
	return r
}

// handle wraps h with route middleware, then the global middleware, and
// adapts it to net/http.
func (e *Extension) handle(h HandlerFunc, mw ...Middleware) http.HandlerFunc {
	chain := slices.Concat(e.middlewares, mw)
	slices.Reverse(chain)
	for _, m := range chain {
		h = m(h)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		c := newContext(w, r, e)
		if err := h(c); err != nil {
			e.handleError(c, err)
		}
	}
}

func (e *Extension) handleError(c Context, err error) {
	if c.Written() {
		e.logger.ErrorContext(c.Context(), "error after response was written", slog.Any("error", err))
		return
	}
	if herr := e.errorHandler(c, err); herr != nil {
		e.logger.ErrorContext(c.Context(), "error handler failed", slog.Any("error", herr))
		if !c.Written() {
			http.Error(c.Response(), http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// ServeHTTP dispatches to the flow routes.
func (e *Extension) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.router.ServeHTTP(w, r)
}

// Router returns the extension router for mounting into a chi router.
func (e *Extension) Router() chi.Router {
	return e.router
}

// Config returns the effective configuration.
func (e *Extension) Config() Config {
	return e.cfg
}

// Logger returns the extension logger.
func (e *Extension) Logger() *slog.Logger {
	return e.logger
}

// NewContext builds an extension Context for a host handler, e.g. to call
// an Authenticator directly.
func (e *Extension) NewContext(w http.ResponseWriter, r *http.Request) Context {
	return newContext(w, r, e)
}

// Providers returns the configured providers ordered by id.
func (e *Extension) Providers() []oauth.Provider {
	return e.registry.All()
}

// Provider looks up a configured provider. Ids are case-insensitive.
func (e *Extension) Provider(id string) (oauth.Provider, bool) {
	return e.registry.Get(strings.ToLower(id))
}

// Connections returns every connection of userID, primary connections first.
func (e *Extension) Connections(ctx context.Context, userID string) ([]*connection.Connection, error) {
	store, err := e.datastore.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin connection unit: %w", err)
	}
	defer func() { _ = store.Rollback(ctx) }()

	conns, err := store.FindConnections(ctx, connection.Filter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("find connections: %w", err)
	}
	return conns, nil
}

// PrimaryConnection returns the lowest ranked connection of userID to
// providerID. Returns connection.ErrNotFound when there is none.
func (e *Extension) PrimaryConnection(ctx context.Context, userID, providerID string) (*connection.Connection, error) {
	store, err := e.datastore.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin connection unit: %w", err)
	}
	defer func() { _ = store.Rollback(ctx) }()

	conn, err := store.FindConnection(ctx, connection.Filter{UserID: userID, ProviderID: providerID})
	if err != nil {
		return nil, fmt.Errorf("find connection: %w", err)
	}
	return conn, nil
}

// APIClient returns an HTTP client that calls the provider API on behalf of
// the connection's account.
func (e *Extension) APIClient(ctx context.Context, conn *connection.Connection) (*http.Client, error) {
	p, ok := e.registry.Get(conn.ProviderID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, conn.ProviderID)
	}
	return p.Client(ctx, conn.Token()), nil
}

// Login logs userID in through the configured Authenticator from a host handler.
func (e *Extension) Login(w http.ResponseWriter, r *http.Request, userID string) error {
	c := newContext(w, r, e)
	if err := e.auth.Login(c, userID); err != nil {
		return err
	}
	c.flushSession()
	return nil
}

// Logout logs the current user out through the configured Authenticator.
func (e *Extension) Logout(w http.ResponseWriter, r *http.Request) error {
	c := newContext(w, r, e)
	if err := e.auth.Logout(c); err != nil {
		return err
	}
	c.flushSession()
	return nil
}

// CurrentUserID returns the logged in user of r, or "".
func (e *Extension) CurrentUserID(r *http.Request) (string, error) {
	return e.auth.CurrentUserID(newContext(discardWriter{}, r, e))
}

// Flashes returns and clears the pending flash messages.
func (e *Extension) Flashes(w http.ResponseWriter, r *http.Request) ([]cookie.Flash, error) {
	if !e.cfg.FlashMessages {
		return nil, nil
	}
	flashes, err := e.cookies.Flashes(w, r, e.cfg.BlueprintName)
	if errors.Is(err, cookie.ErrDecrypt) {
		// A stale cookie from a rotated secret.
		return nil, nil
	}
	return flashes, err
}

// discardWriter backs contexts of read-only host helpers.
type discardWriter struct{}

func (discardWriter) Header() http.Header         { return http.Header{} }
func (discardWriter) Write(b []byte) (int, error) { return len(b), nil }
func (discardWriter) WriteHeader(int)             {}
