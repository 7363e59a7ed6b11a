package internal

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/social/pkg/cookie"
	"github.com/dmitrymomot/social/pkg/session"
)

// Context gives extension handlers and middleware access to the request,
// the response, the session and flash messages.
// It implements context.Context by delegating to the request context.
type Context interface {
	context.Context

	// Request returns the underlying *http.Request.
	Request() *http.Request

	// SetRequest replaces the request, e.g. to attach a derived context.
	SetRequest(r *http.Request)

	// Response returns the wrapped http.ResponseWriter.
	Response() http.ResponseWriter

	// ResponseWriter returns the wrapper for hook registration.
	ResponseWriter() *ResponseWriter

	// Context returns the request's context.Context.
	Context() context.Context

	// Param returns the URL parameter value by name.
	Param(name string) string

	// Query returns the query parameter value by name.
	Query(name string) string

	// Form returns the form value by name, falling back to the query string.
	Form(name string) string

	// Header returns the request header value by name.
	Header(name string) string

	// SetHeader sets a response header.
	SetHeader(name, value string)

	// String writes a plain text response.
	String(code int, s string) error

	// NoContent writes a response with no body.
	NoContent(code int) error

	// Redirect redirects to url with the given status code.
	Redirect(code int, url string) error

	// Written reports whether a response has already been written.
	Written() bool

	// Logger returns the extension logger.
	Logger() *slog.Logger

	LogDebug(msg string, attrs ...any)
	LogInfo(msg string, attrs ...any)
	LogWarn(msg string, attrs ...any)
	LogError(msg string, attrs ...any)

	// Set stores a value in the request context.
	Set(key any, value any)

	// Get retrieves a value from the request context.
	Get(key any) any

	// Session returns the current session or nil when there is none.
	// Returns ErrNoSession when no session manager is configured.
	Session() (*session.Session, error)

	// EnsureSession returns the current session, creating one if needed.
	EnsureSession() (*session.Session, error)

	// AuthenticateSession binds userID to the session and rotates its token.
	AuthenticateSession(userID string) error

	// DestroySession deletes the session and clears the cookie.
	DestroySession() error

	// AddFlash queues a flash message for the next page the user sees.
	// It is a no-op when flash messages are disabled.
	AddFlash(category, message string) error
}

// userIDKey stores the resolved user id in the request context for logging.
type userIDKey struct{}

// requestContext implements Context.
type requestContext struct {
	request        *http.Request
	responseWriter *ResponseWriter
	logger         *slog.Logger
	cookies        *cookie.Manager
	sessionManager *SessionManager
	session        *session.Session
	flashKey       string

	sessionLoaded         bool
	sessionHookRegistered bool
}

func newContext(w http.ResponseWriter, r *http.Request, e *Extension) *requestContext {
	rw, ok := w.(*ResponseWriter)
	if !ok {
		rw = NewResponseWriter(w)
	}
	c := &requestContext{
		request:        r,
		responseWriter: rw,
		logger:         e.logger,
		cookies:        e.cookies,
		sessionManager: e.sessions,
	}
	if e.cfg.FlashMessages {
		c.flashKey = e.cfg.BlueprintName
	}
	return c
}

func (c *requestContext) Request() *http.Request          { return c.request }
func (c *requestContext) SetRequest(r *http.Request)      { c.request = r }
func (c *requestContext) Response() http.ResponseWriter   { return c.responseWriter }
func (c *requestContext) ResponseWriter() *ResponseWriter { return c.responseWriter }
func (c *requestContext) Context() context.Context        { return c.request.Context() }

func (c *requestContext) Deadline() (time.Time, bool) { return c.request.Context().Deadline() }
func (c *requestContext) Done() <-chan struct{}       { return c.request.Context().Done() }
func (c *requestContext) Err() error                  { return c.request.Context().Err() }
func (c *requestContext) Value(key any) any           { return c.request.Context().Value(key) }

func (c *requestContext) Param(name string) string {
	return chi.URLParam(c.request, name)
}

func (c *requestContext) Query(name string) string {
	return c.request.URL.Query().Get(name)
}

func (c *requestContext) Form(name string) string {
	return c.request.FormValue(name)
}

func (c *requestContext) Header(name string) string {
	return c.request.Header.Get(name)
}

func (c *requestContext) SetHeader(name, value string) {
	c.responseWriter.Header().Set(name, value)
}

func (c *requestContext) String(code int, s string) error {
	c.responseWriter.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.responseWriter.WriteHeader(code)
	_, err := c.responseWriter.Write([]byte(s))
	return err
}

func (c *requestContext) NoContent(code int) error {
	c.responseWriter.WriteHeader(code)
	return nil
}

func (c *requestContext) Redirect(code int, url string) error {
	http.Redirect(c.responseWriter, c.request, url, code)
	return nil
}

func (c *requestContext) Written() bool {
	return c.responseWriter.Written()
}

func (c *requestContext) Logger() *slog.Logger {
	return c.logger
}

func (c *requestContext) LogDebug(msg string, attrs ...any) {
	c.logger.DebugContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogInfo(msg string, attrs ...any) {
	c.logger.InfoContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogWarn(msg string, attrs ...any) {
	c.logger.WarnContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogError(msg string, attrs ...any) {
	c.logger.ErrorContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) Set(key, value any) {
	c.request = c.request.WithContext(context.WithValue(c.request.Context(), key, value))
}

func (c *requestContext) Get(key any) any {
	return c.request.Context().Value(key)
}

// registerSessionHook saves a dirty session before the response is written.
func (c *requestContext) registerSessionHook() {
	if c.sessionHookRegistered {
		return
	}
	c.sessionHookRegistered = true
	c.responseWriter.OnBeforeWrite(c.flushSession)
}

// flushSession persists pending session changes. Failures are logged only,
// the response is already on its way.
func (c *requestContext) flushSession() {
	if c.session == nil || !c.session.IsDirty() {
		return
	}
	if err := c.sessionManager.Store().Update(c.Context(), c.session); err != nil {
		c.LogError("failed to save session", "error", err)
		return
	}
	c.session.ClearDirty()
}

func (c *requestContext) Session() (*session.Session, error) {
	if c.sessionManager == nil {
		return nil, ErrNoSession
	}
	c.registerSessionHook()
	if c.sessionLoaded {
		return c.session, nil
	}

	sess, err := c.sessionManager.LoadSession(c.Context(), c.request)
	if err != nil {
		return nil, err
	}
	c.session = sess
	c.sessionLoaded = true
	if sess != nil && sess.UserID != "" {
		c.Set(userIDKey{}, sess.UserID)
	}
	return sess, nil
}

func (c *requestContext) EnsureSession() (*session.Session, error) {
	sess, err := c.Session()
	if err != nil || sess != nil {
		return sess, err
	}

	sess, err = c.sessionManager.CreateSession(c.Context(), c.request)
	if err != nil {
		return nil, err
	}
	if err := c.sessionManager.SaveSession(c.responseWriter, sess); err != nil {
		return nil, err
	}
	c.session = sess
	return sess, nil
}

func (c *requestContext) AuthenticateSession(userID string) error {
	sess, err := c.Session()
	if err != nil {
		return err
	}
	if sess == nil {
		if sess, err = c.sessionManager.CreateSession(c.Context(), c.request); err != nil {
			return err
		}
		c.session = sess
	}

	sess.SetUser(userID)
	if err := c.sessionManager.RotateToken(c.Context(), sess); err != nil {
		return err
	}
	if err := c.sessionManager.SaveSession(c.responseWriter, sess); err != nil {
		return err
	}
	c.Set(userIDKey{}, userID)
	return nil
}

func (c *requestContext) DestroySession() error {
	if c.sessionManager == nil {
		return ErrNoSession
	}
	if _, err := c.Session(); err != nil {
		return err
	}
	if c.session != nil {
		if err := c.sessionManager.Store().Delete(c.Context(), c.session.ID); err != nil {
			return err
		}
	}
	c.sessionManager.DeleteSession(c.responseWriter)
	c.session = nil
	c.sessionLoaded = true
	c.Set(userIDKey{}, "")
	return nil
}

func (c *requestContext) AddFlash(category, message string) error {
	if c.flashKey == "" {
		return nil
	}
	return c.cookies.AddFlash(c.responseWriter, c.request, c.flashKey, cookie.Flash{
		Category: category,
		Message:  message,
	})
}
