package internal

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/social/pkg/cookie"
	"github.com/dmitrymomot/social/pkg/logger"
	"github.com/dmitrymomot/social/pkg/session"
)

// Default session configuration.
const (
	defaultSessionCookieName = "__social_sid"
	defaultSessionMaxAge     = 86400 * 30 // 30 days
)

// SessionManager handles the session lifecycle and the session cookie.
// With a cookie secret the token cookie is signed.
type SessionManager struct {
	store      session.Store
	cookies    *cookie.Manager
	logger     *slog.Logger
	cookieName string
	maxAge     int
}

// SessionOption configures the SessionManager.
type SessionOption func(*SessionManager)

// NewSessionManager creates a SessionManager over store. Cookie attributes
// come from cookies.
func NewSessionManager(store session.Store, cookies *cookie.Manager, opts ...SessionOption) *SessionManager {
	sm := &SessionManager{
		store:      store,
		cookies:    cookies,
		logger:     logger.NewNope(),
		cookieName: defaultSessionCookieName,
		maxAge:     defaultSessionMaxAge,
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// WithSessionCookieName sets the session cookie name.
func WithSessionCookieName(name string) SessionOption {
	return func(sm *SessionManager) {
		if name != "" {
			sm.cookieName = name
		}
	}
}

// WithSessionMaxAge sets the session lifetime.
func WithSessionMaxAge(d time.Duration) SessionOption {
	return func(sm *SessionManager) {
		if d > 0 {
			sm.maxAge = int(d.Seconds())
		}
	}
}

// SetLogger sets the logger for session events.
func (sm *SessionManager) SetLogger(l *slog.Logger) {
	if l != nil {
		sm.logger = l
	}
}

func (sm *SessionManager) readToken(r *http.Request) (string, error) {
	if sm.cookies.HasSecret() {
		return sm.cookies.GetSigned(r, sm.cookieName)
	}
	return sm.cookies.Get(r, sm.cookieName)
}

// LoadSession loads the session named by the request cookie.
// Returns nil, nil when the request carries no usable session: no cookie,
// a tampered cookie, or a session that is gone or expired.
func (sm *SessionManager) LoadSession(ctx context.Context, r *http.Request) (*session.Session, error) {
	token, err := sm.readToken(r)
	switch {
	case errors.Is(err, cookie.ErrNotFound):
		return nil, nil
	case err != nil:
		sm.logger.WarnContext(ctx, "invalid session cookie", slog.Any("error", err))
		return nil, nil
	case token == "":
		return nil, nil
	}

	sess, err := sm.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// CreateSession creates and stores an anonymous session for the request.
func (sm *SessionManager) CreateSession(ctx context.Context, r *http.Request) (*session.Session, error) {
	expiresAt := time.Now().Add(time.Duration(sm.maxAge) * time.Second)
	sess := session.New(uuid.NewString(), rand.Text(), expiresAt)
	sess.IP = clientIP(r)
	sess.UserAgent = r.UserAgent()

	if err := sm.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	sess.ClearNew()
	sess.ClearDirty()
	return sess, nil
}

// SaveSession writes the session cookie.
func (sm *SessionManager) SaveSession(w http.ResponseWriter, sess *session.Session) error {
	if sm.cookies.HasSecret() {
		return sm.cookies.SetSigned(w, sm.cookieName, sess.Token, sm.maxAge)
	}
	sm.cookies.Set(w, sm.cookieName, sess.Token, sm.maxAge)
	return nil
}

// RotateToken issues a new token for the session and stores it.
// Called on login so a token planted before authentication is useless after.
func (sm *SessionManager) RotateToken(ctx context.Context, sess *session.Session) error {
	oldToken := sess.Token
	sess.Token = rand.Text()
	sess.MarkDirty()

	if err := sm.store.Update(ctx, sess); err != nil {
		sess.Token = oldToken
		return fmt.Errorf("rotate session token: %w", err)
	}
	sess.ClearDirty()
	return nil
}

// DeleteSession clears the session cookie.
func (sm *SessionManager) DeleteSession(w http.ResponseWriter) {
	sm.cookies.Delete(w, sm.cookieName)
}

// Store returns the underlying session store.
func (sm *SessionManager) Store() session.Store {
	return sm.store
}

// clientIP returns the first forwarded address, X-Real-IP, or the peer address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
