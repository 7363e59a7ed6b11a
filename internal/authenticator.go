package internal

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/social/pkg/logger"
)

// Authenticator connects the extension to the host application's notion of
// a logged in user.
type Authenticator interface {
	// CurrentUserID returns the logged in user id, or "" for anonymous requests.
	CurrentUserID(c Context) (string, error)

	// Login makes userID the logged in user for the rest of the browser session.
	Login(c Context, userID string) error

	// Logout ends the logged in session.
	Logout(c Context) error
}

// SessionAuthenticator keeps the user id in the extension session.
type SessionAuthenticator struct{}

func (SessionAuthenticator) CurrentUserID(c Context) (string, error) {
	sess, err := c.Session()
	if err != nil || sess == nil {
		return "", err
	}
	return sess.UserID, nil
}

func (SessionAuthenticator) Login(c Context, userID string) error {
	return c.AuthenticateSession(userID)
}

func (SessionAuthenticator) Logout(c Context) error {
	return c.DestroySession()
}

// UserIDExtractor adds "user_id" to log records of requests with a logged in user.
func UserIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v, ok := ctx.Value(userIDKey{}).(string); ok && v != "" {
			return slog.String("user_id", v), true
		}
		return slog.Attr{}, false
	}
}
