package internal

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/social/pkg/connection"
	"github.com/dmitrymomot/social/pkg/cookie"
	"github.com/dmitrymomot/social/pkg/oauth"
	"github.com/dmitrymomot/social/pkg/signal"
)

// Flash messages shown by the flows. %s is the provider display name.
const (
	msgConnected        = "Connection established to %s"
	msgAlreadyConnected = "A connection is already established with %s to your account"
	msgLinkedElsewhere  = "This %s account is already linked to another user"
	msgNotAssociated    = "%s account not associated with an existing user"
	msgDenied           = "Access to %s was denied"
	msgRemoved          = "Connection to %s removed"
	msgRemovedAll       = "All connections to %s removed"
	msgRemoveFailed     = "Unable to remove connection to %s"
	msgLoginRequired    = "Please log in to access this page."
)

// Event reasons.
const (
	reasonDenied        = "access_denied"
	reasonNotAssociated = "not_associated"
	reasonAlreadyLinked = "already_linked"
	reasonLinkedToOther = "linked_to_other_user"
)

func (e *Extension) provider(c Context) (oauth.Provider, error) {
	id := strings.ToLower(c.Param("provider"))
	p, ok := e.registry.Get(id)
	if !ok {
		return nil, ErrNotFound("unknown provider", WithError(fmt.Errorf("%w: %q", ErrUnknownProvider, id)))
	}
	return p, nil
}

// callbackURL is the absolute URL the provider redirects back to.
func (e *Extension) callbackURL(c Context, action string, p oauth.Provider) string {
	return baseURL(e.cfg, c.Request()) + e.cfg.URLPrefix + "/" + action + "/" + p.ID()
}

// providerContext bounds the outbound provider calls of one callback.
func (e *Extension) providerContext(c Context) (context.Context, context.CancelFunc) {
	if e.cfg.ProviderTimeout > 0 {
		return context.WithTimeout(c, e.cfg.ProviderTimeout)
	}
	return context.WithCancel(c)
}

func (e *Extension) currentUser(c Context) (string, error) {
	uid, err := e.auth.CurrentUserID(c)
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}
	if uid != "" {
		c.Set(userIDKey{}, uid)
	}
	return uid, nil
}

// userID returns the user resolved by requireUser.
func userID(c Context) string {
	uid, _ := c.Get(userIDKey{}).(string)
	return uid
}

// requireUser sends anonymous requests to the login view.
func (e *Extension) requireUser(next HandlerFunc) HandlerFunc {
	return func(c Context) error {
		uid, err := e.currentUser(c)
		if err != nil {
			return err
		}
		if uid == "" {
			e.flash(c, cookie.CategoryInfo, msgLoginRequired)
			target := e.cfg.LoginView
			if c.Request().Method == http.MethodGet {
				target = withQuery(target, "next", c.Request().URL.RequestURI())
			}
			return c.Redirect(http.StatusFound, target)
		}
		return next(c)
	}
}

func withQuery(target, key, value string) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + url.Values{key: {value}}.Encode()
}

// flash adds a flash message. Failures are logged, never returned.
func (e *Extension) flash(c Context, category, message string) {
	if err := c.AddFlash(category, message); err != nil {
		c.LogWarn("failed to add flash message", "error", err)
	}
}

func (e *Extension) notify(c Context, ev signal.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	e.notifier.Notify(c, ev)
}

// startLogin begins the login flow. Logged in users are sent back.
func (e *Extension) startLogin(c Context) error {
	p, err := e.provider(c)
	if err != nil {
		return err
	}
	uid, err := e.currentUser(c)
	if err != nil {
		return err
	}
	if uid != "" {
		return c.Redirect(http.StatusFound, cmp.Or(localReferer(c.Request()), "/"))
	}
	return e.beginLogin(c, p)
}

func (e *Extension) beginLogin(c Context, p oauth.Provider) error {
	if err := rememberNext(c, e.cfg.PostLoginSessionKey, nextParam(c, e.cfg.PostLoginView)); err != nil {
		return err
	}
	callback := e.callbackURL(c, "login", p)
	target, err := authorize(c, p, callback)
	if err != nil {
		return err
	}
	c.LogDebug("starting login", "provider_id", p.ID(), "callback_url", callback)
	return c.Redirect(http.StatusFound, target)
}

// exchange checks the callback and trades the code for a token.
// A nil token with a nil error means the user denied access.
func (e *Extension) exchange(ctx context.Context, c Context, p oauth.Provider, action string) (*oauth2.Token, error) {
	code := c.Query("code")
	if c.Query("error") != "" || code == "" {
		_, _ = popMarkers(c, p, "")
		return nil, nil
	}

	opts, err := popMarkers(c, p, c.Query("state"))
	if errors.Is(err, ErrStateMismatch) {
		return nil, ErrBadRequest("invalid oauth state", WithError(err))
	}
	if err != nil {
		return nil, err
	}

	token, err := p.Exchange(ctx, code, e.callbackURL(c, action, p), opts...)
	if err != nil {
		return nil, ErrBadGateway(p.Name()+" authorization failed", WithError(err))
	}
	return token, nil
}

// loginCallback logs in the user linked to the provider account.
func (e *Extension) loginCallback(c Context) error {
	p, err := e.provider(c)
	if err != nil {
		return err
	}
	ctx, cancel := e.providerContext(c)
	defer cancel()

	token, err := e.exchange(ctx, c, p, "login")
	if err != nil {
		return err
	}
	if token == nil {
		c.LogInfo("login denied by user", "provider_id", p.ID())
		e.notify(c, signal.Event{Kind: signal.LoginFailed, ProviderID: p.ID(), Reason: reasonDenied})
		return c.Redirect(http.StatusFound, e.cfg.LoginView)
	}

	providerUserID, err := p.ProviderUserID(ctx, token)
	if err != nil {
		return ErrBadGateway(p.Name()+" profile request failed", WithError(err))
	}

	unit, err := e.begin(c)
	if err != nil {
		return err
	}
	defer unit.release(c)

	conn, err := unit.FindConnection(c, connection.Filter{ProviderID: p.ID(), ProviderUserID: providerUserID})
	if errors.Is(err, connection.ErrNotFound) {
		c.LogInfo("login with unlinked account", "provider_id", p.ID(), "provider_user_id", providerUserID)
		e.notify(c, signal.Event{
			Kind:           signal.LoginFailed,
			ProviderID:     p.ID(),
			ProviderUserID: providerUserID,
			Reason:         reasonNotAssociated,
		})
		e.flash(c, cookie.CategoryError, fmt.Sprintf(msgNotAssociated, p.Name()))
		return c.Redirect(http.StatusFound, e.cfg.LoginView)
	}
	if err != nil {
		return fmt.Errorf("find connection: %w", err)
	}

	if err := e.refreshTokens(c, unit, p, conn, token); err != nil {
		return err
	}
	if err := e.auth.Login(c, conn.UserID); err != nil {
		return fmt.Errorf("login user: %w", err)
	}

	c.LogInfo("login completed", "provider_id", p.ID(), "user_id", conn.UserID)
	e.notify(c, signal.Event{
		Kind:           signal.LoginCompleted,
		ProviderID:     p.ID(),
		ProviderUserID: providerUserID,
		UserID:         conn.UserID,
		ConnectionID:   conn.ID,
	})
	return c.Redirect(http.StatusFound, popNext(c, e.cfg.PostLoginSessionKey, e.cfg.PostLoginView))
}

// refreshTokens stores the new credentials when the provider issued
// different ones.
func (e *Extension) refreshTokens(c Context, store connection.Store, p oauth.Provider, conn *connection.Connection, token *oauth2.Token) error {
	pair := p.TokenPair(token)
	if pair == (oauth.TokenPair{AccessToken: conn.AccessToken, Secret: conn.Secret}) {
		return nil
	}

	conn.AccessToken = pair.AccessToken
	conn.Secret = pair.Secret
	if token.RefreshToken != "" {
		conn.RefreshToken = token.RefreshToken
	}
	conn.ExpiresAt = token.Expiry
	if err := store.UpdateConnection(c, conn); err != nil {
		return fmt.Errorf("update connection tokens: %w", err)
	}
	c.LogDebug("connection tokens refreshed", "provider_id", p.ID(), "connection_id", conn.ID)
	return nil
}

// startConnect begins linking a provider account to the current user.
func (e *Extension) startConnect(c Context) error {
	p, err := e.provider(c)
	if err != nil {
		return err
	}
	if err := rememberNext(c, e.cfg.PostConnectSessionKey, nextParam(c, e.cfg.ConnectAllowView)); err != nil {
		return err
	}
	callback := e.callbackURL(c, "connect", p)
	target, err := authorize(c, p, callback)
	if err != nil {
		return err
	}
	c.LogDebug("starting connect", "provider_id", p.ID(), "callback_url", callback)
	return c.Redirect(http.StatusFound, target)
}

// connectCallback links the provider account unless it is linked already.
func (e *Extension) connectCallback(c Context) error {
	p, err := e.provider(c)
	if err != nil {
		return err
	}
	ctx, cancel := e.providerContext(c)
	defer cancel()

	token, err := e.exchange(ctx, c, p, "connect")
	if err != nil {
		return err
	}
	if token == nil {
		c.LogInfo("connect denied by user", "provider_id", p.ID())
		e.flash(c, cookie.CategoryError, fmt.Sprintf(msgDenied, p.Name()))
		return c.Redirect(http.StatusFound, e.cfg.ConnectDenyView)
	}

	values, err := p.ConnectionValues(ctx, token)
	if err != nil {
		return ErrBadGateway(p.Name()+" profile request failed", WithError(err))
	}
	values.UserID = userID(c)

	unit, err := e.begin(c)
	if err != nil {
		return err
	}
	defer unit.release(c)

	existing, err := unit.FindConnection(c, connection.Filter{
		ProviderID:     values.ProviderID,
		ProviderUserID: values.ProviderUserID,
	})
	switch {
	case err == nil:
		e.alreadyConnected(c, p, existing)
	case errors.Is(err, connection.ErrNotFound):
		created, err := unit.CreateConnection(c, values)
		if errors.Is(err, connection.ErrDuplicate) {
			// Lost a race with another link; the winner decides the message.
			winner, ferr := unit.FindConnection(c, connection.Filter{
				ProviderID:     values.ProviderID,
				ProviderUserID: values.ProviderUserID,
			})
			if ferr != nil {
				return fmt.Errorf("find linked connection: %w", ferr)
			}
			e.alreadyConnected(c, p, winner)
			break
		}
		if err != nil {
			return fmt.Errorf("create connection: %w", err)
		}
		c.LogInfo("connection created", "provider_id", p.ID(), "connection_id", created.ID)
		e.notify(c, signal.Event{
			Kind:           signal.ConnectionCreated,
			ProviderID:     p.ID(),
			ProviderUserID: created.ProviderUserID,
			UserID:         created.UserID,
			ConnectionID:   created.ID,
		})
		e.flash(c, cookie.CategorySuccess, fmt.Sprintf(msgConnected, p.Name()))
	default:
		return fmt.Errorf("find connection: %w", err)
	}

	return c.Redirect(http.StatusFound, popNext(c, e.cfg.PostConnectSessionKey, e.cfg.ConnectAllowView))
}

func (e *Extension) alreadyConnected(c Context, p oauth.Provider, conn *connection.Connection) {
	reason, msg := reasonAlreadyLinked, msgAlreadyConnected
	if conn.UserID != userID(c) {
		reason, msg = reasonLinkedToOther, msgLinkedElsewhere
	}
	c.LogInfo("provider account already linked",
		"provider_id", p.ID(),
		"provider_user_id", conn.ProviderUserID,
		"linked_user_id", conn.UserID,
		"reason", reason,
	)
	e.notify(c, signal.Event{
		Kind:           signal.ConnectionFailed,
		ProviderID:     p.ID(),
		ProviderUserID: conn.ProviderUserID,
		UserID:         userID(c),
		ConnectionID:   conn.ID,
		Reason:         reason,
	})
	e.flash(c, cookie.CategoryNotice, fmt.Sprintf(msg, p.Name()))
}

// reconnect logs the user out and restarts the login flow, which refreshes
// the stored tokens of the existing link.
func (e *Extension) reconnect(c Context) error {
	p, err := e.provider(c)
	if err != nil {
		return err
	}
	if err := e.auth.Logout(c); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return e.beginLogin(c, p)
}
