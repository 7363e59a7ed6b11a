package internal

import (
	"cmp"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/social/pkg/connection"
	"github.com/dmitrymomot/social/pkg/cookie"
	"github.com/dmitrymomot/social/pkg/oauth"
	"github.com/dmitrymomot/social/pkg/signal"
)

// removeConnection unlinks one provider account from the current user.
func (e *Extension) removeConnection(c Context) error {
	p, err := e.provider(c)
	if err != nil {
		return err
	}
	f := connection.Filter{
		UserID:         userID(c),
		ProviderID:     p.ID(),
		ProviderUserID: c.Param("provider_user_id"),
	}
	return e.unlink(c, p, f, msgRemoved, func(u *unitOfWork) (bool, error) {
		return u.DeleteConnection(c, f)
	})
}

// removeAllConnections unlinks every account of the provider from the current user.
func (e *Extension) removeAllConnections(c Context) error {
	p, err := e.provider(c)
	if err != nil {
		return err
	}
	f := connection.Filter{UserID: userID(c), ProviderID: p.ID()}
	return e.unlink(c, p, f, msgRemovedAll, func(u *unitOfWork) (bool, error) {
		return u.DeleteConnections(c, f)
	})
}

func (e *Extension) unlink(c Context, p oauth.Provider, f connection.Filter, okMsg string, remove func(*unitOfWork) (bool, error)) error {
	unit, err := e.begin(c)
	if err != nil {
		return err
	}
	defer unit.release(c)

	removed, err := remove(unit)
	if err != nil {
		return fmt.Errorf("remove connection: %w", err)
	}
	switch {
	case !removed:
		c.LogWarn("no connection to remove", "provider_id", p.ID(), "provider_user_id", f.ProviderUserID)
		e.flash(c, cookie.CategoryError, fmt.Sprintf(msgRemoveFailed, p.Name()))
	default:
		c.LogInfo("connection removed", "provider_id", p.ID(), "provider_user_id", f.ProviderUserID)
		e.notify(c, signal.Event{
			Kind:           signal.ConnectionRemoved,
			ProviderID:     p.ID(),
			ProviderUserID: f.ProviderUserID,
			UserID:         f.UserID,
		})
		e.flash(c, cookie.CategoryInfo, fmt.Sprintf(okMsg, p.Name()))
	}

	return c.Redirect(http.StatusFound, cmp.Or(localReferer(c.Request()), e.cfg.ConnectAllowView))
}
