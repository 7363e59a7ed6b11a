package internal

import (
	"crypto/rand"
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/social/pkg/oauth"
)

// Session keys of the per-provider authorization markers.
const (
	stateKeyPrefix    = "social_oauth_state:"
	verifierKeyPrefix = "social_oauth_verifier:"
)

// authorize stores a fresh state (and PKCE verifier) in the session and
// returns the provider authorization URL.
func authorize(c Context, p oauth.Provider, redirectURI string) (string, error) {
	sess, err := c.EnsureSession()
	if err != nil {
		return "", err
	}

	state := rand.Text()
	sess.SetValue(stateKeyPrefix+p.ID(), state)

	opts := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("redirect_uri", redirectURI)}
	if p.PKCE() {
		verifier := oauth2.GenerateVerifier()
		sess.SetValue(verifierKeyPrefix+p.ID(), verifier)
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	return p.AuthCodeURL(state, opts...), nil
}

// popMarkers removes the authorization markers of p and checks state against
// the stored value. It returns the exchange options carrying the PKCE verifier.
func popMarkers(c Context, p oauth.Provider, state string) ([]oauth2.AuthCodeOption, error) {
	sess, err := c.Session()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrStateMismatch
	}

	stored, _ := sess.PopString(stateKeyPrefix + p.ID())
	verifier, _ := sess.PopString(verifierKeyPrefix + p.ID())
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(state)) != 1 {
		return nil, ErrStateMismatch
	}

	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	return opts, nil
}

// rememberNext stores a local redirect target under key.
func rememberNext(c Context, key, next string) error {
	sess, err := c.EnsureSession()
	if err != nil {
		return err
	}
	sess.SetValue(key, next)
	return nil
}

// popNext removes and returns the redirect target stored under key, or def.
func popNext(c Context, key, def string) string {
	sess, err := c.Session()
	if err != nil || sess == nil {
		return def
	}
	if next, ok := sess.PopString(key); ok {
		if local := localPath(next); local != "" {
			return local
		}
	}
	return def
}

// localPath returns p when it is a path on this site, "" otherwise.
// Scheme-relative ("//evil") and backslash tricks are rejected.
func localPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return ""
	}
	u, err := url.Parse(p)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return p
}

// localReferer returns the Referer path when it points at the request host.
func localReferer(r *http.Request) string {
	ref := r.Referer()
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.Host != "" && !strings.EqualFold(u.Host, r.Host) {
		return ""
	}
	return localPath(u.RequestURI())
}

// nextParam reads "next" from the form or the query string.
func nextParam(c Context, def string) string {
	if next := localPath(c.Form("next")); next != "" {
		return next
	}
	return def
}

// baseURL returns the configured application URL or one derived from r.
func baseURL(cfg Config, r *http.Request) string {
	if cfg.AppURL != "" {
		return cfg.AppURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
