package oauth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/social/pkg/oauth"
)

var _ oauth.Provider = (*oauth.OAuth2Provider)(nil)

type tokenLog struct {
	mu   sync.Mutex
	form url.Values
}

func (l *tokenLog) last() url.Values {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.form
}

// providerServer serves a token endpoint at /token and the given profile
// handlers, and returns a config pointing at it.
func providerServer(t *testing.T, token map[string]any, routes map[string]http.HandlerFunc) (oauth.ProviderConfig, *tokenLog) {
	t.Helper()

	log := &tokenLog{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		log.mu.Lock()
		log.form = r.PostForm
		log.mu.Unlock()
		if r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(token)
	})
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return oauth.ProviderConfig{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		AuthorizeURL:   srv.URL + "/authorize",
		AccessTokenURL: srv.URL + "/token",
		ProfileURL:     srv.URL + "/me",
	}, log
}

func jsonHandler(t *testing.T, body any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" && r.URL.Query().Get("oauth_token") != "at-1" && r.URL.Query().Get("access_token") != "at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}
}

func bearerToken() map[string]any {
	return map[string]any{
		"access_token":  "at-1",
		"token_type":    "Bearer",
		"refresh_token": "rt-1",
		"expires_in":    3600,
	}
}

func TestOAuth2Provider_Validation(t *testing.T) {
	t.Parallel()

	t.Run("missing consumer key", func(t *testing.T) {
		t.Parallel()
		p, err := oauth.NewGitHubProvider(oauth.ProviderConfig{ConsumerSecret: "s"})
		require.ErrorIs(t, err, oauth.ErrMissingClientID)
		require.Nil(t, p)
	})

	t.Run("missing consumer secret", func(t *testing.T) {
		t.Parallel()
		p, err := oauth.NewGoogleProvider(oauth.ProviderConfig{ConsumerKey: "k"})
		require.ErrorIs(t, err, oauth.ErrMissingClientSecret)
		require.Nil(t, p)
	})

	t.Run("defaults applied", func(t *testing.T) {
		t.Parallel()
		p, err := oauth.NewGitHubProvider(oauth.ProviderConfig{ConsumerKey: "k", ConsumerSecret: "s"})
		require.NoError(t, err)
		require.Equal(t, "github", p.ID())
		require.Equal(t, "GitHub", p.Name())
		require.False(t, p.PKCE())
		require.Equal(t, []string{"read:user", "user:email"}, p.Scopes())
	})

	t.Run("twitter requires pkce", func(t *testing.T) {
		t.Parallel()
		p, err := oauth.NewTwitterProvider(oauth.ProviderConfig{ConsumerKey: "k", ConsumerSecret: "s"})
		require.NoError(t, err)
		require.True(t, p.PKCE())
	})

	t.Run("pkce can be turned off", func(t *testing.T) {
		t.Parallel()
		p, err := oauth.NewTwitterProvider(oauth.ProviderConfig{
			ConsumerKey:    "k",
			ConsumerSecret: "s",
			PKCE:           oauth.Bool(false),
		})
		require.NoError(t, err)
		require.False(t, p.PKCE())
	})
}

func TestOAuth2Provider_AuthCodeURL(t *testing.T) {
	t.Parallel()

	p, err := oauth.NewTwitterProvider(oauth.ProviderConfig{
		ConsumerKey:    "k",
		ConsumerSecret: "s",
		AuthParams:     map[string]string{"force_login": "true"},
	})
	require.NoError(t, err)

	raw := p.AuthCodeURL("st-1", oauth2.SetAuthURLParam("redirect_uri", "https://app.test/cb"))
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	require.Equal(t, "st-1", q.Get("state"))
	require.Equal(t, "k", q.Get("client_id"))
	require.Equal(t, "true", q.Get("force_login"))
	require.Equal(t, "https://app.test/cb", q.Get("redirect_uri"))
	require.Contains(t, q.Get("scope"), "users.read")
}

func TestOAuth2Provider_Exchange(t *testing.T) {
	t.Parallel()

	t.Run("successful exchange sends token params", func(t *testing.T) {
		t.Parallel()

		cfg, log := providerServer(t, bearerToken(), nil)
		cfg.TokenParams = map[string]string{"audience": "api"}
		cfg.AuthStyle = "params"

		p, err := oauth.NewGitHubProvider(cfg)
		require.NoError(t, err)

		tok, err := p.Exchange(context.Background(), "good-code", "https://app.test/cb")
		require.NoError(t, err)
		require.Equal(t, "at-1", tok.AccessToken)
		require.Equal(t, "rt-1", tok.RefreshToken)
		require.False(t, tok.Expiry.IsZero())
		require.Equal(t, "https://app.test/cb", log.last().Get("redirect_uri"))
		require.Equal(t, "api", log.last().Get("audience"))
		require.Equal(t, "key", log.last().Get("client_id"))
	})

	t.Run("rejected code", func(t *testing.T) {
		t.Parallel()
		cfg, _ := providerServer(t, bearerToken(), nil)
		p, err := oauth.NewGitHubProvider(cfg)
		require.NoError(t, err)

		tok, err := p.Exchange(context.Background(), "bad-code", "")
		require.Error(t, err)
		require.Nil(t, tok)
	})
}

func TestOAuth2Provider_NilToken(t *testing.T) {
	t.Parallel()

	p, err := oauth.NewGoogleProvider(oauth.ProviderConfig{ConsumerKey: "k", ConsumerSecret: "s"})
	require.NoError(t, err)

	id, err := p.ProviderUserID(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, id)

	values, err := p.ConnectionValues(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, values)

	require.Equal(t, oauth.TokenPair{}, p.TokenPair(nil))
}

func TestTokenPairOf(t *testing.T) {
	t.Parallel()

	tok := (&oauth2.Token{AccessToken: "at"}).WithExtra(map[string]any{"oauth_token_secret": "sec"})
	require.Equal(t, oauth.TokenPair{AccessToken: "at", Secret: "sec"}, oauth.TokenPairOf(tok))
	require.Equal(t, oauth.TokenPair{AccessToken: "at"}, oauth.TokenPairOf(&oauth2.Token{AccessToken: "at"}))
}
