package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/social/pkg/connection"
)

// profileFunc loads the user profile with an authenticated client.
type profileFunc func(ctx context.Context, client *http.Client, profileURL string, token *oauth2.Token) (*Profile, error)

// tokenUserIDFunc extracts the user id embedded in a token response, if any.
type tokenUserIDFunc func(token *oauth2.Token) string

// OAuth2Provider implements Provider on top of golang.org/x/oauth2.
// Bundled providers differ only in their defaults and profile adapter.
type OAuth2Provider struct {
	config      *oauth2.Config
	httpClient  *http.Client
	authParams  map[string]string
	tokenParams map[string]string
	fetch       profileFunc
	tokenUserID tokenUserIDFunc
	id          string
	name        string
	profileURL  string
	pkce        bool
}

func newOAuth2Provider(cfg ProviderConfig, fetch profileFunc, tokenUserID tokenUserIDFunc, opts ...Option) (*OAuth2Provider, error) {
	if cfg.ConsumerKey == "" {
		return nil, ErrMissingClientID
	}
	if cfg.ConsumerSecret == "" {
		return nil, ErrMissingClientSecret
	}
	if cfg.AuthorizeURL == "" || cfg.AccessTokenURL == "" {
		return nil, ErrMissingEndpoint
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return &OAuth2Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ConsumerKey,
			ClientSecret: cfg.ConsumerSecret,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.AccessTokenURL,
				AuthStyle: cfg.authStyle(),
			},
		},
		httpClient:  o.httpClient,
		authParams:  cfg.AuthParams,
		tokenParams: cfg.TokenParams,
		fetch:       fetch,
		tokenUserID: tokenUserID,
		id:          cfg.ID,
		name:        cfg.displayName(),
		profileURL:  cfg.ProfileURL,
		pkce:        cfg.pkce(),
	}, nil
}

func (p *OAuth2Provider) ID() string   { return p.id }
func (p *OAuth2Provider) Name() string { return p.name }
func (p *OAuth2Provider) PKCE() bool   { return p.pkce }

// Scopes returns the requested scopes.
func (p *OAuth2Provider) Scopes() []string {
	return p.config.Scopes
}

// AuthCodeURL builds the authorization URL including configured auth params.
func (p *OAuth2Provider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return p.config.AuthCodeURL(state, append(paramOptions(p.authParams), opts...)...)
}

// Exchange trades an authorization code for a token, sending configured token params.
func (p *OAuth2Provider) Exchange(ctx context.Context, code, redirectURI string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	cfg := *p.config
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
	}
	return cfg.Exchange(p.contextWithHTTPClient(ctx), code, append(paramOptions(p.tokenParams), opts...)...)
}

// ProviderUserID returns the user id from the token response when the provider
// embeds it, otherwise from the profile API. A nil token yields "".
func (p *OAuth2Provider) ProviderUserID(ctx context.Context, token *oauth2.Token) (string, error) {
	if token == nil {
		return "", nil
	}
	if p.tokenUserID != nil {
		if id := p.tokenUserID(token); id != "" {
			return id, nil
		}
	}

	profile, err := p.Profile(ctx, token)
	if err != nil {
		return "", err
	}
	return profile.ID, nil
}

// ConnectionValues fetches the profile and combines it with the token.
// A nil token yields nil.
func (p *OAuth2Provider) ConnectionValues(ctx context.Context, token *oauth2.Token) (*connection.Connection, error) {
	if token == nil {
		return nil, nil
	}

	profile, err := p.Profile(ctx, token)
	if err != nil {
		return nil, err
	}

	pair := p.TokenPair(token)
	return &connection.Connection{
		ProviderID:     p.id,
		ProviderUserID: profile.ID,
		AccessToken:    pair.AccessToken,
		Secret:         pair.Secret,
		RefreshToken:   token.RefreshToken,
		ExpiresAt:      token.Expiry,
		DisplayName:    profile.DisplayName,
		FullName:       profile.FullName,
		ProfileURL:     profile.ProfileURL,
		ImageURL:       profile.ImageURL,
		Email:          profile.Email,
	}, nil
}

// Profile calls the provider profile API.
func (p *OAuth2Provider) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	profile, err := p.fetch(ctx, p.Client(ctx, token), p.profileURL, token)
	if err != nil {
		return nil, err
	}
	if profile.ID == "" && p.tokenUserID != nil {
		profile.ID = p.tokenUserID(token)
	}
	if profile.ID == "" {
		return nil, ErrMissingUserID
	}
	profile.sanitize()
	return profile, nil
}

func (p *OAuth2Provider) TokenPair(token *oauth2.Token) TokenPair {
	return TokenPairOf(token)
}

// Client returns an HTTP client that refreshes token as needed.
func (p *OAuth2Provider) Client(ctx context.Context, token *oauth2.Token) *http.Client {
	return p.config.Client(p.contextWithHTTPClient(ctx), token)
}

func (p *OAuth2Provider) contextWithHTTPClient(ctx context.Context) context.Context {
	if p.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}
	return ctx
}

func paramOptions(params map[string]string) []oauth2.AuthCodeOption {
	opts := make([]oauth2.AuthCodeOption, 0, len(params))
	for k, v := range params {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}
	return opts
}

// fetchBody performs a GET and returns the body of a 2xx response.
func fetchBody(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, fmt.Errorf("fetch %s: %w", req.URL.Path, err))
	}
	if resp == nil {
		return nil, errors.Join(ErrNilResponse, fmt.Errorf("unexpected nil response from %s", req.URL.Host))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Join(ErrRequestFailed, fmt.Errorf("%s: status=%d", req.URL.Path, resp.StatusCode))
	}
	return body, nil
}

// getJSON performs a GET and decodes a 2xx JSON response into dest.
func getJSON(ctx context.Context, client *http.Client, url string, dest any) error {
	body, err := fetchBody(ctx, client, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return errors.Join(ErrDecodeFailed, err)
	}
	return nil
}

// extraString reads a token response field as a string.
// JSON numbers arrive as float64 and are formatted without exponent.
func extraString(token *oauth2.Token, key string) string {
	switch v := token.Extra(key).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// joinName joins non-empty name parts with a space.
func joinName(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
