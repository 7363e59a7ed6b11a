package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/social/pkg/connection"
)

// Provider is one configured identity provider.
//
// Adapter methods accept a nil token, which stands for a denied
// authorization, and return zero values without an error in that case.
type Provider interface {
	// ID returns the provider key, e.g. "twitter".
	ID() string

	// Name returns the human readable provider name, e.g. "Twitter".
	Name() string

	// PKCE reports whether the authorization request must carry a PKCE challenge.
	PKCE() bool

	// AuthCodeURL builds the authorization URL.
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code, redirectURI string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)

	// ProviderUserID resolves the provider-side user id, calling the provider API when needed.
	ProviderUserID(ctx context.Context, token *oauth2.Token) (string, error)

	// ConnectionValues builds the fields of a new connection. UserID is left empty.
	ConnectionValues(ctx context.Context, token *oauth2.Token) (*connection.Connection, error)

	// TokenPair extracts the stored credential pair.
	TokenPair(token *oauth2.Token) TokenPair

	// Client returns an HTTP client that authenticates provider API calls with token.
	Client(ctx context.Context, token *oauth2.Token) *http.Client
}

// Profile is the normalized user profile returned by a provider API.
type Profile struct {
	ID          string
	DisplayName string
	FullName    string
	ProfileURL  string
	ImageURL    string
	Email       string
}

// TokenPair is the credential pair compared on login to detect a token refresh.
type TokenPair struct {
	AccessToken string
	Secret      string
}

// TokenPairOf returns the credential pair carried by token.
// The secret is read from the "oauth_token_secret" extra when present.
func TokenPairOf(token *oauth2.Token) TokenPair {
	if token == nil {
		return TokenPair{}
	}
	return TokenPair{
		AccessToken: token.AccessToken,
		Secret:      extraString(token, "oauth_token_secret"),
	}
}
