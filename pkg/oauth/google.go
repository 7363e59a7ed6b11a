package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
)

// GoogleProviderID is the key of the Google provider.
const GoogleProviderID = "google"

// GoogleDefaults returns the bundled Google configuration.
func GoogleDefaults() ProviderConfig {
	return ProviderConfig{
		ID:             GoogleProviderID,
		Name:           "Google",
		AuthorizeURL:   googleOAuth.Endpoint.AuthURL,
		AccessTokenURL: googleOAuth.Endpoint.TokenURL,
		ProfileURL:     "https://www.googleapis.com/oauth2/v2/userinfo",
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
	}
}

// NewGoogleProvider creates the Google provider.
func NewGoogleProvider(cfg ProviderConfig, opts ...Option) (*OAuth2Provider, error) {
	return newOAuth2Provider(GoogleDefaults().Merge(cfg), fetchGoogleProfile, nil, opts...)
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	Picture       string `json:"picture"`
	Link          string `json:"link"`
	VerifiedEmail bool   `json:"verified_email"`
}

func fetchGoogleProfile(ctx context.Context, client *http.Client, profileURL string, _ *oauth2.Token) (*Profile, error) {
	var info googleUserInfo
	if err := getJSON(ctx, client, profileURL, &info); err != nil {
		return nil, err
	}

	p := &Profile{
		ID:          info.ID,
		DisplayName: info.Name,
		FullName:    info.Name,
		ProfileURL:  info.Link,
		ImageURL:    info.Picture,
	}
	// Unverified addresses are not trusted for account linking.
	if info.VerifiedEmail {
		p.Email = info.Email
	}
	return p, nil
}
