package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	facebookOAuth "golang.org/x/oauth2/facebook"
)

// FacebookProviderID is the key of the Facebook provider.
const FacebookProviderID = "facebook"

// FacebookDefaults returns the bundled Facebook configuration.
func FacebookDefaults() ProviderConfig {
	return ProviderConfig{
		ID:             FacebookProviderID,
		Name:           "Facebook",
		AuthorizeURL:   facebookOAuth.Endpoint.AuthURL,
		AccessTokenURL: facebookOAuth.Endpoint.TokenURL,
		ProfileURL:     "https://graph.facebook.com/me?fields=id,name,short_name,email",
		Scopes:         []string{"email", "public_profile"},
	}
}

// NewFacebookProvider creates the Facebook provider.
func NewFacebookProvider(cfg ProviderConfig, opts ...Option) (*OAuth2Provider, error) {
	return newOAuth2Provider(FacebookDefaults().Merge(cfg), fetchFacebookProfile, nil, opts...)
}

type facebookUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Email     string `json:"email"`
}

func fetchFacebookProfile(ctx context.Context, client *http.Client, profileURL string, _ *oauth2.Token) (*Profile, error) {
	var u facebookUser
	if err := getJSON(ctx, client, profileURL, &u); err != nil {
		return nil, err
	}

	p := &Profile{
		ID:          u.ID,
		DisplayName: u.ShortName,
		FullName:    u.Name,
		Email:       u.Email,
	}
	if p.DisplayName == "" {
		p.DisplayName = u.Name
	}
	if u.ID != "" {
		p.ProfileURL = "https://facebook.com/profile.php?id=" + u.ID
		p.ImageURL = "https://graph.facebook.com/" + u.ID + "/picture"
	}
	return p, nil
}
