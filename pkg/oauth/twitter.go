package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// TwitterProviderID is the key of the Twitter (X) provider.
const TwitterProviderID = "twitter"

// TwitterDefaults returns the bundled Twitter configuration.
// Twitter requires PKCE and client credentials in the Authorization header.
func TwitterDefaults() ProviderConfig {
	return ProviderConfig{
		ID:             TwitterProviderID,
		Name:           "Twitter",
		AuthorizeURL:   "https://twitter.com/i/oauth2/authorize",
		AccessTokenURL: "https://api.twitter.com/2/oauth2/token",
		ProfileURL:     "https://api.twitter.com/2/users/me?user.fields=profile_image_url,name,username",
		AuthStyle:      "header",
		Scopes:         []string{"tweet.read", "users.read", "offline.access"},
		PKCE:           Bool(true),
	}
}

// NewTwitterProvider creates the Twitter provider.
func NewTwitterProvider(cfg ProviderConfig, opts ...Option) (*OAuth2Provider, error) {
	return newOAuth2Provider(TwitterDefaults().Merge(cfg), fetchTwitterProfile, nil, opts...)
}

type twitterUser struct {
	Data struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image_url"`
	} `json:"data"`
}

func fetchTwitterProfile(ctx context.Context, client *http.Client, profileURL string, _ *oauth2.Token) (*Profile, error) {
	var u twitterUser
	if err := getJSON(ctx, client, profileURL, &u); err != nil {
		return nil, err
	}

	p := &Profile{
		ID:       u.Data.ID,
		FullName: u.Data.Name,
		ImageURL: u.Data.ProfileImageURL,
	}
	if u.Data.Username != "" {
		p.DisplayName = "@" + u.Data.Username
		p.ProfileURL = "https://twitter.com/" + u.Data.Username
	}
	return p, nil
}
