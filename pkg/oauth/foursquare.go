package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	foursquareOAuth "golang.org/x/oauth2/foursquare"
)

// FoursquareProviderID is the key of the Foursquare provider.
const FoursquareProviderID = "foursquare"

// foursquareAPIVersion pins the response format of the v2 API.
const foursquareAPIVersion = "20240101"

// FoursquareDefaults returns the bundled Foursquare configuration.
func FoursquareDefaults() ProviderConfig {
	return ProviderConfig{
		ID:             FoursquareProviderID,
		Name:           "Foursquare",
		AuthorizeURL:   foursquareOAuth.Endpoint.AuthURL,
		AccessTokenURL: foursquareOAuth.Endpoint.TokenURL,
		ProfileURL:     "https://api.foursquare.com/v2/users/self",
		AuthStyle:      "params",
	}
}

// NewFoursquareProvider creates the Foursquare provider.
func NewFoursquareProvider(cfg ProviderConfig, opts ...Option) (*OAuth2Provider, error) {
	return newOAuth2Provider(FoursquareDefaults().Merge(cfg), fetchFoursquareProfile, nil, opts...)
}

type foursquareResponse struct {
	Response struct {
		User struct {
			ID        string `json:"id"`
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
			Photo     struct {
				Prefix string `json:"prefix"`
				Suffix string `json:"suffix"`
			} `json:"photo"`
			Contact struct {
				Email string `json:"email"`
			} `json:"contact"`
		} `json:"user"`
	} `json:"response"`
}

// fetchFoursquareProfile authenticates with the oauth_token query parameter
// required by the v2 API.
func fetchFoursquareProfile(ctx context.Context, client *http.Client, profileURL string, token *oauth2.Token) (*Profile, error) {
	u, err := url.Parse(profileURL)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, fmt.Errorf("parse profile url: %w", err))
	}
	q := u.Query()
	q.Set("oauth_token", token.AccessToken)
	if q.Get("v") == "" {
		q.Set("v", foursquareAPIVersion)
	}
	u.RawQuery = q.Encode()

	var resp foursquareResponse
	if err := getJSON(ctx, client, u.String(), &resp); err != nil {
		return nil, err
	}

	user := resp.Response.User
	p := &Profile{
		ID:          user.ID,
		DisplayName: user.ID,
		FullName:    joinName(user.FirstName, user.LastName),
		Email:       user.Contact.Email,
	}
	if user.ID != "" {
		p.ProfileURL = "https://foursquare.com/user/" + user.ID
	}
	if user.Photo.Prefix != "" {
		p.ImageURL = user.Photo.Prefix + "100x100" + user.Photo.Suffix
	}
	return p, nil
}
