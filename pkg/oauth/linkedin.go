package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	linkedinOAuth "golang.org/x/oauth2/linkedin"
)

// LinkedInProviderID is the key of the LinkedIn provider.
const LinkedInProviderID = "linkedin"

// LinkedInDefaults returns the bundled LinkedIn configuration (OpenID Connect userinfo).
func LinkedInDefaults() ProviderConfig {
	return ProviderConfig{
		ID:             LinkedInProviderID,
		Name:           "LinkedIn",
		AuthorizeURL:   linkedinOAuth.Endpoint.AuthURL,
		AccessTokenURL: linkedinOAuth.Endpoint.TokenURL,
		ProfileURL:     "https://api.linkedin.com/v2/userinfo",
		AuthStyle:      "params",
		Scopes:         []string{"openid", "profile", "email"},
	}
}

// NewLinkedInProvider creates the LinkedIn provider.
func NewLinkedInProvider(cfg ProviderConfig, opts ...Option) (*OAuth2Provider, error) {
	return newOAuth2Provider(LinkedInDefaults().Merge(cfg), fetchLinkedInProfile, nil, opts...)
}

type linkedinUserInfo struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func fetchLinkedInProfile(ctx context.Context, client *http.Client, profileURL string, _ *oauth2.Token) (*Profile, error) {
	var info linkedinUserInfo
	if err := getJSON(ctx, client, profileURL, &info); err != nil {
		return nil, err
	}

	p := &Profile{
		ID:          info.Sub,
		DisplayName: info.GivenName,
		FullName:    info.Name,
		ImageURL:    info.Picture,
	}
	if p.FullName == "" {
		p.FullName = joinName(info.GivenName, info.FamilyName)
	}
	if p.DisplayName == "" {
		p.DisplayName = p.FullName
	}
	if info.EmailVerified {
		p.Email = info.Email
	}
	return p, nil
}
