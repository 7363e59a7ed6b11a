package oauth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	githubOAuth "golang.org/x/oauth2/github"
)

// GitHubProviderID is the key of the GitHub provider.
const GitHubProviderID = "github"

// GitHubDefaults returns the bundled GitHub configuration.
func GitHubDefaults() ProviderConfig {
	return ProviderConfig{
		ID:             GitHubProviderID,
		Name:           "GitHub",
		AuthorizeURL:   githubOAuth.Endpoint.AuthURL,
		AccessTokenURL: githubOAuth.Endpoint.TokenURL,
		ProfileURL:     "https://api.github.com/user",
		Scopes:         []string{"read:user", "user:email"},
	}
}

// NewGitHubProvider creates the GitHub provider.
// The emails endpoint is derived from the profile URL by appending "/emails".
func NewGitHubProvider(cfg ProviderConfig, opts ...Option) (*OAuth2Provider, error) {
	return newOAuth2Provider(GitHubDefaults().Merge(cfg), fetchGitHubProfile, nil, opts...)
}

type githubUser struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
	Email     string `json:"email"`
	ID        int64  `json:"id"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func fetchGitHubProfile(ctx context.Context, client *http.Client, profileURL string, _ *oauth2.Token) (*Profile, error) {
	var u githubUser
	if err := getJSON(ctx, client, profileURL, &u); err != nil {
		return nil, err
	}

	p := &Profile{
		DisplayName: u.Login,
		FullName:    u.Name,
		ProfileURL:  u.HTMLURL,
		ImageURL:    u.AvatarURL,
	}
	if u.ID != 0 {
		p.ID = strconv.FormatInt(u.ID, 10)
	}

	// The emails endpoint needs the user:email scope; a missing scope
	// leaves the connection without an email rather than failing it.
	email, err := fetchGitHubEmail(ctx, client, strings.TrimSuffix(profileURL, "/")+"/emails")
	switch {
	case err == nil:
		p.Email = email
	case errors.Is(err, ErrRequestFailed):
	default:
		return nil, err
	}
	return p, nil
}

// fetchGitHubEmail returns the primary verified address, falling back to any verified one.
func fetchGitHubEmail(ctx context.Context, client *http.Client, url string) (string, error) {
	var emails []githubEmail
	if err := getJSON(ctx, client, url, &emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}
