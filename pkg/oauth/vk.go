package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	vkOAuth "golang.org/x/oauth2/vk"
)

// VKProviderID is the key of the VK provider.
const VKProviderID = "vk"

const vkAPIVersion = "5.131"

// VKDefaults returns the bundled VK configuration.
func VKDefaults() ProviderConfig {
	return ProviderConfig{
		ID:             VKProviderID,
		Name:           "VK",
		AuthorizeURL:   vkOAuth.Endpoint.AuthURL,
		AccessTokenURL: vkOAuth.Endpoint.TokenURL,
		ProfileURL:     "https://api.vk.com/method/users.get",
		AuthStyle:      "params",
		Scopes:         []string{"email"},
	}
}

// NewVKProvider creates the VK provider.
// VK embeds the user id in the token response, so resolving the user id
// needs no API call.
func NewVKProvider(cfg ProviderConfig, opts ...Option) (*OAuth2Provider, error) {
	return newOAuth2Provider(VKDefaults().Merge(cfg), fetchVKProfile, vkTokenUserID, opts...)
}

func vkTokenUserID(token *oauth2.Token) string {
	return extraString(token, "user_id")
}

type vkResponse struct {
	Error *struct {
		Code    int    `json:"error_code"`
		Message string `json:"error_msg"`
	} `json:"error"`
	Response []struct {
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
		ScreenName string `json:"screen_name"`
		Photo      string `json:"photo_100"`
		ID         int64  `json:"id"`
	} `json:"response"`
}

func fetchVKProfile(ctx context.Context, client *http.Client, profileURL string, token *oauth2.Token) (*Profile, error) {
	u, err := url.Parse(profileURL)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, fmt.Errorf("parse profile url: %w", err))
	}
	q := u.Query()
	q.Set("fields", "photo_100,screen_name")
	q.Set("access_token", token.AccessToken)
	q.Set("v", vkAPIVersion)
	if id := vkTokenUserID(token); id != "" {
		q.Set("user_ids", id)
	}
	u.RawQuery = q.Encode()

	var resp vkResponse
	if err := getJSON(ctx, client, u.String(), &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, errors.Join(ErrRequestFailed, fmt.Errorf("vk api error %d: %s", resp.Error.Code, resp.Error.Message))
	}
	if len(resp.Response) == 0 {
		return nil, ErrMissingUserID
	}

	user := resp.Response[0]
	p := &Profile{
		ID:          fmt.Sprintf("%d", user.ID),
		DisplayName: user.ScreenName,
		FullName:    joinName(user.FirstName, user.LastName),
		ImageURL:    user.Photo,
		Email:       extraString(token, "email"),
	}
	if user.ID == 0 {
		p.ID = ""
	}
	if p.DisplayName == "" {
		p.DisplayName = p.FullName
	}
	if p.ID != "" {
		p.ProfileURL = "https://vk.com/id" + p.ID
	}
	return p, nil
}
