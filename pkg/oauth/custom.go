package oauth

import (
	"context"
	"errors"
	"net/http"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// NewCustomProvider creates a provider entirely from configuration.
// Profile fields are read from the JSON response at cfg.ProfileURL using the
// gjson paths in cfg.Fields; the id path defaults to "id".
func NewCustomProvider(cfg ProviderConfig, opts ...Option) (*OAuth2Provider, error) {
	if cfg.AuthorizeURL == "" || cfg.AccessTokenURL == "" || cfg.ProfileURL == "" {
		if cfg.ConsumerKey == "" {
			return nil, ErrMissingClientID
		}
		if cfg.ConsumerSecret == "" {
			return nil, ErrMissingClientSecret
		}
		return nil, ErrMissingEndpoint
	}
	if cfg.Fields.ID == "" {
		cfg.Fields.ID = "id"
	}
	return newOAuth2Provider(cfg, customProfileFetcher(cfg.Fields), nil, opts...)
}

func customProfileFetcher(fields FieldMap) profileFunc {
	return func(ctx context.Context, client *http.Client, profileURL string, _ *oauth2.Token) (*Profile, error) {
		body, err := fetchBody(ctx, client, profileURL)
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(body) {
			return nil, errors.Join(ErrDecodeFailed, errors.New("profile response is not valid JSON"))
		}

		get := func(path string) string {
			if path == "" {
				return ""
			}
			return gjson.GetBytes(body, path).String()
		}

		p := &Profile{
			ID:          get(fields.ID),
			DisplayName: get(fields.DisplayName),
			FullName:    get(fields.FullName),
			ProfileURL:  get(fields.ProfileURL),
			ImageURL:    get(fields.ImageURL),
			Email:       get(fields.Email),
		}
		if p.DisplayName == "" {
			p.DisplayName = p.FullName
		}
		return p, nil
	}
}
