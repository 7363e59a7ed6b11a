package oauth_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/social/pkg/oauth"
)

func exchangeAndFetch(t *testing.T, p oauth.Provider) (string, *oauth.Profile) {
	t.Helper()

	ctx := context.Background()
	tok, err := p.Exchange(ctx, "good-code", "https://app.test/cb")
	require.NoError(t, err)

	id, err := p.ProviderUserID(ctx, tok)
	require.NoError(t, err)

	values, err := p.ConnectionValues(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, p.ID(), values.ProviderID)
	require.Equal(t, id, values.ProviderUserID)
	require.Equal(t, tok.AccessToken, values.AccessToken)
	require.Empty(t, values.UserID)

	return id, &oauth.Profile{
		ID:          values.ProviderUserID,
		DisplayName: values.DisplayName,
		FullName:    values.FullName,
		ProfileURL:  values.ProfileURL,
		ImageURL:    values.ImageURL,
		Email:       values.Email,
	}
}

func TestTwitterProvider(t *testing.T) {
	t.Parallel()

	cfg, _ := providerServer(t, bearerToken(), map[string]http.HandlerFunc{
		"/me": jsonHandler(t, map[string]any{
			"data": map[string]any{
				"id":                "2244994945",
				"name":              "Jane Doe",
				"username":          "jane",
				"profile_image_url": "https://pbs.twimg.com/jane.png",
			},
		}),
	})
	p, err := oauth.NewTwitterProvider(cfg, oauth.WithHTTPClient(http.DefaultClient))
	require.NoError(t, err)

	id, profile := exchangeAndFetch(t, p)
	require.Equal(t, "2244994945", id)
	require.Equal(t, "@jane", profile.DisplayName)
	require.Equal(t, "Jane Doe", profile.FullName)
	require.Equal(t, "https://twitter.com/jane", profile.ProfileURL)
	require.Equal(t, "https://pbs.twimg.com/jane.png", profile.ImageURL)
}

func TestFacebookProvider(t *testing.T) {
	t.Parallel()

	cfg, _ := providerServer(t, bearerToken(), map[string]http.HandlerFunc{
		"/me": jsonHandler(t, map[string]any{
			"id":    "10001",
			"name":  "Jane Doe",
			"email": "jane@example.com",
		}),
	})
	p, err := oauth.NewFacebookProvider(cfg)
	require.NoError(t, err)

	id, profile := exchangeAndFetch(t, p)
	require.Equal(t, "10001", id)
	require.Equal(t, "Jane Doe", profile.FullName)
	require.Equal(t, "https://facebook.com/profile.php?id=10001", profile.ProfileURL)
	require.Equal(t, "https://graph.facebook.com/10001/picture", profile.ImageURL)
}

func TestGoogleProvider(t *testing.T) {
	t.Parallel()

	t.Run("verified email", func(t *testing.T) {
		t.Parallel()
		cfg, _ := providerServer(t, bearerToken(), map[string]http.HandlerFunc{
			"/me": jsonHandler(t, map[string]any{
				"id":             "g-1",
				"email":          "jane@example.com",
				"verified_email": true,
				"name":           "Jane Doe",
				"given_name":     "Jane",
				"picture":        "https://lh3.example/jane.png",
			}),
		})
		p, err := oauth.NewGoogleProvider(cfg)
		require.NoError(t, err)

		id, profile := exchangeAndFetch(t, p)
		require.Equal(t, "g-1", id)
		require.Equal(t, "jane@example.com", profile.Email)
		require.Equal(t, "Jane Doe", profile.FullName)
	})

	t.Run("unverified email dropped", func(t *testing.T) {
		t.Parallel()
		cfg, _ := providerServer(t, bearerToken(), map[string]http.HandlerFunc{
			"/me": jsonHandler(t, map[string]any{
				"id":             "g-2",
				"email":          "jane@example.com",
				"verified_email": false,
			}),
		})
		p, err := oauth.NewGoogleProvider(cfg)
		require.NoError(t, err)

		_, profile := exchangeAndFetch(t, p)
		require.Empty(t, profile.Email)
	})
}

func TestGitHubProvider(t *testing.T) {
	t.Parallel()

	user := map[string]any{
		"id":         583231,
		"login":      "octocat",
		"name":       "The Octocat",
		"html_url":   "https://github.com/octocat",
		"avatar_url": "https://avatars.githubusercontent.com/u/583231",
	}

	t.Run("primary verified email", func(t *testing.T) {
		t.Parallel()
		cfg, _ := providerServer(t, bearerToken(), map[string]http.HandlerFunc{
			"/me": jsonHandler(t, user),
			"/me/emails": jsonHandler(t, []map[string]any{
				{"email": "old@example.com", "primary": false, "verified": true},
				{"email": "octo@example.com", "primary": true, "verified": true},
			}),
		})
		p, err := oauth.NewGitHubProvider(cfg)
		require.NoError(t, err)

		id, profile := exchangeAndFetch(t, p)
		require.Equal(t, "583231", id)
		require.Equal(t, "octocat", profile.DisplayName)
		require.Equal(t, "octo@example.com", profile.Email)
		require.Equal(t, "https://github.com/octocat", profile.ProfileURL)
	})

	t.Run("emails forbidden", func(t *testing.T) {
		t.Parallel()
		cfg, _ := providerServer(t, bearerToken(), map[string]http.HandlerFunc{
			"/me": jsonHandler(t, user),
			"/me/emails": func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
		})
		p, err := oauth.NewGitHubProvider(cfg)
		require.NoError(t, err)

		_, profile := exchangeAndFetch(t, p)
		require.Empty(t, profile.Email)
	})

	t.Run("profile error", func(t *testing.T) {
		t.Parallel()
		cfg, _ := providerServer(t, bearerToken(), map[string]http.HandlerFunc{
			"/me": func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		})
		p, err := oauth.NewGitHubProvider(cfg)
		require.NoError(t, err)

		tok, err := p.Exchange(context.Background(), "good-code", "")
		require.NoError(t, err)
		_, err = p.ConnectionValues(context.Background(), tok)
		require.ErrorIs(t, err, oauth.ErrRequestFailed)
	})
}

func TestLinkedInProvider(t *testing.T) {
	t.Parallel()

	cfg, _ := providerServer(t, bearerToken(), map[string]http.HandlerFunc{
		"/me": jsonHandler(t, map[string]any{
			"sub":            "li-9",
			"name":           "Jane Doe",
			"given_name":     "Jane",
			"picture":        "https://media.licdn.com/jane.png",
			"email":          "jane@example.com",
			"email_verified": true,
		}),
	})
	p, err := oauth.NewLinkedInProvider(cfg)
	require.NoError(t, err)

	id, profile := exchangeAndFetch(t, p)
	require.Equal(t, "li-9", id)
	require.Equal(t, "Jane", profile.DisplayName)
	require.Equal(t, "jane@example.com", profile.Email)
}

func TestFoursquareProvider(t *testing.T) {
	t.Parallel()

	cfg, _ := providerServer(t, bearerToken(), map[string]http.HandlerFunc{
		"/me": func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "at-1", r.URL.Query().Get("oauth_token"))
			require.NotEmpty(t, r.URL.Query().Get("v"))
			jsonHandler(t, map[string]any{
				"response": map[string]any{
					"user": map[string]any{
						"id":        "fs-7",
						"firstName": "Jane",
						"lastName":  "Doe",
						"photo":     map[string]any{"prefix": "https://img.4sq.com/", "suffix": "/jane.jpg"},
					},
				},
			})(w, r)
		},
	})
	p, err := oauth.NewFoursquareProvider(cfg)
	require.NoError(t, err)

	id, profile := exchangeAndFetch(t, p)
	require.Equal(t, "fs-7", id)
	require.Equal(t, "Jane Doe", profile.FullName)
	require.Equal(t, "https://foursquare.com/user/fs-7", profile.ProfileURL)
	require.Equal(t, "https://img.4sq.com/100x100/jane.jpg", profile.ImageURL)
}

func TestVKProvider(t *testing.T) {
	t.Parallel()

	token := bearerToken()
	token["user_id"] = 42
	token["email"] = "jane@example.com"

	t.Run("user id from token", func(t *testing.T) {
		t.Parallel()
		var profileCalls int
		cfg, _ := providerServer(t, token, map[string]http.HandlerFunc{
			"/me": func(w http.ResponseWriter, r *http.Request) {
				profileCalls++
				require.Equal(t, "42", r.URL.Query().Get("user_ids"))
				jsonHandler(t, map[string]any{
					"response": []map[string]any{
						{"id": 42, "first_name": "Jane", "last_name": "Doe", "screen_name": "jane", "photo_100": "https://vk.test/jane.jpg"},
					},
				})(w, r)
			},
		})
		p, err := oauth.NewVKProvider(cfg)
		require.NoError(t, err)

		tok, err := p.Exchange(context.Background(), "good-code", "")
		require.NoError(t, err)

		id, err := p.ProviderUserID(context.Background(), tok)
		require.NoError(t, err)
		require.Equal(t, "42", id)
		require.Zero(t, profileCalls)

		values, err := p.ConnectionValues(context.Background(), tok)
		require.NoError(t, err)
		require.Equal(t, "42", values.ProviderUserID)
		require.Equal(t, "jane", values.DisplayName)
		require.Equal(t, "jane@example.com", values.Email)
		require.Equal(t, "https://vk.com/id42", values.ProfileURL)
	})

	t.Run("api error", func(t *testing.T) {
		t.Parallel()
		cfg, _ := providerServer(t, token, map[string]http.HandlerFunc{
			"/me": jsonHandler(t, map[string]any{
				"error": map[string]any{"error_code": 5, "error_msg": "User authorization failed"},
			}),
		})
		p, err := oauth.NewVKProvider(cfg)
		require.NoError(t, err)

		tok, err := p.Exchange(context.Background(), "good-code", "")
		require.NoError(t, err)
		_, err = p.ConnectionValues(context.Background(), tok)
		require.ErrorIs(t, err, oauth.ErrRequestFailed)
	})
}

func TestCustomProvider(t *testing.T) {
	t.Parallel()

	t.Run("field mapping", func(t *testing.T) {
		t.Parallel()
		cfg, _ := providerServer(t, bearerToken(), map[string]http.HandlerFunc{
			"/me": jsonHandler(t, map[string]any{
				"user": map[string]any{
					"uid":    "c-1",
					"login":  "jane",
					"avatar": "https://git.example.com/jane.png",
				},
			}),
		})
		cfg.ID = "gitea"
		cfg.Fields = oauth.FieldMap{ID: "user.uid", DisplayName: "user.login", ImageURL: "user.avatar"}

		p, err := oauth.NewCustomProvider(cfg)
		require.NoError(t, err)
		require.Equal(t, "Gitea", p.Name())

		id, profile := exchangeAndFetch(t, p)
		require.Equal(t, "c-1", id)
		require.Equal(t, "jane", profile.DisplayName)
		require.Equal(t, "https://git.example.com/jane.png", profile.ImageURL)
	})

	t.Run("missing id", func(t *testing.T) {
		t.Parallel()
		cfg, _ := providerServer(t, bearerToken(), map[string]http.HandlerFunc{
			"/me": jsonHandler(t, map[string]any{"login": "jane"}),
		})
		cfg.ID = "gitea"

		p, err := oauth.NewCustomProvider(cfg)
		require.NoError(t, err)

		tok, err := p.Exchange(context.Background(), "good-code", "")
		require.NoError(t, err)
		_, err = p.ProviderUserID(context.Background(), tok)
		require.ErrorIs(t, err, oauth.ErrMissingUserID)
	})

	t.Run("missing endpoint", func(t *testing.T) {
		t.Parallel()
		_, err := oauth.NewCustomProvider(oauth.ProviderConfig{
			ID:             "gitea",
			ConsumerKey:    "k",
			ConsumerSecret: "s",
			AuthorizeURL:   "https://git.example.com/authorize",
		})
		require.ErrorIs(t, err, oauth.ErrMissingEndpoint)
	})
}

func TestProfile_StripsMarkup(t *testing.T) {
	t.Parallel()

	cfg, _ := providerServer(t, bearerToken(), map[string]http.HandlerFunc{
		"/me": jsonHandler(t, map[string]any{
			"uid":     "c-1",
			"login":   "<script>alert(1)</script>jane",
			"name":    "<b>Jane</b> & Co",
			"email":   "<img src=x onerror=alert(1)>jane@example.com",
			"html":    "javascript:alert(1)",
			"avatar":  "https://git.example.com/jane.png",
		}),
	})
	cfg.ID = "gitea"
	cfg.Fields = oauth.FieldMap{
		ID:          "uid",
		DisplayName: "login",
		FullName:    "name",
		Email:       "email",
		ProfileURL:  "html",
		ImageURL:    "avatar",
	}

	p, err := oauth.NewCustomProvider(cfg)
	require.NoError(t, err)

	id, profile := exchangeAndFetch(t, p)
	require.Equal(t, "c-1", id)
	require.Equal(t, "jane", profile.DisplayName)
	require.Equal(t, "Jane & Co", profile.FullName)
	require.Equal(t, "jane@example.com", profile.Email)
	require.Empty(t, profile.ProfileURL)
	require.Equal(t, "https://git.example.com/jane.png", profile.ImageURL)
}
