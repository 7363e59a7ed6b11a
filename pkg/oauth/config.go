package oauth

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"golang.org/x/oauth2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ProviderConfig configures one provider.
// Bundled providers fill unset fields from their defaults.
type ProviderConfig struct {
	ID             string            `yaml:"-"`
	Name           string            `yaml:"name" env:"NAME"`
	ConsumerKey    string            `yaml:"consumer_key" env:"CONSUMER_KEY"`
	ConsumerSecret string            `yaml:"consumer_secret" env:"CONSUMER_SECRET"`
	AuthorizeURL   string            `yaml:"authorize_url" env:"AUTHORIZE_URL"`
	AccessTokenURL string            `yaml:"access_token_url" env:"ACCESS_TOKEN_URL"`
	ProfileURL     string            `yaml:"profile_url" env:"PROFILE_URL"`
	AuthStyle      string            `yaml:"auth_style" env:"AUTH_STYLE"` // "header", "params" or empty for auto-detection
	Scopes         []string          `yaml:"scopes" env:"SCOPES" envSeparator:","`
	AuthParams     map[string]string `yaml:"auth_params" env:"AUTH_PARAMS"`
	TokenParams    map[string]string `yaml:"token_params" env:"TOKEN_PARAMS"`
	Fields         FieldMap          `yaml:"fields" envPrefix:"FIELD_"`
	PKCE           *bool             `yaml:"pkce" env:"PKCE"` // nil keeps the provider default
}

// Bool returns a pointer to v, for setting ProviderConfig.PKCE.
func Bool(v bool) *bool { return &v }

// FieldMap holds gjson paths into a custom provider's profile response.
type FieldMap struct {
	ID          string `yaml:"id" env:"ID"`
	DisplayName string `yaml:"display_name" env:"DISPLAY_NAME"`
	FullName    string `yaml:"full_name" env:"FULL_NAME"`
	ProfileURL  string `yaml:"profile_url" env:"PROFILE_URL"`
	ImageURL    string `yaml:"image_url" env:"IMAGE_URL"`
	Email       string `yaml:"email" env:"EMAIL"`
}

// Merge returns c overridden by o. Non-empty scalars in o win, Scopes are
// replaced when o sets any, and parameter maps are merged key by key so
// keys only present in c survive.
func (c ProviderConfig) Merge(o ProviderConfig) ProviderConfig {
	out := c
	out.ID = pick(c.ID, o.ID)
	out.Name = pick(c.Name, o.Name)
	out.ConsumerKey = pick(c.ConsumerKey, o.ConsumerKey)
	out.ConsumerSecret = pick(c.ConsumerSecret, o.ConsumerSecret)
	out.AuthorizeURL = pick(c.AuthorizeURL, o.AuthorizeURL)
	out.AccessTokenURL = pick(c.AccessTokenURL, o.AccessTokenURL)
	out.ProfileURL = pick(c.ProfileURL, o.ProfileURL)
	out.AuthStyle = pick(c.AuthStyle, o.AuthStyle)
	out.Scopes = slices.Clone(c.Scopes)
	if len(o.Scopes) > 0 {
		out.Scopes = slices.Clone(o.Scopes)
	}
	out.AuthParams = mergeParams(c.AuthParams, o.AuthParams)
	out.TokenParams = mergeParams(c.TokenParams, o.TokenParams)
	out.Fields = FieldMap{
		ID:          pick(c.Fields.ID, o.Fields.ID),
		DisplayName: pick(c.Fields.DisplayName, o.Fields.DisplayName),
		FullName:    pick(c.Fields.FullName, o.Fields.FullName),
		ProfileURL:  pick(c.Fields.ProfileURL, o.Fields.ProfileURL),
		ImageURL:    pick(c.Fields.ImageURL, o.Fields.ImageURL),
		Email:       pick(c.Fields.Email, o.Fields.Email),
	}
	if o.PKCE != nil {
		out.PKCE = Bool(*o.PKCE)
	}
	return out
}

func pick(base, override string) string {
	if override != "" {
		return override
	}
	return base
}

func mergeParams(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	maps.Copy(out, base)
	maps.Copy(out, override)
	return out
}

func (c ProviderConfig) authStyle() oauth2.AuthStyle {
	switch strings.ToLower(c.AuthStyle) {
	case "header":
		return oauth2.AuthStyleInHeader
	case "params":
		return oauth2.AuthStyleInParams
	default:
		return oauth2.AuthStyleAutoDetect
	}
}

func (c ProviderConfig) pkce() bool {
	return c.PKCE != nil && *c.PKCE
}

func (c ProviderConfig) displayName() string {
	if c.Name != "" {
		return c.Name
	}
	return cases.Title(language.English).String(strings.NewReplacer("_", " ", "-", " ").Replace(c.ID))
}

// LoadEnv discovers providers from environment entries in "KEY=value" form.
// A provider exists when <prefix><ID>_CONSUMER_KEY or <prefix><ID>_CONSUMER_SECRET
// is set; its remaining fields are read from variables sharing <prefix><ID>_.
// Provider ids are lower-cased.
func LoadEnv(prefix string, environ []string) (map[string]ProviderConfig, error) {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	ids := make(map[string]struct{})
	for k := range vars {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		for _, suffix := range []string{"_CONSUMER_KEY", "_CONSUMER_SECRET"} {
			if id, ok := strings.CutSuffix(rest, suffix); ok && id != "" {
				ids[id] = struct{}{}
			}
		}
	}

	out := make(map[string]ProviderConfig, len(ids))
	for id := range ids {
		var cfg ProviderConfig
		if err := env.ParseWithOptions(&cfg, env.Options{
			Prefix:      prefix + id + "_",
			Environment: vars,
		}); err != nil {
			return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("provider %s: %w", id, err))
		}
		cfg.ID = strings.ToLower(id)
		out[cfg.ID] = cfg
	}
	return out, nil
}

type providersFile struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// LoadFile reads providers from a YAML file:
//
//	providers:
//	  twitter:
//	    consumer_key: xxx
//	    consumer_secret: yyy
//	    auth_params:
//	      force_login: "true"
func LoadFile(path string) (map[string]ProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	var f providersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("parse %s: %w", path, err))
	}

	out := make(map[string]ProviderConfig, len(f.Providers))
	for id, cfg := range f.Providers {
		cfg.ID = strings.ToLower(id)
		out[cfg.ID] = cfg
	}
	return out, nil
}

// LoadConfigs reads the optional YAML file at path, then the environment.
// Environment values override file values per field.
func LoadConfigs(prefix string, environ []string, path string) (map[string]ProviderConfig, error) {
	out := make(map[string]ProviderConfig)
	if path != "" {
		fromFile, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		maps.Copy(out, fromFile)
	}

	fromEnv, err := LoadEnv(prefix, environ)
	if err != nil {
		return nil, err
	}
	for id, cfg := range fromEnv {
		out[id] = out[id].Merge(cfg)
	}
	return out, nil
}
