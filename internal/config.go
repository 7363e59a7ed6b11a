package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every extension variable, provider variables included.
const EnvPrefix = "SOCIAL_"

// Config holds the extension settings.
type Config struct {
	BlueprintName         string        `env:"BLUEPRINT_NAME" envDefault:"social"`
	URLPrefix             string        `env:"URL_PREFIX"`
	AppURL                string        `env:"APP_URL"`
	ConnectAllowView      string        `env:"CONNECT_ALLOW_VIEW" envDefault:"/"`
	ConnectDenyView       string        `env:"CONNECT_DENY_VIEW" envDefault:"/"`
	LoginView             string        `env:"LOGIN_VIEW" envDefault:"/login"`
	PostLoginView         string        `env:"POST_LOGIN_VIEW" envDefault:"/"`
	PostConnectSessionKey string        `env:"POST_OAUTH_CONNECT_SESSION_KEY" envDefault:"post_oauth_connect_url"`
	PostLoginSessionKey   string        `env:"POST_OAUTH_LOGIN_SESSION_KEY" envDefault:"post_oauth_login_url"`
	CookieSecret          string        `env:"COOKIE_SECRET"`
	CookieDomain          string        `env:"COOKIE_DOMAIN"`
	ProvidersFile         string        `env:"PROVIDERS_FILE"`
	SessionCookieName     string        `env:"SESSION_COOKIE_NAME" envDefault:"__social_sid"`
	SessionMaxAge         time.Duration `env:"SESSION_MAX_AGE" envDefault:"720h"`
	ProviderTimeout       time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`
	FlashMessages         bool          `env:"FLASH_MESSAGES" envDefault:"true"`
	CookieSecure          bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

// DefaultConfig returns the configuration with every default applied.
func DefaultConfig() Config {
	cfg, _ := LoadConfig(nil)
	return cfg
}

// LoadConfig parses SOCIAL_ variables from environ, a list of KEY=VALUE
// pairs as returned by os.Environ.
func LoadConfig(environ []string) (Config, error) {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	cfg, err := env.ParseAsWithOptions[Config](env.Options{
		Prefix:      EnvPrefix,
		Environment: vars,
	})
	if err != nil {
		return Config{}, fmt.Errorf("social: parse config: %w", err)
	}
	return cfg.normalize(), nil
}

// normalize cleans the URL prefix and app URL so paths can be joined.
func (c Config) normalize() Config {
	c.URLPrefix = strings.TrimSuffix(c.URLPrefix, "/")
	if c.URLPrefix != "" && !strings.HasPrefix(c.URLPrefix, "/") {
		c.URLPrefix = "/" + c.URLPrefix
	}
	c.AppURL = strings.TrimSuffix(c.AppURL, "/")
	if c.BlueprintName == "" {
		c.BlueprintName = "social"
	}
	return c
}
