package oauth

import (
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicy *bluemonday.Policy
	policyOnce sync.Once
)

// plainText strips every HTML element from a provider-supplied value and
// returns the remaining text unescaped.
func plainText(s string) string {
	if s == "" {
		return ""
	}
	policyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// webURL keeps absolute http(s) URLs and drops anything else.
func webURL(s string) string {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// sanitize normalizes the provider-controlled text of a profile.
// The id is kept verbatim since it keys the stored connection.
func (p *Profile) sanitize() {
	p.DisplayName = plainText(p.DisplayName)
	p.FullName = plainText(p.FullName)
	p.Email = plainText(p.Email)
	p.ProfileURL = webURL(p.ProfileURL)
	p.ImageURL = webURL(p.ImageURL)
}
