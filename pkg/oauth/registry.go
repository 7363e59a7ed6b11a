package oauth

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

type constructor func(cfg ProviderConfig, opts ...Option) (*OAuth2Provider, error)

var builtins = map[string]constructor{
	TwitterProviderID:    NewTwitterProvider,
	FacebookProviderID:   NewFacebookProvider,
	GoogleProviderID:     NewGoogleProvider,
	GitHubProviderID:     NewGitHubProvider,
	LinkedInProviderID:   NewLinkedInProvider,
	FoursquareProviderID: NewFoursquareProvider,
	VKProviderID:         NewVKProvider,
}

// Builtin reports whether id names a bundled provider.
func Builtin(id string) bool {
	_, ok := builtins[strings.ToLower(id)]
	return ok
}

// Registry holds the configured providers keyed by id.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry builds providers from configs. Ids of bundled providers use
// their adapter with defaults merged under the config; any other id is built
// as a custom provider.
func NewRegistry(configs map[string]ProviderConfig, opts ...Option) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(configs))}

	ids := make([]string, 0, len(configs))
	for id := range configs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		cfg := configs[id]
		cfg.ID = strings.ToLower(id)

		build, ok := builtins[cfg.ID]
		if !ok {
			build = NewCustomProvider
		}
		p, err := build(cfg, opts...)
		if err != nil {
			return nil, fmt.Errorf("oauth: provider %q: %w", cfg.ID, err)
		}
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds p. It fails with ErrDuplicateProvider when the id is taken.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.providers == nil {
		r.providers = make(map[string]Provider)
	}
	if _, ok := r.providers[p.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, p.ID())
	}
	r.providers[p.ID()] = p
	return nil
}

// Get returns the provider registered under id.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// All returns every provider ordered by id.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Provider) int {
		return strings.Compare(a.ID(), b.ID())
	})
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
