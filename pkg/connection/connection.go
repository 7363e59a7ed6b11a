package connection

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Connection links one local account to one provider account.
type Connection struct {
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	ExpiresAt      time.Time `json:"expires_at,omitzero"`
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ProviderID     string    `json:"provider_id"`
	ProviderUserID string    `json:"provider_user_id"`
	AccessToken    string    `json:"access_token"`
	Secret         string    `json:"secret,omitempty"`
	RefreshToken   string    `json:"refresh_token,omitempty"`
	DisplayName    string    `json:"display_name,omitempty"`
	FullName       string    `json:"full_name,omitempty"`
	ProfileURL     string    `json:"profile_url,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	Email          string    `json:"email,omitempty"`
	Rank           int       `json:"rank"`
}

// Token rebuilds the OAuth2 token stored on the connection.
// The result can be handed to a provider to build an authenticated API client.
func (c *Connection) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.ExpiresAt,
	}
	if c.Secret != "" {
		tok = tok.WithExtra(map[string]any{"oauth_token_secret": c.Secret})
	}
	return tok
}

// validate checks the identifying fields required to persist a connection.
func (c *Connection) validate() error {
	if c == nil || c.UserID == "" || c.ProviderID == "" || c.ProviderUserID == "" {
		return ErrInvalidConnection
	}
	return nil
}

// prepareCreate fills the id and timestamps of a connection about to be inserted.
func (c *Connection) prepareCreate() {
	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

// Filter selects connections. Empty fields are unconstrained.
type Filter struct {
	UserID         string
	ProviderID     string
	ProviderUserID string
}

// IsEmpty reports whether the filter has no constraints.
func (f Filter) IsEmpty() bool {
	return f.UserID == "" && f.ProviderID == "" && f.ProviderUserID == ""
}

// Match reports whether the connection satisfies every set field of the filter.
func (f Filter) Match(c *Connection) bool {
	if f.UserID != "" && f.UserID != c.UserID {
		return false
	}
	if f.ProviderID != "" && f.ProviderID != c.ProviderID {
		return false
	}
	if f.ProviderUserID != "" && f.ProviderUserID != c.ProviderUserID {
		return false
	}
	return true
}

// Store is a request-scoped unit of work over connection records.
type Store interface {
	// FindConnection returns the lowest ranked connection matching the filter.
	// Returns ErrNotFound if nothing matches.
	FindConnection(ctx context.Context, f Filter) (*Connection, error)

	// FindConnections returns every connection matching the filter ordered by rank.
	FindConnections(ctx context.Context, f Filter) ([]*Connection, error)

	// CreateConnection inserts a new connection.
	// Returns ErrDuplicate if the provider identity is already linked.
	CreateConnection(ctx context.Context, c *Connection) (*Connection, error)

	// UpdateConnection replaces the stored token and profile fields.
	// Returns ErrNotFound if the connection does not exist.
	UpdateConnection(ctx context.Context, c *Connection) error

	// DeleteConnection deletes the lowest ranked match and reports whether anything was deleted.
	DeleteConnection(ctx context.Context, f Filter) (bool, error)

	// DeleteConnections deletes every match and reports whether anything was deleted.
	DeleteConnections(ctx context.Context, f Filter) (bool, error)

	// Commit flushes pending writes.
	Commit(ctx context.Context) error

	// Rollback discards uncommitted writes. Safe to call after Commit.
	Rollback(ctx context.Context) error
}

// Datastore hands out request-scoped stores.
type Datastore interface {
	Begin(ctx context.Context) (Store, error)
}

// Healthchecker is implemented by datastores that can verify their backend.
type Healthchecker interface {
	Healthcheck(ctx context.Context) error
}

// sortByRank orders connections by rank, then creation time, then id.
func sortByRank(conns []*Connection) {
	slices.SortStableFunc(conns, func(a, b *Connection) int {
		if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
