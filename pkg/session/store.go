package session

import (
	"context"
	"encoding/json"
	"time"
)

// Store persists sessions.
type Store interface {
	// Create persists a new session.
	Create(ctx context.Context, s *Session) error

	// Get loads a session by cookie token.
	// Returns ErrNotFound or ErrExpired.
	Get(ctx context.Context, token string) (*Session, error)

	// Update saves an existing session, including a rotated token.
	Update(ctx context.Context, s *Session) error

	// Delete removes a session by id. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteByUserID removes every session of a user.
	DeleteByUserID(ctx context.Context, userID string) error

	// Touch updates LastActiveAt only.
	Touch(ctx context.Context, id string, lastActiveAt time.Time) error
}

// record is the JSON form of a session used by the Redis store.
type record struct {
	CreatedAt    time.Time      `json:"created_at"`
	LastActiveAt time.Time      `json:"last_active_at"`
	ExpiresAt    time.Time      `json:"expires_at"`
	Values       map[string]any `json:"values,omitempty"`
	ID           string         `json:"id"`
	Token        string         `json:"token"`
	UserID       string         `json:"user_id,omitempty"`
	IP           string         `json:"ip,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
}

func toRecord(s *Session) record {
	return record{
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
		ExpiresAt:    s.ExpiresAt,
		Values:       s.Values,
		ID:           s.ID,
		Token:        s.Token,
		UserID:       s.UserID,
		IP:           s.IP,
		UserAgent:    s.UserAgent,
	}
}

func (r record) session() *Session {
	values := r.Values
	if values == nil {
		values = make(map[string]any)
	}
	return &Session{
		CreatedAt:    r.CreatedAt,
		LastActiveAt: r.LastActiveAt,
		ExpiresAt:    r.ExpiresAt,
		Values:       values,
		ID:           r.ID,
		Token:        r.Token,
		UserID:       r.UserID,
		IP:           r.IP,
		UserAgent:    r.UserAgent,
	}
}

func marshalRecord(s *Session) ([]byte, error) {
	return json.Marshal(toRecord(s))
}

func unmarshalRecord(data []byte) (*Session, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r.session(), nil
}
