package session

import (
	"fmt"
	"maps"
	"time"
)

// Session is a browser session with arbitrary values.
// Values must survive a JSON round trip: stores persist them as JSON, so
// numbers come back as float64.
type Session struct {
	CreatedAt    time.Time
	LastActiveAt time.Time
	ExpiresAt    time.Time

	Values    map[string]any
	ID        string // Stable identifier
	Token     string // Cookie token, rotated on login
	UserID    string // Empty for anonymous sessions
	IP        string
	UserAgent string

	dirty bool
	isNew bool
}

// New creates an unsaved session.
func New(id, token string, expiresAt time.Time) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Token:        token,
		Values:       make(map[string]any),
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    expiresAt,
		isNew:        true,
		dirty:        true,
	}
}

// IsAuthenticated reports whether a user is attached.
func (s *Session) IsAuthenticated() bool {
	return s.UserID != ""
}

// SetUser attaches or, with an empty id, detaches a user.
func (s *Session) SetUser(userID string) {
	if s.UserID != userID {
		s.UserID = userID
		s.dirty = true
	}
}

func (s *Session) SetValue(key string, val any) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = val
	s.dirty = true
}

func (s *Session) GetValue(key string) (any, bool) {
	val, ok := s.Values[key]
	return val, ok
}

// DeleteValue removes key; the session only becomes dirty if key existed.
func (s *Session) DeleteValue(key string) {
	if _, ok := s.Values[key]; ok {
		delete(s.Values, key)
		s.dirty = true
	}
}

// PopString removes key and returns its value when it is a string.
func (s *Session) PopString(key string) (string, bool) {
	val, ok := s.GetValue(key)
	if !ok {
		return "", false
	}
	s.DeleteValue(key)
	str, ok := val.(string)
	return str, ok
}

// Clone returns a copy of s as a store would load it: neither new nor dirty.
// Values is copied one level deep.
func (s *Session) Clone() *Session {
	c := *s
	c.dirty = false
	c.isNew = false
	c.Values = maps.Clone(s.Values)
	if c.Values == nil {
		c.Values = make(map[string]any)
	}
	return &c
}

func (s *Session) IsDirty() bool { return s.dirty }
func (s *Session) ClearDirty()   { s.dirty = false }
func (s *Session) MarkDirty()    { s.dirty = true }
func (s *Session) IsNew() bool   { return s.isNew }
func (s *Session) ClearNew()     { s.isNew = false }

// IsExpired reports whether ExpiresAt has passed.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Value returns the value under key as T.
func Value[T any](s *Session, key string) (T, error) {
	var zero T
	if s == nil {
		return zero, ErrNotFound
	}
	val, ok := s.GetValue(key)
	if !ok {
		return zero, ErrNotFound
	}
	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrTypeMismatch, key)
	}
	return typed, nil
}

// ValueOr returns the value under key as T, or def.
func ValueOr[T any](s *Session, key string, def T) T {
	val, err := Value[T](s, key)
	if err != nil {
		return def
	}
	return val
}
