package cookie

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Flash categories used by the social flows.
const (
	CategorySuccess = "success"
	CategoryNotice  = "notice"
	CategoryInfo    = "info"
	CategoryError   = "error"
)

// Flash is a one-time message shown after a redirect.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

func flashCookieName(key string) string {
	return "flash_" + key
}

// AddFlash appends f to the flash list stored under key, keeping messages
// the browser has not displayed yet.
func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, key string, f Flash) error {
	if m.secret == nil {
		return ErrNoSecret
	}

	list, err := m.readFlashes(r, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		// An unreadable list is replaced rather than blocking new messages.
		list = nil
	}
	list = append(list, f)

	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return m.SetEncrypted(w, flashCookieName(key), string(data), 0)
}

// Flashes returns and clears the flash list stored under key.
// A missing list yields nil without an error.
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request, key string) ([]Flash, error) {
	if m.secret == nil {
		return nil, ErrNoSecret
	}

	list, err := m.readFlashes(r, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	m.Delete(w, flashCookieName(key))
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (m *Manager) readFlashes(r *http.Request, key string) ([]Flash, error) {
	raw, err := m.GetEncrypted(r, flashCookieName(key))
	if err != nil {
		return nil, err
	}
	var list []Flash
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, errors.Join(ErrDecrypt, err)
	}
	return list, nil
}
