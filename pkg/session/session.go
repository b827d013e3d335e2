package session

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Session is the server-side state of one browser.
type Session struct {
	ID             uuid.UUID         `json:"id"`
	Token          string            `json:"token"`
	Values         map[string]string `json:"values,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
	Fingerprint    string            `json:"fingerprint,omitempty"`

	dirty bool
}

func newSession(token string, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:             uuid.New(),
		Token:          token,
		Values:         make(map[string]string),
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(ttl),
	}
}

// Get returns the value for key or "".
func (s *Session) Get(key string) string {
	if s == nil {
		return ""
	}
	return s.Values[key]
}

// Set stores value under key. An empty value deletes the key.
func (s *Session) Set(key, value string) {
	if s == nil {
		return
	}
	if value == "" {
		s.Delete(key)
		return
	}
	if s.Values == nil {
		s.Values = make(map[string]string)
	}
	if s.Values[key] != value {
		s.Values[key] = value
		s.dirty = true
	}
}

// Delete removes key.
func (s *Session) Delete(key string) {
	if s == nil {
		return
	}
	if _, ok := s.Values[key]; ok {
		delete(s.Values, key)
		s.dirty = true
	}
}

// Clear removes every value.
func (s *Session) Clear() {
	if s == nil || len(s.Values) == 0 {
		return
	}
	s.Values = make(map[string]string)
	s.dirty = true
}

// Dirty reports whether values changed since the session was loaded.
func (s *Session) Dirty() bool {
	return s != nil && s.dirty
}

// IsExpired reports whether the session expired at now.
func (s *Session) IsExpired(now time.Time) bool {
	return s == nil || now.After(s.ExpiresAt)
}

func (s *Session) clone() *Session {
	c := *s
	c.Values = maps.Clone(s.Values)
	c.dirty = false
	return &c
}
