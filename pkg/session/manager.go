package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/authkit/pkg/cookie"
	"github.com/dmitrymomot/authkit/pkg/fingerprint"
	"github.com/dmitrymomot/authkit/pkg/logger"
)

// Manager loads, persists and rotates sessions.
type Manager struct {
	store   Store
	cookies *cookie.Manager
	config  Config
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.config = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates a Manager.
func New(store Store, cookies *cookie.Manager, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		cookies: cookies,
		config:  DefaultConfig(),
		logger:  logger.Noop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load returns the session addressed by the request cookie, creating a new
// one when the cookie is missing, unreadable or points to an expired
// session.
func (m *Manager) Load(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	now := m.now()

	if token, err := m.cookies.GetEncrypted(r, m.config.CookieName); err == nil {
		s, err := m.store.Get(ctx, token)
		if err == nil && !s.IsExpired(now) && !m.sameDevice(r, s) {
			m.logger.WarnContext(ctx, "session presented by another device",
				logger.Component("session"),
				logger.SessionID(s.ID.String()),
			)
			if err := m.store.Delete(ctx, s.Token); err != nil {
				return nil, errors.Join(ErrStoreFailure, err)
			}
			err = ErrSessionNotFound
		}
		switch {
		case err == nil && !s.IsExpired(now):
			if now.Sub(s.LastActivityAt) >= m.config.TouchThreshold {
				s.LastActivityAt = now
				s.ExpiresAt = m.config.expiry(s.CreatedAt, now)
				if err := m.save(ctx, s); err != nil {
					return nil, err
				}
				m.setCookie(w, s)
			}
			return s, nil
		case err != nil && !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired):
			return nil, errors.Join(ErrStoreFailure, err)
		}
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	s := newSession(token, now, m.config.IdleTimeout)
	s.ExpiresAt = m.config.expiry(now, now)
	if m.config.BindDevice {
		s.Fingerprint = fingerprint.Generate(r, m.config.fingerprintMode())
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	m.setCookie(w, s)
	return s, nil
}

// Save persists s when its values changed.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if !s.Dirty() {
		return nil
	}
	if err := m.save(ctx, s); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Rotate issues a new token for s, keeping its ID and values.
func (m *Manager) Rotate(ctx context.Context, w http.ResponseWriter, s *Session) error {
	token, err := generateToken()
	if err != nil {
		return err
	}
	old := s.Token
	s.Token = token
	if err := m.save(ctx, s); err != nil {
		s.Token = old
		return err
	}
	s.dirty = false
	if err := m.store.Delete(ctx, old); err != nil {
		m.logger.WarnContext(ctx, "failed to delete rotated session",
			logger.Component("session"),
			logger.Error(err),
		)
	}
	m.setCookie(w, s)
	return nil
}

// Destroy deletes s and expires the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	m.cookies.Delete(w, m.config.CookieName)
	if s == nil {
		return nil
	}
	if err := m.store.Delete(ctx, s.Token); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

// sameDevice reports whether r may use s. Sessions created without a
// fingerprint are accepted.
func (m *Manager) sameDevice(r *http.Request, s *Session) bool {
	if !m.config.BindDevice || s.Fingerprint == "" {
		return true
	}
	return fingerprint.Match(r, m.config.fingerprintMode(), s.Fingerprint)
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	ttl := s.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return ErrSessionExpired
	}
	if err := m.store.Save(ctx, s, ttl); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}

func (m *Manager) setCookie(w http.ResponseWriter, s *Session) {
	maxAge := int(s.ExpiresAt.Sub(m.now()).Seconds())
	if err := m.cookies.SetEncrypted(w, m.config.CookieName, s.Token, cookie.WithMaxAge(maxAge)); err != nil {
		m.logger.Error("failed to set session cookie",
			logger.Component("session"),
			logger.Error(err),
		)
	}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
