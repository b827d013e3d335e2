package auth

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/cache"
	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/session"
)

// Session value keys holding the provider session.
const (
	keyAccessToken  = "auth.access_token"
	keyRefreshToken = "auth.refresh_token"
	keyExpiresAt    = "auth.expires_at"
	keyVerifier     = "auth.pkce_verifier"
	keyRecovery     = "auth.recovery"
)

// Registry keeps one Store per browser session, bounded by an LRU.
// Stores evicted from memory are rebuilt from the session values.
type Registry struct {
	provider Provider
	opts     []StoreOption
	stores   *cache.LRU[uuid.UUID, *Store]
	logger   *slog.Logger
}

// NewRegistry creates a registry holding at most capacity stores. opts are
// applied to every store it creates.
func NewRegistry(provider Provider, capacity int, log *slog.Logger, opts ...StoreOption) *Registry {
	if log == nil {
		log = logger.Noop()
	}
	return &Registry{
		provider: provider,
		opts:     append([]StoreOption{WithLogger(log)}, opts...),
		stores:   cache.New[uuid.UUID, *Store](capacity),
		logger:   log,
	}
}

// Get returns the store of sess, creating it from the persisted tokens.
func (r *Registry) Get(sess *session.Session) *Store {
	return r.stores.GetOrCreate(sess.ID, func() *Store {
		st := NewStore(r.provider, r.opts...)
		st.Restore(LoadTokens(sess))
		return st
	})
}

// Remove drops the store of a destroyed session.
func (r *Registry) Remove(id uuid.UUID) {
	r.stores.Remove(id)
}

// Len returns the number of live stores.
func (r *Registry) Len() int {
	return r.stores.Len()
}

// LoadTokens reads the provider session from sess.
func LoadTokens(sess *session.Session) Tokens {
	t := Tokens{
		AccessToken:  sess.Get(keyAccessToken),
		RefreshToken: sess.Get(keyRefreshToken),
		Verifier:     sess.Get(keyVerifier),
		Recovery:     sess.Get(keyRecovery) == "1",
	}
	if v := sess.Get(keyExpiresAt); v != "" {
		if exp, err := time.Parse(time.RFC3339, v); err == nil {
			t.ExpiresAt = exp
		}
	}
	return t
}

// SaveTokens writes t into sess. Unchanged values leave sess clean.
func SaveTokens(sess *session.Session, t Tokens) {
	sess.Set(keyAccessToken, t.AccessToken)
	sess.Set(keyRefreshToken, t.RefreshToken)
	sess.Set(keyVerifier, t.Verifier)

	exp := ""
	if !t.ExpiresAt.IsZero() {
		exp = t.ExpiresAt.UTC().Format(time.RFC3339)
	}
	sess.Set(keyExpiresAt, exp)

	recovery := ""
	if t.Recovery {
		recovery = "1"
	}
	sess.Set(keyRecovery, recovery)
}
