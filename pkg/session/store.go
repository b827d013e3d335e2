package session

import (
	"context"
	"time"
)

// Store persists sessions by token.
type Store interface {
	Get(ctx context.Context, token string) (*Session, error)
	// Save creates or replaces the session and expires it after ttl.
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
}
