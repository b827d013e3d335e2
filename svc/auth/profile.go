package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Profile is the application-side record created for every new account.
type Profile struct {
	UserID    uuid.UUID
	FullName  string
	UpdatedAt time.Time
}

// ProfileRepository persists profiles keyed by provider user ID.
type ProfileRepository interface {
	// Get returns ErrProfileNotFound when no profile exists.
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Upsert(ctx context.Context, p Profile) error
}

// MemoryProfiles is a ProfileRepository for development and tests.
type MemoryProfiles struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]Profile
}

// NewMemoryProfiles returns an empty in-memory repository.
func NewMemoryProfiles() *MemoryProfiles {
	return &MemoryProfiles{profiles: make(map[uuid.UUID]Profile)}
}

func (m *MemoryProfiles) Get(_ context.Context, userID uuid.UUID) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &p, nil
}

func (m *MemoryProfiles) Upsert(_ context.Context, p Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = p
	return nil
}

// Len returns the number of stored profiles.
func (m *MemoryProfiles) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.profiles)
}
