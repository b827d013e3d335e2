package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authkit/pkg/pg"
)

// PGProfiles stores profiles in the profiles table.
type PGProfiles struct {
	pool *pgxpool.Pool
}

// NewPGProfiles returns a repository backed by pool.
func NewPGProfiles(pool *pgxpool.Pool) *PGProfiles {
	return &PGProfiles{pool: pool}
}

func (r *PGProfiles) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	const query = `SELECT user_id, full_name, updated_at FROM profiles WHERE user_id = $1`

	var p Profile
	err := r.pool.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.FullName, &p.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (r *PGProfiles) Upsert(ctx context.Context, p Profile) error {
	const query = `
		INSERT INTO profiles (user_id, full_name, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET full_name = EXCLUDED.full_name, updated_at = EXCLUDED.updated_at`

	if _, err := r.pool.Exec(ctx, query, p.UserID, p.FullName, p.UpdatedAt); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
