package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vpetrenko/shoply/internal/models"
)

type BlacklistRepo struct {
	DB DBTX
}

const addToBlacklist = `-- name: AddToBlacklist
INSERT INTO blacklisted_tokens (token, created_at, expires_at)
VALUES ($1, now(), $2)
ON CONFLICT (token) DO NOTHING
`

// Add token to the blacklist
// ON CONFLICT DO NOTHING makes repeated logout with the same token a no-op
func (r *BlacklistRepo) Add(ctx context.Context, entry models.BlacklistEntry) error {
	_, err := r.DB.Exec(ctx, addToBlacklist, entry.Token, entry.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const tokenBlacklisted = `-- name: TokenBlacklisted
SELECT EXISTS (SELECT 1 FROM blacklisted_tokens WHERE token = $1)
`

func (r *BlacklistRepo) Exists(ctx context.Context, tokenString string) (bool, error) {
	rows, _ := r.DB.Query(ctx, tokenBlacklisted, tokenString)
	exists, err := pgx.CollectOneRow(rows, pgx.RowTo[bool])
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}
