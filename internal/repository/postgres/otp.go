package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vpetrenko/shoply/internal/apperrors"
	"github.com/vpetrenko/shoply/internal/models"
)

type OTPRepo struct {
	DB DBTX
}

const upsertOTP = `-- name: UpsertOTP
INSERT INTO otps (email, code, created_at)
VALUES ($1, $2, now())
ON CONFLICT (email) DO UPDATE SET code = EXCLUDED.code, created_at = EXCLUDED.created_at
RETURNING email, code, created_at
`

// Upsert code for email
// Only one code per email is live: a new code supersedes the previous one
func (r *OTPRepo) Upsert(ctx context.Context, email string, code string) (models.OTP, error) {
	rows, _ := r.DB.Query(ctx, upsertOTP, email, code)
	otp, err := pgx.CollectOneRow(rows, rowToOTP)
	if err != nil {
		return otp, fmt.Errorf("db error: %w", err)
	}
	return otp, nil
}

const consumeOTP = `-- name: ConsumeOTP
DELETE FROM otps
WHERE email = $1 AND code = $2 AND created_at > $3
RETURNING email
`

const getLiveOTP = `-- name: GetLiveOTP
SELECT email, code, created_at
FROM otps
WHERE email = $1 AND created_at > $2
`

// Consume deletes the code for email if it matches exactly and is not expired.
// The delete-on-match is a single statement, so under concurrent verification
// attempts at most one caller consumes the code.
func (r *OTPRepo) Consume(ctx context.Context, email string, code string, issuedAfter time.Time) error {
	rows, _ := r.DB.Query(ctx, consumeOTP, email, code, issuedAfter)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[string])

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		// Nothing deleted: either no live code for the email or a mismatch.
		// Look the record up to report which, leaving it in place on mismatch.
		rows, _ := r.DB.Query(ctx, getLiveOTP, email, issuedAfter)
		_, err := pgx.CollectOneRow(rows, rowToOTP)

		switch {
		case err == nil:
			return fmt.Errorf("repo error: %w", apperrors.ErrOTPInvalid)
		case errors.Is(err, pgx.ErrNoRows):
			return fmt.Errorf("repo error: %w", apperrors.ErrOTPNotFound)
		default:
			return fmt.Errorf("db error: %w", err)
		}
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

func rowToOTP(row pgx.CollectableRow) (models.OTP, error) {
	var o models.OTP
	err := row.Scan(&o.Email, &o.Code, &o.CreatedAt)
	return o, err
}
