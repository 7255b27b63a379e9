package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpetrenko/shoply/internal/apperrors"
	"github.com/vpetrenko/shoply/internal/testutil"
)

func Test_OTPRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	const email = "customer@example.com"

	t.Run("upsert ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := OTPRepo{DB: tx}

			otp, err := repo.Upsert(t.Context(), email, "123456")

			require.NoError(t, err)
			assert.Equal(t, email, otp.Email)
			assert.Equal(t, "123456", otp.Code)
			assert.WithinDuration(t, time.Now(), otp.CreatedAt, time.Second)
		})
	})

	t.Run("upsert supersedes previous code", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := OTPRepo{DB: tx}

			_, err := repo.Upsert(t.Context(), email, "111111")
			require.NoError(t, err)

			_, err = repo.Upsert(t.Context(), email, "222222")
			require.NoError(t, err)

			// Old code is gone, only the latest verifies
			err = repo.Consume(t.Context(), email, "111111", time.Now().Add(-5*time.Minute))
			assert.ErrorIs(t, err, apperrors.ErrOTPInvalid)

			err = repo.Consume(t.Context(), email, "222222", time.Now().Add(-5*time.Minute))
			assert.NoError(t, err)
		})
	})

	t.Run("consume deletes the code", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := OTPRepo{DB: tx}
			_, err := repo.Upsert(t.Context(), email, "123456")
			require.NoError(t, err)

			err = repo.Consume(t.Context(), email, "123456", time.Now().Add(-5*time.Minute))
			require.NoError(t, err)

			// Single use: the same code must not verify twice
			err = repo.Consume(t.Context(), email, "123456", time.Now().Add(-5*time.Minute))
			assert.ErrorIs(t, err, apperrors.ErrOTPNotFound)
		})
	})

	t.Run("consume mismatch keeps the code", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := OTPRepo{DB: tx}
			_, err := repo.Upsert(t.Context(), email, "123456")
			require.NoError(t, err)

			err = repo.Consume(t.Context(), email, "654321", time.Now().Add(-5*time.Minute))
			assert.ErrorIs(t, err, apperrors.ErrOTPInvalid)

			// The record survived the failed attempt
			err = repo.Consume(t.Context(), email, "123456", time.Now().Add(-5*time.Minute))
			assert.NoError(t, err)
		})
	})

	t.Run("consume expired code", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := OTPRepo{DB: tx}
			_, err := repo.Upsert(t.Context(), email, "123456")
			require.NoError(t, err)

			// issuedAfter in the future: everything stored counts as expired
			err = repo.Consume(t.Context(), email, "123456", time.Now().Add(time.Minute))

			assert.ErrorIs(t, err, apperrors.ErrOTPNotFound)
		})
	})

	t.Run("consume for unknown email", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := OTPRepo{DB: tx}

			err := repo.Consume(t.Context(), "nobody@example.com", "123456", time.Now().Add(-5*time.Minute))

			assert.ErrorIs(t, err, apperrors.ErrOTPNotFound)
		})
	})
}
