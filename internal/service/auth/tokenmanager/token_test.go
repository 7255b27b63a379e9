package tokenmanager

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpetrenko/shoply/internal/models"
	"github.com/vpetrenko/shoply/internal/repository/postgres"
	"github.com/vpetrenko/shoply/internal/testutil"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_TokenManager(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	testUser := models.User{
		ID:             uuid.New(),
		CreatedAt:      mustParseTime("2024-01-01 19:00:01Z"),
		Name:           "testuser",
		Email:          "testuser@example.com",
		HashedPassword: "hashed_password",
		Contact:        "+15551234567",
	}

	withTx := func(dbpool *pgxpool.Pool, t *testing.T, accessTTL time.Duration, refreshTTL time.Duration, fn func(m *TokenManager)) {
		testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
			cfg := Config{
				AccessSecret:  "test-access-secret",
				RefreshSecret: "test-refresh-secret",
				AccessTTL:     accessTTL,
				RefreshTTL:    refreshTTL,
			}

			tokenManager, err := New(cfg, &postgres.RefreshTokenRepo{DB: tx})
			require.NoError(t, err, "token manager should be created without errors")

			fn(tokenManager)
		})
	}

	t.Run("new defaults", func(t *testing.T) {
		m, err := New(Config{AccessSecret: "access", RefreshSecret: "refresh"}, nil)
		require.NoError(t, err, "token manager should be created without errors")

		require.Equal(t, "access", m.accessKey, "access secret should be set")
		require.Equal(t, "refresh", m.refreshKey, "refresh secret should be set")
		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultRefreshTokenTTL, m.refreshTTL, "default refresh token TTL")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
	})

	t.Run("new fails on equal secrets", func(t *testing.T) {
		_, err := New(Config{AccessSecret: "same", RefreshSecret: "same"}, nil)
		require.Error(t, err, "secrets must differ")
	})

	t.Run("new fails on empty secret", func(t *testing.T) {
		_, err := New(Config{AccessSecret: "access"}, nil)
		require.Error(t, err)
	})

	t.Run("GeneratePair", func(t *testing.T) {
		t.Run("return token pair", func(t *testing.T) {
			withTx(pg.Pool, t, time.Hour, 7*24*time.Hour, func(tokenManager *TokenManager) {
				pair, err := tokenManager.GeneratePair(t.Context(), testUser)

				require.NoError(t, err)

				assert.NotEmpty(t, pair.Access.Value, "access token should not be empty")
				assert.WithinDuration(t, time.Now().Add(time.Hour), pair.Access.ExpiresAt, time.Second)
				assert.NotEmpty(t, pair.Refresh.Value, "refresh token should not be empty")
				assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), pair.Refresh.ExpiresAt, time.Second)
				assert.NotEqual(t, pair.Access.Value, pair.Refresh.Value, "tokens should be distinct")
			})
		})

		t.Run("access claims", func(t *testing.T) {
			withTx(pg.Pool, t, time.Hour, 7*24*time.Hour, func(tokenManager *TokenManager) {
				pair, err := tokenManager.GeneratePair(t.Context(), testUser)
				require.NoError(t, err)

				// Parse and verify the access token with the access secret
				token, err := jwt.ParseWithClaims(pair.Access.Value, &AccessTokenClaims{}, func(token *jwt.Token) (any, error) {
					return []byte("test-access-secret"), nil
				})
				require.NoError(t, err)
				require.True(t, token.Valid, "access token should be valid")

				claims, ok := token.Claims.(*AccessTokenClaims)
				require.True(t, ok, "claims should be of type AccessTokenClaims")
				assert.Equal(t, testUser.ID, claims.UserID, "user ID in token should match")
				assert.Equal(t, testUser.Name, claims.Name, "name in token should match")
				assert.Equal(t, testUser.Email, claims.Email, "email in token should match")
				assert.NotEmpty(t, claims.ID, "token has to has jti")
				assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second, "issued at should be close to now")
				assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Second)
			})
		})

		t.Run("refresh token persisted", func(t *testing.T) {
			testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
				repo := &postgres.RefreshTokenRepo{DB: tx}
				tokenManager, err := New(Config{AccessSecret: "test-access-secret", RefreshSecret: "test-refresh-secret"}, repo)
				require.NoError(t, err)

				pair, err := tokenManager.GeneratePair(t.Context(), testUser)
				require.NoError(t, err)

				stored, err := repo.Get(t.Context(), pair.Refresh.Value)
				require.NoError(t, err, "issued refresh token should be stored")
				assert.Equal(t, testUser.ID, stored.UserID)
			})
		})

		t.Run("generate different tokens", func(t *testing.T) {
			withTx(pg.Pool, t, time.Hour, 7*24*time.Hour, func(tokenManager *TokenManager) {
				pair1, err := tokenManager.GeneratePair(t.Context(), testUser)
				require.NoError(t, err)

				pair2, err := tokenManager.GeneratePair(t.Context(), testUser)
				require.NoError(t, err)

				assert.NotEqual(t, pair1.Refresh.Value, pair2.Refresh.Value, "refresh tokens should be different")
				assert.NotEqual(t, pair1.Access.Value, pair2.Access.Value, "access tokens should be different")
			})
		})
	})

	t.Run("ParseAccess", func(t *testing.T) {
		t.Run("parse ok", func(t *testing.T) {
			withTx(pg.Pool, t, time.Hour, 7*24*time.Hour, func(tokenManager *TokenManager) {
				pair, err := tokenManager.GeneratePair(t.Context(), testUser)
				require.NoError(t, err)

				claims, err := tokenManager.ParseAccess(pair.Access.Value)

				require.NoError(t, err)
				assert.Equal(t, testUser.ID, claims.UserID)
				assert.Equal(t, testUser.Email, claims.Email)
			})
		})

		t.Run("refresh token does not verify as access", func(t *testing.T) {
			withTx(pg.Pool, t, time.Hour, 7*24*time.Hour, func(tokenManager *TokenManager) {
				pair, err := tokenManager.GeneratePair(t.Context(), testUser)
				require.NoError(t, err)

				_, err = tokenManager.ParseAccess(pair.Refresh.Value)

				require.Error(t, err, "tokens are signed with distinct secrets")
			})
		})

		t.Run("expired token", func(t *testing.T) {
			withTx(pg.Pool, t, -time.Hour, 7*24*time.Hour, func(tokenManager *TokenManager) {
				pair, err := tokenManager.GeneratePair(t.Context(), testUser)
				require.NoError(t, err)

				_, err = tokenManager.ParseAccess(pair.Access.Value)

				require.Error(t, err)
				require.ErrorIs(t, err, jwt.ErrTokenExpired)
			})
		})
	})

	t.Run("ParseRefresh", func(t *testing.T) {
		t.Run("parse ok", func(t *testing.T) {
			withTx(pg.Pool, t, time.Hour, 7*24*time.Hour, func(tokenManager *TokenManager) {
				pair, err := tokenManager.GeneratePair(t.Context(), testUser)
				require.NoError(t, err)

				claims, err := tokenManager.ParseRefresh(pair.Refresh.Value)

				require.NoError(t, err)
				assert.Equal(t, testUser.ID, claims.UserID)
			})
		})

		t.Run("access token does not verify as refresh", func(t *testing.T) {
			withTx(pg.Pool, t, time.Hour, 7*24*time.Hour, func(tokenManager *TokenManager) {
				pair, err := tokenManager.GeneratePair(t.Context(), testUser)
				require.NoError(t, err)

				_, err = tokenManager.ParseRefresh(pair.Access.Value)

				require.Error(t, err, "tokens are signed with distinct secrets")
			})
		})

		t.Run("garbage token", func(t *testing.T) {
			withTx(pg.Pool, t, time.Hour, 7*24*time.Hour, func(tokenManager *TokenManager) {
				_, err := tokenManager.ParseRefresh("not-even-a-jwt")

				require.Error(t, err)
			})
		})
	})
}
