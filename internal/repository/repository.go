package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vpetrenko/shoply/internal/models"
)

type CreateUserParams struct {
	Name           string
	Email          string
	HashedPassword string
	Contact        string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with the email exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by its id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Replace the stored password hash
	// If user not found must return apperrors.ErrUserNotFound
	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Save issued token
	Save(ctx context.Context, token models.RefreshToken) error

	// Return the token if it exists
	// If token not found must return apperrors.ErrRefreshTokenNotFound
	Get(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Delete token by its string
	// Deleting a missing token is not an error: the end state is the same
	Delete(ctx context.Context, tokenString string) error
}

// Blacklist repository interface: refresh tokens revoked before expiry
type BlacklistRepo interface {
	// Add token to the blacklist
	// Must be idempotent: adding the same token twice is not an error
	Add(ctx context.Context, entry models.BlacklistEntry) error

	// Report whether the token is blacklisted
	Exists(ctx context.Context, tokenString string) (bool, error)
}

// OTP repository interface
type OTPRepo interface {
	// Save code for email, superseding any previous code for that email
	Upsert(ctx context.Context, email string, code string) (models.OTP, error)

	// Delete the code if it matches exactly and was issued after 'issuedAfter'
	// The delete-on-match is a single atomic statement so a code can be consumed once only.
	// If no live code exists for email must return apperrors.ErrOTPNotFound
	// If a live code exists but does not match must return apperrors.ErrOTPInvalid
	// and leave the record in place
	Consume(ctx context.Context, email string, code string, issuedAfter time.Time) error
}

// Storage aggregates all repositories over a single db handle
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo
	Blacklist() BlacklistRepo
	OTP() OTPRepo

	// Run fn within a db transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
