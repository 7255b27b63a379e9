package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vpetrenko/shoply/internal/apperrors"
	"github.com/vpetrenko/shoply/internal/models"
	"github.com/vpetrenko/shoply/internal/repository"
	"github.com/vpetrenko/shoply/internal/service/auth/tokenmanager"
)

const (
	defaultAccessCookieName  = "token"
	defaultRefreshCookieName = "refreshToken"
	defaultAccessAuthScheme  = "Bearer"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

// One time code issuance and verification for password recovery
type OTPManager interface {
	Issue(ctx context.Context, email string) error
	Verify(ctx context.Context, email string, code string) error
}

type Config struct {
	// Hasher to use during registration, login and password changes
	// BcryptHasher is used if not set
	Hasher PasswordHasher

	// Cookie names the tokens are set to
	// Defaults mirror the storefront client expectations
	AccessCookieName  string
	RefreshCookieName string
}

type RegisterParams struct {
	Name     string
	Email    string
	Password string
	Contact  string
}

// Auth service
// Owns password verification and session issuance; repositories are reached
// only through here
type AuthService struct {
	tokens *tokenmanager.TokenManager
	hasher PasswordHasher
	otp    OTPManager

	accessCookieName  string
	refreshCookieName string

	storage       repository.Storage
	userRepo      repository.UserRepo
	refreshRepo   repository.RefreshTokenRepo
	blacklistRepo repository.BlacklistRepo
}

// Hash compared against on login lookup miss so that an unknown email costs
// the same as a wrong password
var dummyHash = func() string {
	h, err := BcryptHasher{}.Hash(uuid.NewString())
	if err != nil {
		panic(err)
	}
	return h
}()

func NewService(cfg Config, tokens *tokenmanager.TokenManager, otp OTPManager, storage repository.Storage) (*AuthService, error) {
	if tokens == nil || storage == nil {
		return nil, errors.New("token manager and storage must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	setDefaultString := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefaultString(&cfg.AccessCookieName, defaultAccessCookieName)
	setDefaultString(&cfg.RefreshCookieName, defaultRefreshCookieName)

	return &AuthService{
		tokens:            tokens,
		hasher:            hasher,
		otp:               otp,
		accessCookieName:  cfg.AccessCookieName,
		refreshCookieName: cfg.RefreshCookieName,
		storage:           storage,
		userRepo:          storage.User(),
		refreshRepo:       storage.Refresh(),
		blacklistRepo:     storage.Blacklist(),
	}, nil
}

// Register creates a user with a hashed password
// Email uniqueness is enforced by the repository, so concurrent registrations
// with the same email can't both succeed
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (models.User, error) {
	var user models.User

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, error=%w", err)
	}

	user, err = s.userRepo.CreateUser(ctx, repository.CreateUserParams{
		Name:           params.Name,
		Email:          params.Email,
		HashedPassword: hash,
		Contact:        params.Contact,
	})
	if err != nil {
		return user, err
	}

	return user, nil
}

// Login verifies credentials and issues a token pair
// Unknown email and wrong password are indistinguishable to the caller
func (s *AuthService) Login(ctx context.Context, email string, password string) (models.TokenPair, error) {
	var pair models.TokenPair

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		_ = s.hasher.Compare(dummyHash, password)
		return pair, apperrors.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return pair, apperrors.ErrInvalidCredentials
	}

	pair, err = s.tokens.GeneratePair(ctx, user)
	if err != nil {
		return pair, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return pair, nil
}

// Logout revokes the refresh token: blacklist it and drop the stored row
// Runs in one transaction, a token is never blacklisted but left stored.
// Idempotent, calling twice with the same token ends in the same state
func (s *AuthService) Logout(ctx context.Context, refresh string) error {
	// Blacklist entry lives as long as the token itself would
	expiresAt := time.Now().Add(s.tokens.RefreshTTL())
	if claims, err := s.tokens.ParseRefresh(refresh); err == nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return s.storage.InTx(ctx, func(storage repository.Storage) error {
		entry := models.BlacklistEntry{Token: refresh, ExpiresAt: expiresAt}
		if err := storage.Blacklist().Add(ctx, entry); err != nil {
			return fmt.Errorf("can't blacklist token. Err: %w", err)
		}

		if err := storage.Refresh().Delete(ctx, refresh); err != nil {
			return fmt.Errorf("can't delete refresh token. Err: %w", err)
		}

		return nil
	})
}

// Refresh exchanges a valid refresh token for a fresh pair
// The token must verify, must not be blacklisted and must still be stored.
// The old token is rotated out: its row is deleted before the new pair issued
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair

	_, err := s.tokens.ParseRefresh(refresh)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return pair, fmt.Errorf("refresh failed: %w", apperrors.ErrRefreshTokenExpired)
	default:
		return pair, fmt.Errorf("refresh failed: %w", apperrors.ErrRefreshTokenNotFound)
	}

	blacklisted, err := s.blacklistRepo.Exists(ctx, refresh)
	if err != nil {
		return pair, fmt.Errorf("can't check blacklist. Err: %w", err)
	}
	if blacklisted {
		return pair, apperrors.ErrRefreshTokenRevoked
	}

	token, err := s.refreshRepo.Get(ctx, refresh)
	if err != nil {
		return pair, err
	}

	user, err := s.userRepo.GetUserByID(ctx, token.UserID)
	if err != nil {
		return pair, err
	}

	if err := s.refreshRepo.Delete(ctx, refresh); err != nil {
		return pair, fmt.Errorf("can't rotate refresh token. Err: %w", err)
	}

	pair, err = s.tokens.GeneratePair(ctx, user)
	if err != nil {
		return pair, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return pair, nil
}

// ForgotPassword issues a recovery code for an existing user
// Code delivery is fire and forget, see OTPManager
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	_, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	return s.otp.Issue(ctx, email)
}

// ResetPassword verifies the recovery code and stores a new password hash
// The code is consumed on success, a second attempt with it fails
func (s *AuthService) ResetPassword(ctx context.Context, email string, code string, newPassword string) error {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := s.otp.Verify(ctx, email, code); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password, error=%w", err)
	}

	return s.userRepo.UpdatePassword(ctx, user.ID, hash)
}

// ChangePassword replaces the password of an authenticated user
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, prevPassword string, newPassword string) error {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.HashedPassword, prevPassword); err != nil {
		return apperrors.ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password, error=%w", err)
	}

	return s.userRepo.UpdatePassword(ctx, user.ID, hash)
}

// Auth resolves the user behind the request access token
// Token is read from the access cookie, Authorization header works as fallback
func (s *AuthService) Auth(ctx context.Context, r *http.Request) (models.User, error) {
	var user models.User

	access, err := s.readAccessToken(r)
	if err != nil {
		return user, err
	}

	claims, err := s.tokens.ParseAccess(access)
	if err != nil {
		return user, fmt.Errorf("%w: %w", apperrors.ErrAccessTokenInvalid, err)
	}

	return s.userRepo.GetUserByID(ctx, claims.UserID)
}

// SetTokens writes the pair as cookies
// HttpOnly and Secure with SameSite None: the browser storefront lives on
// another origin. Cookie lifetime is aligned with the token lifetime
func (s *AuthService) SetTokens(w http.ResponseWriter, pair models.TokenPair) {
	setTokenCookie := func(name string, token models.IssuedToken) {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    token.Value,
			Path:     "/",
			MaxAge:   int(time.Until(token.ExpiresAt).Seconds()),
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
		})
	}

	setTokenCookie(s.accessCookieName, pair.Access)
	setTokenCookie(s.refreshCookieName, pair.Refresh)
}

// ClearTokens drops both token cookies
func (s *AuthService) ClearTokens(w http.ResponseWriter) {
	clearCookie := func(name string) {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
		})
	}

	clearCookie(s.accessCookieName)
	clearCookie(s.refreshCookieName)
}

// ReadRefreshCookie returns the refresh token from the request cookie
func (s *AuthService) ReadRefreshCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.refreshCookieName)
	if err != nil {
		return "", fmt.Errorf("%w: no refresh cookie", apperrors.ErrRefreshTokenNotFound)
	}
	return cookie.Value, nil
}

func (s *AuthService) readAccessToken(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(s.accessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	header := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && scheme == defaultAccessAuthScheme {
		return token, nil
	}

	return "", fmt.Errorf("%w: no token in request", apperrors.ErrAccessTokenInvalid)
}
