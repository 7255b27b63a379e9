package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/vpetrenko/shoply/internal/apperrors"
	"github.com/vpetrenko/shoply/internal/handlers/render"
	"github.com/vpetrenko/shoply/internal/logger"
	"github.com/vpetrenko/shoply/internal/models"
	"github.com/vpetrenko/shoply/internal/service/auth"
)

// Auth service as the handlers see it
type AuthService interface {
	// Register user, apperrors.ErrUserAlreadyExists on duplicate email
	Register(ctx context.Context, params auth.RegisterParams) (models.User, error)

	// Login user, apperrors.ErrInvalidCredentials on unknown email or wrong password
	Login(ctx context.Context, email string, password string) (models.TokenPair, error)

	// Logout revokes the refresh token, idempotent
	Logout(ctx context.Context, refresh string) error

	// Refresh rotates a valid refresh token into a fresh pair
	// apperrors.ErrRefreshTokenExpired / ErrRefreshTokenNotFound / ErrRefreshTokenRevoked
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// ForgotPassword issues a recovery code, apperrors.ErrUserNotFound if no user
	ForgotPassword(ctx context.Context, email string) error

	// ResetPassword verifies the code and stores a new password
	// apperrors.ErrUserNotFound / ErrOTPNotFound / ErrOTPInvalid
	ResetPassword(ctx context.Context, email string, code string, newPassword string) error

	// ChangePassword for an authenticated user
	// apperrors.ErrUserNotFound / ErrPasswordMismatch
	ChangePassword(ctx context.Context, userID uuid.UUID, prevPassword string, newPassword string) error

	// Set or clear auth token cookies on the response
	SetTokens(w http.ResponseWriter, pair models.TokenPair)
	ClearTokens(w http.ResponseWriter)

	// Get refresh token from the request cookie
	ReadRefreshCookie(r *http.Request) (string, error)
}

type AuthHandler struct {
	auth   AuthService
	logger logger.Logger
}

func NewAuth(auth AuthService, l logger.Logger) *AuthHandler {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	return &AuthHandler{auth: auth, logger: l}
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
		Contact  string `json:"contact" validate:"required,e164"`
	}
	type RegisterSuccessResponse struct {
		Message string `json:"message"`
		User    struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"user"`
	}

	data, err := render.BindAndValidate[RegisterRequest](w, r)
	if err != nil {
		return
	}

	user, err := h.auth.Register(r.Context(), auth.RegisterParams{
		Name:     data.Name,
		Email:    data.Email,
		Password: data.Password,
		Contact:  data.Contact,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User Already Exists!", http.StatusConflict)
		default:
			h.logger.Error("register failed", "error", err.Error())
			render.ServiceError(w, "Server Error", http.StatusInternalServerError)
		}
		return
	}

	response := RegisterSuccessResponse{Message: "User Created Successfully!"}
	response.User.Email = user.Email
	response.User.Name = user.Name
	render.JSONWithStatus(w, response, http.StatusCreated)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	type LoginSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.auth.Login(r.Context(), data.Email, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid Email or Password!", http.StatusUnauthorized)
		default:
			h.logger.Error("login failed", "error", err.Error())
			render.ServiceError(w, "Server Error", http.StatusInternalServerError)
		}
		return
	}

	h.auth.SetTokens(w, pair)
	render.JSON(w, LoginSuccessResponse{Message: "Login Success"})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	type LogoutRequest struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	type LogoutSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[LogoutRequest](w, r)
	if err != nil {
		return
	}

	if err := h.auth.Logout(r.Context(), data.RefreshToken); err != nil {
		h.logger.Error("logout failed", "error", err.Error())
		render.ServiceError(w, "Logout failed", http.StatusInternalServerError)
		return
	}

	h.auth.ClearTokens(w)
	render.JSON(w, LogoutSuccessResponse{Message: "Logout successful"})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshSuccessResponse struct {
		Message string `json:"message"`
	}

	refresh, err := h.auth.ReadRefreshCookie(r)
	if err != nil {
		render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
		return
	}

	pair, err := h.auth.Refresh(r.Context(), refresh)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrRefreshTokenExpired):
			render.ServiceError(w, "Refresh token expired", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrRefreshTokenRevoked),
			errors.Is(err, apperrors.ErrRefreshTokenNotFound),
			errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
		default:
			h.logger.Error("refresh failed", "error", err.Error())
			render.ServiceError(w, "Server Error", http.StatusInternalServerError)
		}
		return
	}

	h.auth.SetTokens(w, pair)
	render.JSON(w, RefreshSuccessResponse{Message: "Tokens refreshed successfully"})
}

func (h *AuthHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	type ForgotPasswordRequest struct {
		Email string `json:"email" validate:"required,email"`
	}
	type ForgotPasswordSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[ForgotPasswordRequest](w, r)
	if err != nil {
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), data.Email); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusBadRequest)
		default:
			h.logger.Error("forgot password failed", "error", err.Error())
			render.ServiceError(w, "Server Error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, ForgotPasswordSuccessResponse{Message: "OTP sent successfully"})
}

func (h *AuthHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	type ResetPasswordRequest struct {
		Email       string `json:"email" validate:"required,email"`
		OTP         string `json:"otp" validate:"required,len=6,numeric"`
		NewPassword string `json:"newPassword" validate:"required,min=6"`
	}
	type ResetPasswordSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[ResetPasswordRequest](w, r)
	if err != nil {
		return
	}

	err = h.auth.ResetPassword(r.Context(), data.Email, data.OTP, data.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrOTPNotFound):
			render.ServiceError(w, "OTP not found", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrOTPInvalid):
			render.ServiceError(w, "Invalid OTP", http.StatusBadRequest)
		default:
			h.logger.Error("reset password failed", "error", err.Error())
			render.ServiceError(w, "Server Error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, ResetPasswordSuccessResponse{Message: "Password updated successfully"})
}

func (h *AuthHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	type ChangePasswordRequest struct {
		PrevPassword string `json:"prevPassword" validate:"required"`
		NewPassword  string `json:"newPassword" validate:"required,min=6"`
	}
	type ChangePasswordSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[ChangePasswordRequest](w, r)
	if err != nil {
		return
	}

	user, ok := UserFromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	err = h.auth.ChangePassword(r.Context(), user.ID, data.PrevPassword, data.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrPasswordMismatch):
			render.ServiceError(w, "Incorrect Password", http.StatusBadRequest)
		default:
			h.logger.Error("change password failed", "error", err.Error())
			render.ServiceError(w, "Server Error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, ChangePasswordSuccessResponse{Message: "Password Changed Successfully"})
}
