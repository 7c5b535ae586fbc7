// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"signupd/internal/services/account"
	"signupd/internal/services/token"
)

// invalidCredentialsMsg is returned for both unknown accounts and wrong
// passwords so responses do not reveal whether an email is registered.
const invalidCredentialsMsg = "Invalid credentials."

// AuthHandlers contains handlers for the account and token endpoints.
type AuthHandlers struct {
	accounts *account.Service
	tokens   *token.Service
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(accounts *account.Service, tokens *token.Service) *AuthHandlers {
	return &AuthHandlers{
		accounts: accounts,
		tokens:   tokens,
	}
}

// RegisterRequest is the request body for registration.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account and triggers the verification email.
func (h *AuthHandlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request.")
	}

	user, err := h.accounts.Register(c.Request().Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, account.ErrDuplicateAccount):
		return jsonError(c, http.StatusBadRequest, "User already exists.")
	case errors.Is(err, account.ErrInvalidEmail):
		return jsonError(c, http.StatusBadRequest, "Invalid email address.")
	case errors.Is(err, account.ErrWeakPassword):
		return jsonError(c, http.StatusBadRequest, "Password does not meet requirements.")
	default:
		slog.Error("register_error", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to create user.")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "User successfully created! Please check your email to verify.",
		"id":      user.ID,
	})
}

// LoginRequest is the request body for login and generate-token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a verified account and returns an access/refresh token
// pair. The token is always returned on success.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request.")
	}

	user, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, account.ErrAccountNotFound), errors.Is(err, account.ErrInvalidCredentials):
		return jsonError(c, http.StatusBadRequest, invalidCredentialsMsg)
	case errors.Is(err, account.ErrEmailNotVerified):
		return jsonError(c, http.StatusBadRequest, "Email not verified.")
	default:
		slog.Error("login_error", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Login failed.")
	}

	pair, err := h.tokens.IssuePair(c.Request().Context(), user)
	if err != nil {
		slog.Error("token_issue_error", "error", err, "user_id", user.ID)
		return jsonError(c, http.StatusInternalServerError, "Login failed.")
	}

	return c.JSON(http.StatusOK, pair)
}

// Verify consumes a verification token from the query string.
func (h *AuthHandlers) Verify(c echo.Context) error {
	tok := c.QueryParam("token")

	if _, err := h.accounts.Verify(c.Request().Context(), tok); err != nil {
		if errors.Is(err, account.ErrInvalidToken) {
			return jsonError(c, http.StatusBadRequest, "Invalid token.")
		}
		slog.Error("verify_error", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Verification failed.")
	}

	return jsonMessage(c, "Email verified successfully!")
}

// ForgotPasswordRequest is the request body for forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a password reset token and emails the reset link.
func (h *AuthHandlers) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request.")
	}

	if err := h.accounts.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return jsonError(c, http.StatusBadRequest, "User not found.")
		}
		slog.Error("forgot_password_error", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to create reset token.")
	}

	return jsonMessage(c, "Reset password link sent to your email.")
}

// ResetPasswordRequest is the request body for reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword consumes a reset token and sets a new password.
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request.")
	}

	err := h.accounts.ResetPassword(c.Request().Context(), req.Token, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, account.ErrInvalidOrExpiredToken):
		return jsonError(c, http.StatusBadRequest, "Invalid or expired token.")
	case errors.Is(err, account.ErrWeakPassword):
		return jsonError(c, http.StatusBadRequest, "Password does not meet requirements.")
	default:
		slog.Error("reset_password_error", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to reset password.")
	}

	return jsonMessage(c, "Password successfully reset.")
}

// GenerateToken issues an access token after a plain credential check. Unlike
// Login it does not require a verified email.
func (h *AuthHandlers) GenerateToken(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request.")
	}

	user, err := h.accounts.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) || errors.Is(err, account.ErrInvalidCredentials) {
			return jsonError(c, http.StatusBadRequest, invalidCredentialsMsg)
		}
		slog.Error("generate_token_error", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to generate token.")
	}

	access, err := h.tokens.IssueAccess(user)
	if err != nil {
		slog.Error("token_issue_error", "error", err, "user_id", user.ID)
		return jsonError(c, http.StatusInternalServerError, "Failed to generate token.")
	}

	return c.JSON(http.StatusOK, map[string]string{"token": access})
}

// RefreshTokenRequest is the request body for the refresh exchange.
type RefreshTokenRequest struct {
	ExpiredToken string `json:"expired_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken exchanges an expired access token and a live refresh token for
// a new pair.
func (h *AuthHandlers) RefreshToken(c echo.Context) error {
	var req RefreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request.")
	}

	pair, err := h.tokens.Refresh(c.Request().Context(), req.ExpiredToken, req.RefreshToken)
	switch {
	case err == nil:
	case errors.Is(err, token.ErrAuthFailure), errors.Is(err, token.ErrInvalidToken):
		return jsonError(c, http.StatusUnauthorized, "Invalid token.")
	default:
		slog.Error("refresh_token_error", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Failed to refresh token.")
	}

	return c.JSON(http.StatusOK, pair)
}

// LogoutRequest is the request body for logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout invalidates a refresh token.
func (h *AuthHandlers) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request.")
	}

	if err := h.tokens.Invalidate(c.Request().Context(), req.RefreshToken); err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			return jsonError(c, http.StatusBadRequest, "Invalid token.")
		}
		slog.Error("logout_error", "error", err)
		return jsonError(c, http.StatusInternalServerError, "Logout failed.")
	}

	return jsonMessage(c, "Logged out.")
}
