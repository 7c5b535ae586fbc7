// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package account implements the credential lifecycle: registration, email
// verification, authentication and password reset.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"signupd/internal/models"
	"signupd/internal/repository"
	"signupd/internal/secrets"
)

var (
	ErrDuplicateAccount      = errors.New("account already exists")
	ErrAccountNotFound       = errors.New("account not found")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrInvalidToken          = errors.New("invalid token")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrInvalidEmail          = errors.New("invalid email format")
	ErrWeakPassword          = errors.New("password does not meet requirements")
)

// MinPasswordLength is the minimum accepted password length in bytes.
const MinPasswordLength = 8

// dummyHash is verified on the account-not-found login path so both failure
// branches cost one KDF invocation.
var dummyHash = mustDummyHash()

func mustDummyHash() secrets.PasswordHash {
	hash, err := secrets.HashPassword("dummy-password-for-timing")
	if err != nil {
		// crypto/rand is unreadable; the process cannot mint tokens either.
		panic(fmt.Errorf("initializing dummy hash: %w", err))
	}
	return hash
}

// Store is the credential store consumed by the account service. The
// concrete implementation must enforce email uniqueness at the storage layer
// and perform the Consume operations atomically.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.User, error)
	FindByResetToken(ctx context.Context, token string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	ConsumeVerificationToken(ctx context.Context, token string, verifiedAt time.Time) (*models.User, error)
	ConsumeResetToken(ctx context.Context, token string, now time.Time, hash, salt []byte) (*models.User, error)
}

// Mailer delivers verification and reset links. Sends happen after the
// triggering state transition is durable; failures are logged, never
// propagated.
type Mailer interface {
	SendVerification(ctx context.Context, to, token string) error
	SendPasswordReset(ctx context.Context, to, token string) error
}

// Service is the account state machine.
type Service struct {
	store       Store
	mailer      Mailer
	resetWindow time.Duration
}

// NewService creates an account service. resetWindow bounds the validity of
// password reset tokens.
func NewService(store Store, mailer Mailer, resetWindow time.Duration) *Service {
	if resetWindow == 0 {
		resetWindow = time.Hour
	}
	return &Service{
		store:       store,
		mailer:      mailer,
		resetWindow: resetWindow,
	}
}

// Register creates a new unverified account and emails a verification link.
// The email lookup is a fast path; the unique index on email is what actually
// prevents two concurrent registrations from both succeeding.
func (s *Service) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	_, err := s.store.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrDuplicateAccount
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("checking existing account: %w", err)
	}

	hash, err := secrets.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	token, err := secrets.NewToken()
	if err != nil {
		return nil, fmt.Errorf("generating verification token: %w", err)
	}

	user := &models.User{
		ID:                uuid.NewString(),
		Email:             email,
		PasswordHash:      hash.Digest,
		PasswordSalt:      hash.Salt,
		VerificationToken: &token,
	}

	if err := s.store.Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	slog.Info("register_success", "user_id", user.ID, "email", email)

	// The account is durable at this point; a failed send only costs the
	// user a re-request of the link.
	if err := s.mailer.SendVerification(ctx, email, token); err != nil {
		slog.Error("mail_send_failed", "kind", "verification", "email", email, "error", err)
	}

	return user, nil
}

// Verify consumes a verification token and marks the account verified. The
// token is cleared in the same statement, so a second call with the same
// token fails with ErrInvalidToken.
func (s *Service) Verify(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.store.ConsumeVerificationToken(ctx, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("consuming verification token: %w", err)
	}

	slog.Info("verify_success", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Authenticate checks email and password without the verification gate. The
// two failure modes stay distinguishable for callers and logs; the HTTP
// boundary collapses them into one message to avoid account enumeration.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a KDF invocation so this branch is not observably faster.
			_ = dummyHash.Verify(password)
			slog.Warn("login_failed", "email", email, "reason", "account_not_found")
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("finding account: %w", err)
	}

	hash := secrets.PasswordHash{Digest: user.PasswordHash, Salt: user.PasswordSalt}
	if !hash.Verify(password) {
		slog.Warn("login_failed", "email", email, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Login authenticates an account and additionally requires a verified email.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if !user.Verified() {
		slog.Warn("login_failed", "email", email, "reason", "email_not_verified")
		return nil, ErrEmailNotVerified
	}

	slog.Info("login_success", "user_id", user.ID, "email", email)
	return user, nil
}

// ForgotPassword issues a fresh reset token valid for the configured window
// and emails a reset link. A prior pending token is overwritten, so only the
// most recently issued one is valid.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("finding account: %w", err)
	}

	token, err := secrets.NewToken()
	if err != nil {
		return fmt.Errorf("generating reset token: %w", err)
	}

	expires := time.Now().UTC().Add(s.resetWindow)
	user.PasswordResetToken = &token
	user.ResetTokenExpires = &expires

	if err := s.store.Update(ctx, user); err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}

	slog.Info("password_reset_requested", "user_id", user.ID, "email", user.Email)

	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		slog.Error("mail_send_failed", "kind", "password_reset", "email", user.Email, "error", err)
	}

	return nil
}

// ResetPassword consumes a reset token and replaces the account password with
// a fresh hash and salt. Expiry is checked strictly inside the store's
// conditional update, so an expired or already-used token cannot authorize a
// second change. Verification state is untouched.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidOrExpiredToken
	}
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	hash, err := secrets.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user, err := s.store.ConsumeResetToken(ctx, token, time.Now().UTC(), hash.Digest, hash.Salt)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("consuming reset token: %w", err)
	}

	slog.Info("password_reset_success", "user_id", user.ID, "email", user.Email)
	return nil
}
