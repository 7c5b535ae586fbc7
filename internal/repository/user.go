// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"strings"
	"time"

	"signupd/internal/models"
)

// FindByEmail retrieves a user by email address. Lookup is case-insensitive;
// emails are stored lowercased.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT * FROM users WHERE email = ?`, strings.ToLower(email))
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// FindByVerificationToken retrieves the user holding the given verification token.
func (r *Repository) FindByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT * FROM users WHERE verification_token = ?`, token)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// FindByResetToken retrieves the user holding the given password reset token.
func (r *Repository) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT * FROM users WHERE password_reset_token = ?`, token)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// Insert persists a new user. The unique index on email is the authoritative
// duplicate guard; a violation surfaces as ErrDuplicate.
func (r *Repository) Insert(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, password_salt, verification_token,
			verified_at, password_reset_token, reset_token_expires, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.PasswordSalt, user.VerificationToken,
		user.VerifiedAt, user.PasswordResetToken, user.ResetTokenExpires,
		user.CreatedAt, user.UpdatedAt)
	return wrapError(err)
}

// Update writes all mutable user fields.
func (r *Repository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = ?, password_hash = ?, password_salt = ?,
			verification_token = ?, verified_at = ?, password_reset_token = ?,
			reset_token_expires = ?, updated_at = ?
		 WHERE id = ?`,
		strings.ToLower(user.Email), user.PasswordHash, user.PasswordSalt,
		user.VerificationToken, user.VerifiedAt, user.PasswordResetToken,
		user.ResetTokenExpires, user.UpdatedAt, user.ID)
	if err != nil {
		return wrapError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeVerificationToken atomically marks the account holding the token as
// verified and clears the token. The conditional UPDATE guarantees single use:
// a second call with the same token affects zero rows and returns ErrNotFound.
func (r *Repository) ConsumeVerificationToken(ctx context.Context, token string, verifiedAt time.Time) (*models.User, error) {
	user, err := r.FindByVerificationToken(ctx, token)
	if err != nil {
		return nil, err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET verified_at = ?, verification_token = NULL, updated_at = ?
		 WHERE verification_token = ?`,
		verifiedAt, time.Now().UTC(), token)
	if err != nil {
		return nil, wrapError(err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		// Lost a race with a concurrent consume.
		return nil, ErrNotFound
	}

	user.VerifiedAt = &verifiedAt
	user.VerificationToken = nil
	return user, nil
}

// ConsumeResetToken atomically replaces the password of the account holding a
// still-valid reset token and clears the token. Expiry is checked inside the
// UPDATE (strictly greater than now), so an expired or already-consumed token
// affects zero rows and returns ErrNotFound.
func (r *Repository) ConsumeResetToken(ctx context.Context, token string, now time.Time, hash, salt []byte) (*models.User, error) {
	user, err := r.FindByResetToken(ctx, token)
	if err != nil {
		return nil, err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, password_salt = ?,
			password_reset_token = NULL, reset_token_expires = NULL, updated_at = ?
		 WHERE password_reset_token = ? AND reset_token_expires > ?`,
		hash, salt, time.Now().UTC(), token, now)
	if err != nil {
		return nil, wrapError(err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, ErrNotFound
	}

	user.PasswordHash = hash
	user.PasswordSalt = salt
	user.PasswordResetToken = nil
	user.ResetTokenExpires = nil
	return user, nil
}
