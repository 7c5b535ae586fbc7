// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"signupd/internal/models"
)

// CreateRefreshToken stores a hashed refresh token for a user.
func (r *Repository) CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		userID, tokenHash, expiresAt, time.Now().UTC())
	return wrapError(err)
}

// FindRefreshToken retrieves a refresh token by hash.
func (r *Repository) FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.db.GetContext(ctx, &token,
		`SELECT * FROM refresh_tokens WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// DeleteRefreshToken removes a refresh token by hash. Deleting an unknown
// token returns ErrNotFound so a raced double-consume loses.
func (r *Repository) DeleteRefreshToken(ctx context.Context, tokenHash string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return wrapError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUserRefreshTokens removes all refresh tokens for a user.
func (r *Repository) DeleteUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	return wrapError(err)
}

// DeleteExpiredRefreshTokens removes tokens past their expiry.
func (r *Repository) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, time.Now().UTC())
	return wrapError(err)
}
