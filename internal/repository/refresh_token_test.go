// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signupd/internal/repository"
	"signupd/internal/testutil"
)

func TestCreateAndFindRefreshToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com", "password-123")
	expiresAt := time.Now().UTC().Add(24 * time.Hour)

	require.NoError(t, repo.CreateRefreshToken(ctx, user.ID, "hash-abc", expiresAt))

	token, err := repo.FindRefreshToken(ctx, "hash-abc")
	require.NoError(t, err)
	assert.Equal(t, user.ID, token.UserID)
	assert.Equal(t, "hash-abc", token.TokenHash)
	assert.WithinDuration(t, expiresAt, token.ExpiresAt, time.Second)
	assert.False(t, token.Expired(time.Now().UTC()))
}

func TestFindRefreshToken_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.FindRefreshToken(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteRefreshToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com", "password-123")
	require.NoError(t, repo.CreateRefreshToken(ctx, user.ID, "hash-abc", time.Now().UTC().Add(time.Hour)))

	require.NoError(t, repo.DeleteRefreshToken(ctx, "hash-abc"))

	_, err := repo.FindRefreshToken(ctx, "hash-abc")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Second delete reports not found.
	assert.ErrorIs(t, repo.DeleteRefreshToken(ctx, "hash-abc"), repository.ErrNotFound)
}

func TestDeleteUserRefreshTokens(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	alice := testutil.NewTestUser(t, repo, "alice@example.com", "password-123")
	bob := testutil.NewTestUser(t, repo, "bob@example.com", "password-123")

	expires := time.Now().UTC().Add(time.Hour)
	require.NoError(t, repo.CreateRefreshToken(ctx, alice.ID, "hash-a1", expires))
	require.NoError(t, repo.CreateRefreshToken(ctx, alice.ID, "hash-a2", expires))
	require.NoError(t, repo.CreateRefreshToken(ctx, bob.ID, "hash-b1", expires))

	require.NoError(t, repo.DeleteUserRefreshTokens(ctx, alice.ID))

	_, err := repo.FindRefreshToken(ctx, "hash-a1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.FindRefreshToken(ctx, "hash-a2")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Bob is untouched.
	_, err = repo.FindRefreshToken(ctx, "hash-b1")
	assert.NoError(t, err)
}

func TestDeleteExpiredRefreshTokens(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com", "password-123")
	require.NoError(t, repo.CreateRefreshToken(ctx, user.ID, "hash-old", time.Now().UTC().Add(-time.Hour)))
	require.NoError(t, repo.CreateRefreshToken(ctx, user.ID, "hash-new", time.Now().UTC().Add(time.Hour)))

	require.NoError(t, repo.DeleteExpiredRefreshTokens(ctx))

	_, err := repo.FindRefreshToken(ctx, "hash-old")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.FindRefreshToken(ctx, "hash-new")
	assert.NoError(t, err)
}
