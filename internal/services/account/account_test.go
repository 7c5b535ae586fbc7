// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signupd/internal/repository"
	"signupd/internal/secrets"
	"signupd/internal/services/account"
	"signupd/internal/testutil"
)

func newService(t *testing.T) (*account.Service, *testutil.FakeMailer, *repository.Repository) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	mailer := &testutil.FakeMailer{}
	svc := account.NewService(repo, mailer, time.Hour)
	return svc, mailer, repo
}

func TestRegister(t *testing.T) {
	svc, mailer, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice@Example.com", "password-123")
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.Verified())
	require.NotNil(t, user.VerificationToken)

	sent := mailer.Last(t)
	assert.Equal(t, "alice@example.com", sent.To)
	assert.Equal(t, "verification", sent.Kind)
	assert.Equal(t, *user.VerificationToken, sent.Token)

	// Password is stored hashed, never verbatim.
	hash := secrets.PasswordHash{Digest: user.PasswordHash, Salt: user.PasswordSalt}
	assert.True(t, hash.Verify("password-123"))
	assert.NotEqual(t, []byte("password-123"), user.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "password-123")
	assert.ErrorIs(t, err, account.ErrInvalidEmail)

	_, err = svc.Register(ctx, "alice@example.com", "short")
	assert.ErrorIs(t, err, account.ErrWeakPassword)
}

func TestRegister_Duplicate(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password-123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice@example.com", "other-password")
	assert.ErrorIs(t, err, account.ErrDuplicateAccount)

	// Case only differs, still the same account.
	_, err = svc.Register(ctx, "ALICE@example.com", "other-password")
	assert.ErrorIs(t, err, account.ErrDuplicateAccount)
}

func TestRegister_MailFailureIsNotFatal(t *testing.T) {
	svc, mailer, repo := newService(t)
	mailer.Fail = true
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "password-123")
	require.NoError(t, err)

	// The account exists even though the mail never went out.
	stored, err := repo.FindByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.ID)
	assert.Empty(t, mailer.Sent)
}

func TestVerify(t *testing.T) {
	svc, mailer, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password-123")
	require.NoError(t, err)
	token := mailer.Last(t).Token

	user, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.True(t, user.Verified())
	assert.Nil(t, user.VerificationToken)

	// The token is consumed, a replay fails.
	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, account.ErrInvalidToken)
}

func TestVerify_UnknownToken(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Verify(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, account.ErrInvalidToken)

	_, err = svc.Verify(context.Background(), "")
	assert.ErrorIs(t, err, account.ErrInvalidToken)
}

func TestLogin(t *testing.T) {
	svc, mailer, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password-123")
	require.NoError(t, err)

	// Unverified accounts cannot log in even with correct credentials.
	_, err = svc.Login(ctx, "alice@example.com", "password-123")
	assert.ErrorIs(t, err, account.ErrEmailNotVerified)

	_, err = svc.Verify(ctx, mailer.Last(t).Token)
	require.NoError(t, err)

	user, err := svc.Login(ctx, "alice@example.com", "password-123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	_, err = svc.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "password-123")
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestAuthenticate_UnknownAccount(t *testing.T) {
	svc, _, _ := newService(t)

	// Runs the timing-equalizer hash on the not-found branch.
	_, err := svc.Authenticate(context.Background(), "nobody@example.com", "password-123")
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestAuthenticate_SkipsVerificationGate(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password-123")
	require.NoError(t, err)

	// Authenticate only checks credentials, not verification state.
	user, err := svc.Authenticate(ctx, "alice@example.com", "password-123")
	require.NoError(t, err)
	assert.False(t, user.Verified())
}

func TestForgotPassword(t *testing.T) {
	svc, mailer, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password-123")
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))

	sent := mailer.Last(t)
	assert.Equal(t, "password_reset", sent.Kind)
	assert.Equal(t, "alice@example.com", sent.To)
	assert.NotEmpty(t, sent.Token)

	assert.ErrorIs(t, svc.ForgotPassword(ctx, "nobody@example.com"), account.ErrAccountNotFound)
}

func TestForgotPassword_LastTokenWins(t *testing.T) {
	svc, mailer, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password-123")
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
	first := mailer.Last(t).Token
	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
	second := mailer.Last(t).Token
	require.NotEqual(t, first, second)

	// The second request invalidated the first token.
	assert.ErrorIs(t, svc.ResetPassword(ctx, first, "new-password-1"), account.ErrInvalidOrExpiredToken)
	assert.NoError(t, svc.ResetPassword(ctx, second, "new-password-1"))
}

func TestResetPassword(t *testing.T) {
	svc, mailer, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "password-123")
	require.NoError(t, err)
	_, err = svc.Verify(ctx, mailer.Last(t).Token)
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
	token := mailer.Last(t).Token

	require.NoError(t, svc.ResetPassword(ctx, token, "new-password-1"))

	// Old password is gone, new one works, verification state is untouched.
	_, err = svc.Login(ctx, "alice@example.com", "password-123")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "alice@example.com", "new-password-1")
	assert.NoError(t, err)

	// The token was consumed by the successful reset.
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "new-password-2"), account.ErrInvalidOrExpiredToken)
}

func TestResetPassword_Expired(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	mailer := &testutil.FakeMailer{}
	// Negative window backdates the token so it is already expired.
	svc := account.NewService(repo, mailer, -time.Nanosecond)

	ctx := context.Background()
	_, err := svc.Register(ctx, "alice@example.com", "password-123")
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(ctx, "alice@example.com"))
	token := mailer.Last(t).Token

	err = svc.ResetPassword(ctx, token, "new-password-1")
	assert.ErrorIs(t, err, account.ErrInvalidOrExpiredToken)
}

func TestResetPassword_Validation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.ResetPassword(ctx, "", "new-password-1"), account.ErrInvalidOrExpiredToken)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "some-token", "short"), account.ErrWeakPassword)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "some-token", "new-password-1"), account.ErrInvalidOrExpiredToken)
}
