// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"

	"signupd/internal/database"
	"signupd/internal/models"
	"signupd/internal/repository"
	"signupd/internal/secrets"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, repository.New(db)
}

// NewTestUser creates a verified user with the given password.
func NewTestUser(t *testing.T, repo *repository.Repository, email, password string) *models.User {
	t.Helper()
	user := newUser(t, email, password)
	now := time.Now().UTC()
	user.VerifiedAt = &now

	require.NoError(t, repo.Insert(context.Background(), user))
	return user
}

// NewUnverifiedUser creates a user still holding a verification token.
func NewUnverifiedUser(t *testing.T, repo *repository.Repository, email, password, token string) *models.User {
	t.Helper()
	user := newUser(t, email, password)
	user.VerificationToken = &token

	require.NoError(t, repo.Insert(context.Background(), user))
	return user
}

func newUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := secrets.HashPassword(password)
	require.NoError(t, err)

	return &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash.Digest,
		PasswordSalt: hash.Salt,
	}
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// Mail is one message captured by FakeMailer.
type Mail struct {
	To    string
	Token string
	Kind  string // "verification" or "password_reset"
}

// FakeMailer records sends instead of talking to an SMTP server.
type FakeMailer struct {
	mu    sync.Mutex
	Sent  []Mail
	Fail  bool
	Error error
}

func (m *FakeMailer) SendVerification(_ context.Context, to, token string) error {
	return m.record(Mail{To: to, Token: token, Kind: "verification"})
}

func (m *FakeMailer) SendPasswordReset(_ context.Context, to, token string) error {
	return m.record(Mail{To: to, Token: token, Kind: "password_reset"})
}

func (m *FakeMailer) record(mail Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		if m.Error != nil {
			return m.Error
		}
		return errSendFailed
	}
	m.Sent = append(m.Sent, mail)
	return nil
}

// Last returns the most recently captured mail.
func (m *FakeMailer) Last(t *testing.T) Mail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.Sent)
	return m.Sent[len(m.Sent)-1]
}

var errSendFailed = errFake("smtp send failed")

type errFake string

func (e errFake) Error() string { return string(e) }
