// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and validates signed access tokens and manages opaque,
// server-side refresh tokens.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"signupd/internal/models"
	"signupd/internal/repository"
	"signupd/internal/secrets"
)

var (
	// ErrAuthFailure covers every access token defect that is not plain
	// expiry: bad signature, wrong issuer, malformed input. Callers never
	// see partial claims alongside it.
	ErrAuthFailure = errors.New("authentication failure")
	// ErrTokenExpired marks a token whose signature is valid but whose
	// lifetime has elapsed. This is the only state Refresh accepts.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidToken marks an unknown, expired or revoked refresh token.
	ErrInvalidToken = errors.New("invalid refresh token")
)

// RefreshStore persists opaque refresh tokens, keyed by hash.
type RefreshStore interface {
	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, tokenHash string) error
	DeleteUserRefreshTokens(ctx context.Context, userID string) error
}

// Config carries the signing material and token lifetimes. It is built once
// at process start and treated as immutable afterwards.
type Config struct {
	SigningKey []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Claims are the subject identity claims embedded in access tokens. Subject
// is the account id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Pair is an access token plus the refresh token that can renew it.
type Pair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// Service signs and validates tokens with a symmetric key (HMAC-SHA256).
type Service struct {
	cfg   Config
	store RefreshStore
}

// NewService validates the configuration and creates a token service.
func NewService(cfg Config, store RefreshStore) (*Service, error) {
	if len(cfg.SigningKey) < 32 {
		return nil, errors.New("signing key must be at least 32 bytes")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	return &Service{cfg: cfg, store: store}, nil
}

// IssueAccess returns a signed access token for the account.
func (s *Service) IssueAccess(user *models.User) (string, error) {
	return s.sign(user.ID, user.Email)
}

func (s *Service) sign(subject, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.SigningKey)
}

func (s *Service) keyFunc(*jwt.Token) (any, error) {
	return s.cfg.SigningKey, nil
}

// ValidateAccess verifies signature, issuer and lifetime. A token that fails
// only the lifetime check returns ErrTokenExpired; any other defect returns
// ErrAuthFailure without claims.
func (s *Service) ValidateAccess(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrAuthFailure
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, ErrAuthFailure
	}
}

// parseExpired verifies signature and issuer but ignores lifetime. Leniency
// applies to expiry only, never to the signature.
func (s *Service) parseExpired(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, ErrAuthFailure
	}
	if s.cfg.Issuer != "" && claims.Issuer != s.cfg.Issuer {
		return nil, ErrAuthFailure
	}
	return claims, nil
}

// IssueRefresh creates an opaque refresh token for the account and stores its
// hash with an expiry. The plaintext is returned to the client only.
func (s *Service) IssueRefresh(ctx context.Context, userID string) (string, error) {
	plaintext, err := secrets.NewToken()
	if err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.cfg.RefreshTTL)
	if err := s.store.CreateRefreshToken(ctx, userID, secrets.HashToken(plaintext), expiresAt); err != nil {
		return "", fmt.Errorf("storing refresh token: %w", err)
	}

	return plaintext, nil
}

// IssuePair returns a fresh access and refresh token for the account.
func (s *Service) IssuePair(ctx context.Context, user *models.User) (Pair, error) {
	access, err := s.IssueAccess(user)
	if err != nil {
		return Pair{}, fmt.Errorf("issuing access token: %w", err)
	}
	refresh, err := s.IssueRefresh(ctx, user.ID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges an expired (but correctly signed) access token plus a
// live refresh token for a new pair. The old refresh token is consumed in the
// exchange; presenting it again fails with ErrInvalidToken.
func (s *Service) Refresh(ctx context.Context, expiredAccess, refreshToken string) (Pair, error) {
	claims, err := s.parseExpired(expiredAccess)
	if err != nil {
		return Pair{}, err
	}

	hash := secrets.HashToken(refreshToken)
	record, err := s.store.FindRefreshToken(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Pair{}, ErrInvalidToken
		}
		return Pair{}, fmt.Errorf("finding refresh token: %w", err)
	}

	if record.UserID != claims.Subject {
		return Pair{}, ErrInvalidToken
	}
	if record.Expired(time.Now().UTC()) {
		_ = s.store.DeleteRefreshToken(ctx, hash)
		return Pair{}, ErrInvalidToken
	}

	// Rotation: the delete doubles as the single-use guard. A raced second
	// exchange sees zero rows and fails.
	if err := s.store.DeleteRefreshToken(ctx, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Pair{}, ErrInvalidToken
		}
		return Pair{}, fmt.Errorf("consuming refresh token: %w", err)
	}

	access, err := s.sign(claims.Subject, claims.Email)
	if err != nil {
		return Pair{}, fmt.Errorf("issuing access token: %w", err)
	}
	refresh, err := s.IssueRefresh(ctx, record.UserID)
	if err != nil {
		return Pair{}, err
	}

	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Invalidate revokes a refresh token. Subsequent Refresh calls using it fail
// with ErrInvalidToken.
func (s *Service) Invalidate(ctx context.Context, refreshToken string) error {
	err := s.store.DeleteRefreshToken(ctx, secrets.HashToken(refreshToken))
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidToken
	}
	return err
}
