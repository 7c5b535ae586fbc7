// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"
)

// User is the persisted account record. Credential material (hash and salt)
// is opaque here; only the secrets package interprets it.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID                 string     `db:"id" json:"id"`
	Email              string     `db:"email" json:"email"`
	PasswordHash       []byte     `db:"password_hash" json:"-"`
	PasswordSalt       []byte     `db:"password_salt" json:"-"`
	VerificationToken  *string    `db:"verification_token" json:"-"`
	VerifiedAt         *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	PasswordResetToken *string    `db:"password_reset_token" json:"-"`
	ResetTokenExpires  *time.Time `db:"reset_token_expires" json:"-"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Verified reports whether the account has completed email verification.
func (u *User) Verified() bool {
	return u.VerifiedAt != nil
}
