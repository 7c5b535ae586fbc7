// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package secrets provides password hashing and opaque token generation.
package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Changing these invalidates no stored hashes: the salt
// and digest lengths are carried per record, and the cost parameters below are
// the only ones ever used for both hashing and verification.
const (
	saltLength  = 32 // 256 bits
	keyLength   = 32
	timeCost    = 1
	memoryKB    = 64 * 1024
	parallelism = 4
)

// PasswordHash bundles a password digest with the salt it was derived from.
// Both fields are always written to storage together.
type PasswordHash struct {
	Digest []byte
	Salt   []byte
}

// HashPassword derives a salted argon2id digest from the plaintext. Every call
// draws a fresh random salt, so two hashes of the same password never match.
func HashPassword(plaintext string) (PasswordHash, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return PasswordHash{}, fmt.Errorf("generating salt: %w", err)
	}

	digest := argon2.IDKey([]byte(plaintext), salt, timeCost, memoryKB, parallelism, keyLength)

	return PasswordHash{Digest: digest, Salt: salt}, nil
}

// Verify recomputes the digest for the candidate plaintext with the stored
// salt and compares in constant time. Malformed or truncated inputs simply
// fail verification.
func (h PasswordHash) Verify(plaintext string) bool {
	if len(h.Digest) != keyLength || len(h.Salt) != saltLength {
		return false
	}

	computed := argon2.IDKey([]byte(plaintext), h.Salt, timeCost, memoryKB, parallelism, keyLength)

	return subtle.ConstantTimeCompare(computed, h.Digest) == 1
}
