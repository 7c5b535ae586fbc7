// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// tokenLength is the number of random bytes in an opaque token (256 bits).
const tokenLength = 32

// NewToken returns an opaque, URL-safe token drawn from the crypto/rand
// source. Used for verification links, password reset links, refresh tokens
// and signing keys.
func NewToken() (string, error) {
	buf := make([]byte, tokenLength)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken computes the SHA256 hash of a token for at-rest storage.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
