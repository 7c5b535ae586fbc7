// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signupd/internal/secrets"
)

func TestHashPassword_Roundtrip(t *testing.T) {
	hash, err := secrets.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, hash.Verify("correct horse battery staple"))
	assert.False(t, hash.Verify("correct horse battery stable"))
	assert.False(t, hash.Verify(""))
}

func TestHashPassword_FreshSaltPerCall(t *testing.T) {
	first, err := secrets.HashPassword("hunter2hunter2")
	require.NoError(t, err)
	second, err := secrets.HashPassword("hunter2hunter2")
	require.NoError(t, err)

	assert.NotEqual(t, first.Salt, second.Salt)
	assert.NotEqual(t, first.Digest, second.Digest)

	// Both still verify the same plaintext.
	assert.True(t, first.Verify("hunter2hunter2"))
	assert.True(t, second.Verify("hunter2hunter2"))
}

func TestHashPassword_SaltEntropy(t *testing.T) {
	hash, err := secrets.HashPassword("pw")
	require.NoError(t, err)
	assert.Len(t, hash.Salt, 32)
	assert.Len(t, hash.Digest, 32)
}

func TestVerify_MalformedInputs(t *testing.T) {
	tests := []struct {
		name string
		hash secrets.PasswordHash
	}{
		{"empty", secrets.PasswordHash{}},
		{"short digest", secrets.PasswordHash{Digest: []byte("short"), Salt: make([]byte, 32)}},
		{"short salt", secrets.PasswordHash{Digest: make([]byte, 32), Salt: []byte("short")}},
		{"nil salt", secrets.PasswordHash{Digest: make([]byte, 32)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Must return false, never panic.
			assert.False(t, tt.hash.Verify("anything"))
		})
	}
}
