// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package i18n_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"signupd/internal/i18n"
)

func TestInit(t *testing.T) {
	err := i18n.Init()
	require.NoError(t, err)
}

func TestT(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)

	// Should translate known key
	result := i18n.T(ctx, "email_verification_subject")
	assert.NotEqual(t, "email_verification_subject", result)
}

func TestT_German(t *testing.T) {
	require.NoError(t, i18n.Init())

	en := i18n.T(i18n.WithLocale(context.Background(), language.English), "email_verification_subject")
	de := i18n.T(i18n.WithLocale(context.Background(), language.German), "email_verification_subject")

	assert.NotEqual(t, "email_verification_subject", de)
	assert.NotEqual(t, en, de)
}

func TestT_UnknownKey(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)

	// Should return the key itself for unknown messages
	result := i18n.T(ctx, "unknown_key_that_does_not_exist")
	assert.Equal(t, "unknown_key_that_does_not_exist", result)
}

func TestT_NoLocaleContext(t *testing.T) {
	require.NoError(t, i18n.Init())

	// Without WithLocale, should fallback to English
	ctx := context.Background()

	result := i18n.T(ctx, "email_verification_subject")
	assert.NotEmpty(t, result)
}

func TestTData(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)

	result := i18n.TData(ctx, "email_verification_body", map[string]any{
		"VerifyURL": "https://example.com/api/user/verify?token=abc",
	})
	assert.True(t, strings.Contains(result, "https://example.com/api/user/verify?token=abc"))
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		expected       language.Tag
		acceptLanguage string
	}{
		{language.English, "en"},
		{language.English, "en-US"},
		{language.German, "de"},
		{language.German, "de-DE"},
		{language.German, "de-AT"},
		{language.English, "fr"}, // fallback to English
		{language.English, ""},   // empty defaults to English
		{language.German, "de, en;q=0.9"},
		{language.English, "en, de;q=0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.acceptLanguage, func(t *testing.T) {
			tag := i18n.MatchLanguage(tt.acceptLanguage)
			// Compare base language (ignore region)
			assert.Equal(t, tt.expected.String()[:2], tag.String()[:2])
		})
	}
}
