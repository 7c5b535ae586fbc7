// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signupd/internal/config"
	"signupd/internal/services/email"
)

func validSMTPConfig() *config.SMTPConfig {
	return &config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "testuser",
		Password: "testpass",
		From:     "noreply@example.com",
		FromName: "Signupd",
		TLS:      true,
	}
}

func TestNewService(t *testing.T) {
	cfg := validSMTPConfig()

	svc, err := email.NewService(cfg, "https://example.com")

	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestNewService_MissingHost(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.Host = ""

	_, err := email.NewService(cfg, "https://example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP host is required")
}

func TestNewService_MissingFrom(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.From = ""

	_, err := email.NewService(cfg, "https://example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP from address is required")
}

func TestNewService_TrailingSlashTrimmed(t *testing.T) {
	cfg := validSMTPConfig()

	svc, err := email.NewService(cfg, "https://example.com/")

	require.NoError(t, err)
	assert.NotNil(t, svc)
}
