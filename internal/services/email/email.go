// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers verification and password reset links over SMTP.
package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"signupd/internal/config"
	"signupd/internal/i18n"
)

// Service sends account lifecycle emails.
type Service struct {
	cfg     *config.SMTPConfig
	baseURL string
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig, baseURL string) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// SendVerification sends a verification email with the given token.
func (s *Service) SendVerification(ctx context.Context, toEmail, token string) error {
	verifyURL := fmt.Sprintf("%s/api/user/verify?token=%s", s.baseURL, token)

	subject := i18n.T(ctx, "email_verification_subject")
	body := i18n.TData(ctx, "email_verification_body", map[string]any{
		"VerifyURL": verifyURL,
	})

	return s.send(toEmail, subject, body)
}

// SendPasswordReset sends a password reset email with the given token.
func (s *Service) SendPasswordReset(ctx context.Context, toEmail, token string) error {
	resetURL := fmt.Sprintf("%s/api/user/reset-password?token=%s", s.baseURL, token)

	subject := i18n.T(ctx, "email_password_reset_subject")
	body := i18n.TData(ctx, "email_password_reset_body", map[string]any{
		"ResetURL": resetURL,
	})

	return s.send(toEmail, subject, body)
}

// send sends an email via SMTP using go-mail.
func (s *Service) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Implicit TLS (SSL) for port 465, STARTTLS for others
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
