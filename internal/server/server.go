// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage, services and routes into the
// running HTTP service.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"

	"signupd/internal/config"
	"signupd/internal/database"
	"signupd/internal/handlers"
	"signupd/internal/i18n"
	"signupd/internal/repository"
	"signupd/internal/services/account"
	"signupd/internal/services/email"
	"signupd/internal/services/token"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	// Repository
	repo := repository.New(db)

	// Services
	mailer, err := email.NewService(&cfg.SMTP, cfg.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to create mail service: %w", err)
	}

	accounts := account.NewService(repo, mailer, cfg.Auth.ResetTokenWindow)

	tokens, err := token.NewService(token.Config{
		SigningKey: []byte(cfg.JWT.SigningKey),
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	}, repo)
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	// Expired refresh tokens are dead weight; sweep them in the background.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepExpiredTokens(sweepCtx, repo)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, accounts, tokens)

	return startWithGracefulShutdown(e, cfg)
}

func setupRoutes(e *echo.Echo, accounts *account.Service, tokens *token.Service) {
	e.GET("/health", handlers.Health)

	h := handlers.NewAuth(accounts, tokens)

	user := e.Group("/api/user")
	user.POST("/register", h.Register)
	user.POST("/login", h.Login)
	// GET because the link arrives in an email; POST kept for API clients.
	user.GET("/verify", h.Verify)
	user.POST("/verify", h.Verify)
	user.POST("/forgot-password", h.ForgotPassword)
	user.POST("/reset-password", h.ResetPassword)
	user.POST("/generate-token", h.GenerateToken)
	user.POST("/refresh-token", h.RefreshToken)
	user.POST("/logout", h.Logout)
}

// sweepExpiredTokens deletes expired refresh tokens once an hour until the
// context is cancelled.
func sweepExpiredTokens(ctx context.Context, repo *repository.Repository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := repo.DeleteExpiredRefreshTokens(ctx); err != nil {
				slog.Error("refresh_token_sweep_failed", "error", err)
			}
		}
	}
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	errChan := make(chan error, 2)

	// HTTP redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, ":443", tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP to HTTPS redirect active", "addr", ":80")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeSelfSigned, TLSModeManual:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
