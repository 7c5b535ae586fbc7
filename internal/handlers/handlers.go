// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers maps HTTP requests onto the account and token services.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health returns the health status.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func jsonError(c echo.Context, code int, message string) error {
	return c.JSON(code, map[string]string{"error": message})
}

func jsonMessage(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, map[string]string{"message": message})
}
