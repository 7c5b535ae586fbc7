// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signupd/internal/handlers"
	"signupd/internal/testutil"
)

func TestHealth(t *testing.T) {
	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/health", nil)

	require.NoError(t, handlers.Health(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
