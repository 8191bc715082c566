package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"oembedfixes/internal/core"
)

// AuthMiddleware creates an Echo middleware that validates the master key
// if it's configured. If masterKey is empty, no authentication is required.
// Paths in skipPaths are served without a key; an entry ending in "/" matches
// every path below it.
func AuthMiddleware(masterKey string, skipPaths []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// If no master key is configured, allow all requests
			if masterKey == "" || skipped(c.Request().URL.Path, skipPaths) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorized(c, "missing authorization header")
			}

			const prefix = "Bearer "
			if !strings.HasPrefix(authHeader, prefix) {
				return unauthorized(c, "invalid authorization header format, expected 'Bearer <token>'")
			}

			token := strings.TrimPrefix(authHeader, prefix)
			if subtle.ConstantTimeCompare([]byte(token), []byte(masterKey)) != 1 {
				return unauthorized(c, "invalid master key")
			}

			return next(c)
		}
	}
}

func skipped(path string, skipPaths []string) bool {
	for _, p := range skipPaths {
		if path == p {
			return true
		}
		if strings.HasSuffix(p, "/") && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, core.NewAuthenticationError(message).ToJSON())
}
