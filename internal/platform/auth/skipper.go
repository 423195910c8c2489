package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass token parsing entirely.
var publicPaths = map[string]bool{
	"/health":             true,
	"/health/db":          true,
	"/metrics":            true,
	"/api/v1/auth/signup": true,
	"/api/v1/auth/login":  true,
}

// AuthSkipper returns true for requests whose route should skip token checks.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether path is served without a session.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
