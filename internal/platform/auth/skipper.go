package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are matched against the registered route, not the raw URL.
var publicPaths = map[string]bool{
	"/health":                     true,
	"/health/db":                  true,
	"/metrics":                    true,
	"/api/v1/auth/login":          true,
	"/api/v1/auth/signup":         true,
	"/api/v1/doctors":             true,
	"/api/v1/doctors/:id":         true,
	"/api/v1/doctors/:id/reviews": true,
	"/api/v1/appointments/slots":  true,
}

// queryTokenPaths accept the token as an access_token query parameter, since
// browsers cannot set headers on a websocket upgrade.
var queryTokenPaths = map[string]bool{
	"/ws": true,
}

// AuthSkipper returns true for requests whose path should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
