package middleware

import (
	"github.com/labstack/echo/v4"
)

const hstsValue = "max-age=31536000; includeSubDomains"

// SecurityHeaders sets response headers suited to a JSON API that serves
// patient records. HSTS is only sent when the server terminates TLS itself;
// behind a plain-HTTP listener the proxy owns that header.
func SecurityHeaders(hsts bool) echo.MiddlewareFunc {
	static := [][2]string{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"X-XSS-Protection", "0"},
		{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
		{"Referrer-Policy", "no-referrer"},
		// Appointment and history responses carry personal data.
		{"Cache-Control", "no-store"},
	}
	if hsts {
		static = append(static, [2]string{"Strict-Transport-Security", hstsValue})
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range static {
				h.Set(kv[0], kv[1])
			}
			return next(c)
		}
	}
}
