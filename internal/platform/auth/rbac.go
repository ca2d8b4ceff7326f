package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole lets the request through when the caller holds any of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			for _, r := range roles {
				if HasRole(ctx, r) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "requires the "+strings.Join(roles, " or ")+" role")
		}
	}
}

// RequireDoctorSelf restricts a route to the doctor named by the path
// parameter param. Admins pass.
func RequireDoctorSelf(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if IsAdmin(ctx) {
				return next(c)
			}
			own := DoctorIDFromContext(ctx)
			if own == "" || !HasRole(ctx, RoleDoctor) {
				return echo.NewHTTPError(http.StatusForbidden, "requires the doctor role")
			}
			if own != c.Param(param) {
				return echo.NewHTTPError(http.StatusForbidden, "doctors may only access their own records")
			}
			return next(c)
		}
	}
}

// IsAdmin reports whether the caller literally holds the admin role.
func IsAdmin(ctx context.Context) bool {
	for _, r := range RolesFromContext(ctx) {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}
