package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	RoleAdmin     = "admin"
	RoleClinician = "clinician"
	RoleLabTech   = "lab_tech"
	RoleViewer    = "viewer"
)

// RequireRole admits callers holding any of roles. Admins pass every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if HasRole(RolesFromContext(c.Request().Context()), roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// HasRole reports whether granted covers any of required.
func HasRole(granted []string, required ...string) bool {
	for _, has := range granted {
		if has == RoleAdmin {
			return true
		}
		for _, r := range required {
			if has == r {
				return true
			}
		}
	}
	return false
}
