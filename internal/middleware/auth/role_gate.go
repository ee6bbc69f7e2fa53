package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequiresRoleOf guards a route with an allowed-role set. It rejects a
// request with no authenticated identity outright instead of assuming an
// earlier stage already did.
func RequiresRoleOf(allowedRoles ...string) echo.MiddlewareFunc {
	roleSet := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		roleSet[role] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Access token missing")
			}
			if _, allowed := roleSet[identity.Role]; !allowed {
				return echo.NewHTTPError(http.StatusForbidden, "Unauthorized")
			}
			return next(c)
		}
	}
}
