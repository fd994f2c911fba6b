package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireAdmin rejects callers whose token does not carry the admin flag.
// It must run after JWTAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required", "code": "unauthorized"})
			}
			if !p.IsAdmin {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "admin only", "code": "forbidden"})
			}
			return next(c)
		}
	}
}
