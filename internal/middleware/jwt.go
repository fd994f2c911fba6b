package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/reeltime/internal/model"
	"github.com/iliyamo/reeltime/internal/utils"
)

const principalKey = "principal"

// JWTAuth validates the Bearer access token and stores the caller as a
// model.Principal on the context.  "user_id" is also set as a decimal
// string for the rate limiter and request logger.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token", "code": "unauthorized"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token", "code": "unauthorized"})
			}
			id, _ := claims.UserID()
			c.Set(principalKey, model.Principal{UserID: id, IsAdmin: claims.Admin})
			c.Set("user_id", strconv.FormatUint(id, 10))
			return next(c)
		}
	}
}

// PrincipalFrom returns the caller stored by JWTAuth.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok && p.UserID != 0
}

// OptionalJWT sets the principal when a valid Bearer token is present and
// passes every request through.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if raw, ok := strings.CutPrefix(auth, "Bearer "); ok {
				if claims, err := utils.ParseAccessToken(secret, raw); err == nil {
					id, _ := claims.UserID()
					c.Set(principalKey, model.Principal{UserID: id, IsAdmin: claims.Admin})
					c.Set("user_id", strconv.FormatUint(id, 10))
				}
			}
			return next(c)
		}
	}
}
