package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequirePermission lets the request through only when AuthJWT stored perm
// among the token permissions.
func RequirePermission(perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			perms, ok := c.Get(CtxPermissionsKey).(map[string]struct{})
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			if _, granted := perms[perm]; !granted {
				return c.JSON(http.StatusForbidden, errorJSON("permission denied"))
			}

			return next(c)
		}
	}
}
