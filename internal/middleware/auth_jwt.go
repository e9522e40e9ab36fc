package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxSubjectKey     = "subject"     // string
	CtxPermissionsKey = "permissions" // map[string]struct{}
)

// bearer JWT verification. Tokens are issued by the identity service and
// carry the caller in "sub" and its permission codenames in "perms".
func AuthJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			// exp/nbf are checked by Parse
			token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || token == nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			sub, err := parseSubject(claims["sub"])
			if err != nil || sub == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			perms, err := parsePerms(claims["perms"])
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxSubjectKey, sub)
			c.Set(CtxPermissionsKey, perms)

			return next(c)
		}
	}
}

// Subject returns the token subject set by AuthJWT.
func Subject(c echo.Context) (string, bool) {
	s, ok := c.Get(CtxSubjectKey).(string)
	return s, ok && s != ""
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

// numeric subjects come through as float64
func parseSubject(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case float64:
		return strconv.FormatInt(int64(t), 10), nil
	default:
		return "", errors.New("invalid sub")
	}
}

// a missing perms claim is an empty set, not an error
func parsePerms(v interface{}) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	switch t := v.(type) {
	case nil:
		return out, nil
	case []interface{}:
		for _, p := range t {
			s, ok := p.(string)
			if !ok {
				return nil, errors.New("invalid perms")
			}
			out[s] = struct{}{}
		}
		return out, nil
	case string:
		for _, p := range strings.Fields(t) {
			out[p] = struct{}{}
		}
		return out, nil
	default:
		return nil, errors.New("invalid perms")
	}
}
