package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agency-portal/internal/auth"
)

const sessionKey = "session"

// Authenticator resolves a bearer access token into a Session.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*auth.Session, error)
}

// JWTAuth validates the bearer access token and stores the resolved
// Session in the echo context.  Handlers read it back with SessionFrom.
// A session already resolved by OptionalJWTAuth is reused.
func JWTAuth(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if SessionFrom(c) != nil {
				return next(c)
			}
			raw, ok := bearer(c)
			if !ok {
				return deny(c, http.StatusUnauthorized, "missing bearer token")
			}
			sess, err := a.Authenticate(c.Request().Context(), raw)
			if err != nil {
				return deny(c, http.StatusUnauthorized, "invalid token")
			}
			c.Set(sessionKey, sess)
			return next(c)
		}
	}
}

// OptionalJWTAuth resolves a bearer token when one is present and
// otherwise lets the request through anonymously.
func OptionalJWTAuth(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearer(c); ok {
				if sess, err := a.Authenticate(c.Request().Context(), raw); err == nil {
					c.Set(sessionKey, sess)
				}
			}
			return next(c)
		}
	}
}

// SessionFrom returns the session stored by JWTAuth, or nil.
func SessionFrom(c echo.Context) *auth.Session {
	sess, _ := c.Get(sessionKey).(*auth.Session)
	return sess
}

func bearer(c echo.Context) (string, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return raw, raw != ""
}

// deny writes the error envelope used across the API.
func deny(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "error": msg})
}
