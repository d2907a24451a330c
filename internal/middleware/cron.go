package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireBearerSecret protects machine-to-machine endpoints with a shared
// secret sent as a bearer token.  An empty secret closes the endpoint.
func RequireBearerSecret(secret string) echo.MiddlewareFunc {
	want := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if secret == "" || !ok || subtle.ConstantTimeCompare([]byte(raw), want) != 1 {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}
			return next(c)
		}
	}
}
