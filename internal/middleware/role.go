package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
)

// RequireRole rejects requests whose session role is not in roles.  It
// must run after JWTAuth.  Services repeat the same check, so a route
// mounted without this middleware is still guarded.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := auth.RequireRole(SessionFrom(c), roles...); err != nil {
				if errors.Is(err, apperrors.ErrUnauthorized) {
					return deny(c, http.StatusUnauthorized, "authentication required")
				}
				return deny(c, http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

// RequireAdmin is RequireRole for ADMIN and SUPER_ADMIN.
func RequireAdmin() echo.MiddlewareFunc { return RequireRole(model.AdminRoles...) }
