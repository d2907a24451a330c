// Package auth holds the access guard.  A Session is resolved once per
// request by the HTTP layer and passed explicitly to every operation that
// needs it; services call RequireRole before touching the store.
package auth

import (
	"fmt"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/model"
)

// Session is the authenticated caller of a request.
type Session struct {
	UserID        string
	Email         string
	Name          string
	Role          model.Role
	EmailVerified bool
}

// NewSession builds a Session from a loaded user row.
func NewSession(u model.User) *Session {
	return &Session{
		UserID:        u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		EmailVerified: u.EmailVerified(),
	}
}

// IsAdmin reports whether the session passes RequireAdmin.
func (s *Session) IsAdmin() bool {
	_, err := RequireAdmin(s)
	return err == nil
}

// RequireRole returns the session when it exists and its role is in allowed.
// A missing session yields ErrUnauthorized, a disallowed role ErrForbidden.
func RequireRole(s *Session, allowed ...model.Role) (*Session, error) {
	if s == nil || s.UserID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	for _, r := range allowed {
		if s.Role == r {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: role %s not allowed", apperrors.ErrForbidden, s.Role)
}

// RequireVerifiedRole is RequireRole plus a verified email address.
func RequireVerifiedRole(s *Session, allowed ...model.Role) (*Session, error) {
	s, err := RequireRole(s, allowed...)
	if err != nil {
		return nil, err
	}
	if !s.EmailVerified {
		return nil, fmt.Errorf("%w: email not verified", apperrors.ErrForbidden)
	}
	return s, nil
}

// RequireAdmin is RequireRole for the admin roles.
func RequireAdmin(s *Session) (*Session, error) {
	return RequireRole(s, model.AdminRoles...)
}

// RequireAny accepts any authenticated role.
func RequireAny(s *Session) (*Session, error) {
	return RequireRole(s, model.RoleClient, model.RoleAdmin, model.RoleSuperAdmin)
}
