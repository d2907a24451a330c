package model

import "time"

// Role is the closed set of user roles.  CLIENT accounts own briefings and
// projects; ADMIN and SUPER_ADMIN operate the admin panel.
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// AdminRoles lists the roles allowed on the admin surface.
var AdminRoles = []Role{RoleAdmin, RoleSuperAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User represents an application user record as stored in the `users`
// table.  Users are never hard-deleted; deactivation clears IsActive.
//
// Fields:
//
//	ID               – UUID primary key.
//	Email            – unique, lower-cased email address.
//	Name             – display name.
//	PasswordHash     – bcrypt hash, never serialised.
//	Role             – CLIENT, ADMIN or SUPER_ADMIN.
//	EmailVerifiedAt  – when the email was verified (nil until then).
//	IsActive         – false once an admin deactivated the account.
//	MarketingConsent – opt-in for marketing communication.
type User struct {
	ID               string     `json:"id"`               // users.id
	Email            string     `json:"email"`            // users.email
	Name             string     `json:"name"`             // users.name
	PasswordHash     string     `json:"-"`                // users.password_hash
	Role             Role       `json:"role"`             // users.role
	EmailVerifiedAt  *time.Time `json:"emailVerifiedAt"`  // users.email_verified_at (nullable)
	IsActive         bool       `json:"active"`           // users.is_active
	MarketingConsent bool       `json:"marketingConsent"` // users.marketing_consent
	CreatedAt        time.Time  `json:"createdAt"`        // users.created_at
	UpdatedAt        time.Time  `json:"updatedAt"`        // users.updated_at
}

// EmailVerified reports whether the user confirmed their email address.
func (u User) EmailVerified() bool { return u.EmailVerifiedAt != nil }

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is not stored; only its SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    string     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// TokenKind separates one-time tokens by purpose.  A token issued for one
// kind is never accepted by a flow expecting another.
type TokenKind string

const (
	TokenEmailVerification TokenKind = "EMAIL_VERIFICATION"
	TokenPasswordReset     TokenKind = "PASSWORD_RESET"
)

// VerificationToken models a row in `verification_tokens`.
type VerificationToken struct {
	ID        string    // verification_tokens.id
	UserID    string    // verification_tokens.user_id
	TokenHash string    // verification_tokens.token_hash
	Kind      TokenKind // verification_tokens.kind
	ExpiresAt time.Time // verification_tokens.expires_at
	CreatedAt time.Time // verification_tokens.created_at
}

// Expired reports whether the token is past its expiry at now.
func (t VerificationToken) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }
