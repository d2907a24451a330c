package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/agency-portal/internal/database"
	"github.com/iliyamo/agency-portal/internal/model"
)

// TokenRepo persists refresh tokens and one-time verification tokens.
// Only SHA-256 hashes are stored, never the raw token values.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID string, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	return err
}

// ValidateRefresh returns userID if a non-revoked, non-expired token exists.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (string, error) {
	var (
		userID    string
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return "", notFound(err)
	}
	if revokedAt.Valid || !time.Now().UTC().Before(expiresAt) {
		return "", ErrNotFound
	}
	return userID, nil
}

// RevokeByHash marks a token as revoked.  Only one caller can revoke a
// given token; the others get ErrNotFound.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// StoreVerification inserts a one-time token of the given kind.
func (r *TokenRepo) StoreVerification(ctx context.Context, t model.VerificationToken) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO verification_tokens (id, user_id, token_hash, kind, expires_at) VALUES (?,?,?,?,?)",
		t.ID, t.UserID, t.TokenHash, t.Kind, t.ExpiresAt.UTC())
	return err
}

// FindVerification looks a token up by hash, restricted to one kind. A
// password-reset token is invisible to an email-verification lookup.
func (r *TokenRepo) FindVerification(ctx context.Context, tokenHash string, kind model.TokenKind) (model.VerificationToken, error) {
	var t model.VerificationToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, kind, expires_at, created_at FROM verification_tokens WHERE token_hash=? AND kind=? LIMIT 1",
		tokenHash, kind).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Kind, &t.ExpiresAt, &t.CreatedAt)
	return t, notFound(err)
}

// ConsumeEmailVerification marks the user verified and deletes the token in
// one transaction. A token consumed concurrently yields ErrNotFound.
func (r *TokenRepo) ConsumeEmailVerification(ctx context.Context, tokenID, userID string, at time.Time) error {
	return database.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM verification_tokens WHERE id=? AND kind=?", tokenID, model.TokenEmailVerification)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotFound
		}
		res, err = tx.ExecContext(ctx,
			"UPDATE users SET email_verified_at=COALESCE(email_verified_at, ?) WHERE id=?", at.UTC(), userID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteVerification removes a token, e.g. one found expired.
func (r *TokenRepo) DeleteVerification(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM verification_tokens WHERE id=?", id)
	return err
}

// DeleteExpiredVerification removes verification tokens expired at now.
func (r *TokenRepo) DeleteExpiredVerification(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM verification_tokens WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteStaleRefresh removes refresh tokens that expired or were revoked.
func (r *TokenRepo) DeleteStaleRefresh(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at <= ? OR revoked_at IS NOT NULL", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
