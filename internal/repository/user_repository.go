package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, email, name, password_hash, role, email_verified_at, is_active, marketing_consent, created_at, updated_at"

func scanUser(s rowScanner) (model.User, error) {
	var (
		u        model.User
		verified sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &verified,
		&u.IsActive, &u.MarketingConsent, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	u.EmailVerifiedAt = nullTime(verified)
	return u, nil
}

// Create hashes the password, inserts the user and returns the stored row.
// A taken email yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u model.User, password string, cost int) (model.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = model.RoleClient
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, name, password_hash, role, marketing_consent) VALUES (?,?,?,?,?,?)",
		u.ID, u.Email, u.Name, hash, u.Role, u.MarketingConsent)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	return r.GetByID(ctx, u.ID)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	return u, notFound(err)
}

// Deactivate clears the active flag of a user. It reports whether the row
// actually changed so callers can skip side effects on repeated calls.
// The guard on is_active makes concurrent calls agree on a single winner.
func (r *UserRepo) Deactivate(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=0 WHERE id=? AND is_active=1", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	// Nothing matched: either already inactive or missing.
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// UpdatePasswordHash replaces the stored hash, e.g. after a cost upgrade.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}

// SetRole updates the role of a user.
func (r *UserRepo) SetRole(ctx context.Context, id string, role model.Role) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", role, id)
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

var clientFilterColumns = filterColumns{
	Search:    []string{"u.name", "u.email"},
	CreatedAt: "u.created_at",
}

// clientWhere builds the WHERE clause for client lists. The status filter
// is ACTIVE or INACTIVE and maps onto the is_active flag.
func clientWhere(f model.ListFilter) *whereClause {
	w := &whereClause{}
	w.add("u.role = ?", model.RoleClient)
	if f.Status != nil {
		w.add("u.is_active = ?", *f.Status == "ACTIVE")
	}
	applyFilter(w, f, clientFilterColumns)
	return w
}

const clientSelect = `SELECT u.id, u.email, u.name, u.is_active, u.email_verified_at, u.marketing_consent,
       (SELECT COUNT(*) FROM projects p WHERE p.user_id = u.id),
       (SELECT COUNT(*) FROM briefings b WHERE b.user_id = u.id),
       u.created_at
  FROM users u
 WHERE `

func scanClients(rows *sql.Rows) ([]model.ClientSummary, error) {
	out := []model.ClientSummary{}
	for rows.Next() {
		var (
			c        model.ClientSummary
			verified sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.Email, &c.Name, &c.Active, &verified, &c.MarketingConsent,
			&c.ProjectCount, &c.BriefingCount, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.EmailVerifiedAt = nullTime(verified)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListClients returns one page of CLIENT accounts matching f, newest first,
// together with the total number of matches.
func (r *UserRepo) ListClients(ctx context.Context, f model.ListFilter) ([]model.ClientSummary, int64, error) {
	w := clientWhere(f)
	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users u WHERE "+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}
	args := append(append([]any{}, w.args...), f.Limit(), f.Offset())
	rows, err := r.DB.QueryContext(ctx,
		clientSelect+w.sql()+" ORDER BY u.created_at DESC, u.id LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := scanClients(rows)
	return items, total, err
}

// ExportClients returns every CLIENT account matching f without paging.
func (r *UserRepo) ExportClients(ctx context.Context, f model.ListFilter) ([]model.ClientSummary, error) {
	w := clientWhere(f)
	rows, err := r.DB.QueryContext(ctx, clientSelect+w.sql()+" ORDER BY u.created_at DESC, u.id", w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClients(rows)
}

// ClientStats counts CLIENT accounts. An empty table yields zeros.
func (r *UserRepo) ClientStats(ctx context.Context) (model.ClientStats, error) {
	var s model.ClientStats
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(is_active = 1), 0),
		       COALESCE(SUM(email_verified_at IS NOT NULL), 0)
		  FROM users WHERE role = ?`, model.RoleClient).Scan(&s.Total, &s.Active, &s.Verified)
	return s, err
}
