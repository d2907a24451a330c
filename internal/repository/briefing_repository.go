package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/agency-portal/internal/database"
	"github.com/iliyamo/agency-portal/internal/model"
)

// BriefingRepo provides access to the briefings table and performs the
// approval transaction that turns a briefing into a project.
type BriefingRepo struct{ db *sql.DB }

func NewBriefingRepo(db *sql.DB) *BriefingRepo { return &BriefingRepo{db: db} }

const briefingColumns = `b.id, b.user_id, b.service_type, b.company_name, b.description, b.budget, b.deadline,
       b.status, b.submitted_at, b.rejection_reason, b.project_id, b.created_at, b.updated_at`

func briefingDest(b *model.Briefing, budget, deadline, reason, projectID *sql.NullString, submitted *sql.NullTime) []any {
	return []any{&b.ID, &b.UserID, &b.ServiceType, &b.CompanyName, &b.Description, budget, deadline,
		&b.Status, submitted, reason, projectID, &b.CreatedAt, &b.UpdatedAt}
}

func scanBriefing(s rowScanner, extra ...any) (model.Briefing, error) {
	var (
		b                                   model.Briefing
		budget, deadline, reason, projectID sql.NullString
		submitted                           sql.NullTime
	)
	dest := append(briefingDest(&b, &budget, &deadline, &reason, &projectID, &submitted), extra...)
	if err := s.Scan(dest...); err != nil {
		return b, err
	}
	b.Budget = nullString(budget)
	b.Deadline = nullString(deadline)
	b.RejectionReason = nullString(reason)
	b.ProjectID = nullString(projectID)
	b.SubmittedAt = nullTime(submitted)
	return b, nil
}

// Create inserts a draft briefing owned by b.UserID.
func (r *BriefingRepo) Create(ctx context.Context, b model.Briefing) (model.Briefing, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.Status = model.BriefingDraft
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO briefings (id, user_id, service_type, company_name, description, budget, deadline, status)
		VALUES (?,?,?,?,?,?,?,?)`,
		b.ID, b.UserID, b.ServiceType, b.CompanyName, b.Description, b.Budget, b.Deadline, b.Status)
	if err != nil {
		return model.Briefing{}, err
	}
	return r.GetByID(ctx, b.ID)
}

// GetByID returns a briefing regardless of owner.
func (r *BriefingRepo) GetByID(ctx context.Context, id string) (model.Briefing, error) {
	b, err := scanBriefing(r.db.QueryRowContext(ctx,
		"SELECT "+briefingColumns+" FROM briefings b WHERE b.id=? LIMIT 1", id))
	return b, notFound(err)
}

// GetForOwner returns a briefing only when it belongs to userID; another
// owner's briefing is reported as ErrNotFound.
func (r *BriefingRepo) GetForOwner(ctx context.Context, id, userID string) (model.Briefing, error) {
	b, err := scanBriefing(r.db.QueryRowContext(ctx,
		"SELECT "+briefingColumns+" FROM briefings b WHERE b.id=? AND b.user_id=? LIMIT 1", id, userID))
	return b, notFound(err)
}

// UpdateDraft rewrites the editable fields of a draft owned by b.UserID.
func (r *BriefingRepo) UpdateDraft(ctx context.Context, b model.Briefing) (model.Briefing, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE briefings
		   SET service_type=?, company_name=?, description=?, budget=?, deadline=?
		 WHERE id=? AND user_id=? AND status=?`,
		b.ServiceType, b.CompanyName, b.Description, b.Budget, b.Deadline,
		b.ID, b.UserID, model.BriefingDraft)
	if err != nil {
		return model.Briefing{}, err
	}
	if err := expectOne(res); err != nil {
		return model.Briefing{}, err
	}
	return r.GetByID(ctx, b.ID)
}

// Transition moves a briefing from one status to another. The update only
// applies while the row still carries from; otherwise ErrStaleState.
// submittedAt is written when non-nil.
func (r *BriefingRepo) Transition(ctx context.Context, id string, from, to model.BriefingStatus, submittedAt *time.Time) (model.Briefing, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE briefings SET status=?, submitted_at=COALESCE(?, submitted_at) WHERE id=? AND status=?",
		to, submittedAt, id, from)
	if err != nil {
		return model.Briefing{}, err
	}
	if err := expectOne(res); err != nil {
		return model.Briefing{}, err
	}
	return r.GetByID(ctx, id)
}

// Reject moves a briefing from `from` to REJEITADO storing the reason.
func (r *BriefingRepo) Reject(ctx context.Context, id string, from model.BriefingStatus, reason string) (model.Briefing, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE briefings SET status=?, rejection_reason=? WHERE id=? AND status=?",
		model.BriefingRejected, reason, id, from)
	if err != nil {
		return model.Briefing{}, err
	}
	if err := expectOne(res); err != nil {
		return model.Briefing{}, err
	}
	return r.GetByID(ctx, id)
}

// expectOne maps a zero-row guarded update to ErrStaleState.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleState
	}
	return nil
}

// Approve runs the approval transaction:
//  1. lock the briefing row and re-check its status is still from,
//  2. insert the project with the given milestones,
//  3. flip the briefing to APROVADO pointing at the project.
//
// Any failure rolls back every step, so no project exists without its
// milestones and no briefing is APROVADO without a project.
func (r *BriefingRepo) Approve(ctx context.Context, id string, from model.BriefingStatus, p model.Project, milestones []model.Milestone) (model.Project, error) {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var status model.BriefingStatus
		err := tx.QueryRowContext(ctx,
			"SELECT status FROM briefings WHERE id=? FOR UPDATE", id).Scan(&status)
		if err != nil {
			return notFound(err)
		}
		if status != from {
			return ErrStaleState
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projects (id, user_id, briefing_id, name, description, status)
			VALUES (?,?,?,?,?,?)`,
			p.ID, p.UserID, id, p.Name, p.Description, p.Status); err != nil {
			return fmt.Errorf("insert project: %w", err)
		}

		for _, m := range milestones {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO project_milestones (id, project_id, title, display_order, completed)
				VALUES (?,?,?,?,0)`,
				m.ID, p.ID, m.Title, m.DisplayOrder); err != nil {
				return fmt.Errorf("insert milestone %d: %w", m.DisplayOrder, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE briefings SET status=?, project_id=? WHERE id=?",
			model.BriefingApproved, p.ID, id); err != nil {
			return fmt.Errorf("mark briefing approved: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Project{}, err
	}
	p.BriefingID = &id
	return p, nil
}

var briefingFilterColumns = filterColumns{
	Status:      "b.status",
	ServiceType: "b.service_type",
	Search:      []string{"b.company_name"},
	CreatedAt:   "b.created_at",
}

// ListForOwner returns one page of the briefings owned by userID.
func (r *BriefingRepo) ListForOwner(ctx context.Context, userID string, f model.ListFilter) ([]model.Briefing, int64, error) {
	w := &whereClause{}
	w.add("b.user_id = ?", userID)
	applyFilter(w, f, briefingFilterColumns)

	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM briefings b WHERE "+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args := append(append([]any{}, w.args...), f.Limit(), f.Offset())
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+briefingColumns+" FROM briefings b WHERE "+w.sql()+
			" ORDER BY b.created_at DESC, b.id LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []model.Briefing{}
	for rows.Next() {
		b, err := scanBriefing(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

// List returns one page of all briefings with their owners.
func (r *BriefingRepo) List(ctx context.Context, f model.ListFilter) ([]model.BriefingSummary, int64, error) {
	w := &whereClause{}
	applyFilter(w, f, briefingFilterColumns)

	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM briefings b WHERE "+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args := append(append([]any{}, w.args...), f.Limit(), f.Offset())
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+briefingColumns+", u.name, u.email FROM briefings b JOIN users u ON u.id = b.user_id WHERE "+w.sql()+
			" ORDER BY b.created_at DESC, b.id LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []model.BriefingSummary{}
	for rows.Next() {
		var s model.BriefingSummary
		b, err := scanBriefing(rows, &s.OwnerName, &s.OwnerEmail)
		if err != nil {
			return nil, 0, err
		}
		s.Briefing = b
		items = append(items, s)
	}
	return items, total, rows.Err()
}

// CountByStatus returns the number of briefings per status, zero-filled.
func (r *BriefingRepo) CountByStatus(ctx context.Context) (map[model.BriefingStatus]int64, error) {
	out := model.ZeroBriefingCounts()
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM briefings GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			s model.BriefingStatus
			n int64
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}

// DeleteStaleDrafts removes RASCUNHO briefings last touched before cutoff.
func (r *BriefingRepo) DeleteStaleDrafts(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM briefings WHERE status=? AND updated_at < ? AND project_id IS NULL",
		model.BriefingDraft, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
