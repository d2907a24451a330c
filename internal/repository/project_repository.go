package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/agency-portal/internal/database"
	"github.com/iliyamo/agency-portal/internal/model"
)

// ProjectRepo provides access to projects and their milestones and comments.
type ProjectRepo struct{ db *sql.DB }

func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{db: db} }

const projectColumns = "p.id, p.user_id, p.briefing_id, p.name, p.description, p.status, p.created_at, p.updated_at"

// progressExpr computes progress in SQL with the same rounding as
// model.CalculateProgress.
const progressExpr = `LEAST(100, ROUND(
       (SELECT COUNT(*) FROM project_milestones m WHERE m.project_id = p.id AND m.completed = 1) * 100 / 4))`

func scanProject(s rowScanner, extra ...any) (model.Project, error) {
	var (
		p          model.Project
		briefingID sql.NullString
	)
	dest := append([]any{&p.ID, &p.UserID, &briefingID, &p.Name, &p.Description, &p.Status,
		&p.CreatedAt, &p.UpdatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return p, err
	}
	p.BriefingID = nullString(briefingID)
	return p, nil
}

// GetByID returns a project with its owner's name and email.
func (r *ProjectRepo) GetByID(ctx context.Context, id string) (model.ProjectSummary, error) {
	var s model.ProjectSummary
	p, err := scanProject(r.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+", u.name, u.email, "+progressExpr+
			" FROM projects p JOIN users u ON u.id = p.user_id WHERE p.id=? LIMIT 1", id),
		&s.OwnerName, &s.OwnerEmail, &s.Progress)
	if err != nil {
		return s, notFound(err)
	}
	s.Project = p
	return s, nil
}

// UpdateStatus moves a project from one status to another. A row that no
// longer carries from yields ErrStaleState.
func (r *ProjectRepo) UpdateStatus(ctx context.Context, id string, from, to model.ProjectStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE projects SET status=? WHERE id=? AND status=?", to, id, from)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func scanMilestones(rows *sql.Rows) ([]model.Milestone, error) {
	out := []model.Milestone{}
	for rows.Next() {
		var (
			m  model.Milestone
			at sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Title, &m.DisplayOrder, &m.Completed, &at); err != nil {
			return nil, err
		}
		m.CompletedAt = nullTime(at)
		out = append(out, m)
	}
	return out, rows.Err()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listMilestones(ctx context.Context, q queryer, projectID string) ([]model.Milestone, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, title, display_order, completed, completed_at
		  FROM project_milestones WHERE project_id=? ORDER BY display_order`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMilestones(rows)
}

// Milestones returns the milestones of a project in display order.
func (r *ProjectRepo) Milestones(ctx context.Context, projectID string) ([]model.Milestone, error) {
	return listMilestones(ctx, r.db, projectID)
}

// ToggleMilestone flips the completed flag of one milestone of projectID,
// setting or clearing completedAt, and returns the toggled milestone and
// the project's milestones after the change. A milestone of another
// project is reported as ErrNotFound.
func (r *ProjectRepo) ToggleMilestone(ctx context.Context, projectID, milestoneID string, at time.Time) (model.Milestone, []model.Milestone, error) {
	var (
		toggled model.Milestone
		all     []model.Milestone
	)
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var completed bool
		err := tx.QueryRowContext(ctx,
			"SELECT completed FROM project_milestones WHERE id=? AND project_id=? FOR UPDATE",
			milestoneID, projectID).Scan(&completed)
		if err != nil {
			return notFound(err)
		}

		var completedAt *time.Time
		if !completed {
			t := at.UTC()
			completedAt = &t
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE project_milestones SET completed=?, completed_at=? WHERE id=?",
			!completed, completedAt, milestoneID); err != nil {
			return err
		}

		all, err = listMilestones(ctx, tx, projectID)
		if err != nil {
			return err
		}
		for _, m := range all {
			if m.ID == milestoneID {
				toggled = m
			}
		}
		return nil
	})
	if err != nil {
		return model.Milestone{}, nil, err
	}
	return toggled, all, nil
}

// MilestoneBelongs reports whether milestoneID is one of projectID's.
func (r *ProjectRepo) MilestoneBelongs(ctx context.Context, projectID, milestoneID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM project_milestones WHERE id=? AND project_id=?",
		milestoneID, projectID).Scan(&n)
	return n > 0, err
}

// AddComment inserts a comment and returns it with the author's name.
func (r *ProjectRepo) AddComment(ctx context.Context, c model.Comment) (model.Comment, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_comments (id, project_id, milestone_id, user_id, content, is_internal)
		VALUES (?,?,?,?,?,?)`,
		c.ID, c.ProjectID, c.MilestoneID, c.UserID, c.Content, c.Internal)
	if err != nil {
		return model.Comment{}, err
	}
	var milestoneID sql.NullString
	err = r.db.QueryRowContext(ctx, `
		SELECT c.milestone_id, u.name, c.created_at
		  FROM project_comments c JOIN users u ON u.id = c.user_id
		 WHERE c.id=?`, c.ID).Scan(&milestoneID, &c.AuthorName, &c.CreatedAt)
	if err != nil {
		return model.Comment{}, notFound(err)
	}
	c.MilestoneID = nullString(milestoneID)
	return c, nil
}

// Comments returns a project's comments oldest first. Internal notes are
// left out unless includeInternal is set.
func (r *ProjectRepo) Comments(ctx context.Context, projectID string, includeInternal bool) ([]model.Comment, error) {
	q := `SELECT c.id, c.project_id, c.milestone_id, c.user_id, u.name, c.content, c.is_internal, c.created_at
		    FROM project_comments c JOIN users u ON u.id = c.user_id
		   WHERE c.project_id=?`
	if !includeInternal {
		q += " AND c.is_internal = 0"
	}
	rows, err := r.db.QueryContext(ctx, q+" ORDER BY c.created_at, c.id", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Comment{}
	for rows.Next() {
		var (
			c           model.Comment
			milestoneID sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.ProjectID, &milestoneID, &c.UserID, &c.AuthorName,
			&c.Content, &c.Internal, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.MilestoneID = nullString(milestoneID)
		out = append(out, c)
	}
	return out, rows.Err()
}

var projectFilterColumns = filterColumns{
	Status:      "p.status",
	ServiceType: "b.service_type",
	Search:      []string{"p.name"},
	CreatedAt:   "p.created_at",
}

const projectFrom = ` FROM projects p
  JOIN users u ON u.id = p.user_id
  LEFT JOIN briefings b ON b.id = p.briefing_id
 WHERE `

// List returns one page of projects matching f. When ownerID is non-empty
// only that user's projects are considered.
func (r *ProjectRepo) List(ctx context.Context, ownerID string, f model.ListFilter) ([]model.ProjectSummary, int64, error) {
	w := &whereClause{}
	if ownerID != "" {
		w.add("p.user_id = ?", ownerID)
	}
	applyFilter(w, f, projectFilterColumns)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+projectFrom+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args := append(append([]any{}, w.args...), f.Limit(), f.Offset())
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+projectColumns+", u.name, u.email, "+progressExpr+projectFrom+w.sql()+
			" ORDER BY p.created_at DESC, p.id LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []model.ProjectSummary{}
	for rows.Next() {
		var s model.ProjectSummary
		p, err := scanProject(rows, &s.OwnerName, &s.OwnerEmail, &s.Progress)
		if err != nil {
			return nil, 0, err
		}
		s.Project = p
		items = append(items, s)
	}
	return items, total, rows.Err()
}

// Stats counts projects per status and averages their progress. Every
// status appears in the result; an empty table yields zeros.
func (r *ProjectRepo) Stats(ctx context.Context) (model.ProjectStats, error) {
	stats := model.ProjectStats{ByStatus: model.ZeroProjectCounts()}

	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM projects GROUP BY status")
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			s model.ProjectStatus
			n int64
		)
		if err := rows.Scan(&s, &n); err != nil {
			return stats, err
		}
		stats.ByStatus[s] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	var avg sql.NullFloat64
	if err := r.db.QueryRowContext(ctx,
		"SELECT AVG("+progressExpr+") FROM projects p").Scan(&avg); err != nil {
		return stats, err
	}
	if avg.Valid {
		stats.AverageProgress = avg.Float64
	}
	return stats, nil
}
