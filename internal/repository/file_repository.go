package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/iliyamo/agency-portal/internal/model"
)

type FileRepo struct{ db *sql.DB }

func NewFileRepo(db *sql.DB) *FileRepo { return &FileRepo{db: db} }

// Create records an uploaded file's metadata.
func (r *FileRepo) Create(ctx context.Context, f model.File) (model.File, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_files (id, project_id, user_id, filename, mime_type, file_size, storage_path)
		VALUES (?,?,?,?,?,?,?)`,
		f.ID, f.ProjectID, f.UserID, f.Filename, f.MimeType, f.FileSize, f.StoragePath)
	if err != nil {
		return model.File{}, err
	}
	a, err := r.GetAccess(ctx, f.ID)
	return a.File, err
}

// GetAccess returns a file together with the owners that may read it: the
// owner of its project and the owner of the briefing the project came from.
func (r *FileRepo) GetAccess(ctx context.Context, id string) (model.FileAccess, error) {
	var (
		a                                model.FileAccess
		projectID, projOwner, briefOwner sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT f.id, f.project_id, f.user_id, f.filename, f.mime_type, f.file_size, f.storage_path, f.created_at,
		       p.user_id, b.user_id
		  FROM project_files f
		  LEFT JOIN projects p  ON p.id = f.project_id
		  LEFT JOIN briefings b ON b.id = p.briefing_id
		 WHERE f.id=? LIMIT 1`, id).Scan(
		&a.ID, &projectID, &a.UserID, &a.Filename, &a.MimeType, &a.FileSize, &a.StoragePath, &a.CreatedAt,
		&projOwner, &briefOwner)
	if err != nil {
		return a, notFound(err)
	}
	a.ProjectID = nullString(projectID)
	a.ProjectOwnerID = nullString(projOwner)
	a.BriefingOwnerID = nullString(briefOwner)
	return a, nil
}

// ListByProject returns a project's files, newest first.
func (r *FileRepo) ListByProject(ctx context.Context, projectID string) ([]model.File, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, user_id, filename, mime_type, file_size, storage_path, created_at
		  FROM project_files WHERE project_id=? ORDER BY created_at DESC, id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.File{}
	for rows.Next() {
		var (
			f   model.File
			pid sql.NullString
		)
		if err := rows.Scan(&f.ID, &pid, &f.UserID, &f.Filename, &f.MimeType, &f.FileSize,
			&f.StoragePath, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.ProjectID = nullString(pid)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Stats counts stored files and their total size.
func (r *FileRepo) Stats(ctx context.Context) (model.FileStats, error) {
	var s model.FileStats
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(file_size), 0) FROM project_files").Scan(&s.Count, &s.Bytes)
	return s, err
}
