package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/storage"
)

type fileStore interface {
	Create(ctx context.Context, f model.File) (model.File, error)
	GetAccess(ctx context.Context, id string) (model.FileAccess, error)
	ListByProject(ctx context.Context, projectID string) ([]model.File, error)
}

// BlobStore holds file contents.  *storage.Local satisfies it.
type BlobStore interface {
	Save(dir, filename string, r io.Reader, maxBytes int64) (string, int64, error)
	Open(rel string) (io.ReadCloser, error)
	Remove(rel string) error
}

type projectLookup interface {
	GetByID(ctx context.Context, id string) (model.ProjectSummary, error)
}

// Upload describes one incoming file.
type Upload struct {
	Filename string
	MimeType string
	Body     io.Reader
}

// FileService stores and serves project files.
type FileService struct {
	files    fileStore
	blobs    BlobStore
	projects projectLookup
	maxBytes int64
	log      *zap.Logger
}

func NewFileService(files fileStore, blobs BlobStore, projects projectLookup, maxBytes int64, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{files: files, blobs: blobs, projects: projects, maxBytes: maxBytes, log: logger.Named("file")}
}

// project returns the project when the caller may work with its files.
// Projects of other clients are reported as missing.
func (s *FileService) project(ctx context.Context, sess *auth.Session, id string) (model.ProjectSummary, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return model.ProjectSummary{}, err
	}
	if !sess.IsAdmin() && p.UserID != sess.UserID {
		return model.ProjectSummary{}, apperrors.ErrNotFound
	}
	return p, nil
}

// Upload stores a file on a project of the caller, or any project when the
// caller is an admin.
func (s *FileService) Upload(ctx context.Context, sess *auth.Session, projectID string, up Upload) (model.File, error) {
	sess, err := auth.RequireAny(sess)
	if err != nil {
		return model.File{}, err
	}
	name := strings.TrimSpace(filepath.Base(filepath.Clean("/" + up.Filename)))
	if name == "" || name == "/" || len(name) > 255 {
		return model.File{}, apperrors.NewValidationError("file", "needs a file name of at most 255 characters")
	}
	p, err := s.project(ctx, sess, projectID)
	if err != nil {
		return model.File{}, err
	}

	rel, size, err := s.blobs.Save(p.ID, name, up.Body, s.maxBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return model.File{}, apperrors.NewValidationError("file", fmt.Sprintf("must not exceed %d bytes", s.maxBytes))
		}
		return model.File{}, fmt.Errorf("store file: %w", err)
	}
	mime := up.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	f, err := s.files.Create(ctx, model.File{
		ID:          uuid.NewString(),
		ProjectID:   &p.ID,
		UserID:      sess.UserID,
		Filename:    name,
		MimeType:    mime,
		FileSize:    size,
		StoragePath: rel,
	})
	if err != nil {
		if rmErr := s.blobs.Remove(rel); rmErr != nil {
			s.log.Warn("remove orphaned upload failed", zap.String("path", rel), zap.Error(rmErr))
		}
		return model.File{}, err
	}
	return f, nil
}

// List returns the files of a project the caller may see.
func (s *FileService) List(ctx context.Context, sess *auth.Session, projectID string) ([]model.File, error) {
	sess, err := auth.RequireAny(sess)
	if err != nil {
		return nil, err
	}
	p, err := s.project(ctx, sess, projectID)
	if err != nil {
		return nil, err
	}
	return s.files.ListByProject(ctx, p.ID)
}

// Open returns a file and its contents.  Callers that may not read the
// file get ErrNotFound, the same as for a file that does not exist.
func (s *FileService) Open(ctx context.Context, sess *auth.Session, id string) (model.File, io.ReadCloser, error) {
	sess, err := auth.RequireAny(sess)
	if err != nil {
		return model.File{}, nil, err
	}
	a, err := s.files.GetAccess(ctx, id)
	if err != nil {
		return model.File{}, nil, err
	}
	if !sess.IsAdmin() && !a.ReadableBy(sess.UserID) {
		return model.File{}, nil, apperrors.ErrNotFound
	}
	rc, err := s.blobs.Open(a.StoragePath)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("stored file missing", zap.String("file_id", a.ID))
		return model.File{}, nil, apperrors.ErrNotFound
	}
	if err != nil {
		s.log.Error("open stored file failed", zap.String("file_id", a.ID), zap.Error(err))
		return model.File{}, nil, fmt.Errorf("open stored file: %w", err)
	}
	return a.File, rc, nil
}
