package handler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/service"
)

type fileService interface {
	Upload(ctx context.Context, sess *auth.Session, projectID string, up service.Upload) (model.File, error)
	List(ctx context.Context, sess *auth.Session, projectID string) ([]model.File, error)
	Open(ctx context.Context, sess *auth.Session, id string) (model.File, io.ReadCloser, error)
}

// FileHandler serves project file uploads and downloads.
type FileHandler struct {
	base
	svc fileService
}

// NewFileHandler builds a FileHandler.  Uploads stream to storage, so the
// timeout covers the whole transfer.
func NewFileHandler(svc fileService, logger *zap.Logger, timeout time.Duration) *FileHandler {
	return &FileHandler{base: newBase(logger, timeout, "files"), svc: svc}
}

// Upload accepts a multipart form with a single "file" part.
func (h *FileHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return h.respondError(c, apperrors.NewValidationError("file", "is required"))
	}
	src, err := fh.Open()
	if err != nil {
		return h.respondError(c, err)
	}
	defer src.Close()

	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	f, err := h.svc.Upload(ctx, session(c), id, service.Upload{
		Filename: fh.Filename,
		MimeType: fh.Header.Get(echo.HeaderContentType),
		Body:     src,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusCreated, f)
}

func (h *FileHandler) List(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	files, err := h.svc.List(ctx, session(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, files)
}

// Download streams the file as an attachment.
func (h *FileHandler) Download(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "fileId")
	if err != nil {
		return h.respondError(c, err)
	}
	f, rc, err := h.svc.Open(ctx, session(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	defer rc.Close()

	hdr := c.Response().Header()
	hdr.Set(echo.HeaderContentDisposition, attachment(f.Filename))
	hdr.Set(echo.HeaderContentLength, strconv.FormatInt(f.FileSize, 10))
	hdr.Set("X-Content-Type-Options", "nosniff")
	return c.Stream(http.StatusOK, f.MimeType, rc)
}

// attachment builds a Content-Disposition value with a quoted ASCII
// filename, adding filename* when the name is not plain ASCII.
func attachment(name string) string {
	var b strings.Builder
	plain := true
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			b.WriteByte('_')
		case r > 0x7e:
			b.WriteByte('_')
			plain = false
		default:
			b.WriteRune(r)
		}
	}
	v := `attachment; filename="` + b.String() + `"`
	if !plain {
		v += "; filename*=UTF-8''" + strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	}
	return v
}
