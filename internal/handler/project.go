package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/service"
	"github.com/iliyamo/agency-portal/internal/validation"
)

type projectService interface {
	ListOwn(ctx context.Context, sess *auth.Session, f model.ListFilter) (model.Page[model.ProjectSummary], error)
	GetOwn(ctx context.Context, sess *auth.Session, id string) (model.ProjectDetail, error)
	Comment(ctx context.Context, sess *auth.Session, id string, in validation.CommentInput) (model.Comment, error)
	List(ctx context.Context, sess *auth.Session, f model.ListFilter) (model.Page[model.ProjectSummary], error)
	Get(ctx context.Context, sess *auth.Session, id string) (model.ProjectDetail, error)
	Stats(ctx context.Context, sess *auth.Session) (model.ProjectStats, error)
	UpdateStatus(ctx context.Context, sess *auth.Session, id string, in validation.ProjectStatusInput) (service.StatusChange, error)
	ToggleMilestone(ctx context.Context, sess *auth.Session, id string, in validation.MilestoneToggleInput) (service.MilestoneToggle, error)
	AddNote(ctx context.Context, sess *auth.Session, id string, in validation.CommentInput) (model.Comment, error)
}

// ProjectHandler serves project reads for clients and project management
// for admins.
type ProjectHandler struct {
	base
	svc projectService
}

func NewProjectHandler(svc projectService, logger *zap.Logger, timeout time.Duration) *ProjectHandler {
	return &ProjectHandler{base: newBase(logger, timeout, "projects"), svc: svc}
}

func (h *ProjectHandler) ListOwn(c echo.Context) error {
	f, err := listFilter(c, validation.ProjectStatusFilter)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	page, err := h.svc.ListOwn(ctx, session(c), f)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, page)
}

func (h *ProjectHandler) GetOwn(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	d, err := h.svc.GetOwn(ctx, session(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, d)
}

func (h *ProjectHandler) Comment(c echo.Context) error {
	var req validation.CommentInput
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	cm, err := h.svc.Comment(ctx, session(c), id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusCreated, cm)
}

func (h *ProjectHandler) List(c echo.Context) error {
	f, err := listFilter(c, validation.ProjectStatusFilter)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	page, err := h.svc.List(ctx, session(c), f)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, page)
}

func (h *ProjectHandler) Get(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	d, err := h.svc.Get(ctx, session(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, d)
}

func (h *ProjectHandler) Stats(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	st, err := h.svc.Stats(ctx, session(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, st)
}

func (h *ProjectHandler) UpdateStatus(c echo.Context) error {
	var req validation.ProjectStatusInput
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	ch, err := h.svc.UpdateStatus(ctx, session(c), id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, ch)
}

func (h *ProjectHandler) ToggleMilestone(c echo.Context) error {
	var req validation.MilestoneToggleInput
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	t, err := h.svc.ToggleMilestone(ctx, session(c), id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, t)
}

// AddNote records an internal comment that clients never see.
func (h *ProjectHandler) AddNote(c echo.Context) error {
	var req validation.CommentInput
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	cm, err := h.svc.AddNote(ctx, session(c), id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusCreated, cm)
}
