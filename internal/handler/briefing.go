package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/validation"
)

type briefingService interface {
	Create(ctx context.Context, sess *auth.Session, in validation.BriefingInput) (model.Briefing, error)
	Update(ctx context.Context, sess *auth.Session, id string, in validation.BriefingInput) (model.Briefing, error)
	Submit(ctx context.Context, sess *auth.Session, id string) (model.Briefing, error)
	ListOwn(ctx context.Context, sess *auth.Session, f model.ListFilter) (model.Page[model.Briefing], error)
	GetOwn(ctx context.Context, sess *auth.Session, id string) (model.Briefing, error)
	List(ctx context.Context, sess *auth.Session, f model.ListFilter) (model.Page[model.BriefingSummary], error)
	Get(ctx context.Context, sess *auth.Session, id string) (model.Briefing, error)
	Review(ctx context.Context, sess *auth.Session, id string) (model.Briefing, error)
	Approve(ctx context.Context, sess *auth.Session, id string) (model.Project, error)
	Reject(ctx context.Context, sess *auth.Session, id string, in validation.RejectBriefingInput) (model.Briefing, error)
}

// BriefingHandler serves the client briefing dashboard and the admin
// review workflow.
type BriefingHandler struct {
	base
	svc briefingService
}

func NewBriefingHandler(svc briefingService, logger *zap.Logger, timeout time.Duration) *BriefingHandler {
	return &BriefingHandler{base: newBase(logger, timeout, "briefings"), svc: svc}
}

// ---- client ----

func (h *BriefingHandler) ListOwn(c echo.Context) error {
	f, err := listFilter(c, validation.BriefingStatusFilter)
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

func (h *BriefingHandler) GetOwn(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	b, err := h.svc.GetOwn(ctx, session(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, b)
}

func (h *BriefingHandler) Create(c echo.Context) error {
	var req validation.BriefingInput
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	b, err := h.svc.Create(ctx, session(c), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusCreated, b)
}

func (h *BriefingHandler) Update(c echo.Context) error {
	var req validation.BriefingInput
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	b, err := h.svc.Update(ctx, session(c), id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, b)
}

func (h *BriefingHandler) Submit(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	b, err := h.svc.Submit(ctx, session(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, b)
}

// ---- admin ----

func (h *BriefingHandler) List(c echo.Context) error {
	f, err := listFilter(c, validation.BriefingStatusFilter)
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

func (h *BriefingHandler) Get(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	b, err := h.svc.Get(ctx, session(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, b)
}

func (h *BriefingHandler) Review(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	b, err := h.svc.Review(ctx, session(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, b)
}

// Approve answers with the project created from the briefing.
func (h *BriefingHandler) Approve(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	p, err := h.svc.Approve(ctx, session(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusCreated, p)
}

func (h *BriefingHandler) Reject(c echo.Context) error {
	var req validation.RejectBriefingInput
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	b, err := h.svc.Reject(ctx, session(c), id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, b)
}
