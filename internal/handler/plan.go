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

type planService interface {
	ListPublic(ctx context.Context) ([]model.PricingPlan, error)
	ListAll(ctx context.Context, sess *auth.Session) ([]model.PricingPlan, error)
	Create(ctx context.Context, sess *auth.Session, in validation.PlanInput) (model.PricingPlan, error)
	Update(ctx context.Context, sess *auth.Session, id string, in validation.PlanInput) (model.PricingPlan, error)
	Delete(ctx context.Context, sess *auth.Session, id string) error
	Reorder(ctx context.Context, sess *auth.Session, in validation.ReorderInput) ([]model.PricingPlan, error)
}

// PlanHandler serves the public price list and its admin editor.
type PlanHandler struct {
	base
	svc planService
}

func NewPlanHandler(svc planService, logger *zap.Logger, timeout time.Duration) *PlanHandler {
	return &PlanHandler{base: newBase(logger, timeout, "plans"), svc: svc}
}

func (h *PlanHandler) ListPublic(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	plans, err := h.svc.ListPublic(ctx)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, plans)
}

func (h *PlanHandler) ListAll(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	plans, err := h.svc.ListAll(ctx, session(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, plans)
}

func (h *PlanHandler) Create(c echo.Context) error {
	var req validation.PlanInput
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	p, err := h.svc.Create(ctx, session(c), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusCreated, p)
}

func (h *PlanHandler) Update(c echo.Context) error {
	var req validation.PlanInput
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	p, err := h.svc.Update(ctx, session(c), id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, p)
}

func (h *PlanHandler) Delete(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.svc.Delete(ctx, session(c), id); err != nil {
		return h.respondError(c, err)
	}
	return okMessage(c, "plan deleted")
}

// Reorder answers with every plan in its new order.
func (h *PlanHandler) Reorder(c echo.Context) error {
	var req validation.ReorderInput
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	plans, err := h.svc.Reorder(ctx, session(c), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, plans)
}
