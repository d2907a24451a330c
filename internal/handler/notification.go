package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/service"
	"github.com/iliyamo/agency-portal/internal/validation"
)

type notificationService interface {
	List(ctx context.Context, sess *auth.Session, unreadOnly bool, limit int) (service.NotificationList, error)
	MarkRead(ctx context.Context, sess *auth.Session, id string) error
	MarkAllRead(ctx context.Context, sess *auth.Session) (int64, error)
	Preferences(ctx context.Context, sess *auth.Session) ([]model.NotificationPreference, error)
	SavePreferences(ctx context.Context, sess *auth.Session, in validation.PreferencesInput) ([]model.NotificationPreference, error)
}

type NotificationHandler struct {
	base
	svc notificationService
}

func NewNotificationHandler(svc notificationService, logger *zap.Logger, timeout time.Duration) *NotificationHandler {
	return &NotificationHandler{base: newBase(logger, timeout, "notifications"), svc: svc}
}

// List accepts ?unread=true and ?limit=N.
func (h *NotificationHandler) List(c echo.Context) error {
	unread := c.QueryParam("unread") == "true"
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return h.respondError(c, apperrors.NewValidationError("limit", "must be a positive number"))
		}
		limit = n
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	list, err := h.svc.List(ctx, session(c), unread, limit)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, list)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.svc.MarkRead(ctx, session(c), id); err != nil {
		return h.respondError(c, err)
	}
	return okMessage(c, "notification marked as read")
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	n, err := h.svc.MarkAllRead(ctx, session(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"updated": n})
}

func (h *NotificationHandler) Preferences(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	prefs, err := h.svc.Preferences(ctx, session(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, prefs)
}

func (h *NotificationHandler) SavePreferences(c echo.Context) error {
	var req validation.PreferencesInput
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	prefs, err := h.svc.SavePreferences(ctx, session(c), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, prefs)
}
