package handler

import (
	"context"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/validation"
)

type clientService interface {
	List(ctx context.Context, sess *auth.Session, f model.ListFilter) (model.Page[model.ClientSummary], error)
	Export(ctx context.Context, sess *auth.Session, f model.ListFilter) ([]model.ClientSummary, error)
	Deactivate(ctx context.Context, sess *auth.Session, id string) (bool, error)
	SetRole(ctx context.Context, sess *auth.Session, id string, in validation.RoleInput) (model.User, error)
}

type metricsService interface {
	Metrics(ctx context.Context, sess *auth.Session) (model.Metrics, error)
}

// AdminHandler serves client management and the dashboard metrics.
type AdminHandler struct {
	base
	clients clientService
	metrics metricsService
}

func NewAdminHandler(clients clientService, metrics metricsService, logger *zap.Logger, timeout time.Duration) *AdminHandler {
	return &AdminHandler{base: newBase(logger, timeout, "admin"), clients: clients, metrics: metrics}
}

func (h *AdminHandler) Metrics(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	m, err := h.metrics.Metrics(ctx, session(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, m)
}

func (h *AdminHandler) ListClients(c echo.Context) error {
	f, err := listFilter(c, validation.ClientStatusFilter)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	page, err := h.clients.List(ctx, session(c), f)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, page)
}

var exportHeader = []string{
	"id", "name", "email", "active", "email_verified_at",
	"marketing_consent", "projects", "briefings", "created_at",
}

// ExportClients returns every client matching the filter, as CSV when
// ?format=csv and as JSON otherwise.
func (h *AdminHandler) ExportClients(c echo.Context) error {
	f, err := listFilter(c, validation.ClientStatusFilter)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	rows, err := h.clients.Export(ctx, session(c), f)
	if err != nil {
		return h.respondError(c, err)
	}
	if c.QueryParam("format") != "csv" {
		return ok(c, http.StatusOK, rows)
	}

	name := "clients-" + time.Now().UTC().Format("20060102") + ".csv"
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	res.WriteHeader(http.StatusOK)

	w := csv.NewWriter(res)
	_ = w.Write(exportHeader)
	for _, r := range rows {
		verified := ""
		if r.EmailVerifiedAt != nil {
			verified = r.EmailVerifiedAt.UTC().Format(time.RFC3339)
		}
		_ = w.Write([]string{
			r.ID,
			csvSafe(r.Name),
			csvSafe(r.Email),
			strconv.FormatBool(r.Active),
			verified,
			strconv.FormatBool(r.MarketingConsent),
			strconv.Itoa(r.ProjectCount),
			strconv.Itoa(r.BriefingCount),
			r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		h.log.Warn("csv export interrupted", zap.Error(err))
	}
	return nil
}

// csvSafe neutralises values a spreadsheet would evaluate as a formula.
func csvSafe(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

func (h *AdminHandler) DeactivateClient(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	changed, err := h.clients.Deactivate(ctx, session(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	msg := "client deactivated"
	if !changed {
		msg = "client was already inactive"
	}
	return c.JSON(http.StatusOK, envelope{Success: true, Data: echo.Map{"changed": changed}, Message: msg})
}

func (h *AdminHandler) SetRole(c echo.Context) error {
	var req validation.RoleInput
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	id, err := pathID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}
	u, err := h.clients.SetRole(ctx, session(c), id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, u)
}
