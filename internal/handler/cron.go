package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/service"
)

type retentionRunner interface {
	Run(ctx context.Context) service.RetentionReport
}

// CronHandler serves jobs triggered by an external scheduler.  The route
// is guarded by a shared secret, not by a user session.
type CronHandler struct {
	base
	retention retentionRunner
}

func NewCronHandler(retention retentionRunner, logger *zap.Logger, timeout time.Duration) *CronHandler {
	return &CronHandler{base: newBase(logger, timeout, "cron"), retention: retention}
}

// DataRetention runs every cleanup step.  The response is 200 even when a
// step fails; the report says which.
func (h *CronHandler) DataRetention(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	report := h.retention.Run(ctx)
	h.log.Info("data retention finished",
		zap.Int("failed", report.Failed),
		zap.Int64("duration_ms", report.DurationMs),
	)
	return ok(c, http.StatusOK, report)
}
