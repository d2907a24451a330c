package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/middleware"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/validation"
)

// envelope is the body of every JSON API response.
type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// base carries what every handler needs: a logger and the bound applied
// to store calls.
type base struct {
	log     *zap.Logger
	timeout time.Duration
}

func newBase(logger *zap.Logger, timeout time.Duration, name string) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return base{log: logger.Named(name), timeout: timeout}
}

// ctx bounds the request context by the store timeout.
func (b base) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), b.timeout)
}

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Success: true, Data: data})
}

func okMessage(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Message: msg})
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, envelope{Success: false, Error: msg})
}

// respondError maps err onto a status code.  Unknown errors are logged
// and answered with a generic message.
func (b base) respondError(c echo.Context, err error) error {
	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, envelope{Error: "validation failed", Fields: ve.Fields})
	case errors.Is(err, apperrors.ErrValidation):
		return fail(c, http.StatusBadRequest, "validation failed")
	case errors.Is(err, apperrors.ErrUnauthorized):
		return fail(c, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, apperrors.ErrForbidden):
		return fail(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, apperrors.ErrNotFound):
		return fail(c, http.StatusNotFound, "not found")
	case errors.Is(err, apperrors.ErrInvalidTransition):
		return fail(c, http.StatusConflict, "invalid status transition")
	case errors.Is(err, apperrors.ErrConflict):
		return fail(c, http.StatusConflict, conflictMessage(err))
	}
	b.log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("route", c.Path()),
		zap.Error(err),
	)
	return fail(c, http.StatusInternalServerError, "internal server error")
}

// conflictMessage keeps the service's wording for conflicts the client can
// act on, such as a duplicate email.
func conflictMessage(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if errors.Unwrap(e) == apperrors.ErrConflict {
			return strings.TrimPrefix(e.Error(), apperrors.ErrConflict.Error()+": ")
		}
	}
	return "conflict"
}

// bind decodes the request body into dst.  A malformed body is a
// validation error on the body as a whole.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperrors.NewValidationError("body", "is not valid JSON")
	}
	return nil
}

// listFilter binds the list query string and validates it.
func listFilter(c echo.Context, validStatus func(string) bool) (model.ListFilter, error) {
	var in validation.FilterInput
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &in); err != nil {
		return model.ListFilter{}, apperrors.NewValidationError("query", "is not valid")
	}
	return validation.Filter(in, validStatus)
}

func session(c echo.Context) *auth.Session { return middleware.SessionFrom(c) }

// pathID reads a path parameter and checks its identifier format.
func pathID(c echo.Context, name string) (string, error) {
	id := c.Param(name)
	if err := validation.ID(name, id); err != nil {
		return "", err
	}
	return id, nil
}
