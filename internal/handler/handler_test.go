package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/agency-portal/internal/apperrors"
	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/service"
	"github.com/iliyamo/agency-portal/internal/validation"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestRespondError_StatusMapping(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	b := newBase(zap.New(core), 0, "test")

	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{apperrors.NewValidationError("reason", "too short"), http.StatusBadRequest, "validation failed"},
		{fmt.Errorf("load: %w", apperrors.ErrUnauthorized), http.StatusUnauthorized, "unauthorized"},
		{apperrors.ErrForbidden, http.StatusForbidden, "forbidden"},
		{apperrors.ErrNotFound, http.StatusNotFound, "not found"},
		{apperrors.ErrInvalidTransition, http.StatusConflict, "invalid status transition"},
		{fmt.Errorf("create: %w", fmt.Errorf("%w: email already exists", apperrors.ErrConflict)), http.StatusConflict, "email already exists"},
		{errors.New("dial tcp 10.0.0.1:3306: connection refused"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

		require.NoError(t, b.respondError(c, tc.err))
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		env := decode(t, rec)
		assert.False(t, env.Success)
		assert.Equal(t, tc.msg, env.Error)
		assert.NotContains(t, rec.Body.String(), "10.0.0.1")
	}
	assert.Equal(t, 1, logs.FilterMessage("request failed").Len())
}

func TestRespondError_ValidationFields(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, newBase(nil, 0, "test").respondError(c, apperrors.NewValidationError("reason", "too short")))
	env := decode(t, rec)
	assert.Equal(t, map[string]string{"reason": "too short"}, env.Fields)
}

type stubVerifier struct{ err error }

func (s stubVerifier) VerifyEmail(context.Context, string) error { return s.err }

func TestVerifyEmail_Redirects(t *testing.T) {
	cases := []struct {
		err      error
		location string
	}{
		{nil, "https://app.example.com/dashboard?verified=true"},
		{service.ErrVerificationExpired, "https://app.example.com/email-verification/error?reason=token_expirado"},
		{service.ErrVerificationInvalid, "https://app.example.com/email-verification/error?reason=token_invalido"},
		{errors.New("db down"), "https://app.example.com/email-verification/error?reason=erro_servidor"},
	}
	for _, tc := range cases {
		h := NewAuthHandler(nil, stubVerifier{err: tc.err}, "https://app.example.com/", zap.NewNop(), time.Second)
		e := echo.New()
		e.GET("/email-verification", h.VerifyEmail)

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/email-verification?token=abc", nil))
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, tc.location, rec.Header().Get(echo.HeaderLocation))
	}
}

const (
	testFileID    = "0b7e8c9a-4f3d-4c1e-9a51-2d6f0e8b7c11"
	testProjectID = "5c2a1d7e-8b9f-4e60-a3c4-1f2e3d4c5b6a"
)

type stubFiles struct {
	file model.File
	body string
	err  error
}

func (s stubFiles) Upload(context.Context, *auth.Session, string, service.Upload) (model.File, error) {
	return s.file, s.err
}

func (s stubFiles) List(context.Context, *auth.Session, string) ([]model.File, error) {
	return []model.File{s.file}, s.err
}

func (s stubFiles) Open(context.Context, *auth.Session, string) (model.File, io.ReadCloser, error) {
	if s.err != nil {
		return model.File{}, nil, s.err
	}
	return s.file, io.NopCloser(strings.NewReader(s.body)), nil
}

func TestDownload_Headers(t *testing.T) {
	stub := stubFiles{
		file: model.File{ID: "f1", Filename: "proposta final.pdf", MimeType: "application/pdf", FileSize: 8},
		body: "%PDF-1.4",
	}
	e := echo.New()
	e.GET("/files/:fileId", NewFileHandler(stub, nil, time.Second).Download)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/"+testFileID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="proposta final.pdf"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, "8", rec.Header().Get(echo.HeaderContentLength))
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
}

func TestDownload_HiddenFileIsNotFound(t *testing.T) {
	e := echo.New()
	e.GET("/files/:fileId", NewFileHandler(stubFiles{err: apperrors.ErrNotFound}, nil, time.Second).Download)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/"+testFileID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpload_MissingFilePart(t *testing.T) {
	e := echo.New()
	e.POST("/projects/:id/files", NewFileHandler(stubFiles{}, nil, time.Second).Upload)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/projects/"+testProjectID+"/files", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Fields, "file")
}

type stubClients struct {
	rows        []model.ClientSummary
	filter      model.ListFilter
	deactivated []string
}

func (s *stubClients) List(context.Context, *auth.Session, model.ListFilter) (model.Page[model.ClientSummary], error) {
	return model.Page[model.ClientSummary]{}, nil
}

func (s *stubClients) Export(_ context.Context, _ *auth.Session, f model.ListFilter) ([]model.ClientSummary, error) {
	s.filter = f
	return s.rows, nil
}

func (s *stubClients) Deactivate(_ context.Context, _ *auth.Session, id string) (bool, error) {
	s.deactivated = append(s.deactivated, id)
	return true, nil
}

func (s *stubClients) SetRole(context.Context, *auth.Session, string, validation.RoleInput) (model.User, error) {
	return model.User{}, nil
}

func TestExportClients_CSV(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	stub := &stubClients{rows: []model.ClientSummary{
		{ID: "u1", Name: "=HYPERLINK(\"x\")", Email: "ana@example.com", Active: true, ProjectCount: 2, CreatedAt: created},
	}}
	e := echo.New()
	e.GET("/admin/clients/export", NewAdminHandler(stub, nil, nil, time.Second).ExportClients)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/clients/export?format=csv&status=active", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/csv"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(exportHeader, ","), lines[0])
	assert.Equal(t, `u1,"'=HYPERLINK(""x"")",ana@example.com,true,,false,2,0,2026-01-02T03:04:05Z`, lines[1])

	require.NotNil(t, stub.filter.Status)
	assert.Equal(t, "ACTIVE", *stub.filter.Status)
}

func TestExportClients_BadFilter(t *testing.T) {
	e := echo.New()
	e.GET("/admin/clients/export", NewAdminHandler(&stubClients{}, nil, nil, time.Second).ExportClients)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/clients/export?status=ARCHIVED", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeactivateClient_MalformedIDRejected(t *testing.T) {
	stub := &stubClients{}
	e := echo.New()
	e.POST("/admin/clients/:id/deactivate", NewAdminHandler(stub, nil, nil, time.Second).DeactivateClient)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/clients/not-a-uuid/deactivate", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must be a valid identifier", decode(t, rec).Fields["id"])
	assert.Empty(t, stub.deactivated)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/clients/"+testProjectID+"/deactivate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{testProjectID}, stub.deactivated)
}

func TestDownload_MalformedIDRejected(t *testing.T) {
	e := echo.New()
	e.GET("/files/:fileId", NewFileHandler(stubFiles{}, nil, time.Second).Download)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/f1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Fields, "fileId")
}

func TestAttachment_AlwaysQuoted(t *testing.T) {
	assert.Equal(t, `attachment; filename="report.pdf"`, attachment("report.pdf"))
	assert.Equal(t, `attachment; filename="a \"b\".pdf"`, attachment(`a "b".pdf`))
	assert.Equal(t, `attachment; filename="or_amento.pdf"; filename*=UTF-8''or%C3%A7amento.pdf`, attachment("orçamento.pdf"))
}

type stubRetention struct{ report service.RetentionReport }

func (s stubRetention) Run(context.Context) service.RetentionReport { return s.report }

func TestDataRetention_ReportsSteps(t *testing.T) {
	report := service.RetentionReport{
		Steps:  []service.RetentionStep{{Name: "read_notifications", Deleted: 3}, {Name: "draft_briefings", Error: "cleanup failed"}},
		Failed: 1,
	}
	e := echo.New()
	e.GET("/cron/data-retention", NewCronHandler(stubRetention{report}, nil, time.Second).DataRetention)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cron/data-retention", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"failed":1`)
	assert.Contains(t, rec.Body.String(), `"error":"cleanup failed"`)
}
