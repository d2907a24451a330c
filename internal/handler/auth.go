package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/agency-portal/internal/auth"
	"github.com/iliyamo/agency-portal/internal/model"
	"github.com/iliyamo/agency-portal/internal/service"
	"github.com/iliyamo/agency-portal/internal/validation"
)

type authService interface {
	Register(ctx context.Context, in validation.RegisterInput) (model.User, error)
	Login(ctx context.Context, in validation.LoginInput) (model.User, service.TokenPair, error)
	Refresh(ctx context.Context, in validation.RefreshInput) (model.User, service.TokenPair, error)
	Logout(ctx context.Context, sess *auth.Session, refreshToken string) error
	Me(ctx context.Context, sess *auth.Session) (model.User, error)
}

type emailVerifier interface {
	VerifyEmail(ctx context.Context, raw string) error
}

// Landing routes of the frontend after an email verification attempt.
const (
	verifiedPath          = "/dashboard"
	verificationErrorPath = "/email-verification/error"
)

// AuthHandler serves registration, login, token rotation and email
// verification.
type AuthHandler struct {
	base
	svc         authService
	verifier    emailVerifier
	frontendURL string
}

func NewAuthHandler(svc authService, verifier emailVerifier, frontendURL string, logger *zap.Logger, timeout time.Duration) *AuthHandler {
	return &AuthHandler{
		base:        newBase(logger, timeout, "auth"),
		svc:         svc,
		verifier:    verifier,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

func newAuthResp(u model.User, p service.TokenPair) authResp {
	return authResp{
		User:    u,
		Access:  tokenPart{Token: p.Access.Token, Expires: p.Access.Exp},
		Refresh: tokenPart{Token: p.Refresh.Raw, Expires: p.Refresh.Exp},
	}
}

// Register creates a CLIENT account.  Tokens are issued by Login.
func (h *AuthHandler) Register(c echo.Context) error {
	var req validation.RegisterInput
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	u, err := h.svc.Register(ctx, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, envelope{
		Success: true,
		Data:    u,
		Message: "account created, check your email to confirm it",
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req validation.LoginInput
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	u, pair, err := h.svc.Login(ctx, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, newAuthResp(u, pair))
}

// Refresh rotates the refresh token and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req validation.RefreshInput
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	u, pair, err := h.svc.Refresh(ctx, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, newAuthResp(u, pair))
}

// Logout revokes the refresh token in the body, or every session of the
// bearer when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req validation.RefreshInput
	// An empty or malformed body falls back to the bearer session.
	_ = c.Bind(&req)

	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.svc.Logout(ctx, session(c), req.RefreshToken); err != nil {
		return h.respondError(c, err)
	}
	return okMessage(c, "logged out")
}

func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	u, err := h.svc.Me(ctx, session(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, http.StatusOK, u)
}

// VerifyEmail consumes a verification link and redirects the browser to
// the frontend.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.verifier.VerifyEmail(ctx, c.QueryParam("token")); err != nil {
		reason := service.FailureReason(err)
		if reason == service.ReasonServerError {
			h.log.Error("email verification failed", zap.Error(err))
		}
		q := url.Values{"reason": {reason}}
		return c.Redirect(http.StatusFound, h.frontendURL+verificationErrorPath+"?"+q.Encode())
	}
	return c.Redirect(http.StatusFound, h.frontendURL+verifiedPath+"?verified=true")
}
