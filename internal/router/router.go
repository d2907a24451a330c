// Package router registers the HTTP routes of the API on an echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agency-portal/internal/handler"
	"github.com/iliyamo/agency-portal/internal/middleware"
	"github.com/iliyamo/agency-portal/internal/service"
)

// APIPrefix is the base path of every versioned route.
const APIPrefix = "/v1"

// RegisterRoutes registers routes that live outside the API prefix.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers registration, login, token rotation and email
// verification.  Logout accepts either a refresh token in the body or a
// bearer token, so it only resolves the session optionally.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authn middleware.Authenticator) {
	g := e.Group(APIPrefix + "/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWTAuth(authn))

	e.GET(APIPrefix+"/email-verification", a.VerifyEmail)
	e.GET(APIPrefix+"/me", a.Me, middleware.JWTAuth(authn))
}

// RegisterPublic registers unauthenticated reads.  They are served through
// the response cache, which plan writes purge.
func RegisterPublic(e *echo.Echo, p *handler.PlanHandler, cache *middleware.ResponseCache) {
	g := e.Group(APIPrefix, cache.Middleware())
	g.GET(service.PublicPlansPath, p.ListPublic)
}

// RegisterCron registers scheduler-triggered jobs behind a shared secret.
func RegisterCron(e *echo.Echo, h *handler.CronHandler, secret string) {
	g := e.Group(APIPrefix+"/cron", middleware.RequireBearerSecret(secret))
	g.GET("/data-retention", h.DataRetention)
}
