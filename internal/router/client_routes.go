package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agency-portal/internal/handler"
	"github.com/iliyamo/agency-portal/internal/middleware"
	"github.com/iliyamo/agency-portal/internal/model"
)

// ClientHandlers groups the handlers mounted for authenticated users.
type ClientHandlers struct {
	Briefings     *handler.BriefingHandler
	Projects      *handler.ProjectHandler
	Files         *handler.FileHandler
	Notifications *handler.NotificationHandler
}

// RegisterClient registers the client dashboard under /v1.  Briefing and
// project reads require the CLIENT role.  Comments, files and
// notifications are open to every role; the services scope them to what
// the caller may see.
func RegisterClient(e *echo.Echo, h ClientHandlers, authn middleware.Authenticator) {
	authed := e.Group(APIPrefix, middleware.JWTAuth(authn))
	clientOnly := middleware.RequireRole(model.RoleClient)

	authed.GET("/briefings", h.Briefings.ListOwn, clientOnly)
	authed.POST("/briefings", h.Briefings.Create, clientOnly)
	authed.GET("/briefings/:id", h.Briefings.GetOwn, clientOnly)
	authed.PUT("/briefings/:id", h.Briefings.Update, clientOnly)
	authed.POST("/briefings/:id/submit", h.Briefings.Submit, clientOnly)
	authed.GET("/projects", h.Projects.ListOwn, clientOnly)
	authed.GET("/projects/:id", h.Projects.GetOwn, clientOnly)

	authed.POST("/projects/:id/comments", h.Projects.Comment)
	authed.GET("/projects/:id/files", h.Files.List)
	authed.POST("/projects/:id/files", h.Files.Upload)
	authed.GET("/files/:fileId", h.Files.Download)

	authed.GET("/notifications", h.Notifications.List)
	authed.POST("/notifications/read-all", h.Notifications.MarkAllRead)
	authed.POST("/notifications/:id/read", h.Notifications.MarkRead)
	authed.GET("/notifications/preferences", h.Notifications.Preferences)
	authed.PUT("/notifications/preferences", h.Notifications.SavePreferences)
}
