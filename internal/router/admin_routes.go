package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agency-portal/internal/handler"
	"github.com/iliyamo/agency-portal/internal/middleware"
	"github.com/iliyamo/agency-portal/internal/model"
)

// AdminHandlers groups the handlers mounted under /v1/admin.
type AdminHandlers struct {
	Admin     *handler.AdminHandler
	Briefings *handler.BriefingHandler
	Projects  *handler.ProjectHandler
	Plans     *handler.PlanHandler
}

// RegisterAdmin registers ADMIN and SUPER_ADMIN endpoints.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, authn middleware.Authenticator) {
	g := e.Group(APIPrefix+"/admin", middleware.JWTAuth(authn), middleware.RequireAdmin())

	g.GET("/metrics", h.Admin.Metrics)

	// ---- Projects ----
	g.GET("/projects", h.Projects.List)
	g.GET("/projects/stats", h.Projects.Stats)
	g.GET("/projects/:id", h.Projects.Get)
	g.PATCH("/projects/:id", h.Projects.UpdateStatus)
	g.PATCH("/projects/:id/milestones", h.Projects.ToggleMilestone)
	g.POST("/projects/:id/notes", h.Projects.AddNote)

	// ---- Briefings ----
	g.GET("/briefings", h.Briefings.List)
	g.GET("/briefings/:id", h.Briefings.Get)
	g.POST("/briefings/:id/review", h.Briefings.Review)
	g.POST("/briefings/:id/approve", h.Briefings.Approve)
	g.POST("/briefings/:id/reject", h.Briefings.Reject)

	// ---- Clients ----
	g.GET("/clients", h.Admin.ListClients)
	g.GET("/clients/export", h.Admin.ExportClients)
	g.POST("/clients/:id/deactivate", h.Admin.DeactivateClient)
	g.PATCH("/clients/:id/role", h.Admin.SetRole, middleware.RequireRole(model.RoleSuperAdmin))

	// ---- Plans ----
	g.GET("/plans", h.Plans.ListAll)
	g.POST("/plans", h.Plans.Create)
	g.POST("/plans/reorder", h.Plans.Reorder)
	g.PUT("/plans/:id", h.Plans.Update)
	g.DELETE("/plans/:id", h.Plans.Delete)
}
