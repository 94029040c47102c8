package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hybrid-auth/internal/handler"
	"github.com/iliyamo/hybrid-auth/internal/model"
)

// RegisterAdmin registers user management under /admin.  Every route
// requires an authenticated admin.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, g Guards) {
	grp := e.Group("/admin",
		g.CSRF,
		g.Authenticate,
		g.Authorize(model.RoleAdmin),
	)
	grp.GET("/users", h.ListUsers)
	grp.POST("/users/:id/role", h.UpdateRole)
	grp.PUT("/users/:id/role", h.UpdateRole)
	grp.DELETE("/users/:id", h.DeleteUser)
}
