package routes

import (
	"github.com/bekmuradov/sofra/internal/middleware"
	"github.com/bekmuradov/sofra/internal/router"
)

// RegisterAdminRoutes registers the operator API. It is a bearer-token
// surface; with no token configured the routes answer 404 so nothing
// leaks about the deployment.
func RegisterAdminRoutes(r *router.Router, deps AdminDeps, adminToken string) {
	admin := r.Group(middleware.RequireAdminToken(adminToken))

	admin.Get("/api/admin/settings", deps.SettingsHandler.Get)
	admin.Put("/api/admin/settings", deps.SettingsHandler.Update)
}
