package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mindboost/academy-auth/internal/api/http/handlers"
	"github.com/mindboost/academy-auth/internal/auth"
	"github.com/mindboost/academy-auth/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Admin          *handlers.AdminHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Every role-gated route lists its allowed
// roles explicitly.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	authenticate := cfg.AuthMiddleware.Handle

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", authenticate, cfg.Auth.Me)
	authGroup.Post("/password", authenticate, cfg.Auth.ChangePassword)

	dashboard := api.Group("/dashboard", authenticate)
	dashboard.Get("/learner", auth.RequireRole(domain.RoleLearner), cfg.Dashboard.Show("learner"))
	dashboard.Get("/instructor", auth.RequireRole(domain.RoleTeacher), cfg.Dashboard.Show("instructor"))
	dashboard.Get("/prep-admin", auth.RequireRole(domain.RolePrepAdmin, domain.RoleSuperAdmin), cfg.Dashboard.Show("prep-admin"))
	dashboard.Get("/super-admin", auth.RequireRole(domain.RoleSuperAdmin), cfg.Dashboard.Show("super-admin"))

	admin := api.Group("/admin", authenticate, auth.RequireRole(domain.RoleSuperAdmin))
	admin.Patch("/users/:id/role", cfg.Admin.AssignRole)
	admin.Get("/metrics", cfg.Admin.Metrics)
}
