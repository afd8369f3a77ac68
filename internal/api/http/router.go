package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/inventory-auth/internal/api/http/handlers"
	"github.com/spec-kit/inventory-auth/internal/auth"
	"github.com/spec-kit/inventory-auth/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Users       *handlers.UsersHandler
	AuthPrefix  string
	FilesPrefix string
	UploadDir   string
}

// RegisterRoutes wires HTTP routes. Routes under AuthPrefix and FilesPrefix are public
// and carry no guard.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", auth.Require(domain.RoleAdmin), cfg.Health.Metrics)

	authGroup := app.Group(cfg.AuthPrefix)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/validate", cfg.Auth.Validate)

	if cfg.FilesPrefix != "" && cfg.UploadDir != "" {
		app.Static(cfg.FilesPrefix, cfg.UploadDir, fiber.Static{Browse: false})
	}

	users := app.Group("/api/users")
	users.Get("/me", auth.RequireAuthenticated(), cfg.Users.Me)
	users.Post("/me/password", auth.RequireAuthenticated(), cfg.Users.ChangePassword)
	users.Put("/:username/roles", auth.Require(domain.RoleAdmin), cfg.Users.UpdateRoles)
	users.Put("/:username/status", auth.Require(domain.RoleAdmin), cfg.Users.UpdateStatus)
}
