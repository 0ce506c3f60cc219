package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Auth              *handlers.AuthHandler
	Tickets           *handlers.TicketsHandler
	Admin             *handlers.AdminHandler
	SessionMiddleware *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Use(cfg.SessionMiddleware.Handle)

	app.Post("/setup", cfg.Auth.Setup)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/register/confirm", cfg.Auth.ConfirmRegistration)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)
	authGroup.Get("/me", auth.RequireAuth(), cfg.Auth.Me)
	authGroup.Post("/password/change", auth.RequireAuth(), cfg.Auth.ChangePassword)

	tickets := app.Group("/tickets", auth.RequireAuth())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Post("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/self-assign", cfg.Tickets.SelfAssign)
	tickets.Post("/:id/assign", cfg.Tickets.Assign)
	tickets.Post("/:id/secure-keys", cfg.Tickets.AddSecureKey)
	tickets.Get("/:id/secure-keys/:keyID", cfg.Tickets.RevealSecureKey)
	tickets.Delete("/:id/secure-keys/:keyID", cfg.Tickets.DeleteSecureKey)

	managers := auth.RequireRole(domain.RoleSuperAdmin, domain.RoleAgentAdmin)

	admin := app.Group("/admin", auth.RequireAuth())
	admin.Post("/tenants", managers, cfg.Admin.CreateTenant)
	admin.Get("/tenants", managers, cfg.Admin.ListTenants)
	admin.Get("/tenants/:id", managers, cfg.Admin.GetTenant)
	admin.Patch("/tenants/:id", managers, cfg.Admin.UpdateTenant)
	admin.Post("/tenants/:id/active", managers, cfg.Admin.SetTenantActive)
	admin.Get("/tenants/:id/domains", managers, cfg.Admin.ListTenantDomains)
	admin.Post("/tenants/:id/domains", managers, cfg.Admin.ClaimDomain)
	admin.Delete("/tenants/:id/domains/:domain", managers, cfg.Admin.ReleaseDomain)

	admin.Post("/users", managers, cfg.Admin.CreateUser)
	admin.Get("/users", auth.RequireRole(domain.RoleSuperAdmin, domain.RoleAgentAdmin, domain.RoleOrgAdmin), cfg.Admin.ListUsers)
	admin.Get("/users/:id", managers, cfg.Admin.GetUser)
	admin.Post("/users/:id/active", auth.RequireRole(domain.RoleSuperAdmin, domain.RoleAgentAdmin, domain.RoleOrgAdmin), cfg.Admin.SetUserActive)
	admin.Delete("/users/:id", auth.RequireRole(domain.RoleSuperAdmin, domain.RoleAgentAdmin, domain.RoleOrgAdmin), cfg.Admin.DeleteUser)

	admin.Get("/settings", managers, cfg.Admin.ListSettings)
	admin.Put("/settings/:key", auth.RequireRole(domain.RoleSuperAdmin), cfg.Admin.UpdateSetting)
}
