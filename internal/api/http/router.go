package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-routing/internal/api/http/handlers"
	"github.com/spec-kit/ticket-routing/internal/auth"
	"github.com/spec-kit/ticket-routing/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Locks           *handlers.LocksHandler
	Assignments     *handlers.AssignmentsHandler
	SLA             *handlers.SLAHandler
	AgentMiddleware *auth.AgentMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AgentMiddleware.Handle)

	tickets := api.Group("/tickets/:id")
	tickets.Post("/lock", cfg.Locks.Acquire)
	tickets.Delete("/lock", cfg.Locks.Release)
	tickets.Get("/lock", cfg.Locks.Status)
	tickets.Post("/lock/force",
		auth.RequireForceRelease(),
		cfg.Locks.ForceRelease)

	tickets.Post("/assign", cfg.Assignments.ManualAssign)
	tickets.Post("/auto-assign", cfg.Assignments.AutoAssign)
	tickets.Post("/reassign",
		auth.RequireRole(domain.AgentRoleTeamLead, domain.AgentRoleAdmin),
		cfg.Assignments.Reassign)
	tickets.Get("/sla", cfg.SLA.Check)

	api.Post("/locks/bulk-acquire", cfg.Locks.BulkAcquire)

	orgs := api.Group("/organizations/:id")
	orgs.Get("/workloads", cfg.Assignments.GetWorkloads)
	orgs.Post("/workloads/sync", cfg.Assignments.SyncWorkloads)
	orgs.Get("/sla/stats", cfg.SLA.Stats)

	api.Post("/sla/breaches", cfg.SLA.RecordBreach)
	api.Post("/sla/breaches/:id/ack", cfg.SLA.Acknowledge)
}
