package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-routing/internal/api/dto"
	"github.com/spec-kit/ticket-routing/internal/auth"
	"github.com/spec-kit/ticket-routing/internal/service"
	apperrors "github.com/spec-kit/ticket-routing/pkg/util"
)

// LocksHandler exposes the editing-lease endpoints.
type LocksHandler struct {
	locks *service.LockService
}

// NewLocksHandler constructs handler.
func NewLocksHandler(lockService *service.LockService) *LocksHandler {
	return &LocksHandler{locks: lockService}
}

// Acquire POST /tickets/:id/lock.
func (h *LocksHandler) Acquire(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	grant, err := h.locks.Acquire(c.UserContext(), c.Params("id"), principal.Agent.ID)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if !grant.Granted {
		// a held lock is a normal UI state, rendered as a conflict
		status = http.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{"data": lockGrantResponse(grant)})
}

// Release DELETE /tickets/:id/lock.
func (h *LocksHandler) Release(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if err := h.locks.Release(c.UserContext(), c.Params("id"), principal.Agent.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Status GET /tickets/:id/lock.
func (h *LocksHandler) Status(c *fiber.Ctx) error {
	status, err := h.locks.Status(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LockStatusResponse{
		Locked:    status.Locked,
		HolderID:  status.HolderID,
		ExpiresAt: status.ExpiresAt,
	}})
}

// ForceRelease POST /tickets/:id/lock/force. Role gate applied in routing.
func (h *LocksHandler) ForceRelease(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if err := h.locks.ForceRelease(c.UserContext(), c.Params("id"), principal.Agent.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// BulkAcquire POST /locks/bulk-acquire.
func (h *LocksHandler) BulkAcquire(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.BulkAcquireRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.TicketIDs) == 0 {
		return apperrors.NewValidationError("ticket_ids required", nil)
	}

	result, err := h.locks.BulkAcquire(c.UserContext(), req.TicketIDs, principal.Agent.ID)
	if err != nil {
		return err
	}

	failed := make([]dto.BulkAcquireFailure, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, dto.BulkAcquireFailure{TicketID: f.TicketID, HolderID: f.HolderID})
	}
	return c.JSON(fiber.Map{"data": dto.BulkAcquireResponse{
		Acquired: result.Acquired,
		Failed:   failed,
	}})
}

func lockGrantResponse(grant *service.LockGrant) dto.LockGrantResponse {
	resp := dto.LockGrantResponse{Granted: grant.Granted, HolderID: grant.HolderID}
	if !grant.ExpiresAt.IsZero() {
		expiresAt := grant.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	return resp
}
