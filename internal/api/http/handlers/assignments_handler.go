package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-routing/internal/api/dto"
	"github.com/spec-kit/ticket-routing/internal/auth"
	"github.com/spec-kit/ticket-routing/internal/service"
	apperrors "github.com/spec-kit/ticket-routing/pkg/util"
)

// AssignmentsHandler exposes routing and workload endpoints.
type AssignmentsHandler struct {
	routing *service.RoutingService
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(routingService *service.RoutingService) *AssignmentsHandler {
	return &AssignmentsHandler{routing: routingService}
}

// AutoAssign POST /tickets/:id/auto-assign.
func (h *AssignmentsHandler) AutoAssign(c *fiber.Ctx) error {
	result, err := h.routing.AutoAssign(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentResponse(result)})
}

// ManualAssign POST /tickets/:id/assign.
func (h *AssignmentsHandler) ManualAssign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.ManualAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.AssigneeID) == "" {
		return apperrors.NewValidationError("assignee_id required", nil)
	}

	result, err := h.routing.ManualAssign(c.UserContext(), c.Params("id"), req.AssigneeID, principal.Agent.ID)
	if err != nil {
		return err
	}
	if !result.Success {
		return service.MapAssignmentFailure(result)
	}
	return c.JSON(fiber.Map{"data": assignmentResponse(result)})
}

// Reassign POST /tickets/:id/reassign.
func (h *AssignmentsHandler) Reassign(c *fiber.Ctx) error {
	var req dto.ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.AssigneeID) == "" {
		return apperrors.NewValidationError("assignee_id required", nil)
	}

	result, err := h.routing.Reassign(c.UserContext(), c.Params("id"), req.AssigneeID, req.Reason)
	if err != nil {
		return err
	}
	if !result.Success {
		return service.MapAssignmentFailure(result)
	}
	return c.JSON(fiber.Map{"data": assignmentResponse(result)})
}

// GetWorkloads GET /organizations/:id/workloads.
func (h *AssignmentsHandler) GetWorkloads(c *fiber.Ctx) error {
	workloads, err := h.routing.GetWorkloads(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.WorkloadResponse, 0, len(workloads))
	for _, w := range workloads {
		items = append(items, dto.WorkloadResponse{
			AgentID:        w.AgentID,
			OpenTickets:    w.OpenTickets,
			LastAssignedAt: w.LastAssignedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// SyncWorkloads POST /organizations/:id/workloads/sync.
func (h *AssignmentsHandler) SyncWorkloads(c *fiber.Ctx) error {
	if err := h.routing.SyncWorkloads(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func assignmentResponse(result *service.AssignmentResult) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		Success:    result.Success,
		AssigneeID: result.AssigneeID,
		RuleName:   result.RuleName,
		Strategy:   string(result.Strategy),
		Reason:     result.Reason,
	}
}
