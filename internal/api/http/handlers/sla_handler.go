package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-routing/internal/api/dto"
	"github.com/spec-kit/ticket-routing/internal/auth"
	"github.com/spec-kit/ticket-routing/internal/domain"
	"github.com/spec-kit/ticket-routing/internal/service"
	apperrors "github.com/spec-kit/ticket-routing/pkg/util"
)

// SLAHandler exposes the SLA tracking endpoints.
type SLAHandler struct {
	sla *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slaService *service.SLAService) *SLAHandler {
	return &SLAHandler{sla: slaService}
}

// Check GET /tickets/:id/sla.
func (h *SLAHandler) Check(c *fiber.Ctx) error {
	result, err := h.sla.Check(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SLACheckResponse{
		PolicyID:                   result.PolicyID,
		ResponseBreached:           result.ResponseBreached,
		ResolutionBreached:         result.ResolutionBreached,
		ResponseRemainingMinutes:   result.ResponseRemainingMinutes,
		ResolutionRemainingMinutes: result.ResolutionRemainingMinutes,
	}})
}

// RecordBreach POST /sla/breaches.
func (h *SLAHandler) RecordBreach(c *fiber.Ctx) error {
	var req dto.RecordBreachRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID == "" || req.PolicyID == "" {
		return apperrors.NewValidationError("ticket_id and policy_id required", nil)
	}
	breachType := domain.BreachType(req.BreachType)
	if breachType != domain.BreachTypeResponse && breachType != domain.BreachTypeResolution {
		return apperrors.NewValidationError("breach_type must be response or resolution", nil)
	}

	breach, err := h.sla.RecordBreach(c.UserContext(), req.TicketID, req.PolicyID, breachType)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": breachResponse(breach)})
}

// Acknowledge POST /sla/breaches/:id/ack.
func (h *SLAHandler) Acknowledge(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if err := h.sla.Acknowledge(c.UserContext(), c.Params("id"), principal.Agent.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Stats GET /organizations/:id/sla/stats.
func (h *SLAHandler) Stats(c *fiber.Ctx) error {
	windowDays := 30
	if raw := c.Query("window_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return apperrors.NewValidationError("window_days must be a positive integer", nil)
		}
		windowDays = parsed
	}

	stats, err := h.sla.Stats(c.UserContext(), c.Params("id"), windowDays)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SLAStatsResponse{
		WindowDays:         stats.WindowDays,
		TotalTickets:       stats.TotalTickets,
		ResponseBreaches:   stats.ResponseBreaches,
		ResolutionBreaches: stats.ResolutionBreaches,
		ComplianceRate:     stats.ComplianceRate,
	}})
}

func breachResponse(breach *domain.SLABreach) dto.BreachResponse {
	return dto.BreachResponse{
		ID:             breach.ID,
		TicketID:       breach.TicketID,
		PolicyID:       breach.PolicyID,
		BreachType:     string(breach.BreachType),
		BreachedAt:     breach.BreachedAt,
		AcknowledgedBy: breach.AcknowledgedBy,
		AcknowledgedAt: breach.AcknowledgedAt,
	}
}
