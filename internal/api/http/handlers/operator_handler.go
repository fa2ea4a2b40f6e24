package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/dto"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/service"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// OperatorHandler manages the operator surface: escalation queue,
// ticket replies and renewal decisions.
type OperatorHandler struct {
	tickets  *service.TicketService
	renewals *service.RenewalService
}

// NewOperatorHandler constructs handler.
func NewOperatorHandler(ticketService *service.TicketService, renewalService *service.RenewalService) *OperatorHandler {
	return &OperatorHandler{tickets: ticketService, renewals: renewalService}
}

// ListEscalated GET /operator/tickets.
func (h *OperatorHandler) ListEscalated(c *fiber.Ctx) error {
	if _, err := operatorID(c); err != nil {
		return err
	}
	limit, offset := pagination(c)
	tickets, err := h.tickets.ListEscalated(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Reply POST /operator/tickets/:id/reply.
func (h *OperatorHandler) Reply(c *fiber.Ctx) error {
	opID, err := operatorID(c)
	if err != nil {
		return err
	}
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Body) == "" {
		return apperrors.NewValidationError("body required", nil)
	}
	if err := h.tickets.OperatorReply(c.UserContext(), c.Params("id"), opID, req.Body); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"ticket_id": c.Params("id")}})
}

// CloseTicket POST /operator/tickets/:id/close.
func (h *OperatorHandler) CloseTicket(c *fiber.Ctx) error {
	opID, err := operatorID(c)
	if err != nil {
		return err
	}
	if err := h.tickets.Close(c.UserContext(), c.Params("id"), opID, true); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"ticket_id": c.Params("id"), "status": string(domain.TicketStatusClosed)}})
}

// ListRenewals GET /operator/renewals.
func (h *OperatorHandler) ListRenewals(c *fiber.Ctx) error {
	if _, err := operatorID(c); err != nil {
		return err
	}
	limit, offset := pagination(c)
	requests, err := h.renewals.ListUndecided(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.RenewalResponse, 0, len(requests))
	for i := range requests {
		items = append(items, renewalResponse(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DecideRenewal POST /operator/renewals/:id/decision.
func (h *OperatorHandler) DecideRenewal(c *fiber.Ctx) error {
	opID, err := operatorID(c)
	if err != nil {
		return err
	}
	var req dto.RenewalDecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	decision := domain.RenewalDecision(strings.ToUpper(strings.TrimSpace(req.Decision)))
	renewal, err := h.renewals.Decide(c.UserContext(), c.Params("id"), opID, decision, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": renewalResponse(renewal)})
}
