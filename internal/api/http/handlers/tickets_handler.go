package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/dto"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/service"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// TicketsHandler manages end-user ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" {
		return apperrors.NewValidationError("title and description required", nil)
	}

	ticket, outcome, err := h.service.Open(c.UserContext(), userID, req.Title, req.Description)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"ticket":     ticketSummary(ticket),
		"resolution": replyResponse(outcome),
	}})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	tickets, err := h.service.ListForRequester(c.UserContext(), userID, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return err
	}
	ticket, msgs, err := h.service.GetForRequester(c.UserContext(), c.Params("id"), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, msgs)})
}

// Reply POST /tickets/:id/reply.
func (h *TicketsHandler) Reply(c *fiber.Ctx) error {
	userID, err := requesterID(c)
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

	outcome, err := h.service.Reply(c.UserContext(), c.Params("id"), userID, req.Body)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": replyResponse(outcome)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return err
	}
	if err := h.service.Close(c.UserContext(), c.Params("id"), userID, false); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"ticket_id": c.Params("id"), "status": string(domain.TicketStatusClosed)}})
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:          ticket.ID,
		ExternalKey: ticket.ExternalKey,
		Title:       ticket.Title,
		Status:      string(ticket.Status),
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		ClosedAt:    ticket.ClosedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, msgs []domain.TicketMessage) dto.TicketDetail {
	detail := dto.TicketDetail{
		TicketSummary: ticketSummary(ticket),
		Description:   ticket.Description,
		Messages:      make([]dto.TicketMessageResponse, 0, len(msgs)),
	}
	for i := range msgs {
		detail.Messages = append(detail.Messages, dto.TicketMessageResponse{
			ID:        msgs[i].ID,
			Sender:    string(msgs[i].Sender),
			Body:      msgs[i].Body,
			CreatedAt: msgs[i].CreatedAt,
		})
	}
	return detail
}

func replyResponse(outcome service.ReplyOutcome) dto.ReplyResponse {
	return dto.ReplyResponse{
		TicketID:  outcome.TicketID,
		Resolved:  outcome.Resolved,
		ReplyText: outcome.ReplyText,
	}
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	return pageSize, (page - 1) * pageSize
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
