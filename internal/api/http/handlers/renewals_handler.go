package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/dto"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/service"
	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// RenewalsHandler manages end-user renewal endpoints.
type RenewalsHandler struct {
	service *service.RenewalService
}

// NewRenewalsHandler constructs handler.
func NewRenewalsHandler(renewalService *service.RenewalService) *RenewalsHandler {
	return &RenewalsHandler{service: renewalService}
}

// CreateRenewal POST /renewals.
func (h *RenewalsHandler) CreateRenewal(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return err
	}
	var req dto.CreateRenewalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	renewal, err := h.service.Submit(c.UserContext(), userID, req.SubscriptionName, req.Months)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": renewalResponse(renewal)})
}

// GetRenewal GET /renewals/:id.
func (h *RenewalsHandler) GetRenewal(c *fiber.Ctx) error {
	userID, err := requesterID(c)
	if err != nil {
		return err
	}
	renewal, err := h.service.GetForRequester(c.UserContext(), c.Params("id"), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": renewalResponse(renewal)})
}

func renewalResponse(req *domain.RenewalRequest) dto.RenewalResponse {
	return dto.RenewalResponse{
		ID:               req.ID,
		RequesterID:      req.RequesterID,
		SubscriptionName: req.SubscriptionName,
		Months:           req.Months,
		Cost:             req.Cost,
		Status:           string(req.Status),
		OperatorNotes:    req.OperatorNotes,
		CreatedAt:        req.CreatedAt,
		ProcessedAt:      req.ProcessedAt,
	}
}
