package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/dto"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/service"
)

// SubscriptionsHandler exposes subscription lookups.
type SubscriptionsHandler struct {
	service *service.SubscriptionService
}

// NewSubscriptionsHandler constructs handler.
func NewSubscriptionsHandler(subscriptionService *service.SubscriptionService) *SubscriptionsHandler {
	return &SubscriptionsHandler{service: subscriptionService}
}

// GetSubscription GET /subscriptions/:name. Operators may inspect any
// subscription via the operator header; users see only their own.
func (h *SubscriptionsHandler) GetSubscription(c *fiber.Ctx) error {
	operator := false
	callerID, err := operatorID(c)
	if err == nil {
		operator = true
	} else {
		callerID, err = requesterID(c)
		if err != nil {
			return err
		}
	}

	sub, err := h.service.GetForOwner(c.UserContext(), c.Params("name"), callerID, operator)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": subscriptionResponse(sub)})
}

func subscriptionResponse(sub *domain.Subscription) dto.SubscriptionResponse {
	return dto.SubscriptionResponse{
		ID:        sub.ID,
		Name:      sub.Name,
		OwnerID:   sub.OwnerID,
		Cost:      sub.Cost,
		ExpiresAt: sub.ExpiresAt,
		DaysLeft:  sub.DaysLeft(time.Now()),
		Notes:     sub.Notes,
	}
}
