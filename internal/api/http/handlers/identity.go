package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/support-engine/pkg/util"
)

// Caller identity arrives in trusted headers set by the fronting
// gateway; this service performs no authentication of its own.
const (
	headerUserID     = "X-User-Id"
	headerOperatorID = "X-Operator-Id"
)

func requesterID(c *fiber.Ctx) (int64, error) {
	return parseIdentity(c.Get(headerUserID), headerUserID)
}

func operatorID(c *fiber.Ctx) (int64, error) {
	id, err := parseIdentity(c.Get(headerOperatorID), headerOperatorID)
	if err != nil {
		return 0, apperrors.NewForbidden("operator identity required")
	}
	return id, nil
}

func parseIdentity(raw, header string) (int64, error) {
	if raw == "" {
		return 0, apperrors.NewValidationError(header+" header required", nil)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(header+" must be a positive integer", nil)
	}
	return id, nil
}
