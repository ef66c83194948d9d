package handlers

import (
	"errors"

	"nft-campaign-system/models"

	"github.com/gofiber/fiber/v2"
)

// respondError maps the service error taxonomy onto HTTP statuses. Every
// handler funnels failures through here so the gateway sees one shape.
func respondError(c *fiber.Ctx, err error) error {
	if reason, ok := models.IsNotEligible(err); ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":  "not_eligible",
			"reason": string(reason),
		})
	}

	switch {
	case errors.Is(err, models.ErrCampaignNotFound),
		errors.Is(err, models.ErrTokenNotFound),
		errors.Is(err, models.ErrReservationNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, models.ErrScopeMismatch),
		errors.Is(err, models.ErrReversalNotAllowed),
		errors.Is(err, models.ErrNotAvailable),
		errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrAlreadyPopulated),
		errors.Is(err, models.ErrDuplicateCampaign),
		errors.Is(err, models.ErrCampaignHasTokens):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, models.ErrCampaignInactive),
		errors.Is(err, models.ErrCampaignNotStarted),
		errors.Is(err, models.ErrCampaignEnded),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrInvalidCampaignMove):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, models.ErrExternalUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

// operatorID pulls the acting operator from the gateway-injected header.
func operatorID(c *fiber.Ctx) string {
	return c.Get("X-Operator-ID")
}
