// handlers/reservation_routes.go
package handlers

import (
	"nft-campaign-system/services"

	"github.com/gofiber/fiber/v2"
)

type ReservationHandler struct {
	reservations *services.ReservationService
}

func NewReservationHandler(reservations *services.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

func SetupReservationRoutes(app *fiber.App, h *ReservationHandler) {
	app.Get("/campaigns/:id/reservations", h.List)
	app.Post("/campaigns/:id/reservations", h.Create)
	app.Post("/campaigns/:id/reservations/sweep", h.Sweep)
	app.Post("/reservations/:id/finalize", h.Finalize)
	app.Delete("/reservations/:id", h.Cancel)
}

func (h *ReservationHandler) List(c *fiber.Ctx) error {
	resvs, err := h.reservations.ListByCampaign(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resvs)
}

func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	var body struct {
		ClaimantID string `json:"claimant_id"`
		TokenID    string `json:"token_id,omitempty"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.ClaimantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "claimant_id is required"})
	}

	result, err := h.reservations.CreateReservation(services.CreateReservationInput{
		CampaignID: c.Params("id"),
		ClaimantID: body.ClaimantID,
		TokenID:    body.TokenID,
	})
	if err != nil {
		return respondError(c, err)
	}
	if result.IsExisting {
		return c.JSON(result)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *ReservationHandler) Sweep(c *fiber.Ctx) error {
	released, err := h.reservations.SweepExpired(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"released": released})
}

func (h *ReservationHandler) Finalize(c *fiber.Ctx) error {
	var body struct {
		Claimant      string `json:"claimant,omitempty"`
		ClaimantLabel string `json:"claimant_label,omitempty"`
	}
	// body is optional: the reservation already knows its claimant
	_ = c.BodyParser(&body)

	change, err := h.reservations.FinalizeSale(c.Params("id"), body.Claimant, body.ClaimantLabel)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(change)
}

func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	if err := h.reservations.Cancel(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "cancelled"})
}
