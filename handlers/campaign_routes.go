// handlers/campaign_routes.go
package handlers

import (
	"nft-campaign-system/services"

	"github.com/gofiber/fiber/v2"
)

type CampaignHandler struct {
	campaigns *services.CampaignService
	policy    *services.PolicyService
}

func NewCampaignHandler(campaigns *services.CampaignService, policy *services.PolicyService) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, policy: policy}
}

func SetupCampaignRoutes(app *fiber.App, h *CampaignHandler) {
	app.Get("/campaigns", h.List)
	app.Get("/campaigns/slug/:slug", h.GetBySlug)
	app.Get("/campaigns/:id", h.Get)
	app.Get("/campaigns/:id/stats", h.GetWithStats)

	app.Post("/campaigns", h.Create)
	app.Patch("/campaigns/:id", h.Update)
	app.Post("/campaigns/:id/activate", h.Activate)
	app.Post("/campaigns/:id/pause", h.Pause)
	app.Post("/campaigns/:id/complete", h.Complete)
	app.Delete("/campaigns/:id/inventory", h.ClearInventory)

	app.Put("/campaigns/:id/eligibility-snapshot", h.SetSnapshot)
	app.Put("/campaigns/:id/policy", h.SetPolicy)
	app.Post("/eligibility-snapshots/:ref/import", h.ImportSnapshot)
}

func (h *CampaignHandler) List(c *fiber.Ctx) error {
	campaigns, err := h.campaigns.List()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(campaigns)
}

func (h *CampaignHandler) Get(c *fiber.Ctx) error {
	campaign, err := h.campaigns.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(campaign)
}

func (h *CampaignHandler) GetBySlug(c *fiber.Ctx) error {
	campaign, err := h.campaigns.GetBySlug(c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(campaign)
}

func (h *CampaignHandler) GetWithStats(c *fiber.Ctx) error {
	stats, err := h.campaigns.GetWithStats(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (h *CampaignHandler) Create(c *fiber.Ctx) error {
	var in services.CreateCampaignInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	campaign, err := h.campaigns.Create(in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(campaign)
}

func (h *CampaignHandler) Update(c *fiber.Ctx) error {
	var in services.UpdateCampaignInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	campaign, err := h.campaigns.Update(c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(campaign)
}

func (h *CampaignHandler) Activate(c *fiber.Ctx) error {
	campaign, err := h.campaigns.Activate(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(campaign)
}

func (h *CampaignHandler) Pause(c *fiber.Ctx) error {
	campaign, err := h.campaigns.Pause(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(campaign)
}

func (h *CampaignHandler) Complete(c *fiber.Ctx) error {
	campaign, err := h.campaigns.Complete(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(campaign)
}

func (h *CampaignHandler) ClearInventory(c *fiber.Ctx) error {
	if err := h.campaigns.ClearInventory(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "cleared"})
}

func (h *CampaignHandler) SetSnapshot(c *fiber.Ctx) error {
	var body struct {
		SnapshotRef *string `json:"snapshot_ref"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.policy.SetSnapshot(c.Params("id"), body.SnapshotRef); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": "updated"})
}

func (h *CampaignHandler) SetPolicy(c *fiber.Ctx) error {
	var body struct {
		AllowMultipleMints        *bool `json:"allow_multiple_mints"`
		ReservationCleanupEnabled *bool `json:"reservation_cleanup_enabled"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.AllowMultipleMints != nil {
		if err := h.policy.SetMultiMintPolicy(c.Params("id"), *body.AllowMultipleMints); err != nil {
			return respondError(c, err)
		}
	}
	if body.ReservationCleanupEnabled != nil {
		if err := h.policy.SetCleanupPolicy(c.Params("id"), *body.ReservationCleanupEnabled); err != nil {
			return respondError(c, err)
		}
	}
	return c.JSON(fiber.Map{"status": "updated"})
}

func (h *CampaignHandler) ImportSnapshot(c *fiber.Ctx) error {
	var body struct {
		Entries []services.SnapshotEntryInput `json:"entries"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	imported, err := h.policy.ImportEligibilitySnapshot(c.Params("ref"), body.Entries)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"imported": imported})
}
