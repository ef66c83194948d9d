// handlers/inventory_routes.go
package handlers

import (
	"strconv"

	"nft-campaign-system/models"
	"nft-campaign-system/services"

	"github.com/gofiber/fiber/v2"
)

type InventoryHandler struct {
	store     *services.InventoryStore
	importer  *services.ImportService
	reconcile *services.ReconcileService
}

func NewInventoryHandler(store *services.InventoryStore, importer *services.ImportService, reconcile *services.ReconcileService) *InventoryHandler {
	return &InventoryHandler{store: store, importer: importer, reconcile: reconcile}
}

func SetupInventoryRoutes(app *fiber.App, h *InventoryHandler) {
	app.Get("/campaigns/:id/inventory", h.List)
	app.Post("/campaigns/:id/inventory/import", h.Import)
	app.Post("/campaigns/:id/inventory/import-from-authority", h.ImportFromAuthority)
	app.Post("/campaigns/:id/inventory/backfill-ownership", h.BackfillOwnership)
	app.Post("/campaigns/:id/inventory/backfill-images", h.BackfillImages)
	app.Post("/campaigns/:id/inventory/recompute-counters", h.RecomputeCounters)

	// Reconciliation against the minting authority
	app.Post("/campaigns/:id/reconcile/discrepancies", h.Discrepancies)
	app.Post("/campaigns/:id/reconcile/sync", h.SyncAll)
	app.Post("/campaigns/:id/reconcile/pull-sync", h.PullAndSync)
	app.Get("/campaigns/:id/reconcile/logs", h.SyncLogs)
	app.Post("/reconcile/sync-one", h.SyncOne)

	// Admin escape hatch for manual corrections
	app.Post("/campaigns/:id/inventory/set-status", h.SetStatus)
}

func (h *InventoryHandler) List(c *fiber.Ctx) error {
	items, err := h.store.Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

func (h *InventoryHandler) Import(c *fiber.Ctx) error {
	var body struct {
		Tokens []services.TokenImportInput `json:"tokens"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	summary, err := h.importer.ImportNewTokens(c.Params("id"), body.Tokens)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

func (h *InventoryHandler) ImportFromAuthority(c *fiber.Ctx) error {
	summary, err := h.importer.ImportFromAuthority(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

func (h *InventoryHandler) BackfillOwnership(c *fiber.Ctx) error {
	summary, err := h.importer.BackfillOwnership(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

func (h *InventoryHandler) BackfillImages(c *fiber.Ctx) error {
	var body struct {
		Images services.ImageSource `json:"images"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	summary, err := h.importer.BackfillImages(c.Context(), c.Params("id"), body.Images)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

func (h *InventoryHandler) RecomputeCounters(c *fiber.Ctx) error {
	counters, err := h.store.RecomputeCounters(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(counters)
}

func (h *InventoryHandler) Discrepancies(c *fiber.Ctx) error {
	var body struct {
		Snapshot models.AuthoritySnapshot `json:"snapshot"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	found, err := h.reconcile.ComputeDiscrepancies(c.Params("id"), body.Snapshot)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"discrepancies": found})
}

func (h *InventoryHandler) SyncAll(c *fiber.Ctx) error {
	var body struct {
		Snapshot models.AuthoritySnapshot `json:"snapshot"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	summary, err := h.reconcile.SyncAll(c.Context(), c.Params("id"), body.Snapshot, "manual_sync", operatorID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

func (h *InventoryHandler) PullAndSync(c *fiber.Ctx) error {
	summary, err := h.reconcile.PullAndSyncAll(c.Context(), c.Params("id"), "manual_sync", operatorID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

func (h *InventoryHandler) SyncOne(c *fiber.Ctx) error {
	var in services.SyncOneInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if in.CampaignID == "" || in.ExternalTokenID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "campaign_id and external_token_id are required"})
	}
	result, err := h.reconcile.SyncOne(in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

func (h *InventoryHandler) SyncLogs(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	logs, err := h.reconcile.RecentSyncLogs(c.Params("id"), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(logs)
}

func (h *InventoryHandler) SetStatus(c *fiber.Ctx) error {
	var body struct {
		ExternalTokenID string `json:"external_token_id"`
		NewStatus       string `json:"new_status"`
		Claimant        string `json:"claimant,omitempty"`
		ClaimantLabel   string `json:"claimant_label,omitempty"`
		PaymentRef      string `json:"payment_ref,omitempty"`
		AllowReversal   bool   `json:"allow_reversal,omitempty"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	change, err := h.store.SetStatus(services.SetStatusParams{
		ExternalTokenID: body.ExternalTokenID,
		CampaignID:      c.Params("id"),
		NewStatus:       models.TokenStatus(body.NewStatus),
		Claimant:        body.Claimant,
		ClaimantLabel:   body.ClaimantLabel,
		PaymentRef:      body.PaymentRef,
		AllowReversal:   body.AllowReversal,
	})
	if err != nil {
		return respondError(c, err)
	}
	if _, err := h.store.RecomputeCounters(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(change)
}
