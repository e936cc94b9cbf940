package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/subvault/billing-backend/internal/dto"
	"github.com/subvault/billing-backend/internal/models"
	"gorm.io/gorm"
)

// AdminHandler exposes read-only ledger views for operators.
type AdminHandler struct {
	db *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// ListTransactions handles GET /admin/transactions with optional user_id and
// status filters.
func (h *AdminHandler) ListTransactions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	query := h.db.Model(&models.Transaction{})
	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("invalid user_id", "INVALID_REQUEST"))
		}
		query = query.Where("user_id = ?", userID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Fail("failed to count transactions", "INTERNAL_ERROR"))
	}

	var transactions []models.Transaction
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&transactions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Fail("failed to list transactions", "INTERNAL_ERROR"))
	}

	return c.JSON(dto.OK("transactions", fiber.Map{
		"transactions": transactions,
		"total":        total,
		"limit":        limit,
		"offset":       offset,
	}))
}

// ListWebhookEvents handles GET /admin/webhook-events. failed=true narrows to
// events whose processing errored.
func (h *AdminHandler) ListWebhookEvents(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	query := h.db.Model(&models.WebhookEvent{})
	if c.QueryBool("failed", false) {
		query = query.Where("process_error <> ''")
	}
	if eventType := c.Query("event_type"); eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Fail("failed to count webhook events", "INTERNAL_ERROR"))
	}

	var events []models.WebhookEvent
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&events).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Fail("failed to list webhook events", "INTERNAL_ERROR"))
	}

	return c.JSON(dto.OK("webhook events", fiber.Map{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	}))
}
