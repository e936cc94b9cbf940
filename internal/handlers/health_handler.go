package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/subvault/billing-backend/internal/catalog"
	"github.com/subvault/billing-backend/internal/database"
	"github.com/subvault/billing-backend/internal/dto"
)

type HealthHandler struct {
	catalog *catalog.Catalog
}

func NewHealthHandler(cat *catalog.Catalog) *HealthHandler {
	return &HealthHandler{catalog: cat}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	resp := dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        "up",
		PlanCount: len(h.catalog.All()),
	}

	if err := database.Ping(); err != nil {
		resp.Status = "degraded"
		resp.DB = "down"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}

	return c.JSON(resp)
}
