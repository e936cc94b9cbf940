package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/subvault/billing-backend/internal/catalog"
	"github.com/subvault/billing-backend/internal/dto"
	"github.com/subvault/billing-backend/internal/services"
)

// BillingConfigHandler is the public read surface for the plan catalog and
// lifecycle limits, so clients render pricing without hardcoding it.
type BillingConfigHandler struct {
	catalog *catalog.Catalog
}

func NewBillingConfigHandler(cat *catalog.Catalog) *BillingConfigHandler {
	return &BillingConfigHandler{catalog: cat}
}

type planView struct {
	Code         string         `json:"code"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	PriceMonthly int64          `json:"price_monthly"`
	PriceYearly  int64          `json:"price_yearly"`
	TrialDays    int            `json:"trial_days"`
	Features     []string       `json:"features"`
	Limits       map[string]int `json:"limits"`
}

// GetConfig handles GET /config. Gateway plan ids stay server-side.
func (h *BillingConfigHandler) GetConfig(c *fiber.Ctx) error {
	plans := make([]planView, 0)
	for _, p := range h.catalog.All() {
		if !p.IsActive {
			continue
		}
		plans = append(plans, planView{
			Code:         p.Code,
			Name:         p.Name,
			Description:  p.Description,
			PriceMonthly: p.PriceMonthly,
			PriceYearly:  p.PriceYearly,
			TrialDays:    p.TrialDays,
			Features:     p.Features,
			Limits:       p.Limits,
		})
	}

	return c.JSON(dto.OK("billing config", fiber.Map{
		"plans":    plans,
		"currency": "INR",
		"lifecycle": fiber.Map{
			"max_pause_count":    services.MaxPauseCount,
			"max_pause_days":     services.MaxPauseDays,
			"default_pause_days": services.DefaultPauseDays,
		},
	}))
}
