package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/subvault/billing-backend/internal/models"
)

// Plan is one entry of the priced plan catalog. Prices are paise; a plan with
// both prices zero is the free tier.
type Plan struct {
	Code           string         `json:"code"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	PriceMonthly   int64          `json:"price_monthly"`
	PriceYearly    int64          `json:"price_yearly"`
	TrialDays      int            `json:"trial_days"`
	Features       []string       `json:"features"`
	Limits         map[string]int `json:"limits"`
	IsActive       bool           `json:"is_active"`
	GatewayPlanIDs map[string]string `json:"gateway_plan_ids"`
}

func (p *Plan) IsFree() bool {
	return p.PriceMonthly == 0 && p.PriceYearly == 0
}

// Price returns the plan price for the given billing cycle.
func (p *Plan) Price(cycle models.BillingCycle) int64 {
	if cycle == models.CycleYearly {
		return p.PriceYearly
	}
	return p.PriceMonthly
}

type PlansFile struct {
	Plans []Plan `json:"plans"`
}

// Catalog is an in-memory registry of plans loaded from plans.json.
type Catalog struct {
	mu    sync.RWMutex
	plans map[string]*Plan
}

func NewCatalog() *Catalog {
	return &Catalog{
		plans: make(map[string]*Plan),
	}
}

func LoadFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plans config: %w", err)
	}

	var file PlansFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse plans config: %w", err)
	}

	catalog := NewCatalog()
	for i := range file.Plans {
		catalog.Register(&file.Plans[i])
	}
	return catalog, nil
}

func (c *Catalog) Register(plan *Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans[plan.Code] = plan
}

// Get returns the plan with the given code, or nil when unknown.
func (c *Catalog) Get(code string) *Plan {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.plans[code]
}

func (c *Catalog) Exists(code string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.plans[code]
	return ok
}

// GatewayPlanID returns the payment provider's plan id for a code and cycle,
// or "" when the plan was never registered with the gateway.
func (c *Catalog) GatewayPlanID(code string, cycle models.BillingCycle) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	plan, ok := c.plans[code]
	if !ok {
		return ""
	}
	return plan.GatewayPlanIDs[string(cycle)]
}

func (c *Catalog) All() []*Plan {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]*Plan, 0, len(c.plans))
	for _, plan := range c.plans {
		result = append(result, plan)
	}
	return result
}
