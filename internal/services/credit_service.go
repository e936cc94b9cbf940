package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/subvault/billing-backend/internal/catalog"
	"github.com/subvault/billing-backend/internal/models"
	"gorm.io/gorm"
)

// creditValidity is how long a refund-to-credit pool stays usable.
const creditValidity = 365 * 24 * time.Hour

// ProrationStrategy decides how much of a replaced subscription's price comes
// back as account credits. The formula is deliberately pluggable; swap the
// strategy to defer to the gateway's own proration instead.
type ProrationStrategy interface {
	CreditAmount(plan *catalog.Plan, sub *models.Subscription, now time.Time) int64
}

// DailyRateStrategy credits the unused whole days of the current period at
// the plan's daily rate.
type DailyRateStrategy struct{}

func (DailyRateStrategy) CreditAmount(plan *catalog.Plan, sub *models.Subscription, now time.Time) int64 {
	price := plan.Price(sub.BillingCycle)
	if price <= 0 || !now.Before(sub.CurrentPeriodEnd) {
		return 0
	}

	periodDays := int64(sub.CurrentPeriodEnd.Sub(sub.CurrentPeriodStart).Hours() / 24)
	if periodDays <= 0 {
		return 0
	}
	remainingDays := int64(sub.CurrentPeriodEnd.Sub(now).Hours() / 24)
	if remainingDays <= 0 {
		return 0
	}
	if remainingDays > periodDays {
		remainingDays = periodDays
	}

	return price * remainingDays / periodDays
}

type CreditService struct {
	db       *gorm.DB
	strategy ProrationStrategy
}

func NewCreditService(db *gorm.DB, strategy ProrationStrategy) *CreditService {
	if strategy == nil {
		strategy = DailyRateStrategy{}
	}
	return &CreditService{db: db, strategy: strategy}
}

// IssueRefundCredit converts the unused portion of a subscription into an
// account credit inside the caller's transaction. Returns nil when the
// strategy yields nothing.
func (s *CreditService) IssueRefundCredit(tx *gorm.DB, plan *catalog.Plan, sub *models.Subscription, now time.Time) (*models.Credit, error) {
	amount := s.strategy.CreditAmount(plan, sub, now)
	if amount <= 0 {
		return nil, nil
	}

	expires := now.Add(creditValidity)
	credit := models.Credit{
		ID:              uuid.New(),
		UserID:          sub.UserID,
		RemainingAmount: amount,
		IsActive:        true,
		ExpiresAt:       &expires,
	}
	if err := tx.Create(&credit).Error; err != nil {
		return nil, fmt.Errorf("failed to create credit: %w", err)
	}
	return &credit, nil
}

// Balance sums the user's active, unexpired credit pools.
func (s *CreditService) Balance(userID uuid.UUID) (int64, error) {
	var credits []models.Credit
	err := s.db.
		Where("user_id = ? AND is_active = ? AND remaining_amount > 0", userID, true).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Find(&credits).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load credits: %w", err)
	}

	var total int64
	for _, c := range credits {
		total += c.RemainingAmount
	}
	return total, nil
}

// Consume draws amount from the oldest credit pools first and returns how
// much was actually covered.
func (s *CreditService) Consume(tx *gorm.DB, userID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, nil
	}

	var credits []models.Credit
	err := tx.
		Where("user_id = ? AND is_active = ? AND remaining_amount > 0", userID, true).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Order("created_at asc").
		Find(&credits).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load credits: %w", err)
	}

	var used int64
	for i := range credits {
		if used >= amount {
			break
		}
		take := amount - used
		if take > credits[i].RemainingAmount {
			take = credits[i].RemainingAmount
		}
		credits[i].RemainingAmount -= take
		if credits[i].RemainingAmount == 0 {
			credits[i].IsActive = false
		}
		if err := tx.Save(&credits[i]).Error; err != nil {
			return used, fmt.Errorf("failed to update credit: %w", err)
		}
		used += take
	}
	return used, nil
}
