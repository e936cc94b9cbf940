package models

import (
	"time"

	"github.com/google/uuid"
)

type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

type SubscriptionStatus string

const (
	SubscriptionCreated       SubscriptionStatus = "created"
	SubscriptionActive        SubscriptionStatus = "active"
	SubscriptionAuthenticated SubscriptionStatus = "authenticated"
	SubscriptionPaused        SubscriptionStatus = "paused"
	SubscriptionCancelled     SubscriptionStatus = "cancelled"
	SubscriptionExpired       SubscriptionStatus = "expired"
	SubscriptionUpgraded      SubscriptionStatus = "upgraded"
	SubscriptionReplaced      SubscriptionStatus = "replaced"
)

// Subscription is one version of a user's plan membership. Plan changes never
// rewrite a row in place: the old row is marked replaced/upgraded and a new
// row is created, so the table doubles as plan history.
type Subscription struct {
	ID                    uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	PlanCode              string             `gorm:"size:50;not null" json:"plan_code"`
	BillingCycle          BillingCycle       `gorm:"size:10;not null;default:'monthly'" json:"billing_cycle"`
	Status                SubscriptionStatus `gorm:"size:20;not null;default:'created';index" json:"status"`
	CurrentPeriodStart    time.Time          `json:"current_period_start"`
	CurrentPeriodEnd      time.Time          `gorm:"index" json:"current_period_end"`
	NextBillingDate       *time.Time         `json:"next_billing_date,omitempty"`
	TrialStart            *time.Time         `json:"trial_start,omitempty"`
	TrialEnd              *time.Time         `json:"trial_end,omitempty"`
	TotalAmount           int64              `json:"total_amount"`
	AutoRenewal           bool               `gorm:"default:true" json:"auto_renewal"`
	CancelAtPeriodEnd     bool               `gorm:"default:false" json:"cancel_at_period_end"`
	CancelledAt           *time.Time         `json:"cancelled_at,omitempty"`
	PausedAt              *time.Time         `json:"paused_at,omitempty"`
	ResumeAt              *time.Time         `json:"resume_at,omitempty"`
	PauseCount            int                `gorm:"default:0" json:"pause_count"`
	GatewaySubscriptionID *string            `gorm:"size:64;index" json:"gateway_subscription_id,omitempty"`
	GatewayCustomerID     *string            `gorm:"size:64" json:"gateway_customer_id,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// Advance moves a timestamp forward by one billing cycle.
func (c BillingCycle) Advance(from time.Time) time.Time {
	if c == CycleYearly {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}
