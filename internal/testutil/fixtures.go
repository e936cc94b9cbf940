package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/subvault/billing-backend/internal/models"
)

// TestUser creates and persists a user row.
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*models.User)) *models.User {
	t.Helper()

	user := &models.User{
		ID:       uuid.New(),
		Email:    fmt.Sprintf("test_%d@example.com", time.Now().UnixNano()),
		Password: "$2a$10$abcdefghijklmnopqrstuvwxyz123456", // bcrypt hash placeholder
		Name:     "Test User",
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithEmail sets the user email.
func WithEmail(email string) func(*models.User) {
	return func(u *models.User) {
		u.Email = email
	}
}

// WithRole sets the user role.
func WithRole(role string) func(*models.User) {
	return func(u *models.User) {
		u.Role = role
	}
}

// WithGatewayCustomer sets the gateway customer id.
func WithGatewayCustomer(id string) func(*models.User) {
	return func(u *models.User) {
		u.GatewayCustomerID = &id
	}
}

// TestSubscription creates and persists a subscription row. Defaults to an
// active monthly subscription on the given plan with a month of period left.
func TestSubscription(t *testing.T, db *gorm.DB, userID uuid.UUID, planCode string, opts ...func(*models.Subscription)) *models.Subscription {
	t.Helper()

	now := time.Now()
	sub := &models.Subscription{
		ID:                 uuid.New(),
		UserID:             userID,
		PlanCode:           planCode,
		BillingCycle:       models.CycleMonthly,
		Status:             models.SubscriptionActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		AutoRenewal:        true,
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithStatus sets the subscription status.
func WithStatus(status models.SubscriptionStatus) func(*models.Subscription) {
	return func(s *models.Subscription) {
		s.Status = status
	}
}

// WithCycle sets the billing cycle.
func WithCycle(cycle models.BillingCycle) func(*models.Subscription) {
	return func(s *models.Subscription) {
		s.BillingCycle = cycle
	}
}

// WithPeriod sets the current period bounds.
func WithPeriod(start, end time.Time) func(*models.Subscription) {
	return func(s *models.Subscription) {
		s.CurrentPeriodStart = start
		s.CurrentPeriodEnd = end
	}
}

// WithGatewaySubscription sets the gateway subscription id.
func WithGatewaySubscription(id string) func(*models.Subscription) {
	return func(s *models.Subscription) {
		s.GatewaySubscriptionID = &id
	}
}

// WithPauseCount sets how many times the subscription was paused.
func WithPauseCount(count int) func(*models.Subscription) {
	return func(s *models.Subscription) {
		s.PauseCount = count
	}
}

// Paused marks the subscription paused as of pausedAt.
func Paused(pausedAt time.Time, resumeAt *time.Time) func(*models.Subscription) {
	return func(s *models.Subscription) {
		s.Status = models.SubscriptionPaused
		s.PausedAt = &pausedAt
		s.ResumeAt = resumeAt
		s.PauseCount++
	}
}

// TestTransaction creates and persists a transaction row.
func TestTransaction(t *testing.T, db *gorm.DB, userID, subscriptionID uuid.UUID, opts ...func(*models.Transaction)) *models.Transaction {
	t.Helper()

	txn := &models.Transaction{
		ID:             uuid.New(),
		UserID:         userID,
		SubscriptionID: subscriptionID,
		Type:           models.TransactionSubscription,
		Status:         models.TransactionCreated,
		Amount:         19900,
		Currency:       "INR",
	}

	for _, opt := range opts {
		opt(txn)
	}

	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("Failed to create test transaction: %v", err)
	}

	return txn
}

// WithTxnStatus sets the transaction status.
func WithTxnStatus(status models.TransactionStatus) func(*models.Transaction) {
	return func(tx *models.Transaction) {
		tx.Status = status
	}
}

// WithGatewayPayment sets the gateway payment id.
func WithGatewayPayment(id string) func(*models.Transaction) {
	return func(tx *models.Transaction) {
		tx.GatewayPaymentID = &id
	}
}

// WithAmount sets the transaction amount in paise.
func WithAmount(amount int64) func(*models.Transaction) {
	return func(tx *models.Transaction) {
		tx.Amount = amount
	}
}
