package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/subvault/billing-backend/internal/catalog"
	"github.com/subvault/billing-backend/internal/gateway"
	"github.com/subvault/billing-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Lifecycle limits, also surfaced through the public billing config endpoint.
const (
	MaxPauseCount    = 3
	MaxPauseDays     = 180
	DefaultPauseDays = 30
)

type SubscribeAction string

const (
	ActionCreated  SubscribeAction = "created"
	ActionExtended SubscribeAction = "extended"
	ActionReplaced SubscribeAction = "replaced"
	ActionUpgraded SubscribeAction = "upgraded"
)

// SubscriptionService owns the subscription and transaction tables. Every
// state-changing operation runs inside one database transaction that also
// covers the fail-closed gateway calls; fail-open gateway cancellations run
// after commit so a gateway outage can never block a local transition.
type SubscriptionService struct {
	db      *gorm.DB
	catalog *catalog.Catalog
	gateway gateway.Gateway
	credits *CreditService
}

func NewSubscriptionService(db *gorm.DB, cat *catalog.Catalog, gw gateway.Gateway, credits *CreditService) *SubscriptionService {
	return &SubscriptionService{
		db:      db,
		catalog: cat,
		gateway: gw,
		credits: credits,
	}
}

type SubscribeResult struct {
	Action       SubscribeAction      `json:"action"`
	Subscription *models.Subscription `json:"subscription"`
	Transaction  *models.Transaction  `json:"transaction"`
	Replaced     *models.Subscription `json:"replaced,omitempty"`
	PaymentURL   string               `json:"payment_url,omitempty"`
	CreditAmount int64                `json:"credit_amount,omitempty"`
}

// Subscribe handles the whole repurchase decision table: first purchase
// creates a row, repurchasing the same plan while active extends it, anything
// else supersedes the current row with a new one.
func (s *SubscriptionService) Subscribe(userID uuid.UUID, planCode string, cycle models.BillingCycle) (*SubscribeResult, error) {
	plan := s.catalog.Get(planCode)
	if plan == nil || !plan.IsActive {
		return nil, ErrPlanNotFound
	}
	if cycle != models.CycleYearly {
		cycle = models.CycleMonthly
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	now := time.Now()
	result := &SubscribeResult{}
	var staleGatewaySub string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.lockCurrent(tx, userID, now)
		if err != nil {
			return err
		}

		// Extend only when the same plan is genuinely running; a created
		// row means payment pending, which never extends.
		if current != nil && current.PlanCode == plan.Code &&
			(current.Status == models.SubscriptionActive || current.Status == models.SubscriptionAuthenticated) {
			return s.extend(tx, &user, plan, cycle, current, now, result, &staleGatewaySub)
		}

		if current != nil {
			if err := s.supersede(tx, plan, current, now, result, &staleGatewaySub); err != nil {
				return err
			}
		}

		return s.createNew(tx, &user, plan, cycle, now, result)
	})
	if err != nil {
		return nil, err
	}

	if staleGatewaySub != "" {
		s.cancelGatewayBestEffort(staleGatewaySub, false, userID)
	}
	return result, nil
}

// supersede marks the current row replaced (or upgraded, for legacy rows that
// never had a gateway subscription) and issues downgrade credits. The old
// gateway subscription id is handed back for post-commit cancellation.
func (s *SubscriptionService) supersede(tx *gorm.DB, plan *catalog.Plan, current *models.Subscription, now time.Time, result *SubscribeResult, staleGatewaySub *string) error {
	action := ActionReplaced
	current.Status = models.SubscriptionReplaced
	if current.GatewaySubscriptionID == nil && !plan.IsFree() {
		current.Status = models.SubscriptionUpgraded
		action = ActionUpgraded
	}

	cancelledAt := now
	current.CancelledAt = &cancelledAt
	current.AutoRenewal = false
	current.NextBillingDate = nil
	if err := tx.Save(current).Error; err != nil {
		return fmt.Errorf("failed to supersede subscription: %w", err)
	}

	if current.GatewaySubscriptionID != nil {
		*staleGatewaySub = *current.GatewaySubscriptionID
	}

	// Moving down a tier refunds the unused window as credits.
	if oldPlan := s.catalog.Get(current.PlanCode); oldPlan != nil && !oldPlan.IsFree() &&
		plan.PriceMonthly < oldPlan.PriceMonthly {
		credit, err := s.credits.IssueRefundCredit(tx, oldPlan, current, now)
		if err != nil {
			return err
		}
		if credit != nil {
			result.CreditAmount = credit.RemainingAmount
			refund := models.Transaction{
				ID:             uuid.New(),
				UserID:         current.UserID,
				SubscriptionID: current.ID,
				Type:           models.TransactionRefund,
				Amount:         credit.RemainingAmount,
				NetAmount:      credit.RemainingAmount,
				Status:         models.TransactionRefunded,
				Description:    fmt.Sprintf("unused %s period refunded to credits", current.PlanCode),
			}
			if err := tx.Create(&refund).Error; err != nil {
				return fmt.Errorf("failed to record refund transaction: %w", err)
			}
		}
	}

	result.Action = action
	result.Replaced = current
	return nil
}

// extend advances the existing row by one cycle. For paid plans a fresh
// gateway subscription covers the added cycle; its checkout link is returned
// and the previous gateway subscription is cancelled after commit.
func (s *SubscriptionService) extend(tx *gorm.DB, user *models.User, plan *catalog.Plan, cycle models.BillingCycle, current *models.Subscription, now time.Time, result *SubscribeResult, staleGatewaySub *string) error {
	price := plan.Price(cycle)
	txnStatus := models.TransactionCaptured

	if !plan.IsFree() {
		created, err := s.createGatewaySubscription(tx, user, plan, cycle)
		if err != nil {
			return err
		}
		if current.GatewaySubscriptionID != nil {
			*staleGatewaySub = *current.GatewaySubscriptionID
		}
		current.GatewaySubscriptionID = &created.ID
		result.PaymentURL = created.ShortURL
		txnStatus = models.TransactionCreated
	}

	current.CurrentPeriodEnd = cycle.Advance(current.CurrentPeriodEnd)
	current.BillingCycle = cycle
	current.TotalAmount += price
	nextBilling := current.CurrentPeriodEnd
	current.NextBillingDate = &nextBilling
	if err := tx.Save(current).Error; err != nil {
		return fmt.Errorf("failed to extend subscription: %w", err)
	}

	txn := models.Transaction{
		ID:             uuid.New(),
		UserID:         current.UserID,
		SubscriptionID: current.ID,
		Type:           models.TransactionSubscription,
		Amount:         price,
		NetAmount:      price,
		Status:         txnStatus,
		Description:    fmt.Sprintf("%s plan extended by one %s cycle", plan.Code, cycle),
	}
	if err := tx.Create(&txn).Error; err != nil {
		return fmt.Errorf("failed to record extension transaction: %w", err)
	}

	result.Action = ActionExtended
	result.Subscription = current
	result.Transaction = &txn
	return nil
}

// createNew inserts the fresh subscription row. Paid plans go through the
// gateway first; any gateway failure aborts the surrounding transaction so no
// half-created ledger state survives.
func (s *SubscriptionService) createNew(tx *gorm.DB, user *models.User, plan *catalog.Plan, cycle models.BillingCycle, now time.Time, result *SubscribeResult) error {
	sub := models.Subscription{
		ID:                 uuid.New(),
		UserID:             user.ID,
		PlanCode:           plan.Code,
		BillingCycle:       cycle,
		CurrentPeriodStart: now,
	}

	txn := models.Transaction{
		ID:     uuid.New(),
		UserID: user.ID,
		Type:   models.TransactionSubscription,
	}

	if plan.IsFree() {
		sub.Status = models.SubscriptionActive
		sub.CurrentPeriodEnd = now.AddDate(1, 0, 0)
		sub.AutoRenewal = false
		txn.Status = models.TransactionCaptured
		txn.Description = fmt.Sprintf("%s plan activated", plan.Code)
	} else {
		created, err := s.createGatewaySubscription(tx, user, plan, cycle)
		if err != nil {
			return err
		}

		sub.Status = models.SubscriptionCreated
		sub.CurrentPeriodEnd = cycle.Advance(now)
		nextBilling := sub.CurrentPeriodEnd
		sub.NextBillingDate = &nextBilling
		sub.TotalAmount = plan.Price(cycle)
		sub.GatewaySubscriptionID = &created.ID
		sub.GatewayCustomerID = user.GatewayCustomerID

		txn.Amount = plan.Price(cycle)
		txn.NetAmount = plan.Price(cycle)
		txn.Status = models.TransactionCreated
		txn.Description = fmt.Sprintf("%s plan purchase (%s)", plan.Code, cycle)
		result.PaymentURL = created.ShortURL
	}

	if err := tx.Create(&sub).Error; err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	txn.SubscriptionID = sub.ID
	if err := tx.Create(&txn).Error; err != nil {
		return fmt.Errorf("failed to record purchase transaction: %w", err)
	}

	if result.Action == "" {
		result.Action = ActionCreated
	}
	result.Subscription = &sub
	result.Transaction = &txn
	return nil
}

// createGatewaySubscription resolves the gateway plan id and ensures the user
// has a gateway customer before creating the provider-side subscription.
func (s *SubscriptionService) createGatewaySubscription(tx *gorm.DB, user *models.User, plan *catalog.Plan, cycle models.BillingCycle) (*gateway.SubscriptionCreated, error) {
	gatewayPlanID := s.catalog.GatewayPlanID(plan.Code, cycle)
	if gatewayPlanID == "" {
		slog.Error("plan has no gateway plan id", "plan_code", plan.Code, "billing_cycle", string(cycle), "action", "create_gateway_subscription")
		return nil, ErrPlanNotConfigured
	}

	customerID, err := s.ensureGatewayCustomer(tx, user)
	if err != nil {
		return nil, err
	}

	totalCount := 12
	if cycle == models.CycleYearly {
		totalCount = 1
	}

	created, err := s.gateway.CreateSubscription(gateway.SubscriptionParams{
		PlanID:     gatewayPlanID,
		CustomerID: customerID,
		TotalCount: totalCount,
		Notes: map[string]interface{}{
			"user_id":   user.ID.String(),
			"plan_code": plan.Code,
		},
	})
	if err != nil {
		slog.Error("gateway subscription create failed", "user_id", user.ID.String(), "plan_code", plan.Code, "error", err.Error(), "action", "create_gateway_subscription")
		return nil, ErrGatewayFailure
	}
	return created, nil
}

func (s *SubscriptionService) ensureGatewayCustomer(tx *gorm.DB, user *models.User) (string, error) {
	if user.GatewayCustomerID != nil && *user.GatewayCustomerID != "" {
		return *user.GatewayCustomerID, nil
	}

	created, err := s.gateway.CreateCustomer(gateway.CustomerProfile{
		Name:  user.Name,
		Email: user.Email,
		Phone: user.Phone,
	})
	if err != nil {
		slog.Error("gateway customer create failed", "user_id", user.ID.String(), "error", err.Error(), "action", "create_gateway_customer")
		return "", ErrGatewayFailure
	}

	user.GatewayCustomerID = &created.ID
	if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("gateway_customer_id", created.ID).Error; err != nil {
		return "", fmt.Errorf("failed to store gateway customer id: %w", err)
	}
	return created.ID, nil
}

type CancelResult struct {
	Subscription *models.Subscription `json:"subscription"`
	AccessEndsAt time.Time            `json:"access_ends_at"`
}

// CancelSubscription transitions the current row to cancelled. The gateway
// cancellation is strictly best-effort and runs before the local transaction:
// the local ledger decides access, not the provider.
func (s *SubscriptionService) CancelSubscription(userID uuid.UUID, immediate bool) (*CancelResult, error) {
	now := time.Now()

	current, err := s.currentSubscription(userID, now)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNoActiveSubscription
	}
	if current.Status == models.SubscriptionCancelled {
		// A grace-period cancellation can still be escalated to immediate.
		if !immediate || !current.CancelAtPeriodEnd {
			return nil, ErrAlreadyCancelled
		}
	}

	if current.GatewaySubscriptionID != nil {
		s.cancelGatewayBestEffort(*current.GatewaySubscriptionID, !immediate, userID)
	}

	result := &CancelResult{}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		sub, err := s.lockCurrent(tx, userID, now)
		if err != nil {
			return err
		}
		if sub == nil {
			return ErrNoActiveSubscription
		}

		cancelledAt := now
		sub.Status = models.SubscriptionCancelled
		sub.CancelledAt = &cancelledAt
		sub.AutoRenewal = false
		sub.NextBillingDate = nil

		mode := "at period end"
		if immediate {
			sub.CancelAtPeriodEnd = false
			result.AccessEndsAt = now
			mode = "immediate"
		} else {
			sub.CancelAtPeriodEnd = true
			result.AccessEndsAt = sub.CurrentPeriodEnd
		}

		if err := tx.Save(sub).Error; err != nil {
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}

		txn := models.Transaction{
			ID:             uuid.New(),
			UserID:         sub.UserID,
			SubscriptionID: sub.ID,
			Type:           models.TransactionAdjustment,
			Status:         models.TransactionCancelled,
			Description:    fmt.Sprintf("%s plan cancelled (%s)", sub.PlanCode, mode),
		}
		if err := tx.Create(&txn).Error; err != nil {
			return fmt.Errorf("failed to record cancellation: %w", err)
		}

		result.Subscription = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PauseSubscription suspends the current row for the requested number of
// days. Free plans cannot pause, and each row gets at most MaxPauseCount
// pauses.
func (s *SubscriptionService) PauseSubscription(userID uuid.UUID, days int) (*models.Subscription, error) {
	if days <= 0 {
		days = DefaultPauseDays
	}
	if days > MaxPauseDays {
		return nil, ErrPauseTooLong
	}

	now := time.Now()
	var paused *models.Subscription
	err := s.db.Transaction(func(tx *gorm.DB) error {
		sub, err := s.lockCurrent(tx, userID, now)
		if err != nil {
			return err
		}
		if sub == nil {
			return ErrNoActiveSubscription
		}
		if sub.Status == models.SubscriptionPaused {
			return ErrAlreadyPaused
		}
		if sub.Status != models.SubscriptionActive && sub.Status != models.SubscriptionAuthenticated {
			return ErrNoActiveSubscription
		}

		plan := s.catalog.Get(sub.PlanCode)
		if plan == nil || plan.IsFree() {
			return ErrFreePlanNotPausable
		}
		if sub.PauseCount >= MaxPauseCount {
			return ErrPauseLimitExceeded
		}

		pausedAt := now
		resumeAt := now.Add(time.Duration(days) * 24 * time.Hour)
		sub.Status = models.SubscriptionPaused
		sub.PausedAt = &pausedAt
		sub.ResumeAt = &resumeAt
		sub.PauseCount++

		if err := tx.Save(sub).Error; err != nil {
			return fmt.Errorf("failed to pause subscription: %w", err)
		}
		paused = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paused, nil
}

// ResumeSubscription reactivates a paused row, shifting the billing window
// forward by the exact pause duration rather than by calendar days.
func (s *SubscriptionService) ResumeSubscription(userID uuid.UUID) (*models.Subscription, error) {
	now := time.Now()
	var resumed *models.Subscription
	err := s.db.Transaction(func(tx *gorm.DB) error {
		sub, err := s.lockCurrent(tx, userID, now)
		if err != nil {
			return err
		}
		if sub == nil {
			return ErrNoActiveSubscription
		}
		if sub.Status != models.SubscriptionPaused || sub.PausedAt == nil {
			return ErrNotPaused
		}

		pauseDuration := now.Sub(*sub.PausedAt)
		sub.CurrentPeriodEnd = sub.CurrentPeriodEnd.Add(pauseDuration)
		if sub.NextBillingDate != nil {
			shifted := sub.NextBillingDate.Add(pauseDuration)
			sub.NextBillingDate = &shifted
		}
		sub.Status = models.SubscriptionActive
		sub.PausedAt = nil
		sub.ResumeAt = nil

		if err := tx.Save(sub).Error; err != nil {
			return fmt.Errorf("failed to resume subscription: %w", err)
		}
		resumed = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resumed, nil
}

// ActivateFromPayment is the webhook-driven activation path: it flips the
// pending ledger transaction to captured and, on the first capture, starts
// the billing window at the capture instant. Redeliveries are no-ops because
// the captured transaction is keyed by the gateway payment id.
func (s *SubscriptionService) ActivateFromPayment(gatewaySubscriptionID string, payment *gateway.PaymentFetched) error {
	now := time.Now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		err := tx.Where("gateway_subscription_id = ?", gatewaySubscriptionID).
			Order("created_at desc").First(&sub).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubscriptionNotFound
			}
			return fmt.Errorf("failed to load subscription: %w", err)
		}

		if err := recordCapture(tx, &sub, payment); err != nil {
			return err
		}

		if sub.Status == models.SubscriptionCreated || sub.Status == models.SubscriptionAuthenticated {
			sub.Status = models.SubscriptionActive
			sub.CurrentPeriodStart = now
			sub.CurrentPeriodEnd = sub.BillingCycle.Advance(now)
			nextBilling := sub.CurrentPeriodEnd
			sub.NextBillingDate = &nextBilling
			if err := tx.Save(&sub).Error; err != nil {
				return fmt.Errorf("failed to activate subscription: %w", err)
			}
		}
		return nil
	})
}

// recordCapture ensures exactly one captured transaction exists for a gateway
// payment id: it upgrades the pending purchase row when there is one and
// creates a captured row otherwise.
func recordCapture(tx *gorm.DB, sub *models.Subscription, payment *gateway.PaymentFetched) error {
	var existing models.Transaction
	err := tx.Where("user_id = ? AND gateway_payment_id = ? AND status = ?",
		sub.UserID, payment.ID, models.TransactionCaptured).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up captured transaction: %w", err)
	}

	raw, _ := json.Marshal(payment)

	var pending models.Transaction
	err = tx.Where("subscription_id = ? AND status = ?", sub.ID, models.TransactionCreated).
		Order("created_at desc").First(&pending).Error
	if err == nil {
		pending.Status = models.TransactionCaptured
		pending.GatewayPaymentID = &payment.ID
		pending.Method = payment.Method
		pending.GatewayResponse = datatypes.JSON(raw)
		if payment.OrderID != "" {
			orderID := payment.OrderID
			pending.GatewayOrderID = &orderID
		}
		if err := tx.Save(&pending).Error; err != nil {
			return fmt.Errorf("failed to mark transaction captured: %w", err)
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up pending transaction: %w", err)
	}

	// Webhook arrived with no pending row (e.g. gateway-initiated renewal):
	// record the capture directly.
	txn := models.Transaction{
		ID:               uuid.New(),
		UserID:           sub.UserID,
		SubscriptionID:   sub.ID,
		Type:             models.TransactionSubscription,
		Amount:           payment.Amount,
		NetAmount:        payment.Amount,
		Currency:         payment.Currency,
		Status:           models.TransactionCaptured,
		Method:           payment.Method,
		GatewayPaymentID: &payment.ID,
		GatewayResponse:  datatypes.JSON(raw),
		Description:      fmt.Sprintf("%s plan payment captured", sub.PlanCode),
	}
	if payment.OrderID != "" {
		orderID := payment.OrderID
		txn.GatewayOrderID = &orderID
	}
	if err := tx.Create(&txn).Error; err != nil {
		return fmt.Errorf("failed to record captured transaction: %w", err)
	}
	return nil
}

// MarkCancelledByGateway handles the provider telling us a subscription ended
// on its side (cancelled or completed). Local rows already cancelled stay
// untouched.
func (s *SubscriptionService) MarkCancelledByGateway(gatewaySubscriptionID string) error {
	now := time.Now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		err := tx.Where("gateway_subscription_id = ?", gatewaySubscriptionID).
			Order("created_at desc").First(&sub).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubscriptionNotFound
			}
			return fmt.Errorf("failed to load subscription: %w", err)
		}

		if !sub.IsCurrent(now) || sub.Status == models.SubscriptionCancelled {
			return nil
		}

		cancelledAt := now
		sub.Status = models.SubscriptionCancelled
		sub.CancelAtPeriodEnd = true
		sub.CancelledAt = &cancelledAt
		sub.AutoRenewal = false
		sub.NextBillingDate = nil
		if err := tx.Save(&sub).Error; err != nil {
			return fmt.Errorf("failed to mark subscription cancelled: %w", err)
		}
		return nil
	})
}

// StatusResult is the read model handlers return: everything derived from the
// single current row, with the implicit free plan as the fallback.
type StatusResult struct {
	HasSubscription      bool                      `json:"has_subscription"`
	PlanCode             string                    `json:"plan_code"`
	BillingCycle         models.BillingCycle       `json:"billing_cycle,omitempty"`
	Status               models.SubscriptionStatus `json:"status,omitempty"`
	Access               models.AccessState        `json:"access"`
	IsActive             bool                      `json:"is_active"`
	IsCancelledButActive bool                      `json:"is_cancelled_but_active"`
	WillRenew            bool                      `json:"will_renew"`
	PaymentPending       bool                      `json:"payment_pending,omitempty"`
	AccessEndsAt         *time.Time                `json:"access_ends_at,omitempty"`
	ResumeAt             *time.Time                `json:"resume_at,omitempty"`
	Subscription         *models.Subscription      `json:"subscription,omitempty"`
}

// GetStatus derives the caller-facing view of the user's plan access.
func (s *SubscriptionService) GetStatus(userID uuid.UUID) (*StatusResult, error) {
	now := time.Now()
	current, err := s.currentSubscription(userID, now)
	if err != nil {
		return nil, err
	}

	if current == nil {
		return &StatusResult{
			PlanCode: "free",
			Access:   models.AccessExpired,
		}, nil
	}

	access := current.AccessAt(now)
	result := &StatusResult{
		HasSubscription:      true,
		PlanCode:             current.PlanCode,
		BillingCycle:         current.BillingCycle,
		Status:               current.Status,
		Access:               access,
		IsActive:             access == models.AccessActive || access == models.AccessGracePeriod,
		IsCancelledButActive: access == models.AccessGracePeriod,
		WillRenew:            current.WillRenew(),
		PaymentPending:       current.Status == models.SubscriptionCreated,
		ResumeAt:             current.ResumeAt,
		Subscription:         current,
	}
	if result.IsActive {
		end := current.CurrentPeriodEnd
		result.AccessEndsAt = &end
	}
	return result, nil
}

// History returns the user's transaction ledger, newest first.
func (s *SubscriptionService) History(userID uuid.UUID, limit, offset int) ([]models.Transaction, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var txns []models.Transaction
	err := s.db.Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).Offset(offset).
		Find(&txns).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, total, nil
}

// lockCurrent reads the user's current row inside tx, locking it on postgres
// so two concurrent repurchases cannot both pass the decision read. The
// sqlite test driver has no row locks and is single-writer anyway.
func (s *SubscriptionService) lockCurrent(tx *gorm.DB, userID uuid.UUID, now time.Time) (*models.Subscription, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var sub models.Subscription
	err := q.Scopes(models.CurrentScope(now)).
		Where("user_id = ?", userID).
		Order("created_at desc").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load current subscription: %w", err)
	}
	return &sub, nil
}

func (s *SubscriptionService) currentSubscription(userID uuid.UUID, now time.Time) (*models.Subscription, error) {
	return s.lockCurrent(s.db, userID, now)
}

func (s *SubscriptionService) cancelGatewayBestEffort(gatewaySubscriptionID string, atCycleEnd bool, userID uuid.UUID) {
	if _, err := s.gateway.CancelSubscription(gatewaySubscriptionID, atCycleEnd); err != nil {
		if gateway.IsNeverBilled(err) {
			// Expected for subscriptions that never reached a billing cycle.
			slog.Info("gateway cancel skipped, subscription never billed",
				"gateway_subscription_id", gatewaySubscriptionID)
			return
		}
		slog.Error("gateway cancel failed, local state transitioned anyway",
			"gateway_subscription_id", gatewaySubscriptionID,
			"user_id", userID.String(),
			"error", err.Error(),
			"action", "gateway_cancel")
	}
}
