package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/subvault/billing-backend/internal/catalog"
	"github.com/subvault/billing-backend/internal/gateway"
	"github.com/subvault/billing-backend/internal/models"
	"github.com/subvault/billing-backend/internal/testutil"
)

// fakeGateway is the in-memory payment provider used across service tests.
type fakeGateway struct {
	failCreateCustomer bool
	failCreateSub      bool
	failCancel         bool
	cancelNeverBilled  bool

	subSeq      int
	cancelCalls []string
	fetchCalls  int
	payments    map[string]*gateway.PaymentFetched
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: make(map[string]*gateway.PaymentFetched)}
}

func (g *fakeGateway) CreateCustomer(profile gateway.CustomerProfile) (*gateway.CustomerCreated, error) {
	if g.failCreateCustomer {
		return nil, &gateway.Error{Op: "customer.create", Err: errors.New("gateway down")}
	}
	return &gateway.CustomerCreated{ID: "cust_test001"}, nil
}

func (g *fakeGateway) CreateSubscription(params gateway.SubscriptionParams) (*gateway.SubscriptionCreated, error) {
	if g.failCreateSub {
		return nil, &gateway.Error{Op: "subscription.create", Err: errors.New("gateway down")}
	}
	g.subSeq++
	id := fmt.Sprintf("sub_test%03d", g.subSeq)
	return &gateway.SubscriptionCreated{ID: id, Status: "created", ShortURL: "https://rzp.io/i/" + id}, nil
}

func (g *fakeGateway) CancelSubscription(subscriptionID string, atCycleEnd bool) (*gateway.SubscriptionCancelled, error) {
	g.cancelCalls = append(g.cancelCalls, subscriptionID)
	if g.cancelNeverBilled {
		return nil, &gateway.Error{Op: "subscription.cancel", Err: errors.New("no billing cycle is going on for this subscription")}
	}
	if g.failCancel {
		return nil, &gateway.Error{Op: "subscription.cancel", Err: errors.New("gateway down")}
	}
	return &gateway.SubscriptionCancelled{Status: "cancelled"}, nil
}

func (g *fakeGateway) FetchPayment(paymentID string) (*gateway.PaymentFetched, error) {
	g.fetchCalls++
	if p, ok := g.payments[paymentID]; ok {
		return p, nil
	}
	return nil, &gateway.Error{Op: "payment.fetch", Err: errors.New("payment not found")}
}

func testCatalog() *catalog.Catalog {
	c := catalog.NewCatalog()
	c.Register(&catalog.Plan{Code: "free", Name: "Free", IsActive: true})
	c.Register(&catalog.Plan{
		Code: "plus", Name: "Plus", PriceMonthly: 19900, PriceYearly: 199000, IsActive: true,
		GatewayPlanIDs: map[string]string{"monthly": "plan_plus_m", "yearly": "plan_plus_y"},
	})
	c.Register(&catalog.Plan{
		Code: "pro", Name: "Pro", PriceMonthly: 49900, PriceYearly: 499000, IsActive: true,
		GatewayPlanIDs: map[string]string{"monthly": "plan_pro_m", "yearly": "plan_pro_y"},
	})
	return c
}

func newTestService(t *testing.T) (*SubscriptionService, *fakeGateway, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	gw := newFakeGateway()
	credits := NewCreditService(db, DailyRateStrategy{})
	svc := NewSubscriptionService(db, testCatalog(), gw, credits)
	return svc, gw, db
}

func currentRows(t *testing.T, db *gorm.DB, userID interface{}) []models.Subscription {
	t.Helper()
	var rows []models.Subscription
	err := db.Scopes(models.CurrentScope(time.Now())).Where("user_id = ?", userID).Find(&rows).Error
	require.NoError(t, err)
	return rows
}

func TestSubscribeFreePlan(t *testing.T) {
	svc, gw, db := newTestService(t)
	user := testutil.TestUser(t, db)

	result, err := svc.Subscribe(user.ID, "free", models.CycleMonthly)
	require.NoError(t, err)

	assert.Equal(t, ActionCreated, result.Action)
	assert.Equal(t, models.SubscriptionActive, result.Subscription.Status)
	assert.Nil(t, result.Subscription.GatewaySubscriptionID)
	assert.Empty(t, result.PaymentURL)
	assert.Equal(t, 0, gw.subSeq)

	// Free activation still writes its audit row.
	require.NotNil(t, result.Transaction)
	assert.Equal(t, models.TransactionCaptured, result.Transaction.Status)
	assert.Equal(t, int64(0), result.Transaction.Amount)
}

func TestSubscribePaidPlan(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)

	result, err := svc.Subscribe(user.ID, "plus", models.CycleMonthly)
	require.NoError(t, err)

	assert.Equal(t, ActionCreated, result.Action)
	assert.Equal(t, models.SubscriptionCreated, result.Subscription.Status)
	require.NotNil(t, result.Subscription.GatewaySubscriptionID)
	assert.NotEmpty(t, result.PaymentURL)
	assert.Equal(t, models.TransactionCreated, result.Transaction.Status)
	assert.Equal(t, int64(19900), result.Transaction.Amount)

	// The gateway customer id must be stored back on the user.
	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	require.NotNil(t, reloaded.GatewayCustomerID)
	assert.Equal(t, "cust_test001", *reloaded.GatewayCustomerID)
}

func TestSubscribeGatewayFailureLeavesNoRows(t *testing.T) {
	svc, gw, db := newTestService(t)
	gw.failCreateSub = true
	user := testutil.TestUser(t, db)

	_, err := svc.Subscribe(user.ID, "plus", models.CycleMonthly)
	require.ErrorIs(t, err, ErrGatewayFailure)

	var subCount, txnCount int64
	db.Model(&models.Subscription{}).Where("user_id = ?", user.ID).Count(&subCount)
	db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&txnCount)
	assert.Equal(t, int64(0), subCount)
	assert.Equal(t, int64(0), txnCount)
}

func TestSubscribeSamePlanExtends(t *testing.T) {
	svc, gw, db := newTestService(t)
	user := testutil.TestUser(t, db)
	start := time.Now()
	end := start.AddDate(0, 1, 0)
	sub := testutil.TestSubscription(t, db, user.ID, "plus",
		testutil.WithPeriod(start, end),
		testutil.WithGatewaySubscription("sub_old001"))

	result, err := svc.Subscribe(user.ID, "plus", models.CycleMonthly)
	require.NoError(t, err)

	assert.Equal(t, ActionExtended, result.Action)
	assert.Equal(t, sub.ID, result.Subscription.ID)
	assert.WithinDuration(t, end.AddDate(0, 1, 0), result.Subscription.CurrentPeriodEnd, time.Second)
	assert.Equal(t, models.TransactionCreated, result.Transaction.Status)

	// The superseded gateway subscription is cancelled after commit.
	assert.Contains(t, gw.cancelCalls, "sub_old001")

	rows := currentRows(t, db, user.ID)
	assert.Len(t, rows, 1)
}

func TestSubscribePaymentPendingDoesNotExtend(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, "plus",
		testutil.WithStatus(models.SubscriptionCreated),
		testutil.WithGatewaySubscription("sub_old001"))

	result, err := svc.Subscribe(user.ID, "plus", models.CycleMonthly)
	require.NoError(t, err)

	assert.NotEqual(t, ActionExtended, result.Action)
	require.NotNil(t, result.Replaced)
	assert.NotEqual(t, result.Replaced.ID, result.Subscription.ID)
}

func TestSubscribeDifferentPlanReplaces(t *testing.T) {
	svc, gw, db := newTestService(t)
	user := testutil.TestUser(t, db)
	old := testutil.TestSubscription(t, db, user.ID, "plus",
		testutil.WithGatewaySubscription("sub_old001"))

	result, err := svc.Subscribe(user.ID, "pro", models.CycleMonthly)
	require.NoError(t, err)

	assert.Equal(t, ActionReplaced, result.Action)
	require.NotNil(t, result.Replaced)
	assert.Equal(t, old.ID, result.Replaced.ID)
	assert.Equal(t, models.SubscriptionReplaced, result.Replaced.Status)
	assert.Contains(t, gw.cancelCalls, "sub_old001")

	// Only the fresh row may remain current.
	rows := currentRows(t, db, user.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, result.Subscription.ID, rows[0].ID)
	assert.Equal(t, "pro", rows[0].PlanCode)
}

func TestSubscribeDowngradeIssuesCredit(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	start := time.Now().AddDate(0, 0, -10)
	end := start.AddDate(0, 1, 0)
	testutil.TestSubscription(t, db, user.ID, "pro",
		testutil.WithPeriod(start, end),
		testutil.WithGatewaySubscription("sub_old001"))

	result, err := svc.Subscribe(user.ID, "plus", models.CycleMonthly)
	require.NoError(t, err)

	assert.Equal(t, ActionReplaced, result.Action)
	assert.Greater(t, result.CreditAmount, int64(0))

	var refund models.Transaction
	err = db.Where("user_id = ? AND transaction_type = ?", user.ID, models.TransactionRefund).First(&refund).Error
	require.NoError(t, err)
	assert.Equal(t, models.TransactionRefunded, refund.Status)
	assert.Equal(t, result.CreditAmount, refund.Amount)

	var credit models.Credit
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&credit).Error)
	assert.Equal(t, result.CreditAmount, credit.RemainingAmount)
	assert.True(t, credit.IsActive)
}

func TestSubscribeUnknownPlan(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)

	_, err := svc.Subscribe(user.ID, "enterprise", models.CycleMonthly)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestCancelAtPeriodEnd(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	end := time.Now().AddDate(0, 0, 20)
	testutil.TestSubscription(t, db, user.ID, "plus",
		testutil.WithPeriod(time.Now().AddDate(0, 0, -10), end),
		testutil.WithGatewaySubscription("sub_test001"))

	result, err := svc.CancelSubscription(user.ID, false)
	require.NoError(t, err)

	assert.Equal(t, models.SubscriptionCancelled, result.Subscription.Status)
	assert.True(t, result.Subscription.CancelAtPeriodEnd)
	assert.WithinDuration(t, end, result.AccessEndsAt, time.Second)

	// The paid-for window keeps granting access.
	assert.Equal(t, models.AccessGracePeriod, result.Subscription.AccessAt(time.Now()))
	rows := currentRows(t, db, user.ID)
	assert.Len(t, rows, 1)
}

func TestCancelImmediate(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, "plus",
		testutil.WithGatewaySubscription("sub_test001"))

	result, err := svc.CancelSubscription(user.ID, true)
	require.NoError(t, err)

	assert.Equal(t, models.SubscriptionCancelled, result.Subscription.Status)
	assert.False(t, result.Subscription.CancelAtPeriodEnd)
	assert.WithinDuration(t, time.Now(), result.AccessEndsAt, time.Second)
	assert.Equal(t, models.AccessExpired, result.Subscription.AccessAt(time.Now()))

	var txn models.Transaction
	err = db.Where("subscription_id = ? AND transaction_type = ?", result.Subscription.ID, models.TransactionAdjustment).First(&txn).Error
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCancelled, txn.Status)
}

func TestCancelSurvivesGatewayOutage(t *testing.T) {
	svc, gw, db := newTestService(t)
	gw.failCancel = true
	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, "plus",
		testutil.WithGatewaySubscription("sub_test001"))

	result, err := svc.CancelSubscription(user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, result.Subscription.Status)
	assert.Contains(t, gw.cancelCalls, "sub_test001")
}

func TestCancelNeverBilledIsBenign(t *testing.T) {
	svc, gw, db := newTestService(t)
	gw.cancelNeverBilled = true
	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, "plus",
		testutil.WithGatewaySubscription("sub_test001"))

	_, err := svc.CancelSubscription(user.ID, true)
	require.NoError(t, err)
}

func TestCancelGracePeriodEscalatesToImmediate(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, "plus")

	_, err := svc.CancelSubscription(user.ID, false)
	require.NoError(t, err)

	// Same mode again is rejected, immediate is allowed.
	_, err = svc.CancelSubscription(user.ID, false)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	result, err := svc.CancelSubscription(user.ID, true)
	require.NoError(t, err)
	assert.False(t, result.Subscription.CancelAtPeriodEnd)
}

func TestCancelWithoutSubscription(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)

	_, err := svc.CancelSubscription(user.ID, false)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
}

func TestPauseDefaultsAndCaps(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, "plus")

	paused, err := svc.PauseSubscription(user.ID, 0)
	require.NoError(t, err)

	assert.Equal(t, models.SubscriptionPaused, paused.Status)
	assert.Equal(t, 1, paused.PauseCount)
	require.NotNil(t, paused.ResumeAt)
	assert.WithinDuration(t, time.Now().Add(DefaultPauseDays*24*time.Hour), *paused.ResumeAt, time.Second)
}

func TestPauseTooLong(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, "plus")

	_, err := svc.PauseSubscription(user.ID, MaxPauseDays+1)
	assert.ErrorIs(t, err, ErrPauseTooLong)
}

func TestPauseLimitRejectsWithoutMutation(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, user.ID, "plus",
		testutil.WithPauseCount(MaxPauseCount))

	_, err := svc.PauseSubscription(user.ID, 10)
	assert.ErrorIs(t, err, ErrPauseLimitExceeded)

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, "id = ?", sub.ID).Error)
	assert.Equal(t, models.SubscriptionActive, reloaded.Status)
	assert.Equal(t, MaxPauseCount, reloaded.PauseCount)
	assert.Nil(t, reloaded.PausedAt)
}

func TestPauseFreePlanRejected(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, "free")

	_, err := svc.PauseSubscription(user.ID, 10)
	assert.ErrorIs(t, err, ErrFreePlanNotPausable)
}

func TestPauseAlreadyPaused(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, "plus")

	_, err := svc.PauseSubscription(user.ID, 10)
	require.NoError(t, err)
	_, err = svc.PauseSubscription(user.ID, 10)
	assert.ErrorIs(t, err, ErrAlreadyPaused)
}

func TestResumeShiftsPeriodByPauseDuration(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	pausedAt := time.Now().Add(-72 * time.Hour)
	resumeAt := pausedAt.Add(30 * 24 * time.Hour)
	end := time.Now().AddDate(0, 0, 12)
	testutil.TestSubscription(t, db, user.ID, "plus",
		testutil.WithPeriod(time.Now().AddDate(0, 0, -18), end),
		testutil.Paused(pausedAt, &resumeAt))

	resumed, err := svc.ResumeSubscription(user.ID)
	require.NoError(t, err)

	assert.Equal(t, models.SubscriptionActive, resumed.Status)
	assert.Nil(t, resumed.PausedAt)
	assert.Nil(t, resumed.ResumeAt)
	// Shifted by the three days actually spent paused, not the 30 requested.
	assert.WithinDuration(t, end.Add(72*time.Hour), resumed.CurrentPeriodEnd, 2*time.Second)
}

func TestResumeNotPaused(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, "plus")

	_, err := svc.ResumeSubscription(user.ID)
	assert.ErrorIs(t, err, ErrNotPaused)
}

func TestActivateFromPayment(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)

	result, err := svc.Subscribe(user.ID, "plus", models.CycleMonthly)
	require.NoError(t, err)
	gwSubID := *result.Subscription.GatewaySubscriptionID

	payment := &gateway.PaymentFetched{
		ID: "pay_test001", Captured: true, Amount: 19900, Currency: "INR", Method: "upi", Status: "captured",
	}
	before := time.Now()
	require.NoError(t, svc.ActivateFromPayment(gwSubID, payment))

	var sub models.Subscription
	require.NoError(t, db.First(&sub, "id = ?", result.Subscription.ID).Error)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	// The billing window is anchored at the capture instant.
	assert.WithinDuration(t, before, sub.CurrentPeriodStart, 2*time.Second)
	assert.WithinDuration(t, before.AddDate(0, 1, 0), sub.CurrentPeriodEnd, 2*time.Second)

	// The pending purchase transaction was upgraded, not duplicated.
	var captured []models.Transaction
	require.NoError(t, db.Where("user_id = ? AND gateway_payment_id = ?", user.ID, "pay_test001").Find(&captured).Error)
	require.Len(t, captured, 1)
	assert.Equal(t, models.TransactionCaptured, captured[0].Status)
	assert.Equal(t, result.Transaction.ID, captured[0].ID)
}

func TestActivateFromPaymentRedelivery(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)

	result, err := svc.Subscribe(user.ID, "plus", models.CycleMonthly)
	require.NoError(t, err)
	gwSubID := *result.Subscription.GatewaySubscriptionID

	payment := &gateway.PaymentFetched{ID: "pay_test001", Captured: true, Amount: 19900, Currency: "INR"}
	require.NoError(t, svc.ActivateFromPayment(gwSubID, payment))

	var first models.Subscription
	require.NoError(t, db.First(&first, "id = ?", result.Subscription.ID).Error)

	require.NoError(t, svc.ActivateFromPayment(gwSubID, payment))

	var second models.Subscription
	require.NoError(t, db.First(&second, "id = ?", result.Subscription.ID).Error)
	assert.Equal(t, first.CurrentPeriodStart.Unix(), second.CurrentPeriodStart.Unix())

	var count int64
	db.Model(&models.Transaction{}).Where("gateway_payment_id = ?", "pay_test001").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestActivateUnknownGatewaySubscription(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.ActivateFromPayment("sub_missing", &gateway.PaymentFetched{ID: "pay_x", Captured: true})
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestMarkCancelledByGateway(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, user.ID, "plus",
		testutil.WithGatewaySubscription("sub_test001"))

	require.NoError(t, svc.MarkCancelledByGateway("sub_test001"))

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, "id = ?", sub.ID).Error)
	assert.Equal(t, models.SubscriptionCancelled, reloaded.Status)
	// Provider-side cancellation keeps the paid window open.
	assert.True(t, reloaded.CancelAtPeriodEnd)

	// Idempotent on redelivery.
	require.NoError(t, svc.MarkCancelledByGateway("sub_test001"))
}

func TestGetStatusFreeFallback(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)

	status, err := svc.GetStatus(user.ID)
	require.NoError(t, err)

	assert.False(t, status.HasSubscription)
	assert.Equal(t, "free", status.PlanCode)
	assert.Equal(t, models.AccessExpired, status.Access)
	assert.False(t, status.IsActive)
}

func TestGetStatusActive(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, "plus")

	status, err := svc.GetStatus(user.ID)
	require.NoError(t, err)

	assert.True(t, status.HasSubscription)
	assert.Equal(t, "plus", status.PlanCode)
	assert.Equal(t, models.AccessActive, status.Access)
	assert.True(t, status.IsActive)
	assert.True(t, status.WillRenew)
	require.NotNil(t, status.AccessEndsAt)
}

func TestGetStatusPaymentPending(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, "plus",
		testutil.WithStatus(models.SubscriptionCreated))

	status, err := svc.GetStatus(user.ID)
	require.NoError(t, err)

	assert.True(t, status.HasSubscription)
	assert.True(t, status.PaymentPending)
	assert.False(t, status.IsActive)
}

func TestHistoryPagination(t *testing.T) {
	svc, _, db := newTestService(t)
	user := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, user.ID, "plus")
	for i := 0; i < 5; i++ {
		testutil.TestTransaction(t, db, user.ID, sub.ID)
	}

	txns, total, err := svc.History(user.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, txns, 2)

	txns, _, err = svc.History(user.ID, 2, 4)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}
