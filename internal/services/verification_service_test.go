package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/subvault/billing-backend/internal/gateway"
	"github.com/subvault/billing-backend/internal/models"
	"github.com/subvault/billing-backend/internal/testutil"
)

func newVerificationFixture(t *testing.T) (*VerificationService, *SubscriptionService, *fakeGateway, *gorm.DB) {
	t.Helper()
	svc, gw, db := newTestService(t)
	return NewVerificationService(db, gw), svc, gw, db
}

func TestVerifyPaymentCapturesPendingTransaction(t *testing.T) {
	verify, subs, gw, db := newVerificationFixture(t)
	user := testutil.TestUser(t, db)

	purchase, err := subs.Subscribe(user.ID, "plus", models.CycleMonthly)
	require.NoError(t, err)

	gw.payments["pay_test001"] = &gateway.PaymentFetched{
		ID: "pay_test001", Captured: true, Amount: 19900, Currency: "INR", Method: "card", Status: "captured",
	}

	result, err := verify.VerifyPayment(user.ID, "pay_test001", nil)
	require.NoError(t, err)

	assert.False(t, result.IsDuplicate)
	assert.Equal(t, models.TransactionCaptured, result.Transaction.Status)
	// The pending purchase row was upgraded in place.
	assert.Equal(t, purchase.Transaction.ID, result.Transaction.ID)
	require.NotNil(t, result.Transaction.GatewayPaymentID)
	assert.Equal(t, "pay_test001", *result.Transaction.GatewayPaymentID)
	assert.NotEmpty(t, result.Transaction.GatewayResponse)

	// Verification never activates; that is the webhook's job.
	var sub models.Subscription
	require.NoError(t, db.First(&sub, "id = ?", purchase.Subscription.ID).Error)
	assert.Equal(t, models.SubscriptionCreated, sub.Status)
}

func TestVerifyPaymentIdempotent(t *testing.T) {
	verify, subs, gw, db := newVerificationFixture(t)
	user := testutil.TestUser(t, db)

	_, err := subs.Subscribe(user.ID, "plus", models.CycleMonthly)
	require.NoError(t, err)

	gw.payments["pay_test001"] = &gateway.PaymentFetched{
		ID: "pay_test001", Captured: true, Amount: 19900, Currency: "INR",
	}

	first, err := verify.VerifyPayment(user.ID, "pay_test001", nil)
	require.NoError(t, err)
	require.False(t, first.IsDuplicate)
	fetchesAfterFirst := gw.fetchCalls

	second, err := verify.VerifyPayment(user.ID, "pay_test001", nil)
	require.NoError(t, err)

	assert.True(t, second.IsDuplicate)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
	// The replay is answered from the ledger without touching the gateway.
	assert.Equal(t, fetchesAfterFirst, gw.fetchCalls)

	var count int64
	db.Model(&models.Transaction{}).
		Where("user_id = ? AND gateway_payment_id = ? AND status = ?", user.ID, "pay_test001", models.TransactionCaptured).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestVerifyPaymentNotCaptured(t *testing.T) {
	verify, subs, gw, db := newVerificationFixture(t)
	user := testutil.TestUser(t, db)

	_, err := subs.Subscribe(user.ID, "plus", models.CycleMonthly)
	require.NoError(t, err)

	gw.payments["pay_test001"] = &gateway.PaymentFetched{ID: "pay_test001", Captured: false, Status: "authorized"}

	_, err = verify.VerifyPayment(user.ID, "pay_test001", nil)
	assert.ErrorIs(t, err, ErrPaymentNotCaptured)
}

func TestVerifyPaymentGatewayFailure(t *testing.T) {
	verify, subs, _, db := newVerificationFixture(t)
	user := testutil.TestUser(t, db)

	_, err := subs.Subscribe(user.ID, "plus", models.CycleMonthly)
	require.NoError(t, err)

	_, err = verify.VerifyPayment(user.ID, "pay_unknown", nil)
	assert.ErrorIs(t, err, ErrGatewayFailure)
}

func TestVerifyPaymentExplicitSubscription(t *testing.T) {
	verify, _, gw, db := newVerificationFixture(t)
	user := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, user.ID, "plus",
		testutil.WithStatus(models.SubscriptionCreated))

	gw.payments["pay_test002"] = &gateway.PaymentFetched{
		ID: "pay_test002", Captured: true, Amount: 19900, Currency: "INR",
	}

	result, err := verify.VerifyPayment(user.ID, "pay_test002", &sub.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Subscription)
	assert.Equal(t, sub.ID, result.Subscription.ID)
	assert.Equal(t, models.TransactionCaptured, result.Transaction.Status)
}

func TestVerifyPaymentForeignSubscriptionRejected(t *testing.T) {
	verify, _, gw, db := newVerificationFixture(t)
	owner := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	sub := testutil.TestSubscription(t, db, owner.ID, "plus",
		testutil.WithStatus(models.SubscriptionCreated))

	gw.payments["pay_test003"] = &gateway.PaymentFetched{ID: "pay_test003", Captured: true}

	_, err := verify.VerifyPayment(other.ID, "pay_test003", &sub.ID)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestVerifyPaymentEmptyID(t *testing.T) {
	verify, _, _, db := newVerificationFixture(t)
	user := testutil.TestUser(t, db)

	_, err := verify.VerifyPayment(user.ID, "", nil)
	assert.ErrorIs(t, err, ErrPaymentNotCaptured)
}
