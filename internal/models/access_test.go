package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessAt(t *testing.T) {
	now := time.Now()
	future := now.AddDate(0, 0, 10)
	past := now.AddDate(0, 0, -10)

	tests := []struct {
		name string
		sub  Subscription
		want AccessState
	}{
		{
			name: "active within period",
			sub:  Subscription{Status: SubscriptionActive, CurrentPeriodEnd: future},
			want: AccessActive,
		},
		{
			name: "authenticated within period",
			sub:  Subscription{Status: SubscriptionAuthenticated, CurrentPeriodEnd: future},
			want: AccessActive,
		},
		{
			name: "active past period end",
			sub:  Subscription{Status: SubscriptionActive, CurrentPeriodEnd: past},
			want: AccessExpired,
		},
		{
			name: "paused",
			sub:  Subscription{Status: SubscriptionPaused, CurrentPeriodEnd: future},
			want: AccessPaused,
		},
		{
			name: "cancelled at period end still inside window",
			sub:  Subscription{Status: SubscriptionCancelled, CancelAtPeriodEnd: true, CurrentPeriodEnd: future},
			want: AccessGracePeriod,
		},
		{
			name: "cancelled at period end after window",
			sub:  Subscription{Status: SubscriptionCancelled, CancelAtPeriodEnd: true, CurrentPeriodEnd: past},
			want: AccessExpired,
		},
		{
			name: "cancelled immediately",
			sub:  Subscription{Status: SubscriptionCancelled, CurrentPeriodEnd: future},
			want: AccessExpired,
		},
		{
			name: "payment pending grants nothing",
			sub:  Subscription{Status: SubscriptionCreated, CurrentPeriodEnd: future},
			want: AccessExpired,
		},
		{
			name: "replaced is terminal",
			sub:  Subscription{Status: SubscriptionReplaced, CurrentPeriodEnd: future},
			want: AccessExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sub.AccessAt(now))
		})
	}
}

func TestIsCurrent(t *testing.T) {
	now := time.Now()
	future := now.AddDate(0, 0, 10)
	past := now.AddDate(0, 0, -10)

	assert.True(t, (&Subscription{Status: SubscriptionCreated}).IsCurrent(now))
	assert.True(t, (&Subscription{Status: SubscriptionActive}).IsCurrent(now))
	assert.True(t, (&Subscription{Status: SubscriptionPaused}).IsCurrent(now))
	assert.True(t, (&Subscription{Status: SubscriptionCancelled, CancelAtPeriodEnd: true, CurrentPeriodEnd: future}).IsCurrent(now))
	assert.False(t, (&Subscription{Status: SubscriptionCancelled, CancelAtPeriodEnd: true, CurrentPeriodEnd: past}).IsCurrent(now))
	assert.False(t, (&Subscription{Status: SubscriptionCancelled, CurrentPeriodEnd: future}).IsCurrent(now))
	assert.False(t, (&Subscription{Status: SubscriptionReplaced}).IsCurrent(now))
	assert.False(t, (&Subscription{Status: SubscriptionExpired}).IsCurrent(now))
}

func TestWillRenew(t *testing.T) {
	assert.True(t, (&Subscription{Status: SubscriptionActive, AutoRenewal: true}).WillRenew())
	assert.False(t, (&Subscription{Status: SubscriptionActive, AutoRenewal: false}).WillRenew())
	assert.False(t, (&Subscription{Status: SubscriptionActive, AutoRenewal: true, CancelAtPeriodEnd: true}).WillRenew())
	assert.False(t, (&Subscription{Status: SubscriptionCancelled, AutoRenewal: true}).WillRenew())
}

func TestBillingCycleAdvance(t *testing.T) {
	from := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), CycleMonthly.Advance(from))
	assert.Equal(t, time.Date(2027, 1, 31, 12, 0, 0, 0, time.UTC), CycleYearly.Advance(from))
}
