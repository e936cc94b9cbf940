package models

import (
	"time"

	"gorm.io/gorm"
)

// AccessState is the derived answer to "does this row grant plan access right
// now". It collapses the status/cancel_at_period_end/current_period_end
// combinations into one value so handlers never re-derive it ad hoc.
type AccessState string

const (
	AccessActive      AccessState = "active"
	AccessGracePeriod AccessState = "grace_period"
	AccessPaused      AccessState = "paused"
	AccessExpired     AccessState = "expired"
)

// AccessAt derives the access state of this row at the given instant.
func (s *Subscription) AccessAt(now time.Time) AccessState {
	switch s.Status {
	case SubscriptionActive, SubscriptionAuthenticated:
		if now.Before(s.CurrentPeriodEnd) {
			return AccessActive
		}
		return AccessExpired
	case SubscriptionPaused:
		return AccessPaused
	case SubscriptionCancelled:
		if s.CancelAtPeriodEnd && now.Before(s.CurrentPeriodEnd) {
			return AccessGracePeriod
		}
		return AccessExpired
	default:
		// created means payment pending: the row is current but grants
		// no access until capture.
		return AccessExpired
	}
}

// IsCurrent reports whether this row is the one governing the user's plan
// membership: any non-terminal status, or a period-end cancellation whose
// paid-for window has not yet closed.
func (s *Subscription) IsCurrent(now time.Time) bool {
	switch s.Status {
	case SubscriptionCreated, SubscriptionActive, SubscriptionAuthenticated, SubscriptionPaused:
		return true
	case SubscriptionCancelled:
		return s.CancelAtPeriodEnd && s.CurrentPeriodEnd.After(now)
	default:
		return false
	}
}

// WillRenew reports whether the next billing date will produce a charge.
func (s *Subscription) WillRenew() bool {
	return s.AutoRenewal && !s.CancelAtPeriodEnd && s.Status != SubscriptionCancelled
}

// CurrentScope is the SQL form of IsCurrent, for queries that must pick the
// single current row per user.
func CurrentScope(now time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"status IN ? OR (status = ? AND cancel_at_period_end = ? AND current_period_end > ?)",
			[]SubscriptionStatus{SubscriptionCreated, SubscriptionActive, SubscriptionAuthenticated, SubscriptionPaused},
			SubscriptionCancelled, true, now,
		)
	}
}
