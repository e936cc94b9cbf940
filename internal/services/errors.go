package services

import "errors"

// Error is a business-rule rejection carrying the stable code that the API
// envelope exposes to callers. Internal failures are wrapped plain errors and
// never reach clients verbatim.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrNoActiveSubscription = &Error{Code: "NO_ACTIVE_SUBSCRIPTION", Message: "no active subscription found"}
	ErrSubscriptionNotFound = &Error{Code: "SUBSCRIPTION_NOT_FOUND", Message: "subscription not found"}
	ErrPlanNotFound         = &Error{Code: "PLAN_NOT_FOUND", Message: "plan not found"}
	ErrAlreadyCancelled     = &Error{Code: "ALREADY_CANCELLED", Message: "subscription is already cancelled"}
	ErrNotPaused            = &Error{Code: "NOT_PAUSED", Message: "subscription is not paused"}
	ErrAlreadyPaused        = &Error{Code: "ALREADY_PAUSED", Message: "subscription is already paused"}
	ErrFreePlanNotPausable  = &Error{Code: "FREE_PLAN_NOT_PAUSABLE", Message: "free plan subscriptions cannot be paused"}
	ErrPauseLimitExceeded   = &Error{Code: "PAUSE_LIMIT_EXCEEDED", Message: "pause limit reached for this subscription"}
	ErrPauseTooLong         = &Error{Code: "PAUSE_TOO_LONG", Message: "pause duration exceeds the allowed maximum"}
	ErrPaymentNotCaptured   = &Error{Code: "PAYMENT_NOT_CAPTURED", Message: "payment has not been captured"}
	ErrPlanNotConfigured    = &Error{Code: "CONFIGURATION_ERROR", Message: "plan is not configured for the payment gateway"}
	ErrGatewayFailure       = &Error{Code: "GATEWAY_ERROR", Message: "payment gateway request failed, please retry"}
	ErrUserNotFound         = &Error{Code: "USER_NOT_FOUND", Message: "user not found"}
)

// AsError unwraps a business Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
