package gateway

import (
	"fmt"
	"strings"
)

// Error wraps a failed gateway call with the operation that produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNeverBilled reports whether a cancellation was rejected because the
// subscription has not had a single billing cycle yet. Razorpay returns this
// for subscriptions stuck in created; local cancellation proceeds anyway.
func IsNeverBilled(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "no billing cycle is going on")
}
