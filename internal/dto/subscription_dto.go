package dto

import "github.com/google/uuid"

type SubscribeRequest struct {
	PlanCode     string `json:"plan_code"`
	BillingCycle string `json:"billing_cycle"`
}

type CancelRequest struct {
	Immediate bool `json:"immediate"`
}

type PauseRequest struct {
	Days int `json:"days"`
}

type VerifyPaymentRequest struct {
	GatewayPaymentID string     `json:"gateway_payment_id"`
	SubscriptionID   *uuid.UUID `json:"subscription_id,omitempty"`
}
