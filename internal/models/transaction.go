package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TransactionType string

const (
	TransactionSubscription TransactionType = "subscription"
	TransactionAdjustment   TransactionType = "adjustment"
	TransactionRefund       TransactionType = "refund"
)

type TransactionStatus string

const (
	TransactionCreated   TransactionStatus = "created"
	TransactionCaptured  TransactionStatus = "captured"
	TransactionFailed    TransactionStatus = "failed"
	TransactionRefunded  TransactionStatus = "refunded"
	TransactionCancelled TransactionStatus = "cancelled"
)

// Transaction is the append-only audit row written alongside every monetary
// subscription mutation. Only the status field is ever updated afterwards,
// when an async capture confirmation arrives. All amounts are paise.
type Transaction struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	SubscriptionID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"subscription_id"`
	Type             TransactionType   `gorm:"column:transaction_type;size:20;not null" json:"transaction_type"`
	Amount           int64             `json:"amount"`
	TaxAmount        int64             `json:"tax_amount"`
	DiscountAmount   int64             `json:"discount_amount"`
	FeeAmount        int64             `json:"fee_amount"`
	NetAmount        int64             `json:"net_amount"`
	Currency         string            `gorm:"size:3;not null;default:'INR'" json:"currency"`
	Status           TransactionStatus `gorm:"size:20;not null;default:'created';index" json:"status"`
	Method           string            `gorm:"size:30" json:"method"`
	MethodDetails    datatypes.JSON    `gorm:"type:jsonb" json:"method_details,omitempty"`
	GatewayResponse  datatypes.JSON    `gorm:"type:jsonb" json:"gateway_response,omitempty"`
	GatewayPaymentID *string           `gorm:"size:64;index" json:"gateway_payment_id,omitempty"`
	GatewayOrderID   *string           `gorm:"size:64" json:"gateway_order_id,omitempty"`
	Description      string            `gorm:"size:255" json:"description"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}
