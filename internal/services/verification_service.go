package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/subvault/billing-backend/internal/gateway"
	"github.com/subvault/billing-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VerificationService deduplicates payment confirmation calls by gateway
// payment id. Retried client calls and webhook deliveries can overlap; only
// the first confirmation touches the gateway or writes ledger rows.
// Verification never activates a subscription, activation belongs to the
// webhook path.
type VerificationService struct {
	db      *gorm.DB
	gateway gateway.Gateway
}

func NewVerificationService(db *gorm.DB, gw gateway.Gateway) *VerificationService {
	return &VerificationService{db: db, gateway: gw}
}

type VerifyResult struct {
	Transaction  *models.Transaction  `json:"transaction"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
	IsDuplicate  bool                 `json:"is_duplicate"`
}

// VerifyPayment confirms a gateway payment against the ledger.
func (s *VerificationService) VerifyPayment(userID uuid.UUID, gatewayPaymentID string, subscriptionID *uuid.UUID) (*VerifyResult, error) {
	if gatewayPaymentID == "" {
		return nil, ErrPaymentNotCaptured
	}

	// The ledger is the idempotency source of truth: a captured transaction
	// with this payment id means a prior call already did the work.
	var prior models.Transaction
	err := s.db.Where("user_id = ? AND gateway_payment_id = ?", userID, gatewayPaymentID).
		Order("created_at desc").First(&prior).Error
	if err == nil && prior.Status == models.TransactionCaptured {
		return &VerifyResult{Transaction: &prior, IsDuplicate: true}, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up transaction: %w", err)
	}

	payment, err := s.gateway.FetchPayment(gatewayPaymentID)
	if err != nil {
		slog.Error("gateway payment fetch failed", "user_id", userID.String(), "gateway_payment_id", gatewayPaymentID, "error", err.Error(), "action", "verify_payment")
		return nil, ErrGatewayFailure
	}
	if !payment.Captured {
		return nil, ErrPaymentNotCaptured
	}

	result := &VerifyResult{}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		sub, err := s.resolveTarget(tx, userID, subscriptionID)
		if err != nil {
			return err
		}

		if err := recordCapture(tx, sub, payment); err != nil {
			return err
		}

		var txn models.Transaction
		if err := tx.Where("user_id = ? AND gateway_payment_id = ? AND status = ?",
			userID, gatewayPaymentID, models.TransactionCaptured).
			Order("created_at desc").First(&txn).Error; err != nil {
			return fmt.Errorf("failed to reload captured transaction: %w", err)
		}
		if len(txn.GatewayResponse) == 0 {
			if raw, err := json.Marshal(payment); err == nil {
				txn.GatewayResponse = datatypes.JSON(raw)
				txn.UpdatedAt = time.Now()
				if err := tx.Save(&txn).Error; err != nil {
					return fmt.Errorf("failed to store gateway response: %w", err)
				}
			}
		}

		result.Transaction = &txn
		result.Subscription = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolveTarget picks the subscription the payment belongs to: the explicit
// id when given (and owned by the caller), otherwise the user's most recent
// payment-pending row.
func (s *VerificationService) resolveTarget(tx *gorm.DB, userID uuid.UUID, subscriptionID *uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription

	if subscriptionID != nil {
		err := tx.Where("id = ? AND user_id = ?", *subscriptionID, userID).First(&sub).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrSubscriptionNotFound
			}
			return nil, fmt.Errorf("failed to load subscription: %w", err)
		}
		return &sub, nil
	}

	err := tx.Where("user_id = ? AND status = ?", userID, models.SubscriptionCreated).
		Order("created_at desc").First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to load pending subscription: %w", err)
	}
	return &sub, nil
}
