package handlers

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/subvault/billing-backend/internal/config"
	"github.com/subvault/billing-backend/internal/dto"
	"github.com/subvault/billing-backend/internal/gateway"
	"github.com/subvault/billing-backend/internal/models"
	"github.com/subvault/billing-backend/internal/services"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type WebhookHandler struct {
	subscriptions *services.SubscriptionService
	db            *gorm.DB
	cfg           *config.Config
}

func NewWebhookHandler(subscriptions *services.SubscriptionService, db *gorm.DB, cfg *config.Config) *WebhookHandler {
	return &WebhookHandler{
		subscriptions: subscriptions,
		db:            db,
		cfg:           cfg,
	}
}

// HandleRazorpay accepts gateway webhook deliveries. Every event is persisted
// before processing; redelivered event ids are acknowledged without rework.
func (h *WebhookHandler) HandleRazorpay(c *fiber.Ctx) error {
	if h.cfg.RazorpayWebhookSecret == "" {
		return c.Status(fiber.StatusNotFound).JSON(dto.Fail("Webhooks not configured", "CONFIGURATION_ERROR"))
	}

	signature := c.Get("X-Razorpay-Signature")
	if subtle.ConstantTimeCompare([]byte(signature), []byte(h.cfg.RazorpayWebhookSecret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("Unauthorized", "AUTHENTICATION_REQUIRED"))
	}

	var webhook dto.RazorpayWebhook
	if err := c.BodyParser(&webhook); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("Invalid webhook payload", "INVALID_REQUEST"))
	}

	eventID := c.Get("X-Razorpay-Event-Id")
	if eventID == "" {
		eventID = uuid.New().String()
	}

	event := models.WebhookEvent{
		ID:        uuid.New(),
		EventID:   eventID,
		EventType: webhook.Event,
		Payload:   datatypes.JSON(c.Body()),
	}
	if err := h.db.Create(&event).Error; err != nil {
		// Unique event id collision means redelivery: acknowledge it.
		var existing models.WebhookEvent
		if lookupErr := h.db.Where("event_id = ?", eventID).First(&existing).Error; lookupErr == nil {
			return c.JSON(fiber.Map{"received": true, "duplicate": true})
		}
		slog.Error("failed to persist webhook event", "event_type", webhook.Event, "error", err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Fail("Failed to process webhook event", "INTERNAL_ERROR"))
	}

	processErr := h.process(&webhook)

	now := time.Now()
	updates := map[string]interface{}{"processed": true, "processed_at": now}
	if processErr != nil {
		updates["processed"] = false
		updates["process_error"] = processErr.Error()
	}
	if err := h.db.Model(&event).Updates(updates).Error; err != nil {
		slog.Error("failed to update webhook event", "event_id", eventID, "error", err.Error())
	}

	if processErr != nil {
		// A subscription we do not know about is not a retryable failure.
		if errors.Is(processErr, services.ErrSubscriptionNotFound) {
			slog.Warn("webhook for unknown subscription", "event_type", webhook.Event, "event_id", eventID)
			return c.JSON(fiber.Map{"received": true})
		}
		slog.Error("webhook processing failed", "event_type", webhook.Event, "event_id", eventID, "error", processErr.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Fail("Failed to process webhook event", "INTERNAL_ERROR"))
	}

	return c.JSON(fiber.Map{"received": true})
}

func (h *WebhookHandler) process(webhook *dto.RazorpayWebhook) error {
	switch webhook.Event {
	case "payment.captured":
		if webhook.Payload.Payment == nil || webhook.Payload.Subscription == nil {
			return errors.New("payment.captured event missing payment or subscription payload")
		}
		p := webhook.Payload.Payment.Entity
		payment := &gateway.PaymentFetched{
			ID:       p.ID,
			Captured: p.Captured || p.Status == "captured",
			Amount:   p.Amount,
			Currency: p.Currency,
			Method:   p.Method,
			Status:   p.Status,
			OrderID:  p.OrderID,
		}
		return h.subscriptions.ActivateFromPayment(webhook.Payload.Subscription.Entity.ID, payment)

	case "subscription.cancelled", "subscription.completed":
		if webhook.Payload.Subscription == nil {
			return errors.New("subscription event missing subscription payload")
		}
		return h.subscriptions.MarkCancelledByGateway(webhook.Payload.Subscription.Entity.ID)

	default:
		// Unhandled event types are recorded and acknowledged.
		return nil
	}
}
