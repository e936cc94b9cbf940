package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/subvault/billing-backend/internal/dto"
	"github.com/subvault/billing-backend/internal/middleware"
	"github.com/subvault/billing-backend/internal/models"
	"github.com/subvault/billing-backend/internal/services"
)

type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
	verification  *services.VerificationService
	credits       *services.CreditService
}

func NewSubscriptionHandler(subscriptions *services.SubscriptionService, verification *services.VerificationService, credits *services.CreditService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		verification:  verification,
		credits:       credits,
	}
}

// Subscribe handles POST /subscriptions - purchase, extension or plan change.
func (h *SubscriptionHandler) Subscribe(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("Unauthorized", "AUTHENTICATION_REQUIRED"))
	}

	var req dto.SubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("Invalid request body", "INVALID_REQUEST"))
	}
	if req.PlanCode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("plan_code is required", "INVALID_REQUEST"))
	}

	result, err := h.subscriptions.Subscribe(userID, req.PlanCode, models.BillingCycle(req.BillingCycle))
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(dto.OK("subscription "+string(result.Action), result))
}

// Cancel handles POST /subscriptions/cancel.
func (h *SubscriptionHandler) Cancel(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("Unauthorized", "AUTHENTICATION_REQUIRED"))
	}

	var req dto.CancelRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("Invalid request body", "INVALID_REQUEST"))
	}

	result, err := h.subscriptions.CancelSubscription(userID, req.Immediate)
	if err != nil {
		return respondServiceError(c, err)
	}

	message := "subscription will end at the current period"
	if req.Immediate {
		message = "subscription cancelled"
	}
	return c.JSON(dto.OK(message, result))
}

// Pause handles POST /subscriptions/pause.
func (h *SubscriptionHandler) Pause(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("Unauthorized", "AUTHENTICATION_REQUIRED"))
	}

	var req dto.PauseRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("Invalid request body", "INVALID_REQUEST"))
	}

	sub, err := h.subscriptions.PauseSubscription(userID, req.Days)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(dto.OK("subscription paused", sub))
}

// Resume handles POST /subscriptions/resume.
func (h *SubscriptionHandler) Resume(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("Unauthorized", "AUTHENTICATION_REQUIRED"))
	}

	sub, err := h.subscriptions.ResumeSubscription(userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(dto.OK("subscription resumed", sub))
}

// Status handles GET /subscriptions/status.
func (h *SubscriptionHandler) Status(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("Unauthorized", "AUTHENTICATION_REQUIRED"))
	}

	status, err := h.subscriptions.GetStatus(userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(dto.OK("subscription status", status))
}

// VerifyPayment handles POST /subscriptions/verify-payment.
func (h *SubscriptionHandler) VerifyPayment(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("Unauthorized", "AUTHENTICATION_REQUIRED"))
	}

	var req dto.VerifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("Invalid request body", "INVALID_REQUEST"))
	}
	if req.GatewayPaymentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("gateway_payment_id is required", "INVALID_REQUEST"))
	}

	result, err := h.verification.VerifyPayment(userID, req.GatewayPaymentID, req.SubscriptionID)
	if err != nil {
		return respondServiceError(c, err)
	}

	message := "payment verified"
	if result.IsDuplicate {
		message = "payment already verified"
	}
	return c.JSON(dto.OK(message, result))
}

// History handles GET /subscriptions/history - the transaction ledger.
func (h *SubscriptionHandler) History(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("Unauthorized", "AUTHENTICATION_REQUIRED"))
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	txns, total, err := h.subscriptions.History(userID, limit, offset)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(dto.OK("transaction history", fiber.Map{
		"transactions": txns,
		"total":        total,
		"limit":        limit,
		"offset":       offset,
	}))
}

// Credits handles GET /subscriptions/credits.
func (h *SubscriptionHandler) Credits(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail("Unauthorized", "AUTHENTICATION_REQUIRED"))
	}

	balance, err := h.credits.Balance(userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(dto.OK("credit balance", fiber.Map{"balance": balance}))
}
