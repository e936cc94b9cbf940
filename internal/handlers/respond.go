package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/subvault/billing-backend/internal/dto"
	"github.com/subvault/billing-backend/internal/services"
)

// respondServiceError maps business errors to their HTTP status and hides
// everything else behind a generic 500.
func respondServiceError(c *fiber.Ctx, err error) error {
	if e, ok := services.AsError(err); ok {
		return c.Status(statusFor(e.Code)).JSON(dto.Fail(e.Message, e.Code))
	}

	slog.Error("subscription operation failed", "method", c.Method(), "path", c.Path(), "error", err.Error())
	return c.Status(fiber.StatusInternalServerError).JSON(dto.Fail(
		"Internal server error", "INTERNAL_ERROR",
	))
}

func statusFor(code string) int {
	switch code {
	case "NO_ACTIVE_SUBSCRIPTION", "SUBSCRIPTION_NOT_FOUND", "PLAN_NOT_FOUND", "USER_NOT_FOUND":
		return fiber.StatusNotFound
	case "CONFIGURATION_ERROR":
		return fiber.StatusInternalServerError
	case "GATEWAY_ERROR":
		return fiber.StatusBadGateway
	case "AUTHENTICATION_REQUIRED":
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusBadRequest
	}
}
