package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/subvault/billing-backend/internal/dto"
	"github.com/subvault/billing-backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("invalid request body", "INVALID_REQUEST"))
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(dto.Fail(err.Error(), "EMAIL_TAKEN"))
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail(err.Error(), "INVALID_REQUEST"))
	}

	return c.Status(fiber.StatusCreated).JSON(dto.OK("registered", resp))
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("invalid request body", "INVALID_REQUEST"))
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail(err.Error(), "INVALID_CREDENTIALS"))
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail(err.Error(), "INVALID_REQUEST"))
	}

	return c.JSON(dto.OK("logged in", resp))
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("invalid request body", "INVALID_REQUEST"))
	}

	resp, err := h.authService.Refresh(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail(err.Error(), "INVALID_TOKEN"))
		}
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail(err.Error(), "INVALID_REQUEST"))
	}

	return c.JSON(dto.OK("token refreshed", resp))
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail("invalid request body", "INVALID_REQUEST"))
	}

	if err := h.authService.Logout(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail(err.Error(), "INVALID_REQUEST"))
	}

	return c.JSON(dto.OK("logged out", nil))
}
