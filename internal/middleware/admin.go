package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/subvault/billing-backend/internal/config"
	"github.com/subvault/billing-backend/internal/dto"
	"github.com/subvault/billing-backend/internal/models"
	"gorm.io/gorm"
)

// AdminRequired allows callers listed in ADMIN_EMAILS or carrying the admin
// role on their user row. Runs after JWTProtected.
func AdminRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	adminEmails := parseCSV(cfg.AdminEmails)

	return func(c *fiber.Ctx) error {
		userID, err := GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.Fail(
				"Unauthorized", "AUTHENTICATION_REQUIRED",
			))
		}

		if contains(adminEmails, GetUserEmail(c)) {
			return c.Next()
		}

		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err == nil && user.Role == "admin" {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.Fail(
			"Admin access required", "FORBIDDEN",
		))
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
