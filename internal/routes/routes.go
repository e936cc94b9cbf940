package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/subvault/billing-backend/internal/config"
	"github.com/subvault/billing-backend/internal/handlers"
	"github.com/subvault/billing-backend/internal/middleware"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	webhookHandler *handlers.WebhookHandler,
	subscriptionHandler *handlers.SubscriptionHandler,
	configHandler *handlers.BillingConfigHandler,
	adminHandler *handlers.AdminHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health
	api.Get("/health", healthHandler.Check)

	// Plan catalog + lifecycle limits (public)
	api.Get("/config", configHandler.GetConfig)

	// Auth — public, with a stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Apply JWT middleware to individual routes so public routes stay public
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)

	// Subscription lifecycle (protected)
	subs := api.Group("/subscriptions", middleware.JWTProtected(cfg))
	subs.Post("/", subscriptionHandler.Subscribe)
	subs.Get("/status", subscriptionHandler.Status)
	subs.Post("/cancel", subscriptionHandler.Cancel)
	subs.Post("/pause", subscriptionHandler.Pause)
	subs.Post("/resume", subscriptionHandler.Resume)
	subs.Post("/verify-payment", subscriptionHandler.VerifyPayment)
	subs.Get("/history", subscriptionHandler.History)
	subs.Get("/credits", subscriptionHandler.Credits)

	// Admin panel (protected + admin required)
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Get("/transactions", adminHandler.ListTransactions)
	admin.Get("/webhook-events", adminHandler.ListWebhookEvents)

	// Webhooks — gateway signature auth, no JWT
	webhooks := api.Group("/webhooks")
	webhooks.Post("/razorpay", webhookHandler.HandleRazorpay)
}
