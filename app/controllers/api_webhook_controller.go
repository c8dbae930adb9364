package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/fitmenuai/fitmenu/internal/pkg/billing"
	"github.com/fitmenuai/fitmenu/internal/pkg/cache"
	"github.com/fitmenuai/fitmenu/internal/pkg/env"
)

// HandleStripeWebhook verifies and applies provider events. The raw body is
// checked against the Stripe-Signature header before anything is parsed.
// Datastore or provider failures answer 500 so Stripe redelivers the event.
// POST /api/v1/subscriptions/webhook
func HandleStripeWebhook(c *fiber.Ctx) error {
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	if secret == "" {
		fiberlog.Error("STRIPE_WEBHOOK_SECRET not set; rejecting webhook")
		return jsonError(c, fiber.StatusInternalServerError, "configuration_error", "Webhook secret not configured")
	}

	// BodyRaw's buffer is reused by fiber after the handler returns.
	raw := c.BodyRaw()
	payload := make([]byte, len(raw))
	copy(payload, raw)

	event, err := webhook.ConstructEvent(payload, c.Get("Stripe-Signature"), secret)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "Webhook signature verification failed")
	}

	parsed, err := billing.ParseEvent(event)
	if err != nil {
		fiberlog.Error(fmt.Sprintf("webhook payload rejected: %v", err))
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Malformed event payload")
	}

	svc, err := getBillingService()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "configuration_error", "Billing is not configured")
	}

	userID, err := svc.HandleEvent(c.Context(), parsed)
	if err != nil {
		fiberlog.Error(fmt.Sprintf("webhook %s failed: %v", event.Type, err))
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to process event")
	}

	if userID > 0 {
		if err := cache.Delete(statusCacheKey(userID)); err != nil {
			fiberlog.Warn(fmt.Sprintf("status cache invalidation failed for user %d: %v", userID, err))
		}
	}

	return c.SendStatus(fiber.StatusOK)
}
