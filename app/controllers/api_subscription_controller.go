package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/fitmenuai/fitmenu/internal/pkg/billing"
	"github.com/fitmenuai/fitmenu/internal/pkg/cache"
	"github.com/fitmenuai/fitmenu/internal/pkg/database"
	"github.com/fitmenuai/fitmenu/internal/pkg/env"
	"github.com/fitmenuai/fitmenu/internal/pkg/usercontext"
)

const statusCacheTTL = 60 * time.Second

// BillingService is the part of the billing package the HTTP layer calls.
type BillingService interface {
	StartCheckout(ctx context.Context, userID uint, email, priceID string) (string, error)
	StartDonation(ctx context.Context, userID uint, email, priceID string) (string, error)
	OpenPortal(ctx context.Context, userID uint) (string, error)
	CurrentStatus(ctx context.Context, userID uint, now time.Time) (*billing.Status, error)
	HandleEvent(ctx context.Context, ev billing.Event) (uint, error)
}

var billingService BillingService

// InitializeBillingController injects the billing service; tests pass a fake.
func InitializeBillingController(svc BillingService) {
	billingService = svc
}

func getBillingService() (BillingService, error) {
	if billingService == nil {
		provider, err := billing.NewStripeClientFromEnv()
		if err != nil {
			return nil, err
		}
		appURL := env.GetEnv("PUBLIC_DOMAIN", "")
		if appURL == "" {
			return nil, billing.ErrNotConfigured
		}
		billingService = billing.NewServiceFromDB(database.GetDB(), provider, appURL)
	}
	return billingService, nil
}

func statusCacheKey(userID uint) string {
	return fmt.Sprintf("subscription:status:%d", userID)
}

// HandleCreateCheckout opens a subscription checkout session.
// POST /api/v1/subscriptions/checkout
func HandleCreateCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	svc, err := getBillingService()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "configuration_error", "Billing is not configured")
	}

	var req struct {
		PriceID string `json:"priceId"`
	}
	// Body is optional; the configured subscription price is the default.
	_ = c.BodyParser(&req)
	if req.PriceID == "" {
		req.PriceID = env.GetEnv("STRIPE_SUBSCRIPTION_PRICE_ID", "")
	}
	if req.PriceID == "" {
		return jsonError(c, fiber.StatusInternalServerError, "configuration_error", "No subscription price configured")
	}

	url, err := svc.StartCheckout(c.Context(), userCtx.UserID, userCtx.Email, req.PriceID)
	if err != nil {
		var dup *billing.AlreadySubscribedError
		if errors.As(err, &dup) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":              "already_subscribed",
				"message":            "An active subscription already exists",
				"subscription_id":    dup.SubscriptionID,
				"current_period_end": formatTimePtr(dup.CurrentPeriodEnd),
			})
		}
		if errors.Is(err, billing.ErrNotConfigured) {
			return jsonError(c, fiber.StatusInternalServerError, "configuration_error", "Billing is not configured")
		}
		fiberlog.Error(fmt.Sprintf("checkout failed for user %d: %v", userCtx.UserID, err))
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create checkout session")
	}

	return c.JSON(fiber.Map{"data": url})
}

// HandleCreateDonation opens a one-off donation checkout session.
// POST /api/v1/subscriptions/donate
func HandleCreateDonation(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	svc, err := getBillingService()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "configuration_error", "Billing is not configured")
	}

	priceID := env.GetEnv("STRIPE_DONATION_PRICE_ID", "")
	if priceID == "" {
		return jsonError(c, fiber.StatusInternalServerError, "configuration_error", "No donation price configured")
	}

	url, err := svc.StartDonation(c.Context(), userCtx.UserID, userCtx.Email, priceID)
	if err != nil {
		fiberlog.Error(fmt.Sprintf("donation checkout failed for user %d: %v", userCtx.UserID, err))
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create donation session")
	}

	return c.JSON(fiber.Map{"data": url})
}

// HandleBillingPortal opens the provider's billing portal.
// POST /api/v1/subscriptions/billing
func HandleBillingPortal(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	svc, err := getBillingService()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "configuration_error", "Billing is not configured")
	}

	url, err := svc.OpenPortal(c.Context(), userCtx.UserID)
	if err != nil {
		if errors.Is(err, billing.ErrNoSubscription) {
			return jsonError(c, fiber.StatusNotFound, "no_subscription", "No subscription found")
		}
		fiberlog.Error(fmt.Sprintf("portal failed for user %d: %v", userCtx.UserID, err))
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create portal session")
	}

	return c.JSON(fiber.Map{"data": url})
}

// HandleCurrentSubscription reports the user's billing state from local rows.
// Responses are cached briefly; the webhook handler invalidates on change.
// GET /api/v1/subscriptions/current
func HandleCurrentSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}

	if cached, err := cache.Get(statusCacheKey(userCtx.UserID)); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	svc, err := getBillingService()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "configuration_error", "Billing is not configured")
	}

	status, err := svc.CurrentStatus(c.Context(), userCtx.UserID, time.Now())
	if err != nil {
		fiberlog.Error(fmt.Sprintf("status read failed for user %d: %v", userCtx.UserID, err))
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load subscription")
	}

	subscription := fiber.Map{"active": status.Active}
	if status.Subscription != nil {
		subscription["subscription_id"] = status.Subscription.SubscriptionID
		subscription["customer_id"] = status.Subscription.CustomerID
		subscription["price_id"] = status.Subscription.PriceID
		subscription["status"] = status.Subscription.Status
		subscription["current_period_end"] = formatTimePtr(status.Subscription.CurrentPeriodEnd)
	}

	donation := fiber.Map{"is_donor": status.Donor}
	if status.Donation != nil {
		donation["payment_intent_id"] = status.Donation.PaymentIntentID
		donation["amount"] = status.Donation.Amount
		donation["status"] = status.Donation.Status
	}

	body := fiber.Map{
		"data": fiber.Map{
			"subscription": subscription,
			"donation":     donation,
		},
	}

	if raw, err := json.Marshal(body); err == nil {
		if err := cache.Set(statusCacheKey(userCtx.UserID), string(raw), statusCacheTTL); err != nil {
			fiberlog.Warn(fmt.Sprintf("status cache write failed: %v", err))
		}
	}

	return c.JSON(body)
}
