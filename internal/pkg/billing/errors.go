package billing

import "errors"

var (
	// ErrAlreadySubscribed is returned by StartCheckout when the user already
	// holds an active subscription.
	ErrAlreadySubscribed = errors.New("user already has an active subscription")

	// ErrNoSubscription is returned by OpenPortal when no local subscription
	// row exists for the user.
	ErrNoSubscription = errors.New("no subscription found")

	// ErrNotConfigured is returned when a required provider secret or base
	// URL is missing from the environment.
	ErrNotConfigured = errors.New("billing provider is not configured")
)
