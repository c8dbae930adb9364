package billing

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/fitmenuai/fitmenu/app/models"
)

// Service implements checkout/portal/status operations and the webhook
// reconciliation that keeps the local subscription row in sync with the
// provider's source of truth.
type Service struct {
	repo     Repository
	provider ProviderClient
	appURL   string
}

// NewService creates a billing service from injected collaborators.
func NewService(repo Repository, provider ProviderClient, appURL string) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		appURL:   strings.TrimRight(appURL, "/"),
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, provider ProviderClient, appURL string) *Service {
	return NewService(NewRepository(db), provider, appURL)
}

// AlreadySubscribedError carries the existing subscription details for client
// display when a checkout is refused.
type AlreadySubscribedError struct {
	SubscriptionID   string
	CurrentPeriodEnd *time.Time
}

func (e *AlreadySubscribedError) Error() string {
	return ErrAlreadySubscribed.Error()
}

func (e *AlreadySubscribedError) Is(target error) bool {
	return target == ErrAlreadySubscribed
}

// StartCheckout opens a subscription-mode checkout session for the user.
// Refused when the user already holds an active subscription; otherwise the
// existing provider customer is reused or a new one is created. No local row
// is written here; that happens later when the webhook arrives.
func (s *Service) StartCheckout(ctx context.Context, userID uint, email, priceID string) (string, error) {
	if s.appURL == "" {
		return "", ErrNotConfigured
	}

	customerID := ""
	sub, err := s.repo.GetSubscriptionByUserID(userID)
	if err != nil && !IsNotFound(err) {
		return "", err
	}
	if sub != nil {
		if sub.IsActive(time.Now()) {
			return "", &AlreadySubscribedError{
				SubscriptionID:   sub.SubscriptionID,
				CurrentPeriodEnd: sub.CurrentPeriodEnd,
			}
		}
		customerID = sub.CustomerID
	}

	if customerID == "" {
		customerID, err = s.provider.CreateCustomer(ctx, email, userID)
		if err != nil {
			return "", fmt.Errorf("create customer: %w", err)
		}
	}

	return s.provider.CreateCheckoutSession(ctx, CheckoutInput{
		UserID:     userID,
		Email:      email,
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: s.appURL + "/?success=1",
		CancelURL:  s.appURL + "/?canceled=1",
	})
}

// StartDonation opens a one-off payment-mode checkout session.
func (s *Service) StartDonation(ctx context.Context, userID uint, email, priceID string) (string, error) {
	if s.appURL == "" {
		return "", ErrNotConfigured
	}
	return s.provider.CreateDonationSession(ctx, CheckoutInput{
		UserID:     userID,
		Email:      email,
		PriceID:    priceID,
		SuccessURL: s.appURL + "/?donation=success",
		CancelURL:  s.appURL + "/?donation=canceled",
	})
}

// OpenPortal opens a billing-portal session for the user's stored customer.
func (s *Service) OpenPortal(ctx context.Context, userID uint) (string, error) {
	sub, err := s.repo.GetSubscriptionByUserID(userID)
	if err != nil {
		if IsNotFound(err) {
			return "", ErrNoSubscription
		}
		return "", err
	}
	return s.provider.CreatePortalSession(ctx, sub.CustomerID, s.appURL)
}

// Status is the status reader's view of a user's billing state.
type Status struct {
	Subscription *models.Subscription
	Donation     *models.Donation
	Active       bool
	Donor        bool
}

// CurrentStatus reads the locally cached rows; no provider calls.
func (s *Service) CurrentStatus(ctx context.Context, userID uint, now time.Time) (*Status, error) {
	_ = ctx
	status := &Status{}

	sub, err := s.repo.GetSubscriptionByUserID(userID)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	status.Subscription = sub
	status.Active = sub.IsActive(now)

	donation, err := s.repo.GetDonationByUserID(userID)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	status.Donation = donation
	status.Donor = donation.IsDonor()

	return status, nil
}

// HandleEvent applies one verified webhook event. It returns the id of the
// user whose row changed (0 when nothing was written) so callers can
// invalidate caches. Datastore and provider failures propagate so the webhook
// endpoint answers non-2xx and the provider retries; events with missing user
// metadata are logged and dropped without error, since retrying cannot fix
// them.
func (s *Service) HandleEvent(ctx context.Context, ev Event) (uint, error) {
	switch e := ev.(type) {
	case CheckoutCompletedEvent:
		return s.applyCheckoutCompleted(ctx, e)

	case InvoicePaidEvent:
		return s.syncFromProvider(ctx, e.SubscriptionID, e.EventType())

	case InvoicePaymentFailedEvent:
		return s.syncFromProvider(ctx, e.SubscriptionID, e.EventType())

	case SubscriptionChangedEvent:
		return s.upsertRemote(e.Subscription, "", e.EventType())

	case SubscriptionDeletedEvent:
		// Never delete: retain the row and its ids, flip status to canceled.
		return s.upsertRemote(e.Subscription, models.SubscriptionStatusCanceled, e.EventType())

	case UnhandledEvent:
		log.Printf("billing: ignoring unhandled webhook event type %q", e.Type)
		return 0, nil

	default:
		log.Printf("billing: ignoring unknown event variant %T", ev)
		return 0, nil
	}
}

func (s *Service) applyCheckoutCompleted(ctx context.Context, e CheckoutCompletedEvent) (uint, error) {
	switch e.Metadata[MetadataTypeKey] {
	case CheckoutTypeDonation:
		return s.applyDonation(ctx, e)
	default:
		if e.SubscriptionID == "" {
			log.Printf("billing: checkout session %s completed without subscription reference, skipping", e.SessionID)
			return 0, nil
		}
		return s.syncFromProvider(ctx, e.SubscriptionID, e.EventType())
	}
}

func (s *Service) applyDonation(ctx context.Context, e CheckoutCompletedEvent) (uint, error) {
	userID, ok := parseUserID(e.Metadata)
	if !ok {
		log.Printf("billing: donation session %s has no userId metadata, skipping", e.SessionID)
		return 0, nil
	}
	if e.PaymentIntentID == "" {
		log.Printf("billing: donation session %s has no payment intent, skipping", e.SessionID)
		return 0, nil
	}

	payment, err := s.provider.GetPaymentIntent(ctx, e.PaymentIntentID)
	if err != nil {
		return 0, fmt.Errorf("retrieve payment intent %s: %w", e.PaymentIntentID, err)
	}

	customerID := payment.CustomerID
	if customerID == "" {
		customerID = e.CustomerID
	}

	donation := &models.Donation{
		UserID:          userID,
		PaymentIntentID: payment.PaymentIntentID,
		CustomerID:      customerID,
		Amount:          payment.Amount,
		Status:          payment.Status,
	}
	if err := s.repo.CreateDonationIfNotExists(donation); err != nil {
		return 0, fmt.Errorf("persist donation for user %d: %w", userID, err)
	}
	return userID, nil
}

// syncFromProvider fetches the referenced subscription and upserts the local
// row. The userId comes from the fetched subscription's own metadata — the
// subscription object is authoritative, not whatever session or invoice
// referenced it.
func (s *Service) syncFromProvider(ctx context.Context, subscriptionID, eventType string) (uint, error) {
	if subscriptionID == "" {
		log.Printf("billing: %s event without subscription reference, skipping", eventType)
		return 0, nil
	}
	remote, err := s.provider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("retrieve subscription %s: %w", subscriptionID, err)
	}
	return s.upsertRemote(remote, "", eventType)
}

func (s *Service) upsertRemote(remote RemoteSubscription, overrideStatus, eventType string) (uint, error) {
	userID, ok := remote.UserID()
	if !ok {
		log.Printf("billing: %s for subscription %s has no userId metadata, skipping", eventType, remote.ID)
		return 0, nil
	}

	status := remote.Status
	if overrideStatus != "" {
		status = overrideStatus
	}

	sub := &models.Subscription{
		UserID:           userID,
		CustomerID:       remote.CustomerID,
		SubscriptionID:   remote.ID,
		PriceID:          remote.PriceID,
		Status:           status,
		CurrentPeriodEnd: remote.CurrentPeriodEnd,
	}
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return 0, fmt.Errorf("upsert subscription for user %d (%s): %w", userID, eventType, err)
	}
	return userID, nil
}
