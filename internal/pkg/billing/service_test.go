package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fitmenuai/fitmenu/app/models"
)

type fakeRepository struct {
	subs      map[uint]*models.Subscription
	donations map[string]*models.Donation
	upserts   int
	failWrite error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		subs:      make(map[uint]*models.Subscription),
		donations: make(map[string]*models.Donation),
	}
}

func (r *fakeRepository) GetSubscriptionByUserID(userID uint) (*models.Subscription, error) {
	sub, ok := r.subs[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *sub
	return &copied, nil
}

func (r *fakeRepository) UpsertSubscription(sub *models.Subscription) error {
	if r.failWrite != nil {
		return r.failWrite
	}
	r.upserts++
	now := time.Now()
	if existing, ok := r.subs[sub.UserID]; ok {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.ID = uint(len(r.subs) + 1)
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	copied := *sub
	r.subs[sub.UserID] = &copied
	return nil
}

func (r *fakeRepository) GetDonationByUserID(userID uint) (*models.Donation, error) {
	for _, d := range r.donations {
		if d.UserID == userID {
			copied := *d
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) CreateDonationIfNotExists(donation *models.Donation) error {
	if r.failWrite != nil {
		return r.failWrite
	}
	if _, ok := r.donations[donation.PaymentIntentID]; ok {
		return nil
	}
	copied := *donation
	r.donations[donation.PaymentIntentID] = &copied
	return nil
}

type fakeProvider struct {
	subscriptions map[string]RemoteSubscription
	payments      map[string]RemotePayment

	createdCustomers int
	checkoutCalls    int
	portalCalls      int

	checkoutURL string
	portalURL   string
	lastInput   CheckoutInput
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		subscriptions: make(map[string]RemoteSubscription),
		payments:      make(map[string]RemotePayment),
		checkoutURL:   "https://checkout.example/session",
		portalURL:     "https://portal.example/session",
	}
}

func (p *fakeProvider) CreateCustomer(ctx context.Context, email string, userID uint) (string, error) {
	p.createdCustomers++
	return "cus_new", nil
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (string, error) {
	p.checkoutCalls++
	p.lastInput = in
	return p.checkoutURL, nil
}

func (p *fakeProvider) CreateDonationSession(ctx context.Context, in CheckoutInput) (string, error) {
	p.lastInput = in
	return p.checkoutURL, nil
}

func (p *fakeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	p.portalCalls++
	return p.portalURL, nil
}

func (p *fakeProvider) GetSubscription(ctx context.Context, subscriptionID string) (RemoteSubscription, error) {
	sub, ok := p.subscriptions[subscriptionID]
	if !ok {
		return RemoteSubscription{}, errors.New("no such subscription")
	}
	return sub, nil
}

func (p *fakeProvider) GetPaymentIntent(ctx context.Context, paymentIntentID string) (RemotePayment, error) {
	pi, ok := p.payments[paymentIntentID]
	if !ok {
		return RemotePayment{}, errors.New("no such payment intent")
	}
	return pi, nil
}

func newTestService() (*Service, *fakeRepository, *fakeProvider) {
	repo := newFakeRepository()
	provider := newFakeProvider()
	return NewService(repo, provider, "https://fitmenu.example"), repo, provider
}

func futureEnd(days int) *time.Time {
	t := time.Now().Add(time.Duration(days) * 24 * time.Hour).UTC()
	return &t
}

func TestStartCheckout_NewCustomer(t *testing.T) {
	svc, _, provider := newTestService()

	url, err := svc.StartCheckout(context.Background(), 1, "u1@example.com", "price_123")
	require.NoError(t, err)
	assert.Equal(t, provider.checkoutURL, url)
	assert.Equal(t, 1, provider.createdCustomers)
	assert.Equal(t, "cus_new", provider.lastInput.CustomerID)
	assert.Equal(t, "price_123", provider.lastInput.PriceID)
}

func TestStartCheckout_ReusesStoredCustomer(t *testing.T) {
	svc, repo, provider := newTestService()
	repo.subs[1] = &models.Subscription{
		UserID:     1,
		CustomerID: "cus_old",
		Status:     models.SubscriptionStatusCanceled,
	}

	_, err := svc.StartCheckout(context.Background(), 1, "u1@example.com", "price_123")
	require.NoError(t, err)
	assert.Zero(t, provider.createdCustomers, "must not create a second customer")
	assert.Equal(t, "cus_old", provider.lastInput.CustomerID)
}

func TestStartCheckout_AlreadySubscribed(t *testing.T) {
	svc, repo, provider := newTestService()
	repo.subs[1] = &models.Subscription{
		UserID:           1,
		CustomerID:       "cus_1",
		SubscriptionID:   "sub_1",
		Status:           models.SubscriptionStatusActive,
		CurrentPeriodEnd: futureEnd(30),
	}

	_, err := svc.StartCheckout(context.Background(), 1, "u1@example.com", "price_123")
	require.ErrorIs(t, err, ErrAlreadySubscribed)

	var dup *AlreadySubscribedError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "sub_1", dup.SubscriptionID)
	assert.Zero(t, provider.checkoutCalls, "no session may be created for an active subscriber")
}

func TestOpenPortal_NoSubscription(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.OpenPortal(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNoSubscription)
}

func TestCurrentStatus_NoRows(t *testing.T) {
	svc, _, _ := newTestService()
	status, err := svc.CurrentStatus(context.Background(), 5, time.Now())
	require.NoError(t, err)
	assert.False(t, status.Active)
	assert.False(t, status.Donor)
	assert.Nil(t, status.Subscription)
	assert.Nil(t, status.Donation)
}

func TestHandleEvent_CheckoutCompletedCreatesRow(t *testing.T) {
	svc, repo, provider := newTestService()
	provider.subscriptions["sub_1"] = RemoteSubscription{
		ID:               "sub_1",
		CustomerID:       "cus_1",
		PriceID:          "price_1",
		Status:           models.SubscriptionStatusActive,
		CurrentPeriodEnd: futureEnd(30),
		Metadata:         map[string]string{MetadataUserIDKey: "1"},
	}

	userID, err := svc.HandleEvent(context.Background(), CheckoutCompletedEvent{
		SessionID:      "cs_1",
		SubscriptionID: "sub_1",
		Metadata:       map[string]string{MetadataUserIDKey: "1", MetadataTypeKey: CheckoutTypeSubscription},
	})
	require.NoError(t, err)
	assert.Equal(t, uint(1), userID)

	row := repo.subs[1]
	require.NotNil(t, row)
	assert.Equal(t, models.SubscriptionStatusActive, row.Status)
	assert.Equal(t, "sub_1", row.SubscriptionID)
	assert.Equal(t, "cus_1", row.CustomerID)
	assert.True(t, row.IsActive(time.Now()))
}

func TestHandleEvent_UserIDFromSubscriptionMetadata(t *testing.T) {
	svc, repo, provider := newTestService()
	// Session metadata says user 9, the subscription object says user 2.
	// The subscription is authoritative.
	provider.subscriptions["sub_1"] = RemoteSubscription{
		ID:       "sub_1",
		Status:   models.SubscriptionStatusActive,
		Metadata: map[string]string{MetadataUserIDKey: "2"},
	}

	userID, err := svc.HandleEvent(context.Background(), CheckoutCompletedEvent{
		SessionID:      "cs_1",
		SubscriptionID: "sub_1",
		Metadata:       map[string]string{MetadataUserIDKey: "9", MetadataTypeKey: CheckoutTypeSubscription},
	})
	require.NoError(t, err)
	assert.Equal(t, uint(2), userID)
	assert.NotNil(t, repo.subs[2])
	assert.Nil(t, repo.subs[9])
}

func TestHandleEvent_InvoicePaymentFailedKeepsRow(t *testing.T) {
	svc, repo, provider := newTestService()
	repo.subs[1] = &models.Subscription{
		UserID:           1,
		CustomerID:       "cus_1",
		SubscriptionID:   "sub_1",
		Status:           models.SubscriptionStatusActive,
		CurrentPeriodEnd: futureEnd(30),
	}
	provider.subscriptions["sub_1"] = RemoteSubscription{
		ID:               "sub_1",
		CustomerID:       "cus_1",
		Status:           models.SubscriptionStatusPastDue,
		CurrentPeriodEnd: futureEnd(30),
		Metadata:         map[string]string{MetadataUserIDKey: "1"},
	}

	userID, err := svc.HandleEvent(context.Background(), InvoicePaymentFailedEvent{InvoiceID: "in_1", SubscriptionID: "sub_1"})
	require.NoError(t, err)
	assert.Equal(t, uint(1), userID)

	row := repo.subs[1]
	require.NotNil(t, row, "failed payment must never delete the row")
	assert.Equal(t, models.SubscriptionStatusPastDue, row.Status)
}

func TestHandleEvent_SubscriptionUpdatedIsIdempotent(t *testing.T) {
	svc, repo, _ := newTestService()
	event := SubscriptionChangedEvent{
		Type: "customer.subscription.updated",
		Subscription: RemoteSubscription{
			ID:               "sub_1",
			CustomerID:       "cus_1",
			PriceID:          "price_1",
			Status:           models.SubscriptionStatusActive,
			CurrentPeriodEnd: futureEnd(30),
			Metadata:         map[string]string{MetadataUserIDKey: "1"},
		},
	}

	_, err := svc.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	first := *repo.subs[1]

	_, err = svc.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	second := *repo.subs[1]

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.SubscriptionID, second.SubscriptionID)
	assert.Equal(t, first.CustomerID, second.CustomerID)
	assert.Equal(t, first.PriceID, second.PriceID)
	assert.Equal(t, first.CurrentPeriodEnd.Unix(), second.CurrentPeriodEnd.Unix())
	assert.Equal(t, 2, repo.upserts, "redelivery updates in place")
}

func TestHandleEvent_SubscriptionDeletedCancelsWithoutDelete(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.subs[1] = &models.Subscription{
		UserID:           1,
		CustomerID:       "cus_1",
		SubscriptionID:   "sub_1",
		Status:           models.SubscriptionStatusActive,
		CurrentPeriodEnd: futureEnd(30),
	}

	userID, err := svc.HandleEvent(context.Background(), SubscriptionDeletedEvent{
		Subscription: RemoteSubscription{
			ID:               "sub_1",
			CustomerID:       "cus_1",
			Status:           models.SubscriptionStatusCanceled,
			CurrentPeriodEnd: futureEnd(30),
			Metadata:         map[string]string{MetadataUserIDKey: "1"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, uint(1), userID)

	row := repo.subs[1]
	require.NotNil(t, row, "deletion events must not remove the row")
	assert.Equal(t, models.SubscriptionStatusCanceled, row.Status)
	assert.Equal(t, "cus_1", row.CustomerID)
	assert.Equal(t, "sub_1", row.SubscriptionID)
	assert.False(t, row.IsActive(time.Now()))
}

func TestHandleEvent_MissingUserMetadataSkips(t *testing.T) {
	svc, repo, _ := newTestService()

	userID, err := svc.HandleEvent(context.Background(), SubscriptionChangedEvent{
		Type: "customer.subscription.updated",
		Subscription: RemoteSubscription{
			ID:     "sub_1",
			Status: models.SubscriptionStatusActive,
		},
	})
	require.NoError(t, err, "missing metadata is dropped, not failed")
	assert.Zero(t, userID)
	assert.Zero(t, repo.upserts, "no datastore write may happen")
}

func TestHandleEvent_WriteFailurePropagates(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.failWrite = errors.New("datastore down")

	_, err := svc.HandleEvent(context.Background(), SubscriptionChangedEvent{
		Type: "customer.subscription.updated",
		Subscription: RemoteSubscription{
			ID:       "sub_1",
			Status:   models.SubscriptionStatusActive,
			Metadata: map[string]string{MetadataUserIDKey: "1"},
		},
	})
	require.Error(t, err, "write failures must surface so the provider retries")
}

func TestHandleEvent_UnhandledIsAcknowledged(t *testing.T) {
	svc, repo, _ := newTestService()
	userID, err := svc.HandleEvent(context.Background(), UnhandledEvent{Type: "customer.updated"})
	require.NoError(t, err)
	assert.Zero(t, userID)
	assert.Zero(t, repo.upserts)
}

func TestHandleEvent_DonationCheckout(t *testing.T) {
	svc, repo, provider := newTestService()
	provider.payments["pi_1"] = RemotePayment{
		PaymentIntentID: "pi_1",
		CustomerID:      "cus_1",
		Amount:          500,
		Status:          models.DonationStatusSucceeded,
	}

	event := CheckoutCompletedEvent{
		SessionID:       "cs_1",
		PaymentIntentID: "pi_1",
		Metadata:        map[string]string{MetadataUserIDKey: "3", MetadataTypeKey: CheckoutTypeDonation},
	}

	userID, err := svc.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, uint(3), userID)

	donation := repo.donations["pi_1"]
	require.NotNil(t, donation)
	assert.Equal(t, int64(500), donation.Amount)
	assert.True(t, donation.IsDonor())

	// Redelivery keeps a single row.
	_, err = svc.HandleEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Len(t, repo.donations, 1)
}

// Mirrors the lifecycle from the spec: checkout → failed renewal → deletion.
func TestHandleEvent_LifecycleScenario(t *testing.T) {
	svc, repo, provider := newTestService()
	ctx := context.Background()

	provider.subscriptions["sub_1"] = RemoteSubscription{
		ID:               "sub_1",
		CustomerID:       "cus_1",
		PriceID:          "price_1",
		Status:           models.SubscriptionStatusActive,
		CurrentPeriodEnd: futureEnd(30),
		Metadata:         map[string]string{MetadataUserIDKey: "1"},
	}

	_, err := svc.HandleEvent(ctx, CheckoutCompletedEvent{
		SessionID:      "cs_1",
		SubscriptionID: "sub_1",
		Metadata:       map[string]string{MetadataUserIDKey: "1", MetadataTypeKey: CheckoutTypeSubscription},
	})
	require.NoError(t, err)
	status, err := svc.CurrentStatus(ctx, 1, time.Now())
	require.NoError(t, err)
	assert.True(t, status.Active)

	// Renewal fails, provider now reports past_due.
	remote := provider.subscriptions["sub_1"]
	remote.Status = models.SubscriptionStatusPastDue
	provider.subscriptions["sub_1"] = remote

	_, err = svc.HandleEvent(ctx, InvoicePaymentFailedEvent{InvoiceID: "in_1", SubscriptionID: "sub_1"})
	require.NoError(t, err)
	status, err = svc.CurrentStatus(ctx, 1, time.Now())
	require.NoError(t, err)
	assert.False(t, status.Active)
	assert.NotNil(t, status.Subscription)

	_, err = svc.HandleEvent(ctx, SubscriptionDeletedEvent{
		Subscription: RemoteSubscription{
			ID:         "sub_1",
			CustomerID: "cus_1",
			Status:     models.SubscriptionStatusCanceled,
			Metadata:   map[string]string{MetadataUserIDKey: "1"},
		},
	})
	require.NoError(t, err)
	status, err = svc.CurrentStatus(ctx, 1, time.Now())
	require.NoError(t, err)
	assert.False(t, status.Active)
	require.NotNil(t, status.Subscription)
	assert.Equal(t, models.SubscriptionStatusCanceled, status.Subscription.Status)
	assert.Equal(t, "sub_1", status.Subscription.SubscriptionID)
	assert.Len(t, repo.subs, 1)
}
