package billing

import (
	"context"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/fitmenuai/fitmenu/internal/pkg/env"
)

// ProviderClient is the surface of the billing provider the service needs.
// Kept small so tests can substitute a fake.
type ProviderClient interface {
	CreateCustomer(ctx context.Context, email string, userID uint) (string, error)
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (string, error)
	CreateDonationSession(ctx context.Context, in CheckoutInput) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	GetSubscription(ctx context.Context, subscriptionID string) (RemoteSubscription, error)
	GetPaymentIntent(ctx context.Context, paymentIntentID string) (RemotePayment, error)
}

type stripeClient struct {
	api *client.API
}

// NewStripeClient wraps an initialized stripe-go client.
func NewStripeClient(api *client.API) ProviderClient {
	return &stripeClient{api: api}
}

// NewStripeClientFromEnv builds the provider client from STRIPE_SECRET_KEY.
func NewStripeClientFromEnv() (ProviderClient, error) {
	key := strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))
	if key == "" {
		return nil, ErrNotConfigured
	}
	api := &client.API{}
	api.Init(key, nil)
	return NewStripeClient(api), nil
}

func (c *stripeClient) CreateCustomer(ctx context.Context, email string, userID uint) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserIDKey, FormatUserID(userID))

	customer, err := c.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

func (c *stripeClient) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (string, error) {
	params := &stripe.CheckoutSessionParams{
		SuccessURL:               stripe.String(in.SuccessURL),
		CancelURL:                stripe.String(in.CancelURL),
		Mode:                     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes:       stripe.StringSlice([]string{"card", "paypal"}),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionAuto)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		// The subscription object is authoritative for later webhook events,
		// so it gets the userId metadata as well.
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				MetadataUserIDKey: FormatUserID(in.UserID),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserIDKey, FormatUserID(in.UserID))
	params.AddMetadata(MetadataTypeKey, CheckoutTypeSubscription)

	if in.CustomerID != "" {
		params.Customer = stripe.String(in.CustomerID)
	} else {
		params.CustomerEmail = stripe.String(in.Email)
	}

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

func (c *stripeClient) CreateDonationSession(ctx context.Context, in CheckoutInput) (string, error) {
	params := &stripe.CheckoutSessionParams{
		SuccessURL:               stripe.String(in.SuccessURL),
		CancelURL:                stripe.String(in.CancelURL),
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes:       stripe.StringSlice([]string{"card", "paypal"}),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionAuto)),
		CustomerEmail:            stripe.String(in.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserIDKey, FormatUserID(in.UserID))
	params.AddMetadata(MetadataTypeKey, CheckoutTypeDonation)

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

func (c *stripeClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	session, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

func (c *stripeClient) GetSubscription(ctx context.Context, subscriptionID string) (RemoteSubscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return RemoteSubscription{}, err
	}

	remote := RemoteSubscription{
		ID:       sub.ID,
		Status:   string(sub.Status),
		Metadata: sub.Metadata,
	}
	if sub.Customer != nil {
		remote.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		remote.CurrentPeriodEnd = &end
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		remote.PriceID = sub.Items.Data[0].Price.ID
	}
	return remote, nil
}

func (c *stripeClient) GetPaymentIntent(ctx context.Context, paymentIntentID string) (RemotePayment, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := c.api.PaymentIntents.Get(paymentIntentID, params)
	if err != nil {
		return RemotePayment{}, err
	}

	payment := RemotePayment{
		PaymentIntentID: intent.ID,
		Amount:          intent.Amount,
		Status:          string(intent.Status),
	}
	if intent.Customer != nil {
		payment.CustomerID = intent.Customer.ID
	}
	return payment, nil
}
