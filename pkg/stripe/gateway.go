package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	portalsession "github.com/stripe/stripe-go/v84/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/subscription"
)

// Gateway is the subset of Stripe operations the checkout, billing and webhook
// services call. Services depend on it so tests can stub Stripe.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	UpdateSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	CreateBillingPortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

type gateway struct{}

// NewGateway returns the SDK-backed gateway. The SDK key is set by NewClient.
func NewGateway(client *Client) Gateway {
	if client == nil {
		return nil
	}
	return gateway{}
}

func (gateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return checkoutsession.New(params)
}

func (gateway) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	return checkoutsession.Get(id, params)
}

func (gateway) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return subscription.Get(id, params)
}

func (gateway) UpdateSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if params != nil {
		params.Context = ctx
	}
	return subscription.Update(id, params)
}

func (gateway) CreateBillingPortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return portalsession.New(params)
}
