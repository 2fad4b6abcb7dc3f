// Package stripetest provides a programmable Stripe gateway for service tests.
package stripetest

import (
	"context"
	"sync"

	"github.com/stripe/stripe-go/v84"
)

// Gateway implements pkg/stripe.Gateway with optional per-method funcs.
// Unset funcs return empty objects carrying the requested id.
type Gateway struct {
	CreateCheckoutSessionFn      func(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSessionFn         func(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	GetSubscriptionFn            func(ctx context.Context, id string) (*stripe.Subscription, error)
	UpdateSubscriptionFn         func(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	CreateBillingPortalSessionFn func(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)

	mu      sync.Mutex
	updates []SubscriptionUpdate
}

// SubscriptionUpdate is one recorded UpdateSubscription call.
type SubscriptionUpdate struct {
	ID     string
	Params *stripe.SubscriptionParams
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if g.CreateCheckoutSessionFn != nil {
		return g.CreateCheckoutSessionFn(ctx, params)
	}
	return &stripe.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.test/cs_test"}, nil
}

func (g *Gateway) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	if g.GetCheckoutSessionFn != nil {
		return g.GetCheckoutSessionFn(ctx, id)
	}
	return &stripe.CheckoutSession{ID: id}, nil
}

func (g *Gateway) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	if g.GetSubscriptionFn != nil {
		return g.GetSubscriptionFn(ctx, id)
	}
	return &stripe.Subscription{ID: id}, nil
}

func (g *Gateway) UpdateSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	g.mu.Lock()
	g.updates = append(g.updates, SubscriptionUpdate{ID: id, Params: params})
	g.mu.Unlock()
	if g.UpdateSubscriptionFn != nil {
		return g.UpdateSubscriptionFn(ctx, id, params)
	}
	return &stripe.Subscription{ID: id}, nil
}

func (g *Gateway) CreateBillingPortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	if g.CreateBillingPortalSessionFn != nil {
		return g.CreateBillingPortalSessionFn(ctx, params)
	}
	return &stripe.BillingPortalSession{ID: "bps_test", URL: "https://billing.stripe.test/session"}, nil
}

// Updates returns the recorded subscription updates in call order.
func (g *Gateway) Updates() []SubscriptionUpdate {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]SubscriptionUpdate, len(g.updates))
	copy(out, g.updates)
	return out
}
