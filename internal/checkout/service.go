package checkout

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/freshkit/freshkit-backend/internal/gyms"
	"github.com/freshkit/freshkit-backend/internal/plans"
	"github.com/freshkit/freshkit-backend/pkg/config"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/phone"
	pkgstripe "github.com/freshkit/freshkit-backend/pkg/stripe"
)

// Metadata keys carried on the checkout session and its subscription. The
// checkout.session.completed webhook reads them back to create the member.
const (
	MetadataName  = "name"
	MetadataPhone = "phone"
	MetadataGym   = "gym"
	MetadataTier  = "tier"
)

const (
	defaultSuccessPath = "/welcome?session_id={CHECKOUT_SESSION_ID}"
	defaultCancelPath  = "/join?cancelled=1"
)

// Service starts subscription checkouts and reports their outcome.
type Service interface {
	CreateSession(ctx context.Context, input SessionInput, idempotencyKey string) (*Session, error)
	SessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error)
}

// SessionInput is the signup form posted by the marketing site.
type SessionInput struct {
	Tier  string `json:"tier" validate:"required,max=32"`
	Gym   string `json:"gym" validate:"required,max=32"`
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"required,max=32"`
}

// Session is the hosted checkout the browser is redirected to.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SessionStatus is what the success page shows once Stripe redirects back.
type SessionStatus struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	CustomerEmail string `json:"customer_email,omitempty"`
	Tier          string `json:"tier,omitempty"`
	Gym           string `json:"gym,omitempty"`
}

type ServiceParams struct {
	Gateway            pkgstripe.Gateway
	Plans              plans.Service
	Gyms               gyms.Service
	Logger             *logger.Logger
	App                config.AppConfig
	Stripe             config.StripeConfig
	DefaultCountryCode string
}

type service struct {
	gateway    pkgstripe.Gateway
	plans      plans.Service
	gyms       gyms.Service
	logg       *logger.Logger
	successURL string
	cancelURL  string
	countryCC  string
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe gateway required")
	}
	if params.Plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plans service required")
	}
	if params.Gyms == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gyms service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	successURL := strings.TrimSpace(params.Stripe.SuccessURL)
	if successURL == "" {
		successURL = params.App.PortalURL(defaultSuccessPath)
	}
	cancelURL := strings.TrimSpace(params.Stripe.CancelURL)
	if cancelURL == "" {
		cancelURL = params.App.PortalURL(defaultCancelPath)
	}
	return &service{
		gateway:    params.Gateway,
		plans:      params.Plans,
		gyms:       params.Gyms,
		logg:       params.Logger,
		successURL: successURL,
		cancelURL:  cancelURL,
		countryCC:  params.DefaultCountryCode,
	}, nil
}

func (s *service) CreateSession(ctx context.Context, input SessionInput, idempotencyKey string) (*Session, error) {
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required")
	}
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and email are required")
	}
	normalized, err := phone.Normalize(input.Phone, s.countryCC)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid phone number")
	}

	plan, err := s.plans.GetByTier(ctx, input.Tier)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown plan").
			WithDetails(map[string]any{"tier": input.Tier})
	}
	if err != nil {
		return nil, err
	}
	if !plan.Purchasable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan is not available for purchase").
			WithDetails(map[string]any{"tier": plan.Tier})
	}
	gym, err := s.gyms.RequireActive(ctx, input.Gym)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		MetadataName:  name,
		MetadataPhone: normalized,
		MetadataGym:   gym.Code,
		MetadataTier:  plan.Tier,
	}
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:    stripe.String(s.successURL),
		CancelURL:     stripe.String(s.cancelURL),
		CustomerEmail: stripe.String(email),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.SetIdempotencyKey(idempotencyKey)

	ctx = s.logg.WithFields(ctx, map[string]any{
		"tier": plan.Tier,
		"gym":  gym.Code,
	})
	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		s.logg.Error(ctx, "checkout.session_failed", err)
		return nil, pkgerrors.Dependency("stripe", err)
	}
	s.logg.Info(s.logg.WithField(ctx, "session_id", session.ID), "checkout.session_created")
	return &Session{ID: session.ID, URL: session.URL}, nil
}

func (s *service) SessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		if pkgstripe.IsNotFound(err) {
			return nil, pkgerrors.NotFound("checkout session")
		}
		return nil, pkgerrors.Dependency("stripe", err)
	}
	out := &SessionStatus{
		ID:            session.ID,
		Status:        string(session.Status),
		PaymentStatus: string(session.PaymentStatus),
		CustomerEmail: session.CustomerEmail,
		Tier:          session.Metadata[MetadataTier],
		Gym:           session.Metadata[MetadataGym],
	}
	if out.CustomerEmail == "" && session.CustomerDetails != nil {
		out.CustomerEmail = session.CustomerDetails.Email
	}
	return out, nil
}
