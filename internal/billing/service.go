package billing

import (
	"context"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/freshkit/freshkit-backend/internal/audit"
	"github.com/freshkit/freshkit-backend/internal/members"
	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	pkgstripe "github.com/freshkit/freshkit-backend/pkg/stripe"
)

const defaultReturnPath = "/portal"

// Service is the member's self-service subscription control.
type Service interface {
	Pause(ctx context.Context, memberID string) (*Result, error)
	Resume(ctx context.Context, memberID string) (*Result, error)
	Cancel(ctx context.Context, memberID string) (*Result, error)
	PortalSession(ctx context.Context, memberID string) (*PortalSession, error)
}

// Result is the member state after a subscription change.
type Result struct {
	Status    enums.MemberStatus `json:"status"`
	CancelsAt *time.Time         `json:"cancels_at,omitempty"`
}

type PortalSession struct {
	URL string `json:"url"`
}

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Gateway pkgstripe.Gateway
	Members members.Repository
	Audit   audit.Recorder
	Logger  *logger.Logger
	App     config.AppConfig
	Stripe  config.StripeConfig
}

type service struct {
	gateway   pkgstripe.Gateway
	members   members.Repository
	audit     audit.Recorder
	logg      *logger.Logger
	returnURL string
}

// NewService builds a billing service.
func NewService(params ServiceParams) (Service, error) {
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe gateway required")
	}
	if params.Members == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "members repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	recorder := params.Audit
	if recorder == nil {
		recorder = audit.Noop{}
	}
	returnURL := strings.TrimSpace(params.Stripe.PortalReturnURL)
	if returnURL == "" {
		returnURL = params.App.PortalURL(defaultReturnPath)
	}
	return &service{
		gateway:   params.Gateway,
		members:   params.Members,
		audit:     recorder,
		logg:      params.Logger,
		returnURL: returnURL,
	}, nil
}

// Pause voids invoices until resumed; the member keeps portal access.
func (s *service) Pause(ctx context.Context, memberID string) (*Result, error) {
	member, err := s.subscribed(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member.Status != enums.MemberStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only active subscriptions can be paused").
			WithDetails(map[string]any{"status": member.Status})
	}

	params := &stripe.SubscriptionParams{
		PauseCollection: &stripe.SubscriptionPauseCollectionParams{
			Behavior: stripe.String(string(stripe.SubscriptionPauseCollectionBehaviorVoid)),
		},
	}
	if _, err := s.gateway.UpdateSubscription(ctx, member.StripeSubscriptionID, params); err != nil {
		return nil, pkgerrors.Dependency("stripe", err)
	}
	return s.apply(ctx, member, "subscription.paused", members.Update{Status: statusPtr(enums.MemberStatusPaused)})
}

func (s *service) Resume(ctx context.Context, memberID string) (*Result, error) {
	member, err := s.subscribed(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member.Status != enums.MemberStatusPaused {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is not paused").
			WithDetails(map[string]any{"status": member.Status})
	}

	params := &stripe.SubscriptionParams{}
	// An empty pause_collection clears the pause.
	params.AddExtra("pause_collection", "")
	if _, err := s.gateway.UpdateSubscription(ctx, member.StripeSubscriptionID, params); err != nil {
		return nil, pkgerrors.Dependency("stripe", err)
	}
	return s.apply(ctx, member, "subscription.resumed", members.Update{Status: statusPtr(enums.MemberStatusActive)})
}

// Cancel stops renewal at the end of the paid period. Status changes when
// Stripe sends customer.subscription.deleted.
func (s *service) Cancel(ctx context.Context, memberID string) (*Result, error) {
	member, err := s.subscribed(ctx, memberID)
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	sub, err := s.gateway.UpdateSubscription(ctx, member.StripeSubscriptionID, params)
	if err != nil {
		return nil, pkgerrors.Dependency("stripe", err)
	}
	cancelsAt := CancelsAt(sub)
	if cancelsAt == nil {
		s.audit.Record(ctx, audit.Entry{Action: "subscription.cancelled", EntityType: "member", EntityID: member.ID})
		return &Result{Status: member.Status}, nil
	}
	return s.apply(ctx, member, "subscription.cancelled", members.Update{CancelsAt: cancelsAt})
}

func (s *service) PortalSession(ctx context.Context, memberID string) (*PortalSession, error) {
	member, err := s.member(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(member.StripeCustomerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "no billing account on file")
	}
	session, err := s.gateway.CreateBillingPortalSession(ctx, &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(member.StripeCustomerID),
		ReturnURL: stripe.String(s.returnURL),
	})
	if err != nil {
		return nil, pkgerrors.Dependency("stripe", err)
	}
	return &PortalSession{URL: session.URL}, nil
}

// CancelsAt is when a subscription set to cancel will end: the explicit
// cancel_at, else the end of the current period.
func CancelsAt(sub *stripe.Subscription) *time.Time {
	if sub == nil {
		return nil
	}
	if sub.CancelAt > 0 {
		t := time.Unix(sub.CancelAt, 0).UTC()
		return &t
	}
	if !sub.CancelAtPeriodEnd {
		return nil
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].CurrentPeriodEnd > 0 {
		t := time.Unix(sub.Items.Data[0].CurrentPeriodEnd, 0).UTC()
		return &t
	}
	return nil
}

func (s *service) member(ctx context.Context, memberID string) (*members.Member, error) {
	if strings.TrimSpace(memberID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	member, err := s.members.Get(ctx, memberID)
	if err != nil {
		return nil, airtable.MapError(err, "member")
	}
	return member, nil
}

func (s *service) subscribed(ctx context.Context, memberID string) (*members.Member, error) {
	member, err := s.member(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !member.HasSubscription() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "no subscription on file")
	}
	if member.Status == enums.MemberStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription has been cancelled")
	}
	return member, nil
}

func (s *service) apply(ctx context.Context, member *members.Member, action string, update members.Update) (*Result, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"member_id":       member.ID,
		"subscription_id": member.StripeSubscriptionID,
	})
	updated, err := s.members.Update(ctx, member.ID, update)
	if err != nil {
		// Stripe has already changed; the next webhook reconciles the row.
		s.logg.Error(ctx, "billing.member_update_failed", err)
		return nil, airtable.MapError(err, "member")
	}
	details := map[string]any{}
	if update.Status != nil {
		details["status"] = string(*update.Status)
	}
	if update.CancelsAt != nil {
		details["cancels_at"] = update.CancelsAt.Format(time.RFC3339)
	}
	s.audit.Record(ctx, audit.Entry{
		Action:     action,
		EntityType: "member",
		EntityID:   member.ID,
		Details:    details,
	})
	s.logg.Info(ctx, "billing."+strings.TrimPrefix(action, "subscription."))
	return &Result{Status: updated.Status, CancelsAt: updated.CancelsAt}, nil
}

func statusPtr(status enums.MemberStatus) *enums.MemberStatus {
	return &status
}
