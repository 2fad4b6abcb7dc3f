package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/freshkit/freshkit-backend/internal/billing"
	"github.com/freshkit/freshkit-backend/internal/checkout"
	"github.com/freshkit/freshkit-backend/internal/members"
	"github.com/freshkit/freshkit-backend/internal/notify"
	"github.com/freshkit/freshkit-backend/internal/plans"
	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

const portalPath = "/portal"

type ServiceParams struct {
	Members  members.Repository
	Plans    plans.Service
	Notifier notify.Dispatcher
	Logger   *logger.Logger
	App      config.AppConfig
}

// Service keeps member rows in step with Stripe subscription events.
type Service struct {
	members  members.Repository
	plans    plans.Service
	notifier notify.Dispatcher
	logg     *logger.Logger
	app      config.AppConfig
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Members == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "members repository required")
	}
	if params.Plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plans service required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Service{
		members:  params.Members,
		plans:    params.Plans,
		notifier: params.Notifier,
		logg:     params.Logger,
		app:      params.App,
		now:      time.Now,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": string(event.Type),
	})

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
		}
		return s.checkoutCompleted(ctx, &session)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode subscription event")
		}
		return s.subscriptionUpdated(ctx, &sub)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode subscription event")
		}
		return s.subscriptionDeleted(ctx, &sub)
	case stripe.EventTypeInvoicePaid:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode invoice event")
		}
		return s.invoicePaid(ctx, &invoice)
	default:
		s.logg.Debug(ctx, "stripe.event_ignored")
		return nil
	}
}

// checkoutCompleted creates the member, or reactivates a returning one found by
// Stripe customer or phone.
func (s *Service) checkoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	meta := session.Metadata
	name := strings.TrimSpace(meta[checkout.MetadataName])
	phone := strings.TrimSpace(meta[checkout.MetadataPhone])
	gym := strings.TrimSpace(meta[checkout.MetadataGym])
	tier := strings.TrimSpace(meta[checkout.MetadataTier])
	if phone == "" || tier == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session missing member metadata").
			WithDetails(map[string]any{"session_id": session.ID})
	}
	customerID := expandedID(session.Customer)
	subscriptionID := ""
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
	}
	email := session.CustomerEmail
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		email = session.CustomerDetails.Email
	}

	allowance := s.allowance(ctx, tier)
	existing, err := s.findMember(ctx, customerID, phone)
	if err != nil {
		return err
	}

	var member *members.Member
	if existing != nil {
		active := enums.MemberStatusActive
		update := members.Update{
			Tier:                 &tier,
			Status:               &active,
			DropsRemaining:       &allowance,
			StripeCustomerID:     &customerID,
			StripeSubscriptionID: &subscriptionID,
			ClearCancelsAt:       true,
		}
		if gym != "" {
			update.Gym = &gym
		}
		if email != "" && existing.Email == "" {
			update.Email = &email
		}
		member, err = s.members.Update(ctx, existing.ID, update)
		if err != nil {
			return airtable.MapError(err, "member")
		}
		s.logg.Info(s.logg.WithMemberID(ctx, member.ID), "stripe.member_reactivated")
	} else {
		member, err = s.members.Create(ctx, members.NewMember{
			Name:                 name,
			Phone:                phone,
			Email:                email,
			Gym:                  gym,
			Tier:                 tier,
			Status:               enums.MemberStatusActive,
			DropsRemaining:       allowance,
			StripeCustomerID:     customerID,
			StripeSubscriptionID: subscriptionID,
			Joined:               s.now(),
		})
		if err != nil {
			return airtable.MapError(err, "member")
		}
		s.logg.Info(s.logg.WithMemberID(ctx, member.ID), "stripe.member_created")
	}

	planName := tier
	if plan, err := s.plans.GetByTier(ctx, tier); err == nil && plan.Name != "" {
		planName = plan.Name
	}
	outcome := s.notifier.Notify(ctx,
		notify.Recipient{Name: member.Name, Phone: member.Phone, Email: member.Email},
		notify.Welcome(member.Name, planName, s.app.PortalURL(portalPath)),
	)
	if !outcome.Delivered() {
		s.logg.Warn(s.logg.WithMemberID(ctx, member.ID), "stripe.welcome_not_delivered")
	}
	return nil
}

func (s *Service) subscriptionUpdated(ctx context.Context, sub *stripe.Subscription) error {
	member, err := s.memberForCustomer(ctx, expandedID(sub.Customer))
	if err != nil || member == nil {
		return err
	}

	update := members.Update{}
	if status, ok := statusFor(sub); ok && status != member.Status {
		update.Status = &status
	}
	if cancelsAt := billing.CancelsAt(sub); cancelsAt != nil {
		update.CancelsAt = cancelsAt
	} else if member.CancelsAt != nil {
		update.ClearCancelsAt = true
	}
	if sub.ID != "" && sub.ID != member.StripeSubscriptionID {
		update.StripeSubscriptionID = &sub.ID
	}
	if update.IsEmpty() {
		return nil
	}
	if _, err := s.members.Update(ctx, member.ID, update); err != nil {
		return airtable.MapError(err, "member")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"member_id":           member.ID,
		"subscription_status": string(sub.Status),
	}), "stripe.subscription_synced")
	return nil
}

func (s *Service) subscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	member, err := s.memberForCustomer(ctx, expandedID(sub.Customer))
	if err != nil || member == nil {
		return err
	}
	cancelled := enums.MemberStatusCancelled
	if _, err := s.members.Update(ctx, member.ID, members.Update{Status: &cancelled}); err != nil {
		return airtable.MapError(err, "member")
	}
	s.logg.Info(s.logg.WithMemberID(ctx, member.ID), "stripe.member_cancelled")
	return nil
}

// invoicePaid starts a new billing period: capped tiers get their full allowance back.
func (s *Service) invoicePaid(ctx context.Context, invoice *stripe.Invoice) error {
	member, err := s.memberForCustomer(ctx, expandedID(invoice.Customer))
	if err != nil || member == nil {
		return err
	}
	allowance, capped, err := s.plans.Allowance(ctx, member.Tier)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "tier", member.Tier), "stripe.allowance_unknown")
		return nil
	}
	if !capped || member.DropsRemaining == allowance {
		return nil
	}
	if _, err := s.members.Update(ctx, member.ID, members.Update{DropsRemaining: &allowance}); err != nil {
		return airtable.MapError(err, "member")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"member_id":       member.ID,
		"drops_remaining": allowance,
	}), "stripe.allowance_reset")
	return nil
}

func (s *Service) allowance(ctx context.Context, tier string) int {
	allowance, capped, err := s.plans.Allowance(ctx, tier)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "tier", tier), "stripe.allowance_unknown")
		return 0
	}
	if !capped {
		return 0
	}
	return allowance
}

func (s *Service) findMember(ctx context.Context, customerID, phone string) (*members.Member, error) {
	if customerID != "" {
		member, err := s.members.FindByStripeCustomer(ctx, customerID)
		if err == nil {
			return member, nil
		}
		if !errors.Is(err, airtable.ErrNotFound) {
			return nil, airtable.MapError(err, "member")
		}
	}
	member, err := s.members.FindByPhone(ctx, phone)
	if errors.Is(err, airtable.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, airtable.MapError(err, "member")
	}
	return member, nil
}

// memberForCustomer returns nil without error for customers we do not know,
// so Stripe stops retrying events for accounts created outside checkout.
func (s *Service) memberForCustomer(ctx context.Context, customerID string) (*members.Member, error) {
	if customerID == "" {
		s.logg.Warn(ctx, "stripe.event_without_customer")
		return nil, nil
	}
	member, err := s.members.FindByStripeCustomer(ctx, customerID)
	if errors.Is(err, airtable.ErrNotFound) {
		s.logg.Warn(s.logg.WithField(ctx, "customer_id", customerID), "stripe.unknown_customer")
		return nil, nil
	}
	if err != nil {
		return nil, airtable.MapError(err, "member")
	}
	return member, nil
}

// statusFor treats paused collection as paused even while Stripe still reports active.
func statusFor(sub *stripe.Subscription) (enums.MemberStatus, bool) {
	if sub.PauseCollection != nil {
		return enums.MemberStatusPaused, true
	}
	return enums.SubscriptionStatus(sub.Status).MemberStatus()
}

func expandedID(customer *stripe.Customer) string {
	if customer == nil {
		return ""
	}
	return customer.ID
}
