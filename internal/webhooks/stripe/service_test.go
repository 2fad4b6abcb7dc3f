package stripewebhook

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/freshkit/freshkit-backend/internal/members"
	"github.com/freshkit/freshkit-backend/internal/notify"
	"github.com/freshkit/freshkit-backend/internal/plans"
	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

type stubMembers struct {
	members.Repository
	byCustomer map[string]*members.Member
	byPhone    map[string]*members.Member
	created    []members.NewMember
	updates    map[string][]members.Update
}

func newStubMembers() *stubMembers {
	return &stubMembers{
		byCustomer: map[string]*members.Member{},
		byPhone:    map[string]*members.Member{},
		updates:    map[string][]members.Update{},
	}
}

func (s *stubMembers) FindByStripeCustomer(_ context.Context, id string) (*members.Member, error) {
	if m, ok := s.byCustomer[id]; ok {
		return m, nil
	}
	return nil, airtable.ErrNotFound
}

func (s *stubMembers) FindByPhone(_ context.Context, phone string) (*members.Member, error) {
	if m, ok := s.byPhone[phone]; ok {
		return m, nil
	}
	return nil, airtable.ErrNotFound
}

func (s *stubMembers) Create(_ context.Context, m members.NewMember) (*members.Member, error) {
	s.created = append(s.created, m)
	return &members.Member{ID: "recNew", Name: m.Name, Phone: m.Phone, Email: m.Email, Tier: m.Tier, Status: m.Status}, nil
}

func (s *stubMembers) Update(_ context.Context, id string, update members.Update) (*members.Member, error) {
	s.updates[id] = append(s.updates[id], update)
	return &members.Member{ID: id, Name: "Sam", Phone: "+447700900123"}, nil
}

type stubPlans struct {
	plans.Service
}

func (stubPlans) GetByTier(_ context.Context, tier string) (*plans.Plan, error) {
	switch tier {
	case "starter":
		return &plans.Plan{Name: "Starter", Tier: "starter", DropsPerMonth: 8}, nil
	case "unlimited":
		return &plans.Plan{Name: "Unlimited", Tier: "unlimited", Unlimited: true}, nil
	}
	return nil, pkgerrors.NotFound("plan")
}

func (p stubPlans) Allowance(ctx context.Context, tier string) (int, bool, error) {
	plan, err := p.GetByTier(ctx, tier)
	if err != nil {
		return 0, false, err
	}
	return plan.DropsPerMonth, !plan.Unlimited, nil
}

type recordingNotifier struct {
	sent []notify.Message
	to   []notify.Recipient
}

func (r *recordingNotifier) Notify(_ context.Context, to notify.Recipient, msg notify.Message) notify.Outcome {
	r.sent = append(r.sent, msg)
	r.to = append(r.to, to)
	return notify.Outcome{Channel: enums.NotificationChannelWhatsApp}
}

func (r *recordingNotifier) NotifyOps(context.Context, notify.Message) notify.Outcome {
	return notify.Outcome{Channel: enums.NotificationChannelNone}
}

func newTestService(t *testing.T, repo *stubMembers, notifier *recordingNotifier) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Members:  repo,
		Plans:    stubPlans{},
		Notifier: notifier,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
		App:      config.AppConfig{SiteURL: "https://freshkit.test"},
	})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	svc.now = func() time.Time { return time.Date(2024, 5, 27, 9, 0, 0, 0, time.UTC) }
	return svc
}

func eventOf(t *testing.T, typ stripe.EventType, payload any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &stripe.Event{ID: "evt_1", Type: typ, Data: &stripe.EventData{Raw: raw}}
}

func checkoutPayload(tier string) map[string]any {
	return map[string]any{
		"id":           "cs_1",
		"object":       "checkout.session",
		"customer":     "cus_new",
		"subscription": "sub_new",
		"customer_details": map[string]any{
			"email": "sam@example.com",
		},
		"metadata": map[string]string{
			"name":  "Sam Lee",
			"phone": "+447700900123",
			"gym":   "PG01",
			"tier":  tier,
		},
	}
}

func TestCheckoutCompletedCreatesMember(t *testing.T) {
	repo := newStubMembers()
	notifier := &recordingNotifier{}
	svc := newTestService(t, repo, notifier)

	if err := svc.HandleEvent(context.Background(), eventOf(t, stripe.EventTypeCheckoutSessionCompleted, checkoutPayload("starter"))); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected one member created, got %d", len(repo.created))
	}
	got := repo.created[0]
	if got.Name != "Sam Lee" || got.Phone != "+447700900123" || got.Gym != "PG01" || got.Tier != "starter" {
		t.Fatalf("unexpected member: %+v", got)
	}
	if got.DropsRemaining != 8 || got.Status != enums.MemberStatusActive {
		t.Fatalf("expected active member with 8 drops, got %+v", got)
	}
	if got.StripeCustomerID != "cus_new" || got.StripeSubscriptionID != "sub_new" || got.Email != "sam@example.com" {
		t.Fatalf("stripe ids not recorded: %+v", got)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Template != notify.TemplateWelcome {
		t.Fatalf("expected welcome message, got %+v", notifier.sent)
	}
	if !bytes.Contains([]byte(notifier.sent[0].WhatsApp), []byte("Starter plan")) {
		t.Fatalf("welcome should name the plan: %q", notifier.sent[0].WhatsApp)
	}
}

func TestCheckoutCompletedReactivatesReturningMember(t *testing.T) {
	repo := newStubMembers()
	repo.byPhone["+447700900123"] = &members.Member{ID: "recSam", Status: enums.MemberStatusCancelled, Email: "old@example.com"}
	svc := newTestService(t, repo, &recordingNotifier{})

	if err := svc.HandleEvent(context.Background(), eventOf(t, stripe.EventTypeCheckoutSessionCompleted, checkoutPayload("unlimited"))); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(repo.created) != 0 {
		t.Fatalf("returning member should not be duplicated")
	}
	updates := repo.updates["recSam"]
	if len(updates) != 1 {
		t.Fatalf("expected one update, got %d", len(updates))
	}
	u := updates[0]
	if *u.Status != enums.MemberStatusActive || *u.Tier != "unlimited" || *u.DropsRemaining != 0 {
		t.Fatalf("unexpected reactivation: %+v", u)
	}
	if !u.ClearCancelsAt || *u.StripeCustomerID != "cus_new" {
		t.Fatalf("expected stripe ids and cancel date reset: %+v", u)
	}
	if u.Email != nil {
		t.Fatalf("existing email should be kept")
	}
}

func TestCheckoutCompletedRequiresMetadata(t *testing.T) {
	svc := newTestService(t, newStubMembers(), &recordingNotifier{})
	payload := checkoutPayload("starter")
	payload["metadata"] = map[string]string{}

	err := svc.HandleEvent(context.Background(), eventOf(t, stripe.EventTypeCheckoutSessionCompleted, payload))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubscriptionUpdatedMapsStatus(t *testing.T) {
	periodEnd := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		payload    map[string]any
		wantStatus enums.MemberStatus
		wantCancel bool
	}{
		{
			name: "paused collection",
			payload: map[string]any{
				"id": "sub_1", "customer": "cus_1", "status": "active",
				"pause_collection": map[string]any{"behavior": "void"},
			},
			wantStatus: enums.MemberStatusPaused,
		},
		{
			name: "cancel at period end",
			payload: map[string]any{
				"id": "sub_1", "customer": "cus_1", "status": "active",
				"cancel_at_period_end": true,
				"items": map[string]any{"data": []map[string]any{
					{"current_period_end": periodEnd.Unix()},
				}},
			},
			wantStatus: enums.MemberStatusActive,
			wantCancel: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newStubMembers()
			repo.byCustomer["cus_1"] = &members.Member{ID: "recSam", Status: enums.MemberStatusPaused, StripeSubscriptionID: "sub_1"}
			if tt.wantStatus == enums.MemberStatusPaused {
				repo.byCustomer["cus_1"].Status = enums.MemberStatusActive
			}
			svc := newTestService(t, repo, &recordingNotifier{})

			if err := svc.HandleEvent(context.Background(), eventOf(t, stripe.EventTypeCustomerSubscriptionUpdated, tt.payload)); err != nil {
				t.Fatalf("handle event: %v", err)
			}
			updates := repo.updates["recSam"]
			if len(updates) != 1 {
				t.Fatalf("expected one update, got %d", len(updates))
			}
			if updates[0].Status == nil || *updates[0].Status != tt.wantStatus {
				t.Fatalf("expected status %s, got %+v", tt.wantStatus, updates[0].Status)
			}
			if tt.wantCancel {
				if updates[0].CancelsAt == nil || !updates[0].CancelsAt.Equal(periodEnd) {
					t.Fatalf("expected cancels at %v, got %v", periodEnd, updates[0].CancelsAt)
				}
			}
		})
	}
}

func TestSubscriptionDeletedCancelsMember(t *testing.T) {
	repo := newStubMembers()
	repo.byCustomer["cus_1"] = &members.Member{ID: "recSam", Status: enums.MemberStatusActive}
	svc := newTestService(t, repo, &recordingNotifier{})

	payload := map[string]any{"id": "sub_1", "customer": "cus_1", "status": "canceled"}
	if err := svc.HandleEvent(context.Background(), eventOf(t, stripe.EventTypeCustomerSubscriptionDeleted, payload)); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	updates := repo.updates["recSam"]
	if len(updates) != 1 || *updates[0].Status != enums.MemberStatusCancelled {
		t.Fatalf("expected cancelled update, got %+v", updates)
	}
}

func TestUnknownCustomerIsAcknowledged(t *testing.T) {
	repo := newStubMembers()
	svc := newTestService(t, repo, &recordingNotifier{})

	payload := map[string]any{"id": "sub_9", "customer": "cus_unknown", "status": "canceled"}
	if err := svc.HandleEvent(context.Background(), eventOf(t, stripe.EventTypeCustomerSubscriptionDeleted, payload)); err != nil {
		t.Fatalf("unknown customers should not fail: %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("no member should be updated")
	}
}

func TestInvoicePaidResetsCappedAllowance(t *testing.T) {
	repo := newStubMembers()
	repo.byCustomer["cus_1"] = &members.Member{ID: "recSam", Tier: "starter", DropsRemaining: 2}
	repo.byCustomer["cus_2"] = &members.Member{ID: "recAlex", Tier: "unlimited"}
	svc := newTestService(t, repo, &recordingNotifier{})
	ctx := context.Background()

	if err := svc.HandleEvent(ctx, eventOf(t, stripe.EventTypeInvoicePaid, map[string]any{"id": "in_1", "customer": "cus_1"})); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if err := svc.HandleEvent(ctx, eventOf(t, stripe.EventTypeInvoicePaid, map[string]any{"id": "in_2", "customer": "cus_2"})); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if got := repo.updates["recSam"]; len(got) != 1 || *got[0].DropsRemaining != 8 {
		t.Fatalf("expected allowance reset to 8, got %+v", got)
	}
	if got := repo.updates["recAlex"]; len(got) != 0 {
		t.Fatalf("unlimited tiers are not reset, got %+v", got)
	}
}

func TestIgnoredEventType(t *testing.T) {
	svc := newTestService(t, newStubMembers(), &recordingNotifier{})
	if err := svc.HandleEvent(context.Background(), eventOf(t, stripe.EventTypeChargeRefunded, map[string]any{"id": "ch_1"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.HandleEvent(context.Background(), nil); err == nil {
		t.Fatalf("nil event should fail")
	}
}
