package billing

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/freshkit/freshkit-backend/internal/audit"
	"github.com/freshkit/freshkit-backend/internal/members"
	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/stripe/stripetest"
)

type stubMembers struct {
	members.Repository
	byID    map[string]*members.Member
	updates []members.Update
}

func (s *stubMembers) Get(_ context.Context, id string) (*members.Member, error) {
	m, ok := s.byID[id]
	if !ok {
		return nil, airtable.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *stubMembers) Update(_ context.Context, id string, update members.Update) (*members.Member, error) {
	s.updates = append(s.updates, update)
	m := s.byID[id]
	if update.Status != nil {
		m.Status = *update.Status
	}
	if update.CancelsAt != nil {
		m.CancelsAt = update.CancelsAt
	}
	copied := *m
	return &copied, nil
}

type recordingAudit struct {
	entries []audit.Entry
}

func (r *recordingAudit) Record(_ context.Context, entry audit.Entry) {
	r.entries = append(r.entries, entry)
}

type fixture struct {
	svc     Service
	gateway *stripetest.Gateway
	members *stubMembers
	audit   *recordingAudit
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		gateway: &stripetest.Gateway{},
		members: &stubMembers{byID: map[string]*members.Member{
			"recActive": {ID: "recActive", Status: enums.MemberStatusActive, StripeCustomerID: "cus_1", StripeSubscriptionID: "sub_1"},
			"recPaused": {ID: "recPaused", Status: enums.MemberStatusPaused, StripeCustomerID: "cus_2", StripeSubscriptionID: "sub_2"},
			"recManual": {ID: "recManual", Status: enums.MemberStatusActive},
			"recGone":   {ID: "recGone", Status: enums.MemberStatusCancelled, StripeCustomerID: "cus_3", StripeSubscriptionID: "sub_3"},
		}},
		audit: &recordingAudit{},
	}
	svc, err := NewService(ServiceParams{
		Gateway: f.gateway,
		Members: f.members,
		Audit:   f.audit,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
		App:     config.AppConfig{SiteURL: "https://freshkit.test"},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestPauseVoidsCollectionAndPausesMember(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Pause(context.Background(), "recActive")
	require.NoError(t, err)
	assert.Equal(t, enums.MemberStatusPaused, res.Status)

	updates := f.gateway.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, "sub_1", updates[0].ID)
	require.NotNil(t, updates[0].Params.PauseCollection)
	assert.Equal(t, "void", *updates[0].Params.PauseCollection.Behavior)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "subscription.paused", f.audit.entries[0].Action)
}

func TestPauseRequiresActiveMember(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Pause(context.Background(), "recPaused")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Empty(t, f.gateway.Updates())
}

func TestResumeClearsPause(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Resume(context.Background(), "recPaused")
	require.NoError(t, err)
	assert.Equal(t, enums.MemberStatusActive, res.Status)

	updates := f.gateway.Updates()
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].Params.Extra)
	assert.True(t, updates[0].Params.Extra.Has("pause_collection"))
	assert.Equal(t, "", updates[0].Params.Extra.Get("pause_collection"))
}

func TestCancelRecordsPeriodEnd(t *testing.T) {
	f := newFixture(t)
	periodEnd := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	f.gateway.UpdateSubscriptionFn = func(_ context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
		require.True(t, *params.CancelAtPeriodEnd)
		return &stripe.Subscription{
			ID:                id,
			CancelAtPeriodEnd: true,
			Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{
				{CurrentPeriodEnd: periodEnd.Unix()},
			}},
		}, nil
	}

	res, err := f.svc.Cancel(context.Background(), "recActive")
	require.NoError(t, err)
	assert.Equal(t, enums.MemberStatusActive, res.Status)
	require.NotNil(t, res.CancelsAt)
	assert.True(t, res.CancelsAt.Equal(periodEnd))
	require.Len(t, f.members.updates, 1)
	assert.Nil(t, f.members.updates[0].Status)
}

func TestBillingRequiresSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Pause(ctx, "recManual")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	_, err = f.svc.Cancel(ctx, "recManual")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	_, err = f.svc.PortalSession(ctx, "recManual")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	_, err = f.svc.Resume(ctx, "recGone")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	_, err = f.svc.Pause(ctx, "recMissing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestStripeFailureLeavesMemberUntouched(t *testing.T) {
	f := newFixture(t)
	f.gateway.UpdateSubscriptionFn = func(context.Context, string, *stripe.SubscriptionParams) (*stripe.Subscription, error) {
		return nil, errors.New("card_declined")
	}

	_, err := f.svc.Pause(context.Background(), "recActive")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Empty(t, f.members.updates)
	assert.Empty(t, f.audit.entries)
}

func TestPortalSessionUsesCustomerAndReturnURL(t *testing.T) {
	f := newFixture(t)
	var captured *stripe.BillingPortalSessionParams
	f.gateway.CreateBillingPortalSessionFn = func(_ context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
		captured = params
		return &stripe.BillingPortalSession{URL: "https://billing.stripe.test/p/1"}, nil
	}

	session, err := f.svc.PortalSession(context.Background(), "recActive")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.test/p/1", session.URL)
	assert.Equal(t, "cus_1", *captured.Customer)
	assert.Equal(t, "https://freshkit.test/portal", *captured.ReturnURL)
}

func TestCancelsAt(t *testing.T) {
	explicit := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	assert.Nil(t, CancelsAt(nil))
	assert.Nil(t, CancelsAt(&stripe.Subscription{}))
	got := CancelsAt(&stripe.Subscription{CancelAt: explicit.Unix()})
	require.NotNil(t, got)
	assert.True(t, got.Equal(explicit))
}
