package issues

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/freshkit/freshkit-backend/internal/members"
	"github.com/freshkit/freshkit-backend/internal/notify"
	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/airtable/airtabletest"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 27, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	member []notify.Message
	ops    []notify.Message
}

func (r *recordingNotifier) Notify(_ context.Context, _ notify.Recipient, msg notify.Message) notify.Outcome {
	r.member = append(r.member, msg)
	return notify.Outcome{Channel: enums.NotificationChannelWhatsApp}
}

func (r *recordingNotifier) NotifyOps(_ context.Context, msg notify.Message) notify.Outcome {
	r.ops = append(r.ops, msg)
	return notify.Outcome{Channel: enums.NotificationChannelEmail}
}

type fixture struct {
	svc      Service
	issues   *airtabletest.Store
	notifier *recordingNotifier
}

func newFixture(t *testing.T, existing map[string]map[string]any) fixture {
	t.Helper()
	f := fixture{
		issues: &airtabletest.Store{
			GetFn: func(_ context.Context, _ string, id string) (airtable.Record, error) {
				fields, ok := existing[id]
				if !ok {
					return airtable.Record{}, airtable.ErrNotFound
				}
				return airtabletest.NewRecord(id, fields), nil
			},
		},
		notifier: &recordingNotifier{},
	}
	memberStore := &airtabletest.Store{
		GetFn: func(_ context.Context, _ string, id string) (airtable.Record, error) {
			if id != "recSam" {
				return airtable.Record{}, airtable.ErrNotFound
			}
			return airtabletest.NewRecord(id, map[string]any{"Name": "Sam Smith", "Phone": "+447700900123", "Status": "Active"}), nil
		},
	}
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(f.issues, "Issues"),
		Members:    members.NewRepository(memberStore, "Members"),
		Notifier:   f.notifier,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
	})
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return testNow }
	f.svc = svc
	return f
}

func strPtr(s string) *string { return &s }

func TestCreateForMemberOpensPortalTicketAndAlertsOps(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.CreateForMember(context.Background(), "recSam", MemberIssueInput{
		Type:        "missing_item",
		Description: "One sock short",
		BagNumber:   "B-014",
	})
	require.NoError(t, err)

	fields := f.issues.CallsOf("create")[0].Fields
	assert.Equal(t, "Missing Item", fields["Type"])
	assert.Equal(t, "Open", fields["Status"])
	assert.Equal(t, "Normal", fields["Priority"])
	assert.Equal(t, "Portal", fields["Source"])
	assert.Equal(t, []any{"recSam"}, fields["Member"])
	assert.Equal(t, "2024-05-27T09:00:00Z", fields["Created"])

	require.Len(t, f.notifier.ops, 1)
	assert.Equal(t, notify.TemplateNewTicket, f.notifier.ops[0].Template)
	assert.Contains(t, f.notifier.ops[0].EmailMarkdown, "B-014")
}

func TestCreateForMemberValidates(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.CreateForMember(context.Background(), "recSam", MemberIssueInput{Type: "Lost Cat", Description: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.CreateForMember(context.Background(), "recSam", MemberIssueInput{Type: "Other", Description: "   "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	assert.Empty(t, f.issues.CallsOf("create"))
}

func TestUpdateClosedIsTerminal(t *testing.T) {
	f := newFixture(t, map[string]map[string]any{
		"recI1": {"Type": "Other", "Status": "Closed", "Member": []string{"recSam"}},
	})

	_, err := f.svc.Update(context.Background(), "recI1", UpdateInput{Status: strPtr("Open")})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Empty(t, f.issues.CallsOf("update"))
}

func TestUpdateResolvingStampsAndNotifies(t *testing.T) {
	f := newFixture(t, map[string]map[string]any{
		"recI1": {"Type": "Late Return", "Status": "In Progress", "Member": []string{"recSam"}},
	})

	_, err := f.svc.Update(context.Background(), "recI1", UpdateInput{
		Status:     strPtr("resolved"),
		Resolution: strPtr("Bag found at reception."),
	})
	require.NoError(t, err)

	fields := f.issues.CallsOf("update")[0].Fields
	assert.Equal(t, "Resolved", fields["Status"])
	assert.Equal(t, "2024-05-27T09:00:00Z", fields["Resolved At"])

	require.Len(t, f.notifier.member, 1)
	msg := f.notifier.member[0]
	assert.Equal(t, notify.TemplateTicketUpdate, msg.Template)
	assert.Contains(t, msg.WhatsApp, "resolved")
	assert.Contains(t, msg.WhatsApp, "Bag found at reception.")
}

func TestUpdatePriorityOnlyDoesNotNotify(t *testing.T) {
	f := newFixture(t, map[string]map[string]any{
		"recI1": {"Type": "Other", "Status": "Open", "Member": []string{"recSam"}},
	})

	_, err := f.svc.Update(context.Background(), "recI1", UpdateInput{Priority: strPtr("urgent")})
	require.NoError(t, err)

	fields := f.issues.CallsOf("update")[0].Fields
	assert.Equal(t, map[string]any{"Priority": "Urgent"}, fields)
	assert.Empty(t, f.notifier.member)
}

func TestUpdateRejectsBadInput(t *testing.T) {
	f := newFixture(t, map[string]map[string]any{
		"recI1": {"Type": "Other", "Status": "Open"},
	})

	_, err := f.svc.Update(context.Background(), "recI1", UpdateInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Update(context.Background(), "recI1", UpdateInput{Status: strPtr("Escalated")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Update(context.Background(), "recMissing", UpdateInput{Status: strPtr("Closed")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestOpsCreateUsesOpsSource(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Create(context.Background(), OpsIssueInput{Type: "Bag Problem", Description: "Zip broken", Priority: "High"})
	require.NoError(t, err)

	fields := f.issues.CallsOf("create")[0].Fields
	assert.Equal(t, "Ops", fields["Source"])
	assert.Equal(t, "High", fields["Priority"])
	assert.NotContains(t, fields, "Member")
	assert.Empty(t, f.notifier.ops)
}

func TestListOpenFiltersUnresolved(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.ListOpen(context.Background())
	require.NoError(t, err)

	lists := f.issues.CallsOf("list")
	require.Len(t, lists, 1)
	assert.Equal(t,
		`OR({Status}="Open",{Status}="In Progress",{Status}="Awaiting Customer")`,
		lists[0].Params.Formula,
	)
}
