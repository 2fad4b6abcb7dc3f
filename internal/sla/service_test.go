package sla

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/freshkit/freshkit-backend/internal/drops"
	"github.com/freshkit/freshkit-backend/internal/issues"
	"github.com/freshkit/freshkit-backend/internal/notify"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDrops struct {
	drops.Repository
	list   []drops.Drop
	filter drops.ListFilter
}

func (s *stubDrops) List(_ context.Context, filter drops.ListFilter) ([]drops.Drop, error) {
	s.filter = filter
	return s.list, nil
}

type stubIssues struct {
	issues.Service
	open []issues.Issue
}

func (s stubIssues) ListOpen(context.Context) ([]issues.Issue, error) {
	return s.open, nil
}

type opsNotifier struct {
	sent []notify.Message
}

func (n *opsNotifier) Notify(context.Context, notify.Recipient, notify.Message) notify.Outcome {
	return notify.Outcome{Channel: enums.NotificationChannelNone}
}

func (n *opsNotifier) NotifyOps(_ context.Context, msg notify.Message) notify.Outcome {
	n.sent = append(n.sent, msg)
	return notify.Outcome{Channel: enums.NotificationChannelEmail}
}

func newTestService(t *testing.T, d *stubDrops, i stubIssues, n *opsNotifier, now time.Time) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Drops:    d,
		Issues:   i,
		Notifier: n,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
	})
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return now }
	return svc
}

func TestReportAsksForInFlightDrops(t *testing.T) {
	d := &stubDrops{}
	svc := newTestService(t, d, stubIssues{}, &opsNotifier{}, time.Now())

	_, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []enums.DropStatus{
		enums.DropStatusDropped,
		enums.DropStatusInTransit,
		enums.DropStatusAtLaundry,
	}, d.filter.Statuses)
}

func TestAlertSummarisesCriticalAndOverdue(t *testing.T) {
	now := time.Date(2024, 5, 27, 12, 0, 0, 0, time.UTC)
	ago := func(h int) *time.Time {
		ts := now.Add(-time.Duration(h) * time.Hour)
		return &ts
	}
	d := &stubDrops{list: []drops.Drop{
		{ID: "a", BagNumber: "B-001", MemberName: "Sam", Status: enums.DropStatusAtLaundry, DropDate: ago(50)},
		{ID: "b", BagNumber: "B-002", Status: enums.DropStatusDropped, DropDate: ago(40)},
		{ID: "c", BagNumber: "B-003", MemberID: "recJo", Status: enums.DropStatusInTransit, DropDate: ago(75)},
	}}
	i := stubIssues{open: []issues.Issue{
		{ID: "i1", Type: enums.IssueTypeMissingItem, MemberName: "Sam", Status: enums.IssueStatusOpen, Created: now.Add(-49 * time.Hour)},
	}}
	n := &opsNotifier{}
	svc := newTestService(t, d, i, n, now)

	result, err := svc.Alert(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Drops)
	assert.Equal(t, 1, result.Issues)
	assert.True(t, result.Sent)

	require.Len(t, n.sent, 1)
	body := n.sent[0].EmailMarkdown
	assert.Contains(t, body, "Bag B-003 (recJo)")
	assert.Contains(t, body, "In Transit for 75h, breached")
	assert.Contains(t, body, "Bag B-001 (Sam)")
	assert.NotContains(t, body, "B-002")
	assert.Contains(t, body, "Missing Item (Sam)")
}

func TestAlertSkipsWhenNothingToReport(t *testing.T) {
	n := &opsNotifier{}
	svc := newTestService(t, &stubDrops{}, stubIssues{}, n, time.Now())

	result, err := svc.Alert(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Sent)
	assert.Empty(t, n.sent)
}
