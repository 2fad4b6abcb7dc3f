package audit

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/airtable/airtabletest"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

func newTestService(t *testing.T, store *airtabletest.Store, buf *bytes.Buffer) *service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	svc, err := NewService(NewRepository(store, "Audit Log"), logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	impl := svc.(*service)
	impl.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return impl
}

func TestNewServiceRequiresDeps(t *testing.T) {
	if _, err := NewService(nil, logger.New(logger.Options{})); err == nil {
		t.Fatal("expected error without repository")
	}
	if _, err := NewService(NewRepository(&airtabletest.Store{}, "Audit Log"), nil); err == nil {
		t.Fatal("expected error without logger")
	}
}

func TestRecordWritesActorFromContext(t *testing.T) {
	store := &airtabletest.Store{}
	svc := newTestService(t, store, &bytes.Buffer{})

	ctx := WithActor(context.Background(), ActorOps)
	svc.Record(ctx, Entry{
		Action:     "drop.status_updated",
		EntityType: "drop",
		EntityID:   "recDrop1",
		Details:    map[string]any{"to": "Ready"},
	})

	creates := store.CallsOf("create")
	if len(creates) != 1 {
		t.Fatalf("expected one create, got %d", len(creates))
	}
	fields := creates[0].Fields
	if fields["Actor"] != ActorOps {
		t.Fatalf("expected actor ops, got %v", fields["Actor"])
	}
	if fields["Timestamp"] != "2024-05-01T12:00:00Z" {
		t.Fatalf("unexpected timestamp %v", fields["Timestamp"])
	}
	if fields["Details"] != `{"to":"Ready"}` {
		t.Fatalf("unexpected details %v", fields["Details"])
	}
}

func TestRecordSwallowsFailures(t *testing.T) {
	store := &airtabletest.Store{
		CreateFn: func(context.Context, string, any) (airtable.Record, error) {
			return airtable.Record{}, errors.New("airtable down")
		},
	}
	buf := &bytes.Buffer{}
	svc := newTestService(t, store, buf)

	svc.Record(context.Background(), Entry{Action: "bag.issued", EntityType: "bag", EntityID: "B-001"})

	if !strings.Contains(buf.String(), "audit.record_failed") {
		t.Fatalf("expected failure to be logged, got %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"audit_action":"bag.issued"`) {
		t.Fatalf("expected audit action in log, got %s", buf.String())
	}
}

func TestListUsesDefaultLimitAndDescendingSort(t *testing.T) {
	store := &airtabletest.Store{
		ListFn: func(_ context.Context, _ string, params airtable.ListParams) ([]airtable.Record, error) {
			return []airtable.Record{
				airtabletest.NewRecord("rec1", entryFields{
					Timestamp: "2024-05-01T10:00:00Z",
					Actor:     "ops",
					Action:    "member.updated",
					Details:   "not json",
				}),
			}, nil
		},
	}
	svc := newTestService(t, store, &bytes.Buffer{})

	entries, err := svc.List(context.Background(), ListParams{EntityType: "member"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "member.updated" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[0].Details["raw"] != "not json" {
		t.Fatalf("expected raw details fallback, got %+v", entries[0].Details)
	}

	call := store.CallsOf("list")[0]
	if call.Params.MaxRecords != 50 {
		t.Fatalf("expected default limit 50, got %d", call.Params.MaxRecords)
	}
	if len(call.Params.Sort) != 1 || call.Params.Sort[0].Direction != "desc" {
		t.Fatalf("expected descending sort, got %+v", call.Params.Sort)
	}
	if call.Params.Formula != `{Entity Type}="member"` {
		t.Fatalf("unexpected formula %q", call.Params.Formula)
	}
}

func TestListRejectsOutOfRangeLimit(t *testing.T) {
	svc := newTestService(t, &airtabletest.Store{}, &bytes.Buffer{})
	_, err := svc.List(context.Background(), ListParams{Limit: 201})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestActorFromDefaultsToSystem(t *testing.T) {
	if got := ActorFrom(context.Background()); got != ActorSystem {
		t.Fatalf("expected system actor, got %s", got)
	}
	if got := ActorFrom(WithActor(context.Background(), MemberActor("rec9"))); got != "member:rec9" {
		t.Fatalf("unexpected actor %s", got)
	}
}
