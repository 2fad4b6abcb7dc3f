package audit

import (
	"context"
	"time"

	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/pagination"
)

// Recorder is the write side other services depend on.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Service records and lists audit entries.
type Service interface {
	Recorder
	List(ctx context.Context, params ListParams) ([]Entry, error)
}

type ListParams struct {
	Limit      int
	EntityType string
	EntityID   string
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, logg: logg, now: time.Now}, nil
}

// Record writes the entry best-effort. Failures are logged and swallowed so an
// audit outage never fails the mutation it describes.
func (s *service) Record(ctx context.Context, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}
	if entry.Actor == "" {
		entry.Actor = ActorFrom(ctx)
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"audit_action": entry.Action,
			"entity_type":  entry.EntityType,
			"entity_id":    entry.EntityID,
		})
		s.logg.Error(logCtx, "audit.record_failed", err)
	}
}

func (s *service) List(ctx context.Context, params ListParams) ([]Entry, error) {
	if params.Limit < 0 || params.Limit > pagination.MaxLimit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "limit must be between 1 and 200")
	}
	entries, err := s.repo.List(ctx, listQuery{
		Limit:      pagination.NormalizeLimit(params.Limit),
		EntityType: params.EntityType,
		EntityID:   params.EntityID,
	})
	if err != nil {
		return nil, pkgerrors.Dependency("airtable", err)
	}
	return entries, nil
}

// Noop discards entries. Used where no audit trail is wired.
type Noop struct{}

func (Noop) Record(context.Context, Entry) {}
