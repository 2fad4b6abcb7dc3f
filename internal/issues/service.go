package issues

import (
	"context"
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/internal/audit"
	"github.com/freshkit/freshkit-backend/internal/members"
	"github.com/freshkit/freshkit-backend/internal/notify"
	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/pagination"
)

// Service is the support ticket queue.
type Service interface {
	CreateForMember(ctx context.Context, memberID string, input MemberIssueInput) (*Issue, error)
	ListForMember(ctx context.Context, memberID string) ([]Issue, error)

	List(ctx context.Context, filter ListFilter) ([]Issue, error)
	ListOpen(ctx context.Context) ([]Issue, error)
	Create(ctx context.Context, input OpsIssueInput) (*Issue, error)
	Update(ctx context.Context, id string, input UpdateInput) (*Issue, error)
}

type MemberIssueInput struct {
	Type        string `json:"type" validate:"required,max=64"`
	Description string `json:"description" validate:"required,max=4000"`
	BagNumber   string `json:"bag_number" validate:"omitempty,max=32"`
}

type OpsIssueInput struct {
	MemberID    string `json:"member_id" validate:"omitempty,max=32"`
	Type        string `json:"type" validate:"required,max=64"`
	Description string `json:"description" validate:"required,max=4000"`
	Priority    string `json:"priority" validate:"omitempty,max=16"`
	BagNumber   string `json:"bag_number" validate:"omitempty,max=32"`
}

type UpdateInput struct {
	Status     *string `json:"status"`
	Priority   *string `json:"priority"`
	Resolution *string `json:"resolution" validate:"omitempty,max=4000"`
}

var openStatuses = []enums.IssueStatus{
	enums.IssueStatusOpen,
	enums.IssueStatusInProgress,
	enums.IssueStatusAwaitingCustomer,
}

type ServiceParams struct {
	Repository Repository
	Members    members.Repository
	Notifier   notify.Dispatcher
	Audit      audit.Recorder
	Logger     *logger.Logger
}

type service struct {
	repo     Repository
	members  members.Repository
	notifier notify.Dispatcher
	audit    audit.Recorder
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "issues repository required")
	}
	if params.Members == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "members repository required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	recorder := params.Audit
	if recorder == nil {
		recorder = audit.Noop{}
	}
	return &service{
		repo:     params.Repository,
		members:  params.Members,
		notifier: params.Notifier,
		audit:    recorder,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// CreateForMember opens a portal ticket and alerts the ops mailbox.
func (s *service) CreateForMember(ctx context.Context, memberID string, input MemberIssueInput) (*Issue, error) {
	issueType, err := parseType(input.Type)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	member, err := s.members.Get(ctx, memberID)
	if err != nil {
		return nil, airtable.MapError(err, "member")
	}

	bag := strings.TrimSpace(input.BagNumber)
	issue, err := s.repo.Create(ctx, NewIssue{
		Type:        issueType,
		Description: description,
		Priority:    enums.IssuePriorityNormal,
		MemberID:    member.ID,
		BagNumber:   bag,
		Source:      enums.IssueSourcePortal,
		Created:     s.now().UTC(),
	})
	if err != nil {
		return nil, airtable.MapError(err, "issue")
	}

	s.notifier.NotifyOps(ctx, notify.NewTicket(member.Name, member.ID, string(issueType), description, bag))
	s.logg.Info(s.logg.WithField(ctx, "issue_id", issue.ID), "issues.created")
	return issue, nil
}

func (s *service) ListForMember(ctx context.Context, memberID string) ([]Issue, error) {
	if strings.TrimSpace(memberID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id required")
	}
	return s.List(ctx, ListFilter{MemberID: memberID, Limit: pagination.MaxLimit})
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]Issue, error) {
	for _, st := range filter.Statuses {
		if !st.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
	}
	filter.Limit = pagination.NormalizeLimit(filter.Limit)
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, airtable.MapError(err, "issue")
	}
	return list, nil
}

// ListOpen returns every ticket not yet Resolved or Closed.
func (s *service) ListOpen(ctx context.Context) ([]Issue, error) {
	list, err := s.repo.List(ctx, ListFilter{Statuses: openStatuses})
	if err != nil {
		return nil, airtable.MapError(err, "issue")
	}
	return list, nil
}

func (s *service) Create(ctx context.Context, input OpsIssueInput) (*Issue, error) {
	issueType, err := parseType(input.Type)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	priority := enums.IssuePriorityNormal
	if strings.TrimSpace(input.Priority) != "" {
		if priority, err = parsePriority(input.Priority); err != nil {
			return nil, err
		}
	}
	memberID := strings.TrimSpace(input.MemberID)
	if memberID != "" {
		if _, err := s.members.Get(ctx, memberID); err != nil {
			return nil, airtable.MapError(err, "member")
		}
	}

	issue, err := s.repo.Create(ctx, NewIssue{
		Type:        issueType,
		Description: description,
		Priority:    priority,
		MemberID:    memberID,
		BagNumber:   strings.TrimSpace(input.BagNumber),
		Source:      enums.IssueSourceOps,
		Created:     s.now().UTC(),
	})
	if err != nil {
		return nil, airtable.MapError(err, "issue")
	}
	s.audit.Record(ctx, audit.Entry{
		Action:     "issue.created",
		EntityType: "issue",
		EntityID:   issue.ID,
		Details:    map[string]any{"type": string(issueType), "priority": string(priority), "member_id": memberID},
	})
	return issue, nil
}

// Update changes status, priority or resolution. Closed tickets accept no
// further updates. Moving into Resolved or Closed stamps Resolved At and
// tells the member.
func (s *service) Update(ctx context.Context, id string, input UpdateInput) (*Issue, error) {
	if input.Status == nil && input.Priority == nil && input.Resolution == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	current, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "issue is closed").
			WithDetails(map[string]any{"status": string(current.Status)})
	}

	update := Update{Resolution: input.Resolution}
	if input.Status != nil {
		status, err := enums.ParseIssueStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid issue status")
		}
		update.Status = &status
	}
	if input.Priority != nil {
		priority, err := parsePriority(*input.Priority)
		if err != nil {
			return nil, err
		}
		update.Priority = &priority
	}

	resolving := update.Status != nil && !update.Status.IsOpen() && current.Status.IsOpen()
	if resolving {
		now := s.now().UTC()
		update.ResolvedAt = &now
	}

	updated, err := s.repo.Update(ctx, current.ID, update)
	if err != nil {
		return nil, airtable.MapError(err, "issue")
	}

	details := map[string]any{}
	for key, value := range update.fields() {
		details[key] = value
	}
	details["from"] = string(current.Status)
	s.audit.Record(ctx, audit.Entry{
		Action:     "issue.updated",
		EntityType: "issue",
		EntityID:   current.ID,
		Details:    details,
	})

	if resolving {
		s.notifyMember(ctx, current, *updated)
	}
	return updated, nil
}

func (s *service) notifyMember(ctx context.Context, before *Issue, after Issue) {
	if before.MemberID == "" {
		return
	}
	member, err := s.members.Get(ctx, before.MemberID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "issue_id", before.ID), "issues.member_lookup_failed")
		return
	}
	resolution := after.Resolution
	if resolution == "" {
		resolution = before.Resolution
	}
	s.notifier.Notify(ctx,
		notify.Recipient{Name: member.Name, Phone: member.Phone, Email: member.Email},
		notify.TicketUpdate(member.Name, string(before.Type), string(statusOf(after, *before)), resolution),
	)
}

func (s *service) get(ctx context.Context, id string) (*Issue, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "issue id required")
	}
	issue, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, airtable.MapError(err, "issue")
	}
	return issue, nil
}

// statusOf prefers the echoed status and falls back to the pre-update row.
func statusOf(after, before Issue) enums.IssueStatus {
	if after.Status != "" {
		return after.Status
	}
	return before.Status
}

func parseType(raw string) (enums.IssueType, error) {
	issueType, err := enums.ParseIssueType(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid issue type").
			WithDetails(map[string]any{"type": raw})
	}
	return issueType, nil
}

func parsePriority(raw string) (enums.IssuePriority, error) {
	priority, err := enums.ParseIssuePriority(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid issue priority").
			WithDetails(map[string]any{"priority": raw})
	}
	return priority, nil
}
