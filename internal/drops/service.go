package drops

import (
	"context"
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/internal/audit"
	"github.com/freshkit/freshkit-backend/internal/members"
	"github.com/freshkit/freshkit-backend/internal/notify"
	"github.com/freshkit/freshkit-backend/internal/plans"
	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/pagination"
)

const (
	defaultPickupWindow = 7 * 24 * time.Hour
	operatorMember      = "member"
)

// Service runs the drop lifecycle for the portal, ops and automations.
type Service interface {
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*StatusResult, error)
	BulkCheckIn(ctx context.Context, input BulkCheckInInput) (*BulkResult, error)
	CreateForMember(ctx context.Context, memberID string, input MemberDropInput) (*Drop, error)
	CreateForOps(ctx context.Context, input OpsDropInput) (*Drop, error)
	// List returns one page for the ops dashboard; NextCursor continues it.
	List(ctx context.Context, filter ListFilter) (*Page, error)
	// ListAll reads every matching drop, ignoring Limit and Cursor. Jobs use it.
	ListAll(ctx context.Context, filter ListFilter) ([]Drop, error)
	ListForMember(ctx context.Context, memberID string) ([]Drop, error)
	Get(ctx context.Context, id string) (*Drop, error)
	Stats(ctx context.Context) (*Stats, error)
	// NotifyReady sends the ready-for-collection message for a drop already marked Ready.
	NotifyReady(ctx context.Context, id string) (*notify.Outcome, error)
	// RemindCollection sends the collection reminder for drop.
	RemindCollection(ctx context.Context, drop Drop) notify.Outcome
}

// Page is one page of the ops drop listing.
type Page struct {
	Drops      []Drop `json:"drops"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type UpdateStatusInput struct {
	DropID         string
	Status         string
	Operator       string
	LaundryPartner string
}

// StatusResult is the updated drop plus the notification outcome when one was attempted.
type StatusResult struct {
	Drop         *Drop           `json:"drop"`
	Correction   bool            `json:"correction"`
	Notification *notify.Outcome `json:"notification,omitempty"`
}

type BulkCheckInInput struct {
	DropIDs  []string
	Status   string
	Operator string
}

type BulkError struct {
	DropID string `json:"drop_id"`
	Error  string `json:"error"`
}

type BulkResult struct {
	Updated int         `json:"updated"`
	Failed  int         `json:"failed"`
	Errors  []BulkError `json:"errors"`
}

type MemberDropInput struct {
	BagNumber string `json:"bag_number" validate:"required,max=32"`
	Notes     string `json:"notes" validate:"max=1000"`
}

type OpsDropInput struct {
	MemberID  string `json:"member_id" validate:"required"`
	BagNumber string `json:"bag_number" validate:"required,max=32"`
	Gym       string `json:"gym" validate:"omitempty,max=32"`
	Notes     string `json:"notes" validate:"max=1000"`
	Operator  string `json:"-"`
}

type ServiceParams struct {
	Repository   Repository
	Members      members.Repository
	Plans        plans.Service
	Notifier     notify.Dispatcher
	Audit        audit.Recorder
	Logger       *logger.Logger
	PickupWindow time.Duration
	Location     *time.Location
}

type service struct {
	repo         Repository
	members      members.Repository
	plans        plans.Service
	notifier     notify.Dispatcher
	audit        audit.Recorder
	logg         *logger.Logger
	pickupWindow time.Duration
	loc          *time.Location
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "drops repository required")
	}
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
	window := params.PickupWindow
	if window <= 0 {
		window = defaultPickupWindow
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	recorder := params.Audit
	if recorder == nil {
		recorder = audit.Noop{}
	}
	return &service{
		repo:         params.Repository,
		members:      params.Members,
		plans:        params.Plans,
		notifier:     params.Notifier,
		audit:        recorder,
		logg:         params.Logger,
		pickupWindow: window,
		loc:          loc,
		now:          time.Now,
	}, nil
}

// UpdateStatus moves a drop to any of the five states. Moves against the
// normal progression are allowed and flagged as corrections in the scan log.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*StatusResult, error) {
	target, err := parseStatus(input.Status)
	if err != nil {
		return nil, err
	}
	return s.applyStatus(ctx, input.DropID, target, ScanActionStatusUpdate, operatorOrDefault(input.Operator), strings.TrimSpace(input.LaundryPartner))
}

func (s *service) applyStatus(ctx context.Context, dropID string, target enums.DropStatus, action, operator, partner string) (*StatusResult, error) {
	current, err := s.Get(ctx, dropID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	correction := target.IsBackwardFrom(current.Status)
	write := StatusWrite{
		Status:         target,
		LaundryPartner: partner,
		ScanLog: appendEntry(current.ScanLog, ScanEntry{
			Timestamp:      now,
			Action:         action,
			Operator:       operator,
			LaundryPartner: partner,
			From:           current.Status,
			To:             target,
			Correction:     correction,
		}),
	}
	switch target {
	case enums.DropStatusReady:
		deadline := now.Add(s.pickupWindow)
		write.ReadyAt = &now
		write.PickupDeadline = &deadline
	case enums.DropStatusCollected:
		write.CollectedAt = &now
	}

	updated, err := s.repo.WriteStatus(ctx, current.ID, write)
	if err != nil {
		return nil, airtable.MapError(err, "drop")
	}
	mergeDenormalized(updated, current)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"drop_id":    current.ID,
		"from":       string(current.Status),
		"to":         string(target),
		"correction": correction,
	})
	s.logg.Info(logCtx, "drops.status_updated")
	s.audit.Record(ctx, audit.Entry{
		Action:     "drop.status_updated",
		EntityType: "drop",
		EntityID:   current.ID,
		Details: map[string]any{
			"from":       string(current.Status),
			"to":         string(target),
			"correction": correction,
			"operator":   operator,
		},
	})

	result := &StatusResult{Drop: updated, Correction: correction}
	if target == enums.DropStatusReady {
		outcome := s.sendReady(ctx, *updated)
		result.Notification = &outcome
	}
	return result, nil
}

// BulkCheckIn applies one status to many drops in order. A failing drop does
// not stop the batch; its error is reported alongside the others.
func (s *service) BulkCheckIn(ctx context.Context, input BulkCheckInInput) (*BulkResult, error) {
	target, err := parseStatus(input.Status)
	if err != nil {
		return nil, err
	}
	if len(input.DropIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "drop_ids required")
	}
	operator := operatorOrDefault(input.Operator)
	result := &BulkResult{Errors: []BulkError{}}
	for _, id := range input.DropIDs {
		if _, err := s.applyStatus(ctx, strings.TrimSpace(id), target, ScanActionBulkCheckIn, operator, ""); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkError{DropID: id, Error: publicMessage(err)})
			continue
		}
		result.Updated++
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"status":  string(target),
		"updated": result.Updated,
		"failed":  result.Failed,
	})
	s.logg.Info(logCtx, "drops.bulk_check_in")
	return result, nil
}

func (s *service) CreateForMember(ctx context.Context, memberID string, input MemberDropInput) (*Drop, error) {
	bag := strings.TrimSpace(input.BagNumber)
	if bag == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bag number required")
	}
	member, err := s.members.Get(ctx, memberID)
	if err != nil {
		return nil, airtable.MapError(err, "member")
	}
	if member.Status != enums.MemberStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "membership is not active")
	}
	capped := s.isCapped(ctx, member.Tier)
	if capped && member.DropsRemaining <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no drops remaining this period").
			WithDetails(map[string]any{"drops_remaining": member.DropsRemaining})
	}

	now := s.now().UTC()
	drop, err := s.repo.Create(ctx, NewDrop{
		BagNumber:   bag,
		MemberID:    member.ID,
		MemberName:  member.Name,
		MemberPhone: member.Phone,
		MemberEmail: member.Email,
		Gym:         member.Gym,
		DropDate:    now,
		Notes:       strings.TrimSpace(input.Notes),
		ScanLog: []ScanEntry{{
			Timestamp: now,
			Action:    ScanActionDropped,
			Operator:  operatorMember,
			To:        enums.DropStatusDropped,
		}},
	})
	if err != nil {
		return nil, airtable.MapError(err, "drop")
	}

	if capped {
		remaining := member.DropsRemaining - 1
		// The drop stands even if the counter write fails; ops can fix the count.
		if _, err := s.members.Update(ctx, member.ID, members.Update{DropsRemaining: &remaining}); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "drop_id", drop.ID), "drops.decrement_failed", err)
		}
	}
	s.audit.Record(ctx, audit.Entry{
		Action:     "drop.created",
		EntityType: "drop",
		EntityID:   drop.ID,
		Details:    map[string]any{"bag_number": bag, "source": "portal"},
	})
	return drop, nil
}

func (s *service) CreateForOps(ctx context.Context, input OpsDropInput) (*Drop, error) {
	bag := strings.TrimSpace(input.BagNumber)
	if bag == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bag number required")
	}
	member, err := s.members.Get(ctx, input.MemberID)
	if err != nil {
		return nil, airtable.MapError(err, "member")
	}
	gym := strings.TrimSpace(input.Gym)
	if gym == "" {
		gym = member.Gym
	}
	now := s.now().UTC()
	drop, err := s.repo.Create(ctx, NewDrop{
		BagNumber:   bag,
		MemberID:    member.ID,
		MemberName:  member.Name,
		MemberPhone: member.Phone,
		MemberEmail: member.Email,
		Gym:         gym,
		DropDate:    now,
		Notes:       strings.TrimSpace(input.Notes),
		ScanLog: []ScanEntry{{
			Timestamp: now,
			Action:    ScanActionDropped,
			Operator:  operatorOrDefault(input.Operator),
			To:        enums.DropStatusDropped,
		}},
	})
	if err != nil {
		return nil, airtable.MapError(err, "drop")
	}
	s.audit.Record(ctx, audit.Entry{
		Action:     "drop.created",
		EntityType: "drop",
		EntityID:   drop.ID,
		Details:    map[string]any{"bag_number": bag, "source": "ops", "member_id": member.ID},
	})
	return drop, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*Page, error) {
	if err := validateStatuses(filter.Statuses); err != nil {
		return nil, err
	}
	filter.Limit = pagination.NormalizeLimit(filter.Limit)
	list, next, err := s.repo.ListPage(ctx, filter)
	if err != nil {
		return nil, airtable.MapError(err, "drop")
	}
	return &Page{Drops: list, NextCursor: next}, nil
}

func (s *service) ListAll(ctx context.Context, filter ListFilter) ([]Drop, error) {
	if err := validateStatuses(filter.Statuses); err != nil {
		return nil, err
	}
	filter.Limit, filter.Cursor = 0, ""
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, airtable.MapError(err, "drop")
	}
	return list, nil
}

func (s *service) ListForMember(ctx context.Context, memberID string) ([]Drop, error) {
	if strings.TrimSpace(memberID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id required")
	}
	list, err := s.repo.List(ctx, ListFilter{MemberID: memberID, Limit: pagination.MaxLimit})
	if err != nil {
		return nil, airtable.MapError(err, "drop")
	}
	return list, nil
}

func validateStatuses(statuses []enums.DropStatus) error {
	for _, st := range statuses {
		if !st.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
	}
	return nil
}

func (s *service) Get(ctx context.Context, id string) (*Drop, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "drop id required")
	}
	drop, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, airtable.MapError(err, "drop")
	}
	return drop, nil
}

func (s *service) NotifyReady(ctx context.Context, id string) (*notify.Outcome, error) {
	drop, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	outcome := s.sendReady(ctx, *drop)
	return &outcome, nil
}

func (s *service) RemindCollection(ctx context.Context, drop Drop) notify.Outcome {
	recipient := s.recipient(ctx, drop)
	return s.notifier.Notify(ctx, recipient, notify.CollectionReminder(recipient.Name, drop.BagNumber, s.deadlineText(drop)))
}

func (s *service) sendReady(ctx context.Context, drop Drop) notify.Outcome {
	recipient := s.recipient(ctx, drop)
	return s.notifier.Notify(ctx, recipient, notify.ReadyForCollection(recipient.Name, drop.BagNumber, drop.Gym, s.deadlineText(drop)))
}

func (s *service) deadlineText(drop Drop) string {
	deadline := drop.PickupDeadline
	if deadline == nil {
		base := s.now()
		if drop.ReadyAt != nil {
			base = *drop.ReadyAt
		}
		computed := base.Add(s.pickupWindow)
		deadline = &computed
	}
	return notify.FormatDeadline(*deadline, s.loc)
}

// recipient prefers the contact copied onto the drop and falls back to the member row.
func (s *service) recipient(ctx context.Context, drop Drop) notify.Recipient {
	r := notify.Recipient{Name: drop.MemberName, Phone: drop.MemberPhone, Email: drop.MemberEmail}
	if (r.Phone != "" || r.Email != "") || drop.MemberID == "" {
		return r
	}
	member, err := s.members.Get(ctx, drop.MemberID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "drop_id", drop.ID), "drops.recipient_lookup_failed")
		return r
	}
	return notify.Recipient{Name: member.Name, Phone: member.Phone, Email: member.Email}
}

func (s *service) isCapped(ctx context.Context, tier string) bool {
	_, capped, err := s.plans.Allowance(ctx, tier)
	if err != nil {
		// Unknown tier: enforce the counter rather than give away drops.
		return true
	}
	return capped
}

func parseStatus(raw string) (enums.DropStatus, error) {
	status, err := enums.ParseDropStatus(raw)
	if err != nil {
		valid := make([]string, 0, 5)
		for _, st := range enums.DropStatuses() {
			valid = append(valid, string(st))
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid drop status").
			WithDetails(map[string]any{"status": raw, "valid": valid})
	}
	return status, nil
}

func operatorOrDefault(operator string) string {
	if strings.TrimSpace(operator) == "" {
		return audit.ActorOps
	}
	return strings.TrimSpace(operator)
}

// The PATCH response only echoes what Airtable returns; keep contact details
// from the row we read so the notification can use them.
func mergeDenormalized(updated, current *Drop) {
	if updated.BagNumber == "" {
		updated.BagNumber = current.BagNumber
	}
	if updated.MemberID == "" {
		updated.MemberID = current.MemberID
	}
	if updated.MemberName == "" {
		updated.MemberName = current.MemberName
	}
	if updated.MemberPhone == "" {
		updated.MemberPhone = current.MemberPhone
	}
	if updated.MemberEmail == "" {
		updated.MemberEmail = current.MemberEmail
	}
	if updated.Gym == "" {
		updated.Gym = current.Gym
	}
}

func publicMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		if typed.Code() == pkgerrors.CodeNotFound || typed.Code() == pkgerrors.CodeValidation {
			return typed.Message()
		}
		return pkgerrors.MetadataFor(typed.Code()).PublicMessage
	}
	return pkgerrors.MetadataFor(pkgerrors.CodeInternal).PublicMessage
}
