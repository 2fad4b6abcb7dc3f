package bags

import (
	"context"
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/internal/audit"
	"github.com/freshkit/freshkit-backend/internal/members"
	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/pagination"
)

// Service runs ops actions on bags, keyed by bag number.
type Service interface {
	Apply(ctx context.Context, bagNumber string, input ActionInput) (*Bag, error)
	Provision(ctx context.Context, input ProvisionInput) (*Bag, error)
	// List returns one page for the ops dashboard.
	List(ctx context.Context, filter ListFilter) (*Page, error)
	// ListAll reads every matching bag, ignoring Limit and Cursor.
	ListAll(ctx context.Context, filter ListFilter) ([]Bag, error)
	Stats(ctx context.Context) (*Stats, error)
}

type ActionInput struct {
	Action    string `json:"action" validate:"required"`
	MemberID  string `json:"member_id" validate:"omitempty,max=32"`
	Condition string `json:"condition" validate:"omitempty,max=32"`
	Notes     string `json:"notes" validate:"max=1000"`
}

type ProvisionInput struct {
	BagNumber string `json:"bag_number" validate:"required,max=32"`
	Condition string `json:"condition" validate:"omitempty,max=32"`
	Notes     string `json:"notes" validate:"max=1000"`
}

// Page is one page of the ops bag listing.
type Page struct {
	Bags       []Bag  `json:"bags"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Stats counts bags per status.
type Stats struct {
	ByStatus map[enums.BagStatus]int `json:"by_status"`
	Total    int                     `json:"total"`
}

type ServiceParams struct {
	Repository Repository
	Members    members.Repository
	Audit      audit.Recorder
	Logger     *logger.Logger
	Location   *time.Location
}

type service struct {
	repo    Repository
	members members.Repository
	audit   audit.Recorder
	logg    *logger.Logger
	loc     *time.Location
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bags repository required")
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
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		repo:    params.Repository,
		members: params.Members,
		audit:   recorder,
		logg:    params.Logger,
		loc:     loc,
		now:     time.Now,
	}, nil
}

// Apply performs one of the five bag actions. Each is a single write; the
// current status is not checked.
func (s *service) Apply(ctx context.Context, bagNumber string, input ActionInput) (*Bag, error) {
	action, err := enums.ParseBagAction(input.Action)
	if err != nil {
		valid := []string{
			string(enums.BagActionIssue),
			string(enums.BagActionMarkInUse),
			string(enums.BagActionReturn),
			string(enums.BagActionMarkUnreturned),
			string(enums.BagActionUpdateCondition),
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bag action").
			WithDetails(map[string]any{"action": input.Action, "valid": valid})
	}

	update, err := s.buildUpdate(ctx, action, input)
	if err != nil {
		return nil, err
	}

	bag, err := s.findByNumber(ctx, bagNumber)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, bag.ID, update)
	if err != nil {
		return nil, airtable.MapError(err, "bag")
	}

	details := map[string]any{"bag_number": bag.BagNumber, "from": string(bag.Status)}
	if update.Status != nil {
		details["to"] = string(*update.Status)
	}
	if update.MemberID != "" {
		details["member_id"] = update.MemberID
	}
	if update.Condition != nil {
		details["condition"] = string(*update.Condition)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"bag_id": bag.ID, "action": string(action)}), "bags.action_applied")
	s.audit.Record(ctx, audit.Entry{
		Action:     "bag." + string(action),
		EntityType: "bag",
		EntityID:   bag.ID,
		Details:    details,
	})
	return updated, nil
}

func (s *service) buildUpdate(ctx context.Context, action enums.BagAction, input ActionInput) (Update, error) {
	today := airtable.FormatDate(s.now(), s.loc)
	var update Update
	if notes := strings.TrimSpace(input.Notes); notes != "" {
		update.Notes = &notes
	}

	switch action {
	case enums.BagActionIssue:
		memberID := strings.TrimSpace(input.MemberID)
		if memberID == "" {
			return Update{}, pkgerrors.New(pkgerrors.CodeValidation, "member_id required to issue a bag")
		}
		if _, err := s.members.Get(ctx, memberID); err != nil {
			return Update{}, airtable.MapError(err, "member")
		}
		update.Status = statusPtr(enums.BagStatusIssued)
		update.MemberID = memberID
		update.IssuedDate = today
	case enums.BagActionMarkInUse:
		update.Status = statusPtr(enums.BagStatusInUse)
	case enums.BagActionReturn:
		update.Status = statusPtr(enums.BagStatusAvailable)
		update.ReturnedDate = today
		update.ClearMember = true
	case enums.BagActionMarkUnreturned:
		update.Status = statusPtr(enums.BagStatusUnreturned)
	case enums.BagActionUpdateCondition:
		condition, err := enums.ParseBagCondition(input.Condition)
		if err != nil {
			return Update{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bag condition").
				WithDetails(map[string]any{"condition": input.Condition})
		}
		update.Condition = &condition
	}
	return update, nil
}

func (s *service) Provision(ctx context.Context, input ProvisionInput) (*Bag, error) {
	number := strings.TrimSpace(input.BagNumber)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bag number required")
	}
	condition := enums.BagConditionGood
	if strings.TrimSpace(input.Condition) != "" {
		parsed, err := enums.ParseBagCondition(input.Condition)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bag condition")
		}
		condition = parsed
	}

	if _, err := s.repo.FindByNumber(ctx, number); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "bag number already exists").
			WithDetails(map[string]any{"bag_number": number})
	} else if !pkgerrors.IsCode(airtable.MapError(err, "bag"), pkgerrors.CodeNotFound) {
		return nil, airtable.MapError(err, "bag")
	}

	bag, err := s.repo.Create(ctx, NewBag{BagNumber: number, Condition: condition, Notes: input.Notes})
	if err != nil {
		return nil, airtable.MapError(err, "bag")
	}
	s.audit.Record(ctx, audit.Entry{
		Action:     "bag.provisioned",
		EntityType: "bag",
		EntityID:   bag.ID,
		Details:    map[string]any{"bag_number": number, "condition": string(condition)},
	})
	return bag, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*Page, error) {
	if err := validateStatuses(filter.Statuses); err != nil {
		return nil, err
	}
	filter.Limit = pagination.NormalizeLimit(filter.Limit)
	list, next, err := s.repo.ListPage(ctx, filter)
	if err != nil {
		return nil, airtable.MapError(err, "bag")
	}
	return &Page{Bags: list, NextCursor: next}, nil
}

func (s *service) ListAll(ctx context.Context, filter ListFilter) ([]Bag, error) {
	if err := validateStatuses(filter.Statuses); err != nil {
		return nil, err
	}
	filter.Limit, filter.Cursor = 0, ""
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, airtable.MapError(err, "bag")
	}
	return list, nil
}

func validateStatuses(statuses []enums.BagStatus) error {
	for _, st := range statuses {
		if !st.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
	}
	return nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	list, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return nil, airtable.MapError(err, "bag")
	}
	stats := &Stats{ByStatus: map[enums.BagStatus]int{
		enums.BagStatusAvailable:  0,
		enums.BagStatusIssued:     0,
		enums.BagStatusInUse:      0,
		enums.BagStatusUnreturned: 0,
		enums.BagStatusDamaged:    0,
	}}
	for _, b := range list {
		stats.ByStatus[b.Status]++
		stats.Total++
	}
	return stats, nil
}

func (s *service) findByNumber(ctx context.Context, bagNumber string) (*Bag, error) {
	number := strings.TrimSpace(bagNumber)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bag number required")
	}
	bag, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, airtable.MapError(err, "bag")
	}
	return bag, nil
}

func statusPtr(s enums.BagStatus) *enums.BagStatus {
	return &s
}
