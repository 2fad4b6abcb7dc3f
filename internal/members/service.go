package members

import (
	"context"
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/internal/audit"
	"github.com/freshkit/freshkit-backend/internal/gyms"
	"github.com/freshkit/freshkit-backend/internal/plans"
	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/freshkit/freshkit-backend/pkg/pagination"
	"github.com/freshkit/freshkit-backend/pkg/phone"
)

// Service covers the member's own profile and the ops member screens.
type Service interface {
	Profile(ctx context.Context, memberID string) (*Profile, error)
	UpdateProfile(ctx context.Context, memberID string, input ProfileInput) (*Member, error)

	List(ctx context.Context, filter ListFilter) (*Page, error)
	Get(ctx context.Context, id string) (*Member, error)
	Create(ctx context.Context, input CreateInput) (*Member, error)
	Update(ctx context.Context, id string, input OpsUpdateInput) (*Member, error)
}

// Page is one page of the ops member listing.
type Page struct {
	Members    []Member `json:"members"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// Profile is what the portal shows on the account page.
type Profile struct {
	Member Member      `json:"member"`
	Gym    *gyms.Gym   `json:"gym,omitempty"`
	Plan   *plans.Plan `json:"plan,omitempty"`
}

type ProfileInput struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=120"`
	Email *string `json:"email" validate:"omitempty,email,max=254"`
	Gym   *string `json:"gym" validate:"omitempty,max=32"`
}

type CreateInput struct {
	Name           string `json:"name" validate:"required,max=120"`
	Phone          string `json:"phone" validate:"required,max=32"`
	Email          string `json:"email" validate:"omitempty,email,max=254"`
	Gym            string `json:"gym" validate:"required,max=32"`
	Tier           string `json:"tier" validate:"required,max=32"`
	Status         string `json:"status" validate:"omitempty"`
	DropsRemaining *int   `json:"drops_remaining" validate:"omitempty,min=0"`
}

type OpsUpdateInput struct {
	Status         *string `json:"status"`
	DropsRemaining *int    `json:"drops_remaining" validate:"omitempty,min=0"`
	Tier           *string `json:"tier" validate:"omitempty,max=32"`
}

type ServiceParams struct {
	Repository         Repository
	Gyms               gyms.Service
	Plans              plans.Service
	Audit              audit.Recorder
	Logger             *logger.Logger
	DefaultCountryCode string
}

type service struct {
	repo      Repository
	gyms      gyms.Service
	plans     plans.Service
	audit     audit.Recorder
	logg      *logger.Logger
	countryCC string
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "members repository required")
	}
	if params.Gyms == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gyms service required")
	}
	if params.Plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plans service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	recorder := params.Audit
	if recorder == nil {
		recorder = audit.Noop{}
	}
	return &service{
		repo:      params.Repository,
		gyms:      params.Gyms,
		plans:     params.Plans,
		audit:     recorder,
		logg:      params.Logger,
		countryCC: params.DefaultCountryCode,
		now:       time.Now,
	}, nil
}

func (s *service) Profile(ctx context.Context, memberID string) (*Profile, error) {
	member, err := s.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}
	profile := &Profile{Member: *member}
	// Gym and plan are decoration; the profile still renders without them.
	if member.Gym != "" {
		if gym, err := s.gyms.Get(ctx, member.Gym); err == nil {
			profile.Gym = gym
		} else if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(s.logg.WithField(ctx, "gym", member.Gym), "members.profile_gym_lookup_failed")
		}
	}
	if member.Tier != "" {
		if plan, err := s.plans.GetByTier(ctx, member.Tier); err == nil {
			profile.Plan = plan
		}
	}
	return profile, nil
}

func (s *service) UpdateProfile(ctx context.Context, memberID string, input ProfileInput) (*Member, error) {
	update := Update{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		update.Name = &name
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		update.Email = &email
	}
	if input.Gym != nil {
		gym, err := s.gyms.RequireActive(ctx, *input.Gym)
		if err != nil {
			return nil, err
		}
		update.Gym = &gym.Code
	}
	if update.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	member, err := s.repo.Update(ctx, memberID, update)
	if err != nil {
		return nil, airtable.MapError(err, "member")
	}
	s.audit.Record(ctx, audit.Entry{
		Action:     "member.profile_updated",
		EntityType: "member",
		EntityID:   memberID,
		Details:    changedFields(update),
	})
	return member, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*Page, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Limit = pagination.NormalizeLimit(filter.Limit)
	list, next, err := s.repo.ListPage(ctx, filter)
	if err != nil {
		return nil, airtable.MapError(err, "member")
	}
	return &Page{Members: list, NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, id string) (*Member, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id required")
	}
	member, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, airtable.MapError(err, "member")
	}
	return member, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Member, error) {
	normalized, err := phone.Normalize(input.Phone, s.countryCC)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid phone number")
	}
	status := enums.MemberStatusActive
	if input.Status != "" {
		if status, err = enums.ParseMemberStatus(input.Status); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
	}
	gym, err := s.gyms.Get(ctx, input.Gym)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown gym")
		}
		return nil, err
	}
	plan, err := s.plans.GetByTier(ctx, input.Tier)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown plan tier")
		}
		return nil, err
	}

	if _, err := s.repo.FindByPhone(ctx, normalized); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a member with this phone already exists")
	} else if !airtableNotFound(err) {
		return nil, airtable.MapError(err, "member")
	}

	drops := plan.DropsPerMonth
	if input.DropsRemaining != nil {
		drops = *input.DropsRemaining
	}
	member, err := s.repo.Create(ctx, NewMember{
		Name:           strings.TrimSpace(input.Name),
		Phone:          normalized,
		Email:          strings.ToLower(strings.TrimSpace(input.Email)),
		Gym:            gym.Code,
		Tier:           plan.Tier,
		Status:         status,
		DropsRemaining: drops,
		Joined:         s.now().UTC(),
	})
	if err != nil {
		return nil, airtable.MapError(err, "member")
	}
	s.audit.Record(ctx, audit.Entry{
		Action:     "member.created",
		EntityType: "member",
		EntityID:   member.ID,
		Details:    map[string]any{"tier": plan.Tier, "gym": gym.Code},
	})
	return member, nil
}

func (s *service) Update(ctx context.Context, id string, input OpsUpdateInput) (*Member, error) {
	update := Update{DropsRemaining: input.DropsRemaining}
	if input.DropsRemaining != nil && *input.DropsRemaining < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "drops remaining cannot be negative")
	}
	if input.Status != nil {
		status, err := enums.ParseMemberStatus(*input.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		update.Status = &status
	}
	if input.Tier != nil {
		plan, err := s.plans.GetByTier(ctx, *input.Tier)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown plan tier")
			}
			return nil, err
		}
		update.Tier = &plan.Tier
	}
	if update.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	member, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, airtable.MapError(err, "member")
	}
	s.audit.Record(ctx, audit.Entry{
		Action:     "member.updated",
		EntityType: "member",
		EntityID:   id,
		Details:    changedFields(update),
	})
	return member, nil
}

func changedFields(update Update) map[string]any {
	out := map[string]any{}
	for key, value := range update.fields() {
		// Never copy login material into the audit log.
		if key == FieldLoginToken || key == FieldTokenExpiry {
			continue
		}
		out[key] = value
	}
	return out
}

func airtableNotFound(err error) bool {
	return err != nil && pkgerrors.IsCode(airtable.MapError(err, "member"), pkgerrors.CodeNotFound)
}
