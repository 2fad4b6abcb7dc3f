package plans

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/cache"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
)

const activeKey = "active"

type Service interface {
	ListActive(ctx context.Context) ([]Plan, error)
	GetByTier(ctx context.Context, tier string) (*Plan, error)
	// Allowance is the drops granted per billing period; unlimited tiers report false.
	Allowance(ctx context.Context, tier string) (int, bool, error)
}

type ServiceParams struct {
	Repository Repository
	CacheTTL   time.Duration
}

type service struct {
	repo   Repository
	active *cache.TTL[string, []Plan]
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plans repository required")
	}
	return &service{
		repo:   params.Repository,
		active: cache.NewTTL[string, []Plan](params.CacheTTL),
	}, nil
}

func (s *service) ListActive(ctx context.Context) ([]Plan, error) {
	if cached, ok := s.active.Get(activeKey); ok {
		return cached, nil
	}
	list, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, airtable.MapError(err, "plan")
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].SortOrder != list[j].SortOrder {
			return list[i].SortOrder < list[j].SortOrder
		}
		return list[i].Name < list[j].Name
	})
	s.active.Set(activeKey, list)
	return list, nil
}

func (s *service) GetByTier(ctx context.Context, tier string) (*Plan, error) {
	tier = strings.TrimSpace(tier)
	if tier == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan tier required")
	}
	list, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if strings.EqualFold(list[i].Tier, tier) {
			plan := list[i]
			return &plan, nil
		}
	}
	return nil, pkgerrors.NotFound("plan")
}

func (s *service) Allowance(ctx context.Context, tier string) (int, bool, error) {
	plan, err := s.GetByTier(ctx, tier)
	if err != nil {
		return 0, false, err
	}
	if plan.Unlimited {
		return 0, false, nil
	}
	return plan.DropsPerMonth, true, nil
}
