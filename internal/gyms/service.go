package gyms

import (
	"context"
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/cache"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
)

const activeKey = "active"

// Service exposes partner gyms to the public site, checkout and ops.
type Service interface {
	ListActive(ctx context.Context) ([]Gym, error)
	Get(ctx context.Context, code string) (*Gym, error)
	// RequireActive fails with a validation error unless code names an active gym.
	RequireActive(ctx context.Context, code string) (*Gym, error)
}

type ServiceParams struct {
	Repository Repository
	CacheTTL   time.Duration
}

type service struct {
	repo   Repository
	active *cache.TTL[string, []Gym]
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gyms repository required")
	}
	return &service{
		repo:   params.Repository,
		active: cache.NewTTL[string, []Gym](params.CacheTTL),
	}, nil
}

func (s *service) ListActive(ctx context.Context) ([]Gym, error) {
	if cached, ok := s.active.Get(activeKey); ok {
		return cached, nil
	}
	list, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, airtable.MapError(err, "gym")
	}
	s.active.Set(activeKey, list)
	return list, nil
}

func (s *service) Get(ctx context.Context, code string) (*Gym, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gym code required")
	}
	gym, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, airtable.MapError(err, "gym")
	}
	return gym, nil
}

func (s *service) RequireActive(ctx context.Context, code string) (*Gym, error) {
	gym, err := s.Get(ctx, code)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown gym").
			WithDetails(map[string]any{"gym": code})
	}
	if err != nil {
		return nil, err
	}
	if !gym.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gym is not accepting members").
			WithDetails(map[string]any{"gym": gym.Code})
	}
	return gym, nil
}
