package content

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/cache"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

var pageSlug = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// Service serves marketing page copy.
type Service interface {
	GetPage(ctx context.Context, page string) (*Page, error)
}

type ServiceParams struct {
	Repository Repository
	Logger     *logger.Logger
	CacheTTL   time.Duration
}

type service struct {
	repo  Repository
	logg  *logger.Logger
	pages *cache.TTL[string, Page]
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "content repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:  params.Repository,
		logg:  params.Logger,
		pages: cache.NewTTL[string, Page](params.CacheTTL),
	}, nil
}

// GetPage returns the active sections of page. When the table is unreachable
// the built-in copy is served instead and the failure is only logged.
func (s *service) GetPage(ctx context.Context, page string) (*Page, error) {
	page = strings.ToLower(strings.TrimSpace(page))
	if !pageSlug.MatchString(page) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid page")
	}
	if cached, ok := s.pages.Get(page); ok {
		return &cached, nil
	}

	sections, err := s.repo.ListSections(ctx, page)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "page", page), "content.fetch_failed", err)
		if fallback, ok := defaultPage(page); ok {
			return &fallback, nil
		}
		return nil, pkgerrors.Dependency("airtable", err)
	}
	if len(sections) == 0 {
		if fallback, ok := defaultPage(page); ok {
			return &fallback, nil
		}
		return nil, pkgerrors.NotFound("page")
	}

	sort.SliceStable(sections, func(i, j int) bool { return sections[i].SortOrder < sections[j].SortOrder })
	result := Page{Page: page, Sections: sections}
	s.pages.Set(page, result)
	return &result, nil
}
