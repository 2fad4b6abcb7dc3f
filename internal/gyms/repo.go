package gyms

import (
	"context"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
)

type Repository interface {
	ListActive(ctx context.Context) ([]Gym, error)
	FindByCode(ctx context.Context, code string) (*Gym, error)
}

type airtableRepository struct {
	store airtable.Store
	table string
}

func NewRepository(store airtable.Store, table string) Repository {
	return &airtableRepository{store: store, table: table}
}

func (r *airtableRepository) ListActive(ctx context.Context) ([]Gym, error) {
	recs, err := r.store.List(ctx, r.table, airtable.ListParams{
		Formula: airtable.Eq(fieldStatus, string(enums.GymStatusActive)),
		Sort:    []airtable.Sort{{Field: fieldName}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]Gym, 0, len(recs))
	for _, rec := range recs {
		gym, err := gymFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, gym)
	}
	return out, nil
}

func (r *airtableRepository) FindByCode(ctx context.Context, code string) (*Gym, error) {
	rec, err := airtable.First(ctx, r.store, r.table, airtable.EqFold(fieldCode, code))
	if err != nil {
		return nil, err
	}
	gym, err := gymFromRecord(rec)
	if err != nil {
		return nil, err
	}
	return &gym, nil
}
