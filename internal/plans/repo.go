package plans

import (
	"context"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
)

type Repository interface {
	ListActive(ctx context.Context) ([]Plan, error)
}

type airtableRepository struct {
	store airtable.Store
	table string
}

func NewRepository(store airtable.Store, table string) Repository {
	return &airtableRepository{store: store, table: table}
}

func (r *airtableRepository) ListActive(ctx context.Context) ([]Plan, error) {
	recs, err := r.store.List(ctx, r.table, airtable.ListParams{
		Formula: airtable.Field(fieldActive),
		Sort:    []airtable.Sort{{Field: fieldSortOrder}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]Plan, 0, len(recs))
	for _, rec := range recs {
		plan, err := planFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, plan)
	}
	return out, nil
}
