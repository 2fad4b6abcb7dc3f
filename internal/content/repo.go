package content

import (
	"context"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
)

type Repository interface {
	ListSections(ctx context.Context, page string) ([]Section, error)
}

type airtableRepository struct {
	store airtable.Store
	table string
}

func NewRepository(store airtable.Store, table string) Repository {
	return &airtableRepository{store: store, table: table}
}

func (r *airtableRepository) ListSections(ctx context.Context, page string) ([]Section, error) {
	recs, err := r.store.List(ctx, r.table, airtable.ListParams{
		Formula: airtable.And(airtable.Eq(fieldPage, page), airtable.Field(fieldActive)),
		Sort:    []airtable.Sort{{Field: fieldSortOrder}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]Section, 0, len(recs))
	for _, rec := range recs {
		section, err := sectionFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, section)
	}
	return out, nil
}
