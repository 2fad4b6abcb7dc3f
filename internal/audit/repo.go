package audit

import (
	"context"
	"fmt"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
)

// Repository persists audit entries.
type Repository interface {
	Create(ctx context.Context, entry Entry) error
	List(ctx context.Context, query listQuery) ([]Entry, error)
}

type listQuery struct {
	Limit      int
	EntityType string
	EntityID   string
}

type airtableRepository struct {
	store airtable.Store
	table string
}

// NewRepository binds the repository to the audit table.
func NewRepository(store airtable.Store, table string) Repository {
	return &airtableRepository{store: store, table: table}
}

func (r *airtableRepository) Create(ctx context.Context, entry Entry) error {
	fields, err := fieldsFromEntry(entry)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	_, err = r.store.Create(ctx, r.table, fields)
	return err
}

func (r *airtableRepository) List(ctx context.Context, query listQuery) ([]Entry, error) {
	formula := airtable.And(
		optionalEq(fieldEntityType, query.EntityType),
		optionalEq(fieldEntityID, query.EntityID),
	)
	recs, err := r.store.List(ctx, r.table, airtable.ListParams{
		Formula:    formula,
		Sort:       []airtable.Sort{{Field: fieldTimestamp, Direction: "desc"}},
		MaxRecords: query.Limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		entry, err := entryFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func optionalEq(field, value string) string {
	if value == "" {
		return ""
	}
	return airtable.Eq(field, value)
}
