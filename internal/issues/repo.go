package issues

import (
	"context"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
)

type Repository interface {
	Get(ctx context.Context, id string) (*Issue, error)
	List(ctx context.Context, filter ListFilter) ([]Issue, error)
	Create(ctx context.Context, issue NewIssue) (*Issue, error)
	Update(ctx context.Context, id string, update Update) (*Issue, error)
}

// ListFilter narrows ticket listings. Blank fields do not filter.
type ListFilter struct {
	Statuses []enums.IssueStatus
	MemberID string
	Limit    int
}

func (f ListFilter) formula() string {
	var statuses, member string
	if len(f.Statuses) > 0 {
		values := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			values = append(values, string(s))
		}
		statuses = airtable.In(fieldStatus, values...)
	}
	if f.MemberID != "" {
		member = airtable.Eq(fieldMemberID, f.MemberID)
	}
	return airtable.And(statuses, member)
}

type airtableRepository struct {
	store airtable.Store
	table string
}

func NewRepository(store airtable.Store, table string) Repository {
	return &airtableRepository{store: store, table: table}
}

func (r *airtableRepository) Get(ctx context.Context, id string) (*Issue, error) {
	rec, err := r.store.Get(ctx, r.table, id)
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func (r *airtableRepository) List(ctx context.Context, filter ListFilter) ([]Issue, error) {
	recs, err := r.store.List(ctx, r.table, airtable.ListParams{
		Formula:    filter.formula(),
		Sort:       []airtable.Sort{{Field: fieldCreated, Direction: "desc"}},
		MaxRecords: filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Issue, 0, len(recs))
	for _, rec := range recs {
		i, err := issueFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

func (r *airtableRepository) Create(ctx context.Context, issue NewIssue) (*Issue, error) {
	rec, err := r.store.Create(ctx, r.table, issue.fields())
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func (r *airtableRepository) Update(ctx context.Context, id string, update Update) (*Issue, error) {
	rec, err := r.store.Update(ctx, r.table, id, update.fields())
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func decode(rec airtable.Record) (*Issue, error) {
	i, err := issueFromRecord(rec)
	if err != nil {
		return nil, err
	}
	return &i, nil
}
