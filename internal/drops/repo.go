package drops

import (
	"context"
	"fmt"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
)

type Repository interface {
	Get(ctx context.Context, id string) (*Drop, error)
	// List reads every matching row, newest first; Limit caps it when positive.
	List(ctx context.Context, filter ListFilter) ([]Drop, error)
	// ListPage reads one page of Limit rows starting at Cursor and returns the
	// cursor of the next page, empty on the last one.
	ListPage(ctx context.Context, filter ListFilter) ([]Drop, string, error)
	Create(ctx context.Context, drop NewDrop) (*Drop, error)
	WriteStatus(ctx context.Context, id string, write StatusWrite) (*Drop, error)
}

// ListFilter narrows drop listings. Blank fields do not filter.
type ListFilter struct {
	Statuses []enums.DropStatus
	Gym      string
	MemberID string
	Limit    int
	Cursor   string
}

func (f ListFilter) formula() string {
	var statuses, gym, member string
	if len(f.Statuses) > 0 {
		values := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			values = append(values, string(s))
		}
		statuses = airtable.In(fieldStatus, values...)
	}
	if f.Gym != "" {
		gym = airtable.EqFold(fieldGym, f.Gym)
	}
	if f.MemberID != "" {
		member = airtable.Eq(fieldMemberID, f.MemberID)
	}
	return airtable.And(statuses, gym, member)
}

type airtableRepository struct {
	store airtable.Store
	table string
}

func NewRepository(store airtable.Store, table string) Repository {
	return &airtableRepository{store: store, table: table}
}

func (r *airtableRepository) Get(ctx context.Context, id string) (*Drop, error) {
	rec, err := r.store.Get(ctx, r.table, id)
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func (r *airtableRepository) List(ctx context.Context, filter ListFilter) ([]Drop, error) {
	recs, err := r.store.List(ctx, r.table, airtable.ListParams{
		Formula:    filter.formula(),
		Sort:       []airtable.Sort{{Field: fieldDropDate, Direction: "desc"}},
		MaxRecords: filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	return dropsFromRecords(recs)
}

func (r *airtableRepository) ListPage(ctx context.Context, filter ListFilter) ([]Drop, string, error) {
	page, err := r.store.ListPage(ctx, r.table, airtable.ListParams{
		Formula:  filter.formula(),
		Sort:     []airtable.Sort{{Field: fieldDropDate, Direction: "desc"}},
		PageSize: filter.Limit,
	}, filter.Cursor)
	if err != nil {
		return nil, "", err
	}
	out, err := dropsFromRecords(page.Records)
	if err != nil {
		return nil, "", err
	}
	return out, page.Offset, nil
}

func dropsFromRecords(recs []airtable.Record) ([]Drop, error) {
	out := make([]Drop, 0, len(recs))
	for _, rec := range recs {
		d, err := dropFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *airtableRepository) Create(ctx context.Context, drop NewDrop) (*Drop, error) {
	fields, err := drop.fields()
	if err != nil {
		return nil, fmt.Errorf("encode drop: %w", err)
	}
	rec, err := r.store.Create(ctx, r.table, fields)
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func (r *airtableRepository) WriteStatus(ctx context.Context, id string, write StatusWrite) (*Drop, error) {
	fields, err := write.fields()
	if err != nil {
		return nil, fmt.Errorf("encode status write: %w", err)
	}
	rec, err := r.store.Update(ctx, r.table, id, fields)
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func decode(rec airtable.Record) (*Drop, error) {
	d, err := dropFromRecord(rec)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
