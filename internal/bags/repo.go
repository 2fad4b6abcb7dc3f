package bags

import (
	"context"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
)

type Repository interface {
	Get(ctx context.Context, id string) (*Bag, error)
	FindByNumber(ctx context.Context, bagNumber string) (*Bag, error)
	// List reads every matching bag in bag number order. A positive Limit
	// caps it.
	List(ctx context.Context, filter ListFilter) ([]Bag, error)
	// ListPage reads Limit bags starting at Cursor and returns the next
	// cursor, empty on the last page.
	ListPage(ctx context.Context, filter ListFilter) ([]Bag, string, error)
	Create(ctx context.Context, bag NewBag) (*Bag, error)
	Update(ctx context.Context, id string, update Update) (*Bag, error)
}

// ListFilter narrows bag listings. Blank fields do not filter.
type ListFilter struct {
	Statuses []enums.BagStatus
	MemberID string
	Limit    int
	Cursor   string
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

func (r *airtableRepository) Get(ctx context.Context, id string) (*Bag, error) {
	rec, err := r.store.Get(ctx, r.table, id)
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

// FindByNumber matches the bag number as text so numeric cells compare too.
func (r *airtableRepository) FindByNumber(ctx context.Context, bagNumber string) (*Bag, error) {
	rec, err := airtable.First(ctx, r.store, r.table, airtable.EqFold(fieldBagNumber, bagNumber))
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func (r *airtableRepository) List(ctx context.Context, filter ListFilter) ([]Bag, error) {
	recs, err := r.store.List(ctx, r.table, airtable.ListParams{
		Formula:    filter.formula(),
		Sort:       []airtable.Sort{{Field: fieldBagNumber}},
		MaxRecords: filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	return bagsFromRecords(recs)
}

func (r *airtableRepository) ListPage(ctx context.Context, filter ListFilter) ([]Bag, string, error) {
	page, err := r.store.ListPage(ctx, r.table, airtable.ListParams{
		Formula:  filter.formula(),
		Sort:     []airtable.Sort{{Field: fieldBagNumber}},
		PageSize: filter.Limit,
	}, filter.Cursor)
	if err != nil {
		return nil, "", err
	}
	out, err := bagsFromRecords(page.Records)
	if err != nil {
		return nil, "", err
	}
	return out, page.Offset, nil
}

func bagsFromRecords(recs []airtable.Record) ([]Bag, error) {
	out := make([]Bag, 0, len(recs))
	for _, rec := range recs {
		b, err := bagFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *airtableRepository) Create(ctx context.Context, bag NewBag) (*Bag, error) {
	rec, err := r.store.Create(ctx, r.table, bag.fields())
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func (r *airtableRepository) Update(ctx context.Context, id string, update Update) (*Bag, error) {
	rec, err := r.store.Update(ctx, r.table, id, update.fields())
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func decode(rec airtable.Record) (*Bag, error) {
	b, err := bagFromRecord(rec)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
