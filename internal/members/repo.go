package members

import (
	"context"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
)

// Repository is the member table. Lookups return airtable.ErrNotFound when no row matches.
type Repository interface {
	Get(ctx context.Context, id string) (*Member, error)
	FindByPhone(ctx context.Context, phone string) (*Member, error)
	FindByEmail(ctx context.Context, email string) (*Member, error)
	FindByLoginToken(ctx context.Context, token string) (*Member, error)
	FindByStripeCustomer(ctx context.Context, customerID string) (*Member, error)
	List(ctx context.Context, filter ListFilter) ([]Member, error)
	// ListPage reads Limit members starting at Cursor and returns the next
	// cursor, empty on the last page.
	ListPage(ctx context.Context, filter ListFilter) ([]Member, string, error)
	Create(ctx context.Context, member NewMember) (*Member, error)
	Update(ctx context.Context, id string, update Update) (*Member, error)
}

// ListFilter narrows the ops member list. Blank fields do not filter.
type ListFilter struct {
	Status enums.MemberStatus
	Gym    string
	Search string
	Limit  int
	Cursor string
}

func (f ListFilter) formula() string {
	var search string
	if f.Search != "" {
		search = airtable.Or(
			airtable.Search(FieldName, f.Search),
			airtable.Search(FieldEmail, f.Search),
			airtable.Search(FieldPhone, f.Search),
		)
	}
	var status, gym string
	if f.Status != "" {
		status = airtable.Eq(FieldStatus, string(f.Status))
	}
	if f.Gym != "" {
		gym = airtable.EqFold(FieldGym, f.Gym)
	}
	return airtable.And(status, gym, search)
}

type airtableRepository struct {
	store airtable.Store
	table string
}

func NewRepository(store airtable.Store, table string) Repository {
	return &airtableRepository{store: store, table: table}
}

func (r *airtableRepository) Get(ctx context.Context, id string) (*Member, error) {
	rec, err := r.store.Get(ctx, r.table, id)
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func (r *airtableRepository) FindByPhone(ctx context.Context, phone string) (*Member, error) {
	return r.first(ctx, airtable.Eq(FieldPhone, phone))
}

func (r *airtableRepository) FindByEmail(ctx context.Context, email string) (*Member, error) {
	return r.first(ctx, airtable.EqFold(FieldEmail, email))
}

func (r *airtableRepository) FindByLoginToken(ctx context.Context, token string) (*Member, error) {
	if token == "" {
		return nil, airtable.ErrNotFound
	}
	return r.first(ctx, airtable.Eq(FieldLoginToken, token))
}

func (r *airtableRepository) FindByStripeCustomer(ctx context.Context, customerID string) (*Member, error) {
	if customerID == "" {
		return nil, airtable.ErrNotFound
	}
	return r.first(ctx, airtable.Eq(FieldStripeCustomerID, customerID))
}

func (r *airtableRepository) List(ctx context.Context, filter ListFilter) ([]Member, error) {
	recs, err := r.store.List(ctx, r.table, airtable.ListParams{
		Formula:    filter.formula(),
		Sort:       []airtable.Sort{{Field: FieldName}},
		MaxRecords: filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	return membersFromRecords(recs)
}

func (r *airtableRepository) ListPage(ctx context.Context, filter ListFilter) ([]Member, string, error) {
	page, err := r.store.ListPage(ctx, r.table, airtable.ListParams{
		Formula:  filter.formula(),
		Sort:     []airtable.Sort{{Field: FieldName}},
		PageSize: filter.Limit,
	}, filter.Cursor)
	if err != nil {
		return nil, "", err
	}
	out, err := membersFromRecords(page.Records)
	if err != nil {
		return nil, "", err
	}
	return out, page.Offset, nil
}

func membersFromRecords(recs []airtable.Record) ([]Member, error) {
	out := make([]Member, 0, len(recs))
	for _, rec := range recs {
		m, err := memberFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *airtableRepository) Create(ctx context.Context, member NewMember) (*Member, error) {
	rec, err := r.store.Create(ctx, r.table, member.fields())
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func (r *airtableRepository) Update(ctx context.Context, id string, update Update) (*Member, error) {
	rec, err := r.store.Update(ctx, r.table, id, update.fields())
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func (r *airtableRepository) first(ctx context.Context, formula string) (*Member, error) {
	rec, err := airtable.First(ctx, r.store, r.table, formula)
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func decode(rec airtable.Record) (*Member, error) {
	m, err := memberFromRecord(rec)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
