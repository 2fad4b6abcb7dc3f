package plans

import (
	"context"
	"testing"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/airtable/airtabletest"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planStore() *airtabletest.Store {
	return &airtabletest.Store{
		ListFn: func(context.Context, string, airtable.ListParams) ([]airtable.Record, error) {
			return []airtable.Record{
				airtabletest.NewRecord("recPro", map[string]any{
					"Name": "Pro", "Tier": "pro", "Price": 39, "Currency": "GBP",
					"Drops Per Month": 0, "Stripe Price ID": "price_pro",
					"Features": "Unlimited drops\n- Priority turnaround", "Active": true, "Sort Order": 2,
				}),
				airtabletest.NewRecord("recStarter", map[string]any{
					"Name": "Starter", "Tier": "starter", "Price": "19.5",
					"Drops Per Month": 8, "Stripe Price ID": "price_starter",
					"Features": "8 drops a month\n\n", "Active": true, "Sort Order": 1,
				}),
			}, nil
		},
	}
}

func newTestService(t *testing.T, store *airtabletest.Store) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repository: NewRepository(store, "Plans"), CacheTTL: time.Minute})
	require.NoError(t, err)
	return svc
}

func TestListActiveSortsAndDecodes(t *testing.T) {
	store := planStore()
	svc := newTestService(t, store)

	list, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "starter", list[0].Tier)
	assert.Equal(t, "19.5", list[0].Price.String())
	assert.Equal(t, "£19.50", list[0].PriceDisplay)
	assert.Equal(t, enums.CurrencyGBP, list[0].Currency)
	assert.Equal(t, []string{"8 drops a month"}, list[0].Features)
	assert.False(t, list[0].Unlimited)

	assert.True(t, list[1].Unlimited)
	assert.Equal(t, []string{"Unlimited drops", "Priority turnaround"}, list[1].Features)

	assert.Equal(t, "{Active}", store.CallsOf("list")[0].Params.Formula)
}

func TestListActiveCachesRows(t *testing.T) {
	store := planStore()
	svc := newTestService(t, store)

	_, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	_, err = svc.GetByTier(context.Background(), "PRO")
	require.NoError(t, err)

	assert.Len(t, store.CallsOf("list"), 1)
}

func TestAllowance(t *testing.T) {
	svc := newTestService(t, planStore())

	drops, capped, err := svc.Allowance(context.Background(), "starter")
	require.NoError(t, err)
	assert.True(t, capped)
	assert.Equal(t, 8, drops)

	_, capped, err = svc.Allowance(context.Background(), "pro")
	require.NoError(t, err)
	assert.False(t, capped)

	_, _, err = svc.Allowance(context.Background(), "platinum")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestPurchasable(t *testing.T) {
	assert.True(t, Plan{Active: true, StripePriceID: "price_1"}.Purchasable())
	assert.False(t, Plan{Active: true}.Purchasable())
	assert.False(t, Plan{StripePriceID: "price_1"}.Purchasable())
}
