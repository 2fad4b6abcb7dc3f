package members

import (
	"context"
	"testing"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/airtable/airtabletest"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindByPhoneQuotesInput(t *testing.T) {
	store := &airtabletest.Store{
		ListFn: func(context.Context, string, airtable.ListParams) ([]airtable.Record, error) {
			return []airtable.Record{airtabletest.NewRecord("rec1", map[string]any{
				"Name": "Sam", "Phone": "+447700900123", "Status": "Active", "Drops Remaining": 4,
				"Token Expiry": "2024-05-01T10:00:00.000Z",
			})}, nil
		},
	}
	repo := NewRepository(store, "Members")

	member, err := repo.FindByPhone(context.Background(), `+44"),TRUE(),("`)
	require.NoError(t, err)
	assert.Equal(t, 4, member.DropsRemaining)
	assert.Equal(t, enums.MemberStatusActive, member.Status)
	require.NotNil(t, member.TokenExpiry)

	call := store.CallsOf("list")[0]
	assert.Equal(t, `{Phone}="+44\"),TRUE(),(\""`, call.Params.Formula)
	assert.Equal(t, 1, call.Params.MaxRecords)
}

func TestFindByPhoneNotFound(t *testing.T) {
	repo := NewRepository(&airtabletest.Store{}, "Members")
	_, err := repo.FindByPhone(context.Background(), "+447700900123")
	assert.ErrorIs(t, err, airtable.ErrNotFound)
}

func TestUpdateClearsLoginToken(t *testing.T) {
	store := &airtabletest.Store{}
	repo := NewRepository(store, "Members")

	_, err := repo.Update(context.Background(), "rec1", Update{ClearLoginToken: true})
	require.NoError(t, err)

	fields := store.CallsOf("update")[0].Fields
	require.Contains(t, fields, FieldLoginToken)
	assert.Nil(t, fields[FieldLoginToken])
	assert.Nil(t, fields[FieldTokenExpiry])
	assert.Len(t, fields, 2)
}

func TestListFilterFormula(t *testing.T) {
	filter := ListFilter{Status: enums.MemberStatusPaused, Gym: "pg01", Search: "sam"}
	assert.Equal(t,
		`AND({Status}="Paused",LOWER({Gym}&"")="pg01",OR(SEARCH(LOWER("sam"),LOWER({Name}&"")),SEARCH(LOWER("sam"),LOWER({Email}&"")),SEARCH(LOWER("sam"),LOWER({Phone}&""))))`,
		filter.formula(),
	)
	assert.Equal(t, "", ListFilter{}.formula())
}

func TestCreateWritesOnlySetColumns(t *testing.T) {
	store := &airtabletest.Store{}
	repo := NewRepository(store, "Members")

	_, err := repo.Create(context.Background(), NewMember{
		Name: "Sam", Phone: "+447700900123", Status: enums.MemberStatusActive,
		DropsRemaining: 8, Joined: time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	fields := store.CallsOf("create")[0].Fields
	assert.Equal(t, "2024-04-01T08:00:00Z", fields[FieldJoined])
	assert.NotContains(t, fields, FieldEmail)
	assert.EqualValues(t, 8, fields[FieldDropsRemaining])
}
