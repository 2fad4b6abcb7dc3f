package content

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/airtable/airtabletest"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, store *airtabletest.Store, buf *bytes.Buffer) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(store, "Page Content"),
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: buf}),
		CacheTTL:   time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func TestGetPageRendersMarkdownAndCaches(t *testing.T) {
	store := &airtabletest.Store{
		ListFn: func(context.Context, string, airtable.ListParams) ([]airtable.Record, error) {
			return []airtable.Record{
				airtabletest.NewRecord("rec2", map[string]any{"Key": "second", "Page": "home", "Body": "plain", "Active": true, "Sort Order": 2}),
				airtabletest.NewRecord("rec1", map[string]any{"Key": "hero", "Page": "home", "Title": "Hi", "Body": "**bold**", "Active": true, "Sort Order": 1}),
			}, nil
		},
	}
	svc := newTestService(t, store, &bytes.Buffer{})

	page, err := svc.GetPage(context.Background(), "Home")
	require.NoError(t, err)
	require.Len(t, page.Sections, 2)
	assert.False(t, page.Fallback)
	assert.Equal(t, "hero", page.Sections[0].Key)
	assert.Contains(t, page.Sections[0].HTML, "<strong>bold</strong>")

	_, err = svc.GetPage(context.Background(), "home")
	require.NoError(t, err)
	assert.Len(t, store.CallsOf("list"), 1)
	assert.Equal(t, `AND({Page}="home",{Active})`, store.CallsOf("list")[0].Params.Formula)
}

func TestGetPageFallsBackToDefaultsOnFailure(t *testing.T) {
	store := &airtabletest.Store{
		ListFn: func(context.Context, string, airtable.ListParams) ([]airtable.Record, error) {
			return nil, errors.New("airtable unavailable")
		},
	}
	buf := &bytes.Buffer{}
	svc := newTestService(t, store, buf)

	page, err := svc.GetPage(context.Background(), "faq")
	require.NoError(t, err)
	assert.True(t, page.Fallback)
	assert.NotEmpty(t, page.Sections)
	assert.True(t, strings.Contains(buf.String(), "content.fetch_failed"))

	// Fallbacks are not cached; the next call retries the table.
	_, _ = svc.GetPage(context.Background(), "faq")
	assert.Len(t, store.CallsOf("list"), 2)
}

func TestGetPageUnknownPage(t *testing.T) {
	svc := newTestService(t, &airtabletest.Store{}, &bytes.Buffer{})
	_, err := svc.GetPage(context.Background(), "careers")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	failing := &airtabletest.Store{
		ListFn: func(context.Context, string, airtable.ListParams) ([]airtable.Record, error) {
			return nil, errors.New("boom")
		},
	}
	svc = newTestService(t, failing, &bytes.Buffer{})
	_, err = svc.GetPage(context.Background(), "careers")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestGetPageRejectsBadSlug(t *testing.T) {
	svc := newTestService(t, &airtabletest.Store{}, &bytes.Buffer{})
	_, err := svc.GetPage(context.Background(), `home") , TRUE(`)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
