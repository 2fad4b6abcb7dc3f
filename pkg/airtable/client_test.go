package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(config.AirtableConfig{
		APIKey:  "pat-test",
		BaseID:  "appBase",
		BaseURL: srv.URL,
	}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	client.http.SetRetryCount(0)
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(config.AirtableConfig{BaseID: "app"}, nil)
	require.Error(t, err)
	_, err = NewClient(config.AirtableConfig{APIKey: "pat"}, nil)
	require.Error(t, err)
}

func TestListFollowsOffsetAndSendsQuery(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "Bearer pat-test", r.Header.Get("Authorization"))
		assert.Equal(t, "/appBase/Page Content", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, `{Page}="home"`, q.Get("filterByFormula"))
		assert.Equal(t, "Sort Order", q.Get("sort[0][field]"))
		assert.Equal(t, "asc", q.Get("sort[0][direction]"))

		w.Header().Set("Content-Type", "application/json")
		if q.Get("offset") == "" {
			_, _ = w.Write([]byte(`{"records":[{"id":"rec1","createdTime":"2026-01-02T10:00:00.000Z","fields":{"Key":"hero"}}],"offset":"itr2"}`))
			return
		}
		assert.Equal(t, "itr2", q.Get("offset"))
		_, _ = w.Write([]byte(`{"records":[{"id":"rec2","fields":{"Key":"faq"}}]}`))
	})

	recs, err := client.List(context.Background(), "Page Content", ListParams{
		Formula: Eq("Page", "home"),
		Sort:    []Sort{{Field: "Sort Order"}},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "rec1", recs[0].ID)

	var fields struct {
		Key string `json:"Key"`
	}
	require.NoError(t, recs[1].Decode(&fields))
	assert.Equal(t, "faq", fields.Key)
}

func TestListStopsAtMaxRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("maxRecords"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records":[{"id":"rec1","fields":{}}],"offset":"more"}`))
	})

	rec, err := client.First(context.Background(), "Members", Eq("Phone", "+447700900123"))
	require.NoError(t, err)
	assert.Equal(t, "rec1", rec.ID)
}

func TestListPageReturnsOnePageAndOffset(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		q := r.URL.Query()
		assert.Equal(t, "25", q.Get("pageSize"))
		assert.Empty(t, q.Get("maxRecords"))
		assert.Equal(t, "itr1", q.Get("offset"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records":[{"id":"rec26","fields":{}}],"offset":"itr2"}`))
	})

	page, err := client.ListPage(context.Background(), "Drops", ListParams{PageSize: 25, MaxRecords: 25}, "itr1")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "itr2", page.Offset)
}

func TestListPageSurfacesExpiredOffset(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"type":"LIST_RECORDS_ITERATOR_NOT_AVAILABLE","message":"expired"}}`))
	})

	_, err := client.ListPage(context.Background(), "Drops", ListParams{}, "stale")
	require.ErrorIs(t, err, ErrInvalidOffset)
}

func TestFirstReturnsNotFoundOnEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records":[]}`))
	})

	_, err := client.First(context.Background(), "Members", Eq("Phone", "+44"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetMapsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"NOT_FOUND"}`))
	})

	_, err := client.Get(context.Background(), "Drops", "recMissing")
	require.ErrorIs(t, err, ErrNotFound)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Type)
}

func TestUpdateSendsPatchWithFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/appBase/Drops/rec42", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fields := body["fields"].(map[string]any)
		assert.Equal(t, "Ready", fields["Status"])
		assert.Equal(t, true, body["typecast"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"rec42","fields":{"Status":"Ready"}}`))
	})

	rec, err := client.Update(context.Background(), "Drops", "rec42", map[string]any{"Status": "Ready"})
	require.NoError(t, err)
	assert.Equal(t, "rec42", rec.ID)
}

func TestCreateSurfacesStructuredError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"type":"INVALID_VALUE_FOR_COLUMN","message":"Field Status cannot accept value"}}`))
	})

	_, err := client.Create(context.Background(), "Drops", map[string]any{"Status": "Lost"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode())
	assert.Equal(t, "INVALID_VALUE_FOR_COLUMN", apiErr.Type)
	assert.Equal(t, "airtable", apiErr.Provider())
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestGetRejectsEmptyID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no request expected")
	})
	_, err := client.Get(context.Background(), "Drops", " ")
	require.ErrorIs(t, err, ErrNotFound)
}
