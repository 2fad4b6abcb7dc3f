// Package airtabletest provides an in-memory airtable.Store for repository tests.
package airtabletest

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/airtable"
)

// Call records one request made against the Store.
type Call struct {
	Op     string
	Table  string
	ID     string
	Params airtable.ListParams
	Offset string
	Fields map[string]any
}

// Store stubs airtable.Store. Unset funcs fall back to simple defaults:
// empty lists, not-found gets, and writes echoed back as records. Without
// ListPageFn, ListPage pages over the ListFn result with numeric offsets.
type Store struct {
	ListFn     func(ctx context.Context, table string, params airtable.ListParams) ([]airtable.Record, error)
	ListPageFn func(ctx context.Context, table string, params airtable.ListParams, offset string) (airtable.Page, error)
	GetFn      func(ctx context.Context, table, id string) (airtable.Record, error)
	CreateFn   func(ctx context.Context, table string, fields any) (airtable.Record, error)
	UpdateFn   func(ctx context.Context, table, id string, fields any) (airtable.Record, error)

	mu    sync.Mutex
	calls []Call
}

var _ airtable.Store = (*Store)(nil)

func (s *Store) List(ctx context.Context, table string, params airtable.ListParams) ([]airtable.Record, error) {
	s.record(Call{Op: "list", Table: table, Params: params})
	if s.ListFn != nil {
		return s.ListFn(ctx, table, params)
	}
	return nil, nil
}

func (s *Store) ListPage(ctx context.Context, table string, params airtable.ListParams, offset string) (airtable.Page, error) {
	s.record(Call{Op: "list_page", Table: table, Params: params, Offset: offset})
	if s.ListPageFn != nil {
		return s.ListPageFn(ctx, table, params, offset)
	}
	var all []airtable.Record
	if s.ListFn != nil {
		recs, err := s.ListFn(ctx, table, airtable.ListParams{Formula: params.Formula, Sort: params.Sort})
		if err != nil {
			return airtable.Page{}, err
		}
		all = recs
	}
	start := 0
	if offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 || n > len(all) {
			return airtable.Page{}, &airtable.APIError{Status: 422, Type: "LIST_RECORDS_ITERATOR_NOT_AVAILABLE"}
		}
		start = n
	}
	size := params.PageSize
	if size <= 0 || size > 100 {
		size = 100
	}
	end := start + size
	if end >= len(all) {
		return airtable.Page{Records: all[start:]}, nil
	}
	return airtable.Page{Records: all[start:end], Offset: strconv.Itoa(end)}, nil
}

func (s *Store) Get(ctx context.Context, table, id string) (airtable.Record, error) {
	s.record(Call{Op: "get", Table: table, ID: id})
	if s.GetFn != nil {
		return s.GetFn(ctx, table, id)
	}
	return airtable.Record{}, airtable.ErrNotFound
}

func (s *Store) Create(ctx context.Context, table string, fields any) (airtable.Record, error) {
	s.record(Call{Op: "create", Table: table, Fields: toMap(fields)})
	if s.CreateFn != nil {
		return s.CreateFn(ctx, table, fields)
	}
	return NewRecord("recCreated", fields), nil
}

func (s *Store) Update(ctx context.Context, table, id string, fields any) (airtable.Record, error) {
	s.record(Call{Op: "update", Table: table, ID: id, Fields: toMap(fields)})
	if s.UpdateFn != nil {
		return s.UpdateFn(ctx, table, id, fields)
	}
	return NewRecord(id, fields), nil
}

// Calls returns a copy of the recorded calls.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsOf filters recorded calls by operation.
func (s *Store) CallsOf(op string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) record(c Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

// NewRecord builds a record whose fields are the JSON encoding of fields.
func NewRecord(id string, fields any) airtable.Record {
	raw, _ := json.Marshal(fields)
	return airtable.Record{ID: id, CreatedTime: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), Fields: raw}
}

func toMap(fields any) map[string]any {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
