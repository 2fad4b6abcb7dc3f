package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/freshkit/freshkit-backend/pkg/logger"
	"github.com/go-resty/resty/v2"
)

const (
	maxPageSize      = 100
	defaultTimeout   = 15 * time.Second
	providerAirtable = "airtable"
)

// ErrNotFound is matched (errors.Is) by any 404 returned from the API.
var ErrNotFound = errors.New("airtable: record not found")

// ErrInvalidOffset is matched when a page offset is unknown or has expired.
var ErrInvalidOffset = errors.New("airtable: invalid or expired offset")

// Record is one row of a table. Fields stay raw so each domain package decodes
// into its own struct.
type Record struct {
	ID          string          `json:"id"`
	CreatedTime time.Time       `json:"createdTime"`
	Fields      json.RawMessage `json:"fields"`
}

// Decode unmarshals the record fields into v.
func (r Record) Decode(v any) error {
	if len(r.Fields) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Fields, v); err != nil {
		return fmt.Errorf("decode record %s: %w", r.ID, err)
	}
	return nil
}

type Sort struct {
	Field     string
	Direction string // asc or desc
}

type ListParams struct {
	Formula    string
	Sort       []Sort
	Fields     []string
	View       string
	PageSize   int
	MaxRecords int
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	if p.Formula != "" {
		q.Set("filterByFormula", p.Formula)
	}
	for i, s := range p.Sort {
		q.Set(fmt.Sprintf("sort[%d][field]", i), s.Field)
		dir := strings.ToLower(s.Direction)
		if dir != "desc" {
			dir = "asc"
		}
		q.Set(fmt.Sprintf("sort[%d][direction]", i), dir)
	}
	for _, f := range p.Fields {
		q.Add("fields[]", f)
	}
	if p.View != "" {
		q.Set("view", p.View)
	}
	size := p.PageSize
	if size <= 0 || size > maxPageSize {
		size = maxPageSize
	}
	q.Set("pageSize", strconv.Itoa(size))
	if p.MaxRecords > 0 {
		q.Set("maxRecords", strconv.Itoa(p.MaxRecords))
	}
	return q
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// Page is one page of a listing. Offset is empty on the last page.
type Page struct {
	Records []Record
	Offset  string
}

type writeRequest struct {
	Fields   any  `json:"fields"`
	Typecast bool `json:"typecast"`
}

// Store is the surface domain repositories depend on.
type Store interface {
	List(ctx context.Context, table string, params ListParams) ([]Record, error)
	ListPage(ctx context.Context, table string, params ListParams, offset string) (Page, error)
	Get(ctx context.Context, table, id string) (Record, error)
	Create(ctx context.Context, table string, fields any) (Record, error)
	Update(ctx context.Context, table, id string, fields any) (Record, error)
}

// Client talks to a single Airtable base.
type Client struct {
	http   *resty.Client
	baseID string
	logg   *logger.Logger
}

// NewClient builds a resty-backed client. Rate-limited (429) and 5xx responses are retried.
func NewClient(cfg config.AirtableConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("airtable api key is required")
	}
	if strings.TrimSpace(cfg.BaseID) == "" {
		return nil, errors.New("airtable base id is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.airtable.com/v0"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil {
				return false
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, baseID: cfg.BaseID, logg: logg}, nil
}

// List fetches every page of records matching params.
func (c *Client) List(ctx context.Context, table string, params ListParams) ([]Record, error) {
	var (
		out    []Record
		offset string
	)
	for {
		q := params.values()
		if offset != "" {
			q.Set("offset", offset)
		}
		var page listResponse
		resp, err := c.request(ctx, table).
			SetQueryParamsFromValues(q).
			SetResult(&page).
			Get("/{base}/{table}")
		if err := c.check(ctx, "list", table, resp, err); err != nil {
			return nil, err
		}
		out = append(out, page.Records...)
		if page.Offset == "" || (params.MaxRecords > 0 && len(out) >= params.MaxRecords) {
			break
		}
		offset = page.Offset
	}
	if params.MaxRecords > 0 && len(out) > params.MaxRecords {
		out = out[:params.MaxRecords]
	}
	return out, nil
}

// ListPage fetches a single page of at most PageSize (capped at 100) records,
// continuing from offset. MaxRecords is ignored so the offset stays valid.
func (c *Client) ListPage(ctx context.Context, table string, params ListParams, offset string) (Page, error) {
	params.MaxRecords = 0
	q := params.values()
	if offset != "" {
		q.Set("offset", offset)
	}
	var page listResponse
	resp, err := c.request(ctx, table).
		SetQueryParamsFromValues(q).
		SetResult(&page).
		Get("/{base}/{table}")
	if err := c.check(ctx, "list_page", table, resp, err); err != nil {
		return Page{}, err
	}
	return Page{Records: page.Records, Offset: page.Offset}, nil
}

// First returns the first record matching formula or ErrNotFound.
func (c *Client) First(ctx context.Context, table, formula string) (Record, error) {
	return First(ctx, c, table, formula)
}

func (c *Client) Get(ctx context.Context, table, id string) (Record, error) {
	if strings.TrimSpace(id) == "" {
		return Record{}, ErrNotFound
	}
	var rec Record
	resp, err := c.request(ctx, table).
		SetPathParam("id", id).
		SetResult(&rec).
		Get("/{base}/{table}/{id}")
	if err := c.check(ctx, "get", table, resp, err); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (c *Client) Create(ctx context.Context, table string, fields any) (Record, error) {
	var rec Record
	resp, err := c.request(ctx, table).
		SetBody(writeRequest{Fields: fields, Typecast: true}).
		SetResult(&rec).
		Post("/{base}/{table}")
	if err := c.check(ctx, "create", table, resp, err); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Update PATCHes only the supplied fields; absent fields are left untouched.
func (c *Client) Update(ctx context.Context, table, id string, fields any) (Record, error) {
	if strings.TrimSpace(id) == "" {
		return Record{}, ErrNotFound
	}
	var rec Record
	resp, err := c.request(ctx, table).
		SetPathParam("id", id).
		SetBody(writeRequest{Fields: fields, Typecast: true}).
		SetResult(&rec).
		Patch("/{base}/{table}/{id}")
	if err := c.check(ctx, "update", table, resp, err); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (c *Client) request(ctx context.Context, table string) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetPathParam("base", c.baseID).
		SetPathParam("table", table).
		SetError(&errorEnvelope{})
}

func (c *Client) check(ctx context.Context, op, table string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("airtable %s %s: %w", op, table, err)
	}
	if !resp.IsError() {
		return nil
	}
	apiErr := newAPIError(resp)
	if c.logg != nil && apiErr.Status != http.StatusNotFound {
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"airtable_op":     op,
			"airtable_table":  table,
			"upstream_status": apiErr.Status,
		})
		c.logg.Warn(logCtx, "airtable request failed")
	}
	return fmt.Errorf("airtable %s %s: %w", op, table, apiErr)
}

// First returns the first record in store matching formula or ErrNotFound.
func First(ctx context.Context, store Store, table, formula string) (Record, error) {
	recs, err := store.List(ctx, table, ListParams{Formula: formula, MaxRecords: 1})
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, ErrNotFound
	}
	return recs[0], nil
}
