package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"

	"github.com/erazemk/blagajna/internal/model"
)

// DefaultPageSize is the backend's default limit.
const DefaultPageSize = 100

// ListParams selects a page of a list endpoint.
type ListParams struct {
	Page      int // 1-based
	PageSize  int
	Search    string
	SortBy    string
	SortOrder string // "asc" or "desc"
}

// Values converts the params to the backend's skip/limit query.
func (p ListParams) Values() url.Values {
	page := max(p.Page, 1)
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	v := url.Values{}
	v.Set("skip", strconv.Itoa((page-1)*size))
	v.Set("limit", strconv.Itoa(size))
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.SortBy != "" {
		v.Set("sort_by", p.SortBy)
	}
	if p.SortOrder != "" {
		v.Set("sort_order", p.SortOrder)
	}
	return v
}

// Page is one page of records. TotalExact is false when the backend sent no
// X-Total-Count header, in which case Total is the page length.
type Page[T any] struct {
	Records    []T
	Total      int
	TotalExact bool
}

func newPage[T any](records []T, h http.Header) Page[T] {
	p := Page[T]{Records: records, Total: len(records)}
	if n, err := strconv.Atoi(h.Get("X-Total-Count")); err == nil && n >= 0 {
		p.Total = n
		p.TotalExact = true
	}
	return p
}

// Resource is a CRUD endpoint family such as /customers/.
type Resource[T, In any] struct {
	c    *Client
	path string // collection path with trailing slash
}

// List fetches one page of the collection.
func (r Resource[T, In]) List(ctx context.Context, p ListParams) (Page[T], error) {
	var records []T
	h, err := r.c.do(ctx, request{method: http.MethodGet, path: r.path, query: p.Values()}, &records)
	if err != nil {
		return Page[T]{}, err
	}
	return newPage(records, h), nil
}

// All fetches every record by walking pages until a short page comes back,
// X-Total-Count records have arrived, or a page repeats the previous one (a
// backend that ignores skip).
func (r Resource[T, In]) All(ctx context.Context) ([]T, error) {
	var all, prev []T
	for page := 1; ; page++ {
		p, err := r.List(ctx, ListParams{Page: page, PageSize: DefaultPageSize})
		if err != nil {
			return nil, err
		}
		if page > 1 && reflect.DeepEqual(p.Records, prev) {
			r.c.logger.Warn("backend repeated a page, stopping", "path", r.path, "page", page)
			return all, nil
		}
		all = append(all, p.Records...)
		if len(p.Records) < DefaultPageSize || (p.TotalExact && len(all) >= p.Total) {
			return all, nil
		}
		prev = p.Records
	}
}

// Get fetches a single record.
func (r Resource[T, In]) Get(ctx context.Context, id int64) (*T, error) {
	var out T
	if _, err := r.c.do(ctx, request{method: http.MethodGet, path: r.itemPath(id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create posts a new record and returns the stored version.
func (r Resource[T, In]) Create(ctx context.Context, in In) (*T, error) {
	var out T
	if _, err := r.c.do(ctx, request{method: http.MethodPost, path: r.path, body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces a record with the full payload.
func (r Resource[T, In]) Update(ctx context.Context, id int64, in In) (*T, error) {
	var out T
	if _, err := r.c.do(ctx, request{method: http.MethodPut, path: r.itemPath(id), body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a record.
func (r Resource[T, In]) Delete(ctx context.Context, id int64) error {
	_, err := r.c.do(ctx, request{method: http.MethodDelete, path: r.itemPath(id)}, nil)
	return err
}

func (r Resource[T, In]) itemPath(id int64) string {
	return fmt.Sprintf("%s%d", r.path, id)
}

// Customers is the /customers/ resource.
func (c *Client) Customers() Resource[model.Customer, model.CustomerInput] {
	return Resource[model.Customer, model.CustomerInput]{c: c, path: "/customers/"}
}

// Items is the /items/ resource.
func (c *Client) Items() Resource[model.Item, model.ItemInput] {
	return Resource[model.Item, model.ItemInput]{c: c, path: "/items/"}
}

// Sales is the /sales/ resource.
func (c *Client) Sales() Resource[model.Sale, model.SaleInput] {
	return Resource[model.Sale, model.SaleInput]{c: c, path: "/sales/"}
}

// Users is the admin-only /users/ resource.
func (c *Client) Users() Resource[model.User, model.UserInput] {
	return Resource[model.User, model.UserInput]{c: c, path: "/users/"}
}

// StockUpdates is the /stock-updates/ resource. The backend only supports
// list and create on it.
func (c *Client) StockUpdates() Resource[model.StockUpdate, model.StockUpdateInput] {
	return Resource[model.StockUpdate, model.StockUpdateInput]{c: c, path: "/stock-updates/"}
}

// Payments is the /payments/ resource.
func (c *Client) Payments() Resource[model.Payment, model.PaymentInput] {
	return Resource[model.Payment, model.PaymentInput]{c: c, path: "/payments/"}
}
