// Package feed keeps a filter state, a page cursor and an append-only item
// list in sync for infinite-scroll listing views. The filter state is
// mirrored bidirectionally with the URL query string so back/forward
// navigation reproduces the same page of results.
package feed

import (
	"context"
	"net/url"
	"sync"

	"github.com/tezga/tezga_sdk_go/pkg/products"
)

// Source fetches one page of listings for the given filters. Both the
// global product list and per-user lists satisfy it.
type Source func(ctx context.Context, f products.Filters) (*products.ListResult, error)

// DefaultPageLimit is used when the controller is not given one.
const DefaultPageLimit = 20

// Option configures a Controller.
type Option func(*Controller)

// WithPageLimit sets the page size requested from the source.
func WithPageLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithFilters sets the initial filter state.
func WithFilters(f products.Filters) Option {
	return func(c *Controller) {
		c.filters = f
	}
}

// Controller owns the page cursor for one listing view. Filter changes
// reset the cursor to page 1 without clearing already-rendered items until
// new first-page data arrives; LoadMore is guarded so at most one page
// request is in flight and none is issued once the cursor is exhausted.
type Controller struct {
	mu      sync.Mutex
	source  Source
	filters products.Filters
	limit   int

	items   []products.Product
	page    int
	hasNext bool
	total   int
	loading bool
	// gen identifies the current filter state; a completing page request
	// carrying an older generation is discarded instead of applied.
	gen int
}

// NewController builds a controller over the given page source.
func NewController(source Source, opts ...Option) *Controller {
	c := &Controller{source: source, limit: DefaultPageLimit}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Filters returns the current filter state.
func (c *Controller) Filters() products.Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// Items returns the accumulated feed, flattened in fetch order.
func (c *Controller) Items() []products.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]products.Product, len(c.items))
	copy(out, c.items)
	return out
}

// HasNextPage reports whether the cursor can advance.
func (c *Controller) HasNextPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasNext
}

// Total reports the server-side total for the current filters.
func (c *Controller) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Loading reports whether a page request is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Load fetches page 1 for the current filters, replacing the item list once
// the data arrives.
func (c *Controller) Load(ctx context.Context) error {
	return c.loadPage(ctx, 1, true)
}

// SetFilters replaces the filter state and restarts at page 1. Rendered
// items stay visible until the new first page lands (no flash-to-empty). A
// page request still in flight for the previous filters is superseded: its
// response is discarded when it lands.
func (c *Controller) SetFilters(ctx context.Context, f products.Filters) error {
	c.mu.Lock()
	c.filters = f
	c.page = 0
	c.hasNext = false
	c.gen++
	c.mu.Unlock()
	return c.loadPage(ctx, 1, true)
}

// LoadMore advances the cursor by one page, appending the results. It is a
// no-op while a request is in flight or when no next page exists, so a
// visibility-triggered sentinel can call it freely.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.loading || !c.hasNext {
		c.mu.Unlock()
		return nil
	}
	next := c.page + 1
	c.mu.Unlock()
	return c.loadPage(ctx, next, false)
}

// Refresh refetches every currently loaded page and rebuilds the item list.
// External mutations (deletion, status change) reach the feed this way via
// cache invalidation rather than by in-place splicing.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	pages := c.page
	c.mu.Unlock()
	if pages < 1 {
		pages = 1
	}
	for page := 1; page <= pages; page++ {
		if err := c.loadPage(ctx, page, page == 1); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) loadPage(ctx context.Context, page int, replace bool) error {
	c.mu.Lock()
	gen := c.gen
	c.loading = true
	f := c.filters.WithPage(page)
	if f.Limit == 0 {
		f.Limit = c.limit
	}
	c.mu.Unlock()

	result, err := c.source(ctx, f)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// A filter change superseded this request; the newer generation
		// owns the cursor and the loading flag.
		return nil
	}
	c.loading = false
	if err != nil {
		return err
	}

	if replace {
		c.items = append([]products.Product(nil), result.Products...)
	} else {
		c.items = append(c.items, result.Products...)
	}
	c.page = page
	c.hasNext = result.Pagination.HasNextPage()
	c.total = result.Pagination.Total
	return nil
}

// EncodeQuery renders the filter state as a URL query string.
func EncodeQuery(f products.Filters) string {
	return f.Values().Encode()
}

// DecodeQuery parses a URL query string back into a filter state; it is the
// inverse of EncodeQuery for all supported keys.
func DecodeQuery(raw string) (products.Filters, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return products.Filters{}, err
	}
	return products.FiltersFromValues(values)
}

// SyncURL replaces the controller's filters from a URL query string (e.g.
// on back/forward navigation) and reloads from page 1.
func (c *Controller) SyncURL(ctx context.Context, rawQuery string) error {
	f, err := DecodeQuery(rawQuery)
	if err != nil {
		return err
	}
	return c.SetFilters(ctx, f)
}

// URLQuery renders the current filter state for the address bar.
func (c *Controller) URLQuery() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return EncodeQuery(c.filters)
}
