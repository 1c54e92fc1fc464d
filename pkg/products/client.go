package products

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tezga/tezga_sdk_go/internal/apix"
	"github.com/tezga/tezga_sdk_go/internal/httpx"
	"github.com/tezga/tezga_sdk_go/pkg/querycache"
)

// Invalidation covers every cache entry a product mutation can stale: the
// global product lists and every per-user product list, matched by key shape
// so no user IDs need enumerating.
var Invalidation = querycache.Or(
	querycache.First("products"),
	querycache.Shape("users", querycache.Any, "products"),
)

// Client maps product domain verbs onto transport calls and declares the
// cache keys their results live under.
type Client struct {
	http  *httpx.Client
	cache *querycache.Cache
}

// New constructs the products client over the shared transport and cache.
func New(http *httpx.Client, cache *querycache.Cache) *Client {
	return &Client{http: http, cache: cache}
}

// ListKey is the cache key for a filtered product list.
func ListKey(f Filters) querycache.Key {
	return querycache.K("products", f.Hash())
}

// UserListKey is the cache key for one user's filtered product list.
func UserListKey(userID string, f Filters) querycache.Key {
	return querycache.K("users", userID, "products", f.Hash())
}

// List fetches a filtered, paginated page of listings, served from cache
// when fresh. Concurrent calls for the same filters share one request.
func (c *Client) List(ctx context.Context, f Filters) (*ListResult, error) {
	return querycache.Fetch(ctx, c.cache, ListKey(f), querycache.ClassVolatile,
		func(ctx context.Context) (*ListResult, error) {
			return c.fetchList(ctx, "/products", f.Values())
		})
}

// Get fetches a single listing by ID.
func (c *Client) Get(ctx context.Context, id string) (*Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("products: id is required")
	}
	key := querycache.K("products", "id", id)
	return querycache.Fetch(ctx, c.cache, key, querycache.ClassVolatile,
		func(ctx context.Context) (*Product, error) {
			body, err := c.http.Do(ctx, &httpx.Request{
				Method:    http.MethodGet,
				Path:      "/products/" + url.PathEscape(id),
				Retryable: true,
			})
			if err != nil {
				return nil, err
			}
			var p Product
			if err := apix.DecodeData(body, &p); err != nil {
				return nil, fmt.Errorf("products: decode product: %w", err)
			}
			return &p, nil
		})
}

// Similar fetches listings related to the given one.
func (c *Client) Similar(ctx context.Context, id string, limit int) ([]Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("products: id is required")
	}
	key := querycache.K("products", "id", id, "similar", strconv.Itoa(limit))
	return querycache.Fetch(ctx, c.cache, key, querycache.ClassVolatile,
		func(ctx context.Context) ([]Product, error) {
			q := url.Values{}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			body, err := c.http.Do(ctx, &httpx.Request{
				Method:    http.MethodGet,
				Path:      "/products/" + url.PathEscape(id) + "/similar",
				Query:     q,
				Retryable: true,
			})
			if err != nil {
				return nil, err
			}
			var items []Product
			if err := apix.DecodeData(body, &items); err != nil {
				return nil, fmt.Errorf("products: decode similar: %w", err)
			}
			return items, nil
		})
}

// Create submits a new listing. On success the product invalidation
// predicate runs before Create returns, so a subsequent read in the same
// call chain sees refetchable state.
func (c *Client) Create(ctx context.Context, in CreateInput) (*Product, error) {
	body, err := c.http.Do(ctx, &httpx.Request{
		Method:       http.MethodPost,
		Path:         "/products",
		Body:         in,
		RequiresAuth: true,
	})
	if err != nil {
		return nil, err
	}
	var p Product
	if err := apix.DecodeData(body, &p); err != nil {
		return nil, fmt.Errorf("products: decode created product: %w", err)
	}
	c.cache.Invalidate(Invalidation)
	return &p, nil
}

// Update replaces the mutable fields of a listing.
func (c *Client) Update(ctx context.Context, id string, in UpdateInput) (*Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("products: id is required")
	}
	body, err := c.http.Do(ctx, &httpx.Request{
		Method:       http.MethodPut,
		Path:         "/products/" + url.PathEscape(id),
		Body:         in,
		RequiresAuth: true,
	})
	if err != nil {
		return nil, err
	}
	var p Product
	if err := apix.DecodeData(body, &p); err != nil {
		return nil, fmt.Errorf("products: decode updated product: %w", err)
	}
	c.cache.Invalidate(Invalidation)
	return &p, nil
}

// Delete removes a listing.
func (c *Client) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("products: id is required")
	}
	_, err := c.http.Do(ctx, &httpx.Request{
		Method:       http.MethodDelete,
		Path:         "/products/" + url.PathEscape(id),
		RequiresAuth: true,
	})
	if err != nil {
		return err
	}
	c.cache.Invalidate(Invalidation)
	return nil
}

// UpdateStatus moves a listing to a new lifecycle state (e.g. sold).
func (c *Client) UpdateStatus(ctx context.Context, id string, status Status) (*Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("products: id is required")
	}
	body, err := c.http.Do(ctx, &httpx.Request{
		Method:       http.MethodPatch,
		Path:         "/products/" + url.PathEscape(id) + "/status",
		Body:         map[string]Status{"status": status},
		RequiresAuth: true,
	})
	if err != nil {
		return nil, err
	}
	var p Product
	if err := apix.DecodeData(body, &p); err != nil {
		return nil, fmt.Errorf("products: decode status update: %w", err)
	}
	c.cache.Invalidate(Invalidation)
	return &p, nil
}

// fetchList is shared by the product list endpoints (global, search and
// per-user lists route through the same page envelope).
func (c *Client) fetchList(ctx context.Context, path string, q url.Values) (*ListResult, error) {
	body, err := c.http.Do(ctx, &httpx.Request{
		Method:    http.MethodGet,
		Path:      path,
		Query:     q,
		Retryable: true,
	})
	if err != nil {
		return nil, err
	}
	page, err := apix.DecodePage[Product](body)
	if err != nil {
		return nil, fmt.Errorf("products: decode list: %w", err)
	}
	return &ListResult{
		Products: page.Data,
		Pagination: Pagination{
			Page:       page.Pagination.Page,
			Limit:      page.Pagination.Limit,
			Total:      page.Pagination.Total,
			TotalPages: page.Pagination.TotalPages,
		},
	}, nil
}

// FetchPage exposes the shared list fetch for sibling services that return
// product pages from other endpoints (user products, search).
func (c *Client) FetchPage(ctx context.Context, path string, q url.Values) (*ListResult, error) {
	return c.fetchList(ctx, path, q)
}
