// Package search covers discovery: full-text search, autocomplete
// suggestions, the reference catalogs (categories, brands, cities) and the
// favorites list. Reference catalogs are low-volatility and cached for a
// long window; user mutations never invalidate them.
package search

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
	"github.com/tezga/tezga_sdk_go/pkg/products"
	"github.com/tezga/tezga_sdk_go/pkg/querycache"
)

// DefaultSuggestMinimum is the query length below which no suggestion
// request is issued, bounding request volume while the user types.
const DefaultSuggestMinimum = 2

// Category is a reference catalog entry resolved against during publishing.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

// Brand is a reference catalog entry.
type Brand struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// City is a reference catalog entry.
type City struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Suggestion is one autocomplete completion.
type Suggestion struct {
	Text  string `json:"text"`
	Count int    `json:"count,omitempty"`
}

// favoritesInvalidation marks the favorites list stale after add/remove.
var favoritesInvalidation = querycache.First("favorites")

// Option configures the search client.
type Option func(*Client)

// WithSuggestMinimum overrides the minimum query length for suggestions.
func WithSuggestMinimum(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.suggestMin = n
		}
	}
}

// Client maps the discovery endpoints.
type Client struct {
	http       *httpx.Client
	cache      *querycache.Cache
	products   *products.Client
	suggestMin int
}

// New constructs the search client over the shared transport and cache.
func New(http *httpx.Client, cache *querycache.Cache, prods *products.Client, opts ...Option) *Client {
	c := &Client{http: http, cache: cache, products: prods, suggestMin: DefaultSuggestMinimum}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs a full-text listing search with the usual filter set.
func (c *Client) Search(ctx context.Context, f products.Filters) (*products.ListResult, error) {
	key := querycache.K("search", f.Hash())
	return querycache.Fetch(ctx, c.cache, key, querycache.ClassVolatile,
		func(ctx context.Context) (*products.ListResult, error) {
			return c.products.FetchPage(ctx, "/search", f.Values())
		})
}

// Suggestions returns autocomplete completions for the partial query. Below
// the minimum length no request is issued and an empty slice is returned.
func (c *Client) Suggestions(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	trimmed := strings.TrimSpace(query)
	if len([]rune(trimmed)) < c.suggestMin {
		return nil, nil
	}
	key := querycache.K("search", "suggestions", trimmed, strconv.Itoa(limit))
	return querycache.Fetch(ctx, c.cache, key, querycache.ClassVolatile,
		func(ctx context.Context) ([]Suggestion, error) {
			q := url.Values{"q": {trimmed}}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			body, err := c.http.Do(ctx, &httpx.Request{
				Method:    http.MethodGet,
				Path:      "/search/suggestions",
				Query:     q,
				Retryable: true,
			})
			if err != nil {
				return nil, err
			}
			var items []Suggestion
			if err := apix.DecodeData(body, &items); err != nil {
				return nil, fmt.Errorf("search: decode suggestions: %w", err)
			}
			return items, nil
		})
}

// Categories fetches the category catalog.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	return fetchReference[Category](ctx, c, "/categories", querycache.K("categories"))
}

// Brands fetches the brand catalog.
func (c *Client) Brands(ctx context.Context) ([]Brand, error) {
	return fetchReference[Brand](ctx, c, "/brands", querycache.K("brands"))
}

// Cities fetches the supported cities.
func (c *Client) Cities(ctx context.Context) ([]City, error) {
	return fetchReference[City](ctx, c, "/cities/serbia", querycache.K("cities"))
}

// ResolveCategory matches a human-readable category name against the
// catalog, case-insensitively. The lookup is local apart from the (long
// cached) catalog fetch.
func (c *Client) ResolveCategory(ctx context.Context, name string) (*Category, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, nil
	}
	categories, err := c.Categories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if strings.EqualFold(categories[i].Name, trimmed) {
			return &categories[i], nil
		}
	}
	return nil, nil
}

// Favorites lists the authenticated user's favorite products.
func (c *Client) Favorites(ctx context.Context) ([]products.Product, error) {
	key := querycache.K("favorites")
	return querycache.Fetch(ctx, c.cache, key, querycache.ClassVolatile,
		func(ctx context.Context) ([]products.Product, error) {
			body, err := c.http.Do(ctx, &httpx.Request{
				Method:       http.MethodGet,
				Path:         "/favorites",
				RequiresAuth: true,
				Retryable:    true,
			})
			if err != nil {
				return nil, err
			}
			var items []products.Product
			if err := apix.DecodeData(body, &items); err != nil {
				return nil, fmt.Errorf("search: decode favorites: %w", err)
			}
			return items, nil
		})
}

// AddFavorite marks a product as favorite.
func (c *Client) AddFavorite(ctx context.Context, productID string) error {
	if strings.TrimSpace(productID) == "" {
		return errors.New("search: product id is required")
	}
	_, err := c.http.Do(ctx, &httpx.Request{
		Method:       http.MethodPost,
		Path:         "/favorites",
		Body:         map[string]string{"productId": productID},
		RequiresAuth: true,
	})
	if err != nil {
		return err
	}
	c.cache.Invalidate(favoritesInvalidation)
	return nil
}

// RemoveFavorite unmarks a product.
func (c *Client) RemoveFavorite(ctx context.Context, productID string) error {
	if strings.TrimSpace(productID) == "" {
		return errors.New("search: product id is required")
	}
	_, err := c.http.Do(ctx, &httpx.Request{
		Method:       http.MethodDelete,
		Path:         "/favorites/" + url.PathEscape(productID),
		RequiresAuth: true,
	})
	if err != nil {
		return err
	}
	c.cache.Invalidate(favoritesInvalidation)
	return nil
}

// fetchReference is shared by the catalog endpoints: long staleness window,
// never invalidated by user mutations.
func fetchReference[T any](ctx context.Context, c *Client, path string, key querycache.Key) ([]T, error) {
	return querycache.Fetch(ctx, c.cache, key, querycache.ClassReference,
		func(ctx context.Context) ([]T, error) {
			body, err := c.http.Do(ctx, &httpx.Request{
				Method:    http.MethodGet,
				Path:      path,
				Retryable: true,
			})
			if err != nil {
				return nil, err
			}
			var items []T
			if err := apix.DecodeData(body, &items); err != nil {
				return nil, fmt.Errorf("search: decode %s: %w", path, err)
			}
			return items, nil
		})
}
