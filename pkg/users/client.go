// Package users is the resource service for accounts: the current user's
// profile, public seller profiles and per-user product lists.
package users

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tezga/tezga_sdk_go/internal/apix"
	"github.com/tezga/tezga_sdk_go/internal/httpx"
	"github.com/tezga/tezga_sdk_go/pkg/products"
	"github.com/tezga/tezga_sdk_go/pkg/querycache"
)

// User is the account shape returned for the authenticated user.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	City      string    `json:"city,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile is the public view of a seller.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	City      string    `json:"city,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Listings  int       `json:"listings"`
	CreatedAt time.Time `json:"createdAt"`
}

// UpdateInput carries the editable fields of the current user.
type UpdateInput struct {
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	City      string `json:"city,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// Client maps user domain verbs onto transport calls.
type Client struct {
	http     *httpx.Client
	cache    *querycache.Cache
	products *products.Client
}

// New constructs the users client over the shared transport and cache.
func New(http *httpx.Client, cache *querycache.Cache, prods *products.Client) *Client {
	return &Client{http: http, cache: cache, products: prods}
}

// meInvalidation covers the current-user entry only; product lists are
// untouched by profile edits.
var meInvalidation = querycache.Shape("users", "me")

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	key := querycache.K("users", "me")
	return querycache.Fetch(ctx, c.cache, key, querycache.ClassVolatile,
		func(ctx context.Context) (*User, error) {
			body, err := c.http.Do(ctx, &httpx.Request{
				Method:       http.MethodGet,
				Path:         "/me",
				RequiresAuth: true,
				Retryable:    true,
			})
			if err != nil {
				return nil, err
			}
			var u User
			if err := apix.DecodeData(body, &u); err != nil {
				return nil, fmt.Errorf("users: decode current user: %w", err)
			}
			return &u, nil
		})
}

// UpdateMe edits the authenticated user's profile and invalidates the
// cached current-user entry before returning.
func (c *Client) UpdateMe(ctx context.Context, in UpdateInput) (*User, error) {
	body, err := c.http.Do(ctx, &httpx.Request{
		Method:       http.MethodPut,
		Path:         "/me",
		Body:         in,
		RequiresAuth: true,
	})
	if err != nil {
		return nil, err
	}
	var u User
	if err := apix.DecodeData(body, &u); err != nil {
		return nil, fmt.Errorf("users: decode updated user: %w", err)
	}
	c.cache.Invalidate(meInvalidation)
	return &u, nil
}

// PublicProfile fetches a seller's public profile.
func (c *Client) PublicProfile(ctx context.Context, id string) (*Profile, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("users: id is required")
	}
	key := querycache.K("users", id)
	return querycache.Fetch(ctx, c.cache, key, querycache.ClassVolatile,
		func(ctx context.Context) (*Profile, error) {
			body, err := c.http.Do(ctx, &httpx.Request{
				Method:    http.MethodGet,
				Path:      "/users/" + url.PathEscape(id),
				Retryable: true,
			})
			if err != nil {
				return nil, err
			}
			var p Profile
			if err := apix.DecodeData(body, &p); err != nil {
				return nil, fmt.Errorf("users: decode profile: %w", err)
			}
			return &p, nil
		})
}

// Products fetches one page of a user's listings. The cache key carries the
// user ID and filter hash, so the product invalidation predicate reaches it
// by shape without knowing the ID.
func (c *Client) Products(ctx context.Context, userID string, f products.Filters) (*products.ListResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("users: user id is required")
	}
	key := products.UserListKey(userID, f)
	return querycache.Fetch(ctx, c.cache, key, querycache.ClassVolatile,
		func(ctx context.Context) (*products.ListResult, error) {
			return c.products.FetchPage(ctx, "/users/"+url.PathEscape(userID)+"/products", f.Values())
		})
}
