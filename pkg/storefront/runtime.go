// Package storefront is the composition root of the SDK. It builds the
// transport, the session-scoped query cache, the token store and every
// resource service once per application session, and tears the session down
// on logout by clearing the token and all cache entries.
package storefront

import (
	"context"

	"github.com/tezga/tezga_sdk_go/internal/config"
	"github.com/tezga/tezga_sdk_go/internal/httpx"
	"github.com/tezga/tezga_sdk_go/pkg/auth"
	"github.com/tezga/tezga_sdk_go/pkg/feed"
	"github.com/tezga/tezga_sdk_go/pkg/products"
	"github.com/tezga/tezga_sdk_go/pkg/publish"
	"github.com/tezga/tezga_sdk_go/pkg/querycache"
	"github.com/tezga/tezga_sdk_go/pkg/search"
	"github.com/tezga/tezga_sdk_go/pkg/uploads"
	"github.com/tezga/tezga_sdk_go/pkg/users"
)

// Runtime bundles the wired SDK components for one application session.
type Runtime struct {
	Cache    *querycache.Cache
	Tokens   *auth.TokenStore
	Auth     *auth.Client
	Products *products.Client
	Users    *users.Client
	Search   *search.Client
	Uploads  *uploads.Client

	cfg  *config.Config
	http *httpx.Client
}

// New wires a Runtime from explicit configuration.
func New(cfg *config.Config, opts ...httpx.Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tokens := auth.NewTokenStore()
	clientOpts := append([]httpx.Option{
		httpx.WithTimeout(cfg.API.Timeout),
		httpx.WithTokenSource(tokens),
	}, opts...)
	client, err := httpx.NewClient(cfg.API.BaseURL, clientOpts...)
	if err != nil {
		return nil, err
	}

	cache := querycache.New(
		querycache.WithTTL(querycache.ClassVolatile, cfg.Cache.VolatileTTL),
		querycache.WithTTL(querycache.ClassReference, cfg.Cache.ReferenceTTL),
	)

	prods := products.New(client, cache)
	rt := &Runtime{
		Cache:    cache,
		Tokens:   tokens,
		Auth:     auth.New(client, tokens),
		Products: prods,
		Users:    users.New(client, cache, prods),
		Search:   search.New(client, cache, prods, search.WithSuggestMinimum(cfg.API.SuggestMinimum)),
		Uploads:  uploads.New(client, uploads.WithTimeout(cfg.API.UploadTimeout)),
		cfg:      cfg,
		http:     client,
	}
	return rt, nil
}

// NewFromEnv wires a Runtime from tezga.yaml and TEZGA_ environment
// variables.
func NewFromEnv(opts ...httpx.Option) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Logout drops the session token and every cached query. It is purely
// local; no request is issued.
func (r *Runtime) Logout() {
	r.Tokens.Clear()
	r.Cache.Clear()
}

// ProductFeed builds an infinite-scroll controller over the global product
// list.
func (r *Runtime) ProductFeed(opts ...feed.Option) *feed.Controller {
	opts = append([]feed.Option{feed.WithPageLimit(r.cfg.Feed.PageLimit)}, opts...)
	return feed.NewController(r.Products.List, opts...)
}

// UserProductFeed builds a controller over one user's listings.
func (r *Runtime) UserProductFeed(userID string, opts ...feed.Option) *feed.Controller {
	opts = append([]feed.Option{feed.WithPageLimit(r.cfg.Feed.PageLimit)}, opts...)
	source := func(ctx context.Context, f products.Filters) (*products.ListResult, error) {
		return r.Users.Products(ctx, userID, f)
	}
	return feed.NewController(source, opts...)
}

// SearchFeed builds a controller over full-text search results.
func (r *Runtime) SearchFeed(opts ...feed.Option) *feed.Controller {
	opts = append([]feed.Option{feed.WithPageLimit(r.cfg.Feed.PageLimit)}, opts...)
	return feed.NewController(r.Search.Search, opts...)
}

// PublishPipeline builds a fresh publication pipeline instance.
func (r *Runtime) PublishPipeline() *publish.Pipeline {
	return publish.New(r.Products, r.Search, r.Uploads)
}
