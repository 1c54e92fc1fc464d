package feed_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tezga/tezga_sdk_go/pkg/feed"
	"github.com/tezga/tezga_sdk_go/pkg/products"
)

// fakeSource serves deterministic pages and records every request.
type fakeSource struct {
	mu       sync.Mutex
	requests []products.Filters
	total    int
	block    chan struct{}
	fail     error
}

func (s *fakeSource) fetch(ctx context.Context, f products.Filters) (*products.ListResult, error) {
	s.mu.Lock()
	s.requests = append(s.requests, f)
	block := s.block
	fail := s.fail
	s.mu.Unlock()
	if block != nil {
		<-block
	}
	if fail != nil {
		return nil, fail
	}

	limit := f.Limit
	if limit <= 0 {
		limit = feed.DefaultPageLimit
	}
	totalPages := (s.total + limit - 1) / limit
	start := (f.Page - 1) * limit
	var items []products.Product
	for i := start; i < start+limit && i < s.total; i++ {
		items = append(items, products.Product{ID: fmt.Sprintf("p%d", i), Title: fmt.Sprintf("item %d", i)})
	}
	return &products.ListResult{
		Products: items,
		Pagination: products.Pagination{
			Page:       f.Page,
			Limit:      limit,
			Total:      s.total,
			TotalPages: totalPages,
		},
	}, nil
}

func TestLoadAndLoadMoreAppendInFetchOrder(t *testing.T) {
	src := &fakeSource{total: 5}
	ctrl := feed.NewController(src.fetch, feed.WithPageLimit(2))
	ctx := context.Background()

	require.NoError(t, ctrl.Load(ctx))
	assert.Len(t, ctrl.Items(), 2)
	assert.True(t, ctrl.HasNextPage())
	assert.Equal(t, 5, ctrl.Total())

	require.NoError(t, ctrl.LoadMore(ctx))
	require.NoError(t, ctrl.LoadMore(ctx))
	items := ctrl.Items()
	require.Len(t, items, 5)
	for i, p := range items {
		assert.Equal(t, fmt.Sprintf("p%d", i), p.ID, "feed must be append-only in page order")
	}
	assert.False(t, ctrl.HasNextPage())

	// Exhausted cursor: further triggers are no-ops.
	before := len(src.requests)
	require.NoError(t, ctrl.LoadMore(ctx))
	assert.Equal(t, before, len(src.requests))
}

func TestSetFiltersResetsCursorAndKeepsItemsUntilDataArrives(t *testing.T) {
	src := &fakeSource{total: 6}
	ctrl := feed.NewController(src.fetch, feed.WithPageLimit(2))
	ctx := context.Background()

	require.NoError(t, ctrl.Load(ctx))
	require.NoError(t, ctrl.LoadMore(ctx))
	require.Len(t, ctrl.Items(), 4)

	src.mu.Lock()
	src.total = 3
	src.mu.Unlock()
	require.NoError(t, ctrl.SetFilters(ctx, products.Filters{Status: products.StatusSold}))

	last := src.requests[len(src.requests)-1]
	assert.Equal(t, 1, last.Page, "filter change restarts at page 1")
	assert.Equal(t, products.StatusSold, last.Status)
	assert.Len(t, ctrl.Items(), 2, "page 1 replaced the accumulated feed")
	assert.True(t, ctrl.HasNextPage())
}

func TestSetFiltersFailureKeepsRenderedItems(t *testing.T) {
	src := &fakeSource{total: 4}
	ctrl := feed.NewController(src.fetch, feed.WithPageLimit(2))
	ctx := context.Background()

	require.NoError(t, ctrl.Load(ctx))
	require.Len(t, ctrl.Items(), 2)

	src.mu.Lock()
	src.fail = errors.New("backend down")
	src.mu.Unlock()
	err := ctrl.SetFilters(ctx, products.Filters{Query: "jakna"})
	require.Error(t, err)
	assert.Len(t, ctrl.Items(), 2, "no flash-to-empty on failed reload")
}

func TestSetFiltersSupersedesInFlightPage(t *testing.T) {
	release := make(chan struct{})
	oldStarted := make(chan struct{})
	source := func(ctx context.Context, f products.Filters) (*products.ListResult, error) {
		if f.Status == products.StatusActive {
			close(oldStarted)
			<-release
			return &products.ListResult{
				Products:   []products.Product{{ID: "old-p0"}},
				Pagination: products.Pagination{Page: 1, Limit: 1, Total: 2, TotalPages: 2},
			}, nil
		}
		return &products.ListResult{
			Products:   []products.Product{{ID: "sold-p0"}},
			Pagination: products.Pagination{Page: 1, Limit: 1, Total: 1, TotalPages: 1},
		}, nil
	}
	ctrl := feed.NewController(source, feed.WithFilters(products.Filters{Status: products.StatusActive}))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- ctrl.Load(ctx) }()
	<-oldStarted

	// The filter change must fetch page 1 for the new filters even though a
	// request for the old filters is still in flight.
	require.NoError(t, ctrl.SetFilters(ctx, products.Filters{Status: products.StatusSold}))
	items := ctrl.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "sold-p0", items[0].ID)

	// The old-filter response lands afterwards and must not clobber the
	// reset cursor.
	close(release)
	require.NoError(t, <-done)
	items = ctrl.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "sold-p0", items[0].ID)
	assert.False(t, ctrl.HasNextPage())
	assert.Equal(t, 1, ctrl.Total())
	assert.False(t, ctrl.Loading())
}

func TestLoadMoreGuardedWhileInFlight(t *testing.T) {
	src := &fakeSource{total: 10, block: make(chan struct{})}
	ctrl := feed.NewController(src.fetch, feed.WithPageLimit(2))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- ctrl.Load(ctx) }()

	for {
		src.mu.Lock()
		n := len(src.requests)
		src.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	// A sentinel firing during the in-flight load must not stack requests.
	require.NoError(t, ctrl.LoadMore(ctx))
	require.NoError(t, ctrl.LoadMore(ctx))
	close(src.block)
	require.NoError(t, <-done)

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Len(t, src.requests, 1)
}

func TestRefreshRefetchesActivePageSet(t *testing.T) {
	src := &fakeSource{total: 6}
	ctrl := feed.NewController(src.fetch, feed.WithPageLimit(2))
	ctx := context.Background()

	require.NoError(t, ctrl.Load(ctx))
	require.NoError(t, ctrl.LoadMore(ctx))
	require.Len(t, ctrl.Items(), 4)

	src.mu.Lock()
	src.requests = nil
	src.mu.Unlock()

	require.NoError(t, ctrl.Refresh(ctx))
	src.mu.Lock()
	pages := make([]int, len(src.requests))
	for i, f := range src.requests {
		pages[i] = f.Page
	}
	src.mu.Unlock()
	assert.Equal(t, []int{1, 2}, pages, "refresh re-reads every loaded page in order")
	assert.Len(t, ctrl.Items(), 4)
}

func TestSyncURLRoundTrip(t *testing.T) {
	f := products.Filters{
		Status:     products.StatusActive,
		CategoryID: "cat-shoes",
		MinPrice:   500,
		MaxPrice:   4000,
		Conditions: []products.Condition{products.ConditionNew, products.ConditionUsed},
		Brands:     []string{"Nike", "Adidas"},
		SortBy:     "price_asc",
		Query:      "patike",
	}
	encoded := feed.EncodeQuery(f)
	decoded, err := feed.DecodeQuery(encoded)
	require.NoError(t, err)
	assert.Equal(t, f, decoded)
}

func genFilters() gopter.Gen {
	word := gen.RegexMatch(`[a-z]{1,8}`)
	words := gen.SliceOfN(2, word)
	return gopter.CombineGens(
		gen.OneConstOf("", "active", "reserved", "sold"),
		word,
		gen.IntRange(0, 10000),
		gen.IntRange(0, 10000),
		gen.OneConstOf("", "newest", "price_asc", "price_desc"),
		words,
		gen.IntRange(0, 50),
	).Map(func(vals []interface{}) products.Filters {
		return products.Filters{
			Status:     products.Status(vals[0].(string)),
			CategoryID: vals[1].(string),
			MinPrice:   vals[2].(int),
			MaxPrice:   vals[3].(int),
			SortBy:     vals[4].(string),
			Brands:     vals[5].([]string),
			Page:       vals[6].(int),
		}
	})
}

func TestEncodeDecodeProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("decode inverts encode", prop.ForAll(
		func(f products.Filters) bool {
			decoded, err := feed.DecodeQuery(feed.EncodeQuery(f))
			if err != nil {
				return false
			}
			return reflect.DeepEqual(f, decoded)
		},
		genFilters(),
	))

	properties.TestingRun(t)
}
