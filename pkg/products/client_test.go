package products_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tezga/tezga_sdk_go/internal/httpx"
	"github.com/tezga/tezga_sdk_go/pkg/products"
	"github.com/tezga/tezga_sdk_go/pkg/querycache"
)

type tokens struct{}

func (tokens) Token() (string, bool) { return "test-token", true }

func newClient(t *testing.T, handler http.Handler) (*products.Client, *querycache.Cache, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	httpClient, err := httpx.NewClient(srv.URL, httpx.WithTokenSource(tokens{}))
	require.NoError(t, err)
	cache := querycache.New()
	return products.New(httpClient, cache), cache, srv
}

func listPayload(items []products.Product, page, limit, total, totalPages int) []byte {
	payload := map[string]any{
		"data": items,
		"pagination": map[string]int{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	}
	data, _ := json.Marshal(payload)
	return data
}

func TestListDecodesEnvelope(t *testing.T) {
	var gotQuery string
	client, _, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write(listPayload([]products.Product{
			{ID: "p1", Title: "Jakna", Status: products.StatusActive},
			{ID: "p2", Title: "Patike", Status: products.StatusActive},
		}, 1, 20, 2, 1))
	}))

	result, err := client.List(context.Background(), products.Filters{
		Status: products.StatusActive,
		SortBy: "newest",
		Page:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, "page=1&sortBy=newest&status=active", gotQuery)
	assert.Len(t, result.Products, 2)
	assert.Equal(t, 2, result.Pagination.Total)
	assert.False(t, result.Pagination.HasNextPage())
}

func TestListDeduplicatesConcurrentReads(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	client, _, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write(listPayload(nil, 1, 20, 0, 0))
	}))

	filters := products.Filters{Status: products.StatusActive}
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.List(context.Background(), filters)
			assert.NoError(t, err)
		}()
	}
	// Both readers are queued on the same key before the fetch resolves.
	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "same filters within one window issue one request")
}

func TestCreateInvalidatesProductLists(t *testing.T) {
	var listCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		listCalls.Add(1)
		w.Write(listPayload(nil, 1, 20, 0, 0))
	})
	mux.HandleFunc("POST /products", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(products.Product{ID: "new-id"})
	})
	client, _, _ := newClient(t, mux)

	ctx := context.Background()
	filters := products.Filters{Status: products.StatusActive}
	_, err := client.List(ctx, filters)
	require.NoError(t, err)
	_, err = client.List(ctx, filters)
	require.NoError(t, err)
	require.Equal(t, int32(1), listCalls.Load())

	created, err := client.Create(ctx, products.CreateInput{Title: "Jakna", Images: []string{"u"}})
	require.NoError(t, err)
	assert.Equal(t, "new-id", created.ID)

	_, err = client.List(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, int32(2), listCalls.Load(), "create must stale the product lists")
}

func TestUpdateStatusInvalidatesPerUserLists(t *testing.T) {
	cacheStateAfterMutation := map[string]bool{}
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /products/p1/status", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status products.Status `json:"status"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		json.NewEncoder(w).Encode(products.Product{ID: "p1", Status: body.Status})
	})
	client, cache, _ := newClient(t, mux)
	ctx := context.Background()

	// Pre-populate the entries a real session would hold.
	filters := products.Filters{}
	seed := func(key querycache.Key) {
		_, err := cache.GetOrFetch(ctx, key, querycache.ClassVolatile, func(context.Context) (any, error) {
			return "cached", nil
		})
		require.NoError(t, err)
	}
	seed(products.ListKey(filters))
	seed(products.UserListKey("seller-1", filters))
	seed(querycache.K("categories"))

	updated, err := client.UpdateStatus(ctx, "p1", products.StatusSold)
	require.NoError(t, err)
	require.Equal(t, products.StatusSold, updated.Status)

	for _, key := range []querycache.Key{
		products.ListKey(filters),
		products.UserListKey("seller-1", filters),
	} {
		entry, ok := cache.Read(key)
		require.True(t, ok)
		cacheStateAfterMutation[key.String()] = entry.Stale
		assert.True(t, entry.Stale, "key %s must be stale", key)
	}
	entry, ok := cache.Read(querycache.K("categories"))
	require.True(t, ok)
	assert.False(t, entry.Stale, "reference data ignores product mutations")
	assert.Len(t, cacheStateAfterMutation, 2)
}

func TestErrorsPropagateUnchangedAndSkipInvalidation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /products/p1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"message": "not the seller"})
	})
	client, cache, _ := newClient(t, mux)
	ctx := context.Background()

	_, err := cache.GetOrFetch(ctx, products.ListKey(products.Filters{}), querycache.ClassVolatile,
		func(context.Context) (any, error) { return "cached", nil })
	require.NoError(t, err)

	err = client.Delete(ctx, "p1")
	apiErr, ok := httpx.AsAPIError(err)
	require.True(t, ok, "service must not translate transport errors")
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "not the seller", apiErr.Message)

	entry, ok := cache.Read(products.ListKey(products.Filters{}))
	require.True(t, ok)
	assert.False(t, entry.Stale, "failed mutations must not invalidate")
}

func TestConditionFromLabel(t *testing.T) {
	cond, ok := products.ConditionFromLabel(" Like New ")
	require.True(t, ok)
	assert.Equal(t, products.ConditionLikeNew, cond)

	_, ok = products.ConditionFromLabel("mystery state")
	assert.False(t, ok)
}
