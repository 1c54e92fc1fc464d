package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Token() (string, bool) {
	return string(s), s != ""
}

func TestDoResolvesBasePath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL + "/api")
	require.NoError(t, err)

	_, err = client.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/products"})
	require.NoError(t, err)
	assert.Equal(t, "/api/products", gotPath)
}

func TestDoInjectsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, WithTokenSource(staticTokens("secret-token")))
	require.NoError(t, err)

	_, err = client.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/me", RequiresAuth: true})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)

	// Unauthenticated requests must not leak the token.
	_, err = client.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/products"})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestDoWithoutSessionFailsLocally(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, WithTokenSource(staticTokens("")))
	require.NoError(t, err)

	_, err = client.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/me", RequiresAuth: true})
	apiErr, ok := AsAPIError(err)
	require.True(t, ok, "expected APIError, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, int32(0), calls.Load(), "no request should reach the wire")
}

func TestDoTimeoutProduces408(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Do(context.Background(), &Request{
		Method:  http.MethodGet,
		Path:    "/slow",
		Timeout: 100 * time.Millisecond,
	})
	elapsed := time.Since(start)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok, "expected APIError, got %v", err)
	assert.Equal(t, http.StatusRequestTimeout, apiErr.Status)
	assert.Equal(t, "Request timeout", apiErr.Message)
	assert.True(t, apiErr.Timeout())
	assert.Less(t, elapsed, time.Second, "timeout must not hang")
}

func TestDoNormalizesErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		contentType string
		wantMessage string
	}{
		{"json message", http.StatusUnprocessableEntity, `{"message":"title is required"}`, "application/json", "title is required"},
		{"json error field", http.StatusConflict, `{"error":"already exists"}`, "application/json", "already exists"},
		{"unparseable body", http.StatusBadGateway, `<html>boom</html>`, "text/html", "Bad Gateway"},
		{"empty body", http.StatusNotFound, ``, "application/json", "Not Found"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client, err := NewClient(srv.URL)
			require.NoError(t, err)

			_, err = client.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/x"})
			apiErr, ok := AsAPIError(err)
			require.True(t, ok, "expected APIError, got %v", err)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.wantMessage, apiErr.Message)
		})
	}
}

func TestDoRetriesOnlyRetryableRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, WithRetryPolicy(RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}))
	require.NoError(t, err)

	_, err = client.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/x", Retryable: true})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	calls.Store(0)
	_, err = client.Do(context.Background(), &Request{Method: http.MethodPost, Path: "/x"})
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, int32(1), calls.Load(), "mutations must never retry")
}

func TestJSONBodyEncoding(t *testing.T) {
	var gotBody string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = client.Do(context.Background(), &Request{
		Method: http.MethodPost,
		Path:   "/products",
		Body:   map[string]string{"title": "jakna <svečana>"},
	})
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, `{"title":"jakna <svečana>"}`, gotBody, "HTML escaping must stay off")
}
