package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a request when the descriptor does not carry its own.
const DefaultTimeout = 10 * time.Second

// TokenSource resolves the bearer token for authenticated requests. It is a
// side channel deliberately separate from the request descriptor so that
// credentials never travel through request state.
type TokenSource interface {
	Token() (string, bool)
}

// RetryPolicy controls the retry behaviour for transient failures of
// requests explicitly marked retryable.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64
}

// DefaultRetryPolicy implements a conservative retry strategy.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 2,
	BaseDelay:  250 * time.Millisecond,
	MaxDelay:   2 * time.Second,
	Jitter:     0.25,
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithHeaders assigns default headers added to every request.
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		for k, values := range h {
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

// WithTokenSource installs the secure store consulted for authenticated
// requests.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryPolicy overrides the default retry configuration.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// Client is the transport: a stateless translation layer between request
// descriptors and the wire. All failures come back as *APIError.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	headers     http.Header
	tokens      TokenSource
	timeout     time.Duration
	retryPolicy RetryPolicy
}

// Request describes a single outbound call. Immutable per call.
type Request struct {
	Method       string
	Path         string
	Query        url.Values
	Header       http.Header
	RequiresAuth bool
	Timeout      time.Duration

	// Body is JSON-encoded unless RawBody is set (multipart uploads).
	Body        any
	RawBody     io.Reader
	ContentType string

	// Retryable opts the request into transient-failure retries. Mutating
	// requests must leave it false.
	Retryable bool
}

// NewClient creates a Client for the provided base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("httpx: base URL is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("httpx: invalid base URL: %w", err)
	}

	c := &Client{
		baseURL:     parsed,
		httpClient:  &http.Client{},
		headers:     make(http.Header),
		timeout:     DefaultTimeout,
		retryPolicy: DefaultRetryPolicy,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.retryPolicy.MaxRetries < 0 {
		c.retryPolicy.MaxRetries = 0
	}
	if c.retryPolicy.BaseDelay <= 0 {
		c.retryPolicy.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if c.retryPolicy.MaxDelay <= 0 {
		c.retryPolicy.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	return c, nil
}

// Do executes the request and returns the response body. Every failure mode
// (network error, timeout, non-2xx status) yields an *APIError.
func (c *Client) Do(ctx context.Context, req *Request) ([]byte, error) {
	if req == nil {
		return nil, errors.New("httpx: request is nil")
	}
	if req.Method == "" {
		return nil, errors.New("httpx: HTTP method is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	body, contentType, err := c.encodeBody(req)
	if err != nil {
		return nil, err
	}

	fullURL, err := c.buildURL(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	attempt := 0
	backoff := NewBackoff(c.retryPolicy.BaseDelay, c.retryPolicy.MaxDelay, c.retryPolicy.Jitter)
	for {
		data, err := c.doOnce(ctx, req, fullURL, body, contentType, timeout)
		if err == nil {
			return data, nil
		}
		if !c.shouldRetry(req, attempt, err) {
			return nil, err
		}
		delay := backoff.ForAttempt(attempt)
		attempt++
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return nil, err
		}
	}
}

func (c *Client) doOnce(ctx context.Context, req *Request, fullURL string, body []byte, contentType string, timeout time.Duration) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(callCtx, req.Method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("httpx: build request: %w", err)
	}

	httpReq.Header = cloneHeader(c.headers)
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.RequiresAuth {
		if c.tokens == nil {
			return nil, &APIError{Status: http.StatusUnauthorized, Message: "No session"}
		}
		token, ok := c.tokens.Token()
		if !ok {
			return nil, &APIError{Status: http.StatusUnauthorized, Message: "No session"}
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, normalizeTransportError(ctx, callCtx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, normalizeTransportError(ctx, callCtx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorFromResponse(resp.StatusCode, data)
	}
	return data, nil
}

// encodeBody serializes the request body. RawBody is buffered up front so
// Authorization injection and retries never race with a half-consumed reader.
func (c *Client) encodeBody(req *Request) ([]byte, string, error) {
	switch {
	case req.RawBody != nil:
		data, err := io.ReadAll(req.RawBody)
		if err != nil {
			return nil, "", fmt.Errorf("httpx: read request body: %w", err)
		}
		return data, req.ContentType, nil
	case req.Body != nil:
		data, err := jsonMarshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("httpx: encode request body: %w", err)
		}
		return data, "application/json", nil
	default:
		return nil, req.ContentType, nil
	}
}

func (c *Client) shouldRetry(req *Request, attempt int, err error) bool {
	if !req.Retryable {
		return false
	}
	if attempt >= c.retryPolicy.MaxRetries {
		return false
	}
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Retryable()
}

// normalizeTransportError maps low-level failures onto the APIError shape.
// A deadline hit on the per-call context becomes a 408; everything else is
// reported as status 0 (no response).
func normalizeTransportError(parent, call context.Context, err error) *APIError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(call.Err(), context.DeadlineExceeded) {
		if parent.Err() == nil {
			return &APIError{Status: http.StatusRequestTimeout, Message: "Request timeout"}
		}
	}
	if errors.Is(err, context.Canceled) {
		return &APIError{Status: 0, Message: "Request canceled"}
	}
	return &APIError{Status: 0, Message: err.Error()}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// buildURL joins the configured base path (e.g. /api) with the request path.
func (c *Client) buildURL(path string, q url.Values) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	ref, err := url.Parse(strings.TrimSuffix(c.baseURL.Path, "/") + path)
	if err != nil {
		return "", err
	}
	if len(q) > 0 {
		ref.RawQuery = q.Encode()
	}
	full := c.baseURL.ResolveReference(ref)
	return full.String(), nil
}

func cloneHeader(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for k, values := range src {
		vCopy := make([]string, len(values))
		copy(vCopy, values)
		dst[k] = vCopy
	}
	return dst
}

func jsonMarshal(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
