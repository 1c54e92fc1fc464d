// Package uploads is the resource service for image uploads. A single
// upload posts one multipart file and returns its stable URL; batch uploads
// fan out concurrently and report partial success instead of failing as a
// unit, leaving the policy decision (zero successes is fatal, some failures
// tolerable) to the caller.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tezga/tezga_sdk_go/internal/apix"
	"github.com/tezga/tezga_sdk_go/internal/httpx"
)

// DefaultTimeout bounds a single image upload; transfers are slower than
// JSON calls so the window is wider than the transport default.
const DefaultTimeout = 30 * time.Second

// File is one pending local image.
type File struct {
	Name string
	Data io.Reader
}

// Failure records one upload that did not produce a URL.
type Failure struct {
	Name string
	Err  error
}

// BatchResult is the outcome of a fan-out upload: URLs in input order for
// the successes, plus the failures. Callers surface a count mismatch rather
// than silently dropping files.
type BatchResult struct {
	URLs   []string
	Failed []Failure
}

// Option configures the uploads client.
type Option func(*Client)

// WithTimeout overrides the per-upload timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client maps the upload endpoint.
type Client struct {
	http    *httpx.Client
	timeout time.Duration
}

// New constructs the uploads client over the shared transport.
func New(http *httpx.Client, opts ...Option) *Client {
	c := &Client{http: http, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UploadImage posts one image as multipart form data and returns its URL.
func (c *Client) UploadImage(ctx context.Context, file File) (string, error) {
	if strings.TrimSpace(file.Name) == "" {
		return "", errors.New("uploads: file name is required")
	}
	if file.Data == nil {
		return "", errors.New("uploads: file data is required")
	}

	buf := &bytes.Buffer{}
	form := multipart.NewWriter(buf)
	part, err := form.CreateFormFile("image", file.Name)
	if err != nil {
		return "", fmt.Errorf("uploads: build form: %w", err)
	}
	if _, err := io.Copy(part, file.Data); err != nil {
		return "", fmt.Errorf("uploads: read image: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("uploads: finish form: %w", err)
	}

	body, err := c.http.Do(ctx, &httpx.Request{
		Method:       http.MethodPost,
		Path:         "/upload/image",
		RawBody:      buf,
		ContentType:  form.FormDataContentType(),
		RequiresAuth: true,
		Timeout:      c.timeout,
	})
	if err != nil {
		return "", err
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := apix.DecodeData(body, &payload); err != nil {
		return "", fmt.Errorf("uploads: decode upload response: %w", err)
	}
	if payload.URL == "" {
		return "", errors.New("uploads: response carried no URL")
	}
	return payload.URL, nil
}

// UploadImages uploads the batch concurrently and waits for every upload to
// settle. URLs keep the input order of their files; failed or empty results
// are filtered out and reported separately.
func (c *Client) UploadImages(ctx context.Context, files []File) BatchResult {
	results := make([]string, len(files))
	failures := make([]*Failure, len(files))

	var wg sync.WaitGroup
	for i := range files {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			url, err := c.UploadImage(ctx, files[i])
			if err != nil {
				failures[i] = &Failure{Name: files[i].Name, Err: err}
				return
			}
			results[i] = url
		}(i)
	}
	wg.Wait()

	var out BatchResult
	for i := range files {
		if failures[i] != nil {
			out.Failed = append(out.Failed, *failures[i])
			continue
		}
		if results[i] != "" {
			out.URLs = append(out.URLs, results[i])
		}
	}
	return out
}
