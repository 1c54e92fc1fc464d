package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is the single error shape surfaced for every failed request:
// network failures, timeouts and non-2xx responses all normalize into it so
// callers need one error-handling path.
type APIError struct {
	Status  int
	Message string
	Data    any
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("api error: status=%d message=%s", e.Status, e.Message)
}

// Timeout reports whether the error was produced by the per-request deadline.
func (e *APIError) Timeout() bool {
	return e != nil && e.Status == http.StatusRequestTimeout
}

// Retryable reports whether the error should be considered transient.
func (e *APIError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.Status == http.StatusTooManyRequests ||
		e.Status == http.StatusRequestTimeout ||
		(e.Status >= 500 && e.Status <= 599)
}

// AsAPIError unwraps err into an *APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// errorFromResponse builds an APIError from a non-2xx response. The body is
// decoded as JSON best-effort; when no usable message is present the HTTP
// status text is used instead.
func errorFromResponse(status int, body []byte) *APIError {
	apiErr := &APIError{
		Status:  status,
		Message: http.StatusText(status),
	}
	if len(body) == 0 {
		return apiErr
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.Error != "":
			apiErr.Message = payload.Error
		}
	}

	var data any
	if err := json.Unmarshal(body, &data); err == nil {
		apiErr.Data = data
	}
	return apiErr
}
