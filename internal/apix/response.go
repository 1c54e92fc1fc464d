// Package apix decodes the Tezga API response envelope. List endpoints wrap
// their payloads as {"data": [...], "pagination": {...}}; single-entity
// endpoints either use the same envelope or return the entity directly.
package apix

import (
	"bytes"
	"encoding/json"
)

// Pagination is the server-side paging metadata attached to list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// HasNextPage reports whether another page exists after the current one.
func (p Pagination) HasNextPage() bool {
	return p.Page < p.TotalPages
}

// Page captures one decoded page of a list endpoint.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// DecodePage decodes a list response body into items plus paging metadata.
func DecodePage[T any](body []byte) (*Page[T], error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &Page[T]{}, nil
	}
	var page Page[T]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DecodeData decodes an entity response into out. When the body carries a
// {"data": ...} envelope the inner payload is used, otherwise the body is
// decoded directly; both shapes occur across the API.
func DecodeData(body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		trimmed = []byte("null")
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err == nil && envelope.Data != nil {
		return json.Unmarshal(envelope.Data, out)
	}
	return json.Unmarshal(trimmed, out)
}
