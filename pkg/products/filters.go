package products

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"strconv"
	"strings"
)

// Filters is the flat set of named values controlling a filtered, paginated
// listing query. It is the single source of truth for one list view and is
// mirrored to the URL query string, so encoding then decoding must yield an
// equal value.
type Filters struct {
	Status     Status
	CategoryID string
	MinPrice   int
	MaxPrice   int
	Condition  Condition
	Conditions []Condition
	Brands     []string
	Sizes      []string
	Colors     []string
	SortBy     string
	Query      string
	Page       int
	Limit      int
}

// Values encodes the filters as URL query parameters. Zero values are
// omitted; array values are comma-joined.
func (f Filters) Values() url.Values {
	q := url.Values{}
	setStr := func(key, v string) {
		if v != "" {
			q.Set(key, v)
		}
	}
	setInt := func(key string, v int) {
		if v > 0 {
			q.Set(key, strconv.Itoa(v))
		}
	}

	setStr("status", string(f.Status))
	setStr("categoryId", f.CategoryID)
	setInt("minPrice", f.MinPrice)
	setInt("maxPrice", f.MaxPrice)
	setStr("condition", string(f.Condition))
	if len(f.Conditions) > 0 {
		parts := make([]string, len(f.Conditions))
		for i, c := range f.Conditions {
			parts[i] = string(c)
		}
		q.Set("conditions", strings.Join(parts, ","))
	}
	if len(f.Brands) > 0 {
		q.Set("brands", strings.Join(f.Brands, ","))
	}
	if len(f.Sizes) > 0 {
		q.Set("sizes", strings.Join(f.Sizes, ","))
	}
	if len(f.Colors) > 0 {
		q.Set("colors", strings.Join(f.Colors, ","))
	}
	setStr("sortBy", f.SortBy)
	setStr("query", f.Query)
	setInt("page", f.Page)
	setInt("limit", f.Limit)
	return q
}

// FiltersFromValues decodes URL query parameters back into Filters. It is
// the inverse of Values for every supported key.
func FiltersFromValues(q url.Values) (Filters, error) {
	var f Filters
	f.Status = Status(q.Get("status"))
	f.CategoryID = q.Get("categoryId")
	f.Condition = Condition(q.Get("condition"))
	f.SortBy = q.Get("sortBy")
	f.Query = q.Get("query")

	for _, field := range []struct {
		key string
		dst *int
	}{
		{"minPrice", &f.MinPrice},
		{"maxPrice", &f.MaxPrice},
		{"page", &f.Page},
		{"limit", &f.Limit},
	} {
		raw := q.Get(field.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Filters{}, fmt.Errorf("products: invalid %s %q", field.key, raw)
		}
		*field.dst = n
	}

	if raw := q.Get("conditions"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			f.Conditions = append(f.Conditions, Condition(part))
		}
	}
	f.Brands = splitList(q.Get("brands"))
	f.Sizes = splitList(q.Get("sizes"))
	f.Colors = splitList(q.Get("colors"))
	return f, nil
}

// Hash condenses the filters into a short stable token used inside cache
// keys. Identical filters always hash identically because Values produces a
// canonical (sorted) encoding.
func (f Filters) Hash() string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(f.Values().Encode()))
	return strconv.FormatUint(h.Sum64(), 36)
}

// WithPage returns a copy positioned at the given page.
func (f Filters) WithPage(page int) Filters {
	f.Page = page
	return f
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
