package products

import "time"

// Status is the lifecycle state of a listing.
type Status string

const (
	StatusActive   Status = "active"
	StatusReserved Status = "reserved"
	StatusSold     Status = "sold"
	StatusArchived Status = "archived"
)

// Condition is the canonical wear grade the backend expects.
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionUsed    Condition = "used"
	ConditionDamaged Condition = "damaged"
)

// conditionLabels maps the human-readable labels shown in the selling form
// onto canonical values.
var conditionLabels = map[string]Condition{
	"new":           ConditionNew,
	"new with tags": ConditionNew,
	"like new":      ConditionLikeNew,
	"very good":     ConditionLikeNew,
	"used":          ConditionUsed,
	"good":          ConditionUsed,
	"damaged":       ConditionDamaged,
	"needs repair":  ConditionDamaged,
}

// ConditionFromLabel resolves a user-facing condition label to its canonical
// value. Resolution is local; an unknown label is a validation failure, not a
// network error.
func ConditionFromLabel(label string) (Condition, bool) {
	c, ok := conditionLabels[normalizeLabel(label)]
	return c, ok
}

// Product is a marketplace listing as returned by the API.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       int       `json:"price"`
	Currency    string    `json:"currency,omitempty"`
	CategoryID  string    `json:"categoryId"`
	Condition   Condition `json:"condition"`
	Size        string    `json:"size,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	Color       string    `json:"color,omitempty"`
	City        string    `json:"city,omitempty"`
	SellerID    string    `json:"sellerId"`
	Status      Status    `json:"status"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateInput is the fully resolved payload for POST /products: canonical
// category ID, canonical condition and final image URLs only.
type CreateInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       int       `json:"price"`
	CategoryID  string    `json:"categoryId"`
	Condition   Condition `json:"condition"`
	Size        string    `json:"size,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	Color       string    `json:"color,omitempty"`
	City        string    `json:"city,omitempty"`
	Images      []string  `json:"images"`
}

// UpdateInput carries the mutable listing fields for PUT /products/:id.
type UpdateInput struct {
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Price       int       `json:"price,omitempty"`
	CategoryID  string    `json:"categoryId,omitempty"`
	Condition   Condition `json:"condition,omitempty"`
	Size        string    `json:"size,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	Color       string    `json:"color,omitempty"`
	City        string    `json:"city,omitempty"`
	Images      []string  `json:"images,omitempty"`
}

// Pagination is the paging metadata attached to list responses.
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

// ListResult is one page of listings plus its paging metadata.
type ListResult struct {
	Products   []Product  `json:"data"`
	Pagination Pagination `json:"pagination"`
}
