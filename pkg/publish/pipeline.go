// Package publish orchestrates the multi-stage product publication flow:
// validate the draft, upload pending images, resolve the human-readable
// category and condition into canonical identifiers, submit, navigate. Each
// stage has a defined failure point and every failure leaves the draft (and
// any already-uploaded image URLs) intact so a retry re-enters nothing.
package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/tezga/tezga_sdk_go/pkg/products"
	"github.com/tezga/tezga_sdk_go/pkg/search"
	"github.com/tezga/tezga_sdk_go/pkg/uploads"
)

var (
	// ErrNoImages fails validation before any network call is made.
	ErrNoImages = errors.New("publish: add at least one image")
	// ErrUploadFailed means no upload produced a usable URL.
	ErrUploadFailed = errors.New("publish: image upload failed")
	// ErrUnknownCategory is a local resolution failure; it does not consume
	// a submission attempt.
	ErrUnknownCategory = errors.New("publish: select a category")
	// ErrUnknownCondition is a local resolution failure; it does not
	// consume a submission attempt.
	ErrUnknownCondition = errors.New("publish: select a condition")
	// ErrMissingProductID means the create call succeeded but the response
	// carried no identifier. The listing may exist server-side, so the
	// submission must not be retried automatically.
	ErrMissingProductID = errors.New("publish: created product has no id")
)

// Draft is the transient client-only aggregate being published. It lives
// until submission succeeds or the user discards it and is never partially
// persisted server-side.
type Draft struct {
	Title       string
	Description string
	Price       int
	// Category and Condition hold the human-readable choices from the
	// selling form; the pipeline resolves them to canonical identifiers.
	Category  string
	Condition string
	Size      string
	Brand     string
	Color     string
	City      string

	// PendingImages are local files not yet uploaded. ImageURLs are stable
	// URLs from previous (possibly failed) attempts; they are reused, not
	// re-uploaded.
	PendingImages []uploads.File
	ImageURLs     []string
}

// Result is the successful outcome: the server-assigned listing ID and the
// navigation intent handed to the router.
type Result struct {
	ProductID     string
	ImageURLs     []string
	FailedUploads []uploads.Failure
	Navigation    string
}

// Pipeline drives one draft through the publication states. A Pipeline is
// not safe for concurrent submissions; each UI flow owns one instance.
type Pipeline struct {
	products *products.Client
	search   *search.Client
	uploads  *uploads.Client

	state State

	// OnTransition, when set, observes every state change.
	OnTransition func(State)
}

// New constructs a pipeline over the shared service clients.
func New(prods *products.Client, srch *search.Client, upl *uploads.Client) *Pipeline {
	return &Pipeline{products: prods, search: srch, uploads: upl, state: StateIdle}
}

// State reports the pipeline's current phase.
func (p *Pipeline) State() State {
	return p.state
}

func (p *Pipeline) transition(s State) {
	p.state = s
	if p.OnTransition != nil {
		p.OnTransition(s)
	}
}

func (p *Pipeline) fail(err error) (*Result, error) {
	p.transition(StateFailed)
	return nil, err
}

// Submit runs the draft through the pipeline. On failure the draft keeps
// the user's input and any uploaded image URLs; calling Submit again resumes
// with those URLs and only re-uploads files still pending.
func (p *Pipeline) Submit(ctx context.Context, draft *Draft) (*Result, error) {
	if draft == nil {
		return nil, errors.New("publish: draft is nil")
	}

	p.transition(StateValidating)
	if len(draft.PendingImages) == 0 && len(draft.ImageURLs) == 0 {
		return p.fail(ErrNoImages)
	}

	p.transition(StateUploadingImages)
	var failed []uploads.Failure
	if len(draft.PendingImages) > 0 {
		batch := p.uploads.UploadImages(ctx, draft.PendingImages)
		failed = batch.Failed
		draft.ImageURLs = append(draft.ImageURLs, batch.URLs...)
		if len(draft.ImageURLs) == 0 {
			// Partial failures with at least one URL proceed; zero
			// usable URLs is fatal. Uploaded orphans are not cleaned
			// up server-side.
			return p.fail(fmt.Errorf("%w: %d of %d uploads failed", ErrUploadFailed, len(batch.Failed), len(draft.PendingImages)))
		}
		draft.PendingImages = nil
	}

	p.transition(StateResolvingReferences)
	category, err := p.search.ResolveCategory(ctx, draft.Category)
	if err != nil {
		return p.fail(err)
	}
	if category == nil {
		return p.fail(ErrUnknownCategory)
	}
	condition, ok := products.ConditionFromLabel(draft.Condition)
	if !ok {
		return p.fail(ErrUnknownCondition)
	}

	p.transition(StateSubmitting)
	created, err := p.products.Create(ctx, products.CreateInput{
		Title:       draft.Title,
		Description: draft.Description,
		Price:       draft.Price,
		CategoryID:  category.ID,
		Condition:   condition,
		Size:        draft.Size,
		Brand:       draft.Brand,
		Color:       draft.Color,
		City:        draft.City,
		Images:      draft.ImageURLs,
	})
	if err != nil {
		return p.fail(err)
	}
	if created.ID == "" {
		return p.fail(ErrMissingProductID)
	}

	p.transition(StateSucceeded)
	return &Result{
		ProductID:     created.ID,
		ImageURLs:     draft.ImageURLs,
		FailedUploads: failed,
		Navigation:    "/products/" + created.ID,
	}, nil
}
