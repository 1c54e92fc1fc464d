package publish

// State is one phase of the publication pipeline. The pipeline is strictly
// linear: within a single submission states are visited in order and never
// repeated.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateUploadingImages
	StateResolvingReferences
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateUploadingImages:
		return "uploading_images"
	case StateResolvingReferences:
		return "resolving_references"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
