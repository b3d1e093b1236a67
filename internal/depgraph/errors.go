package depgraph

import "errors"

// Sentinel errors matching the error taxonomy: InvalidRange, EmptyBatch,
// InconsistentInput, Cancelled, Internal. Callers should use errors.Is
// against these rather than matching error text.
var (
	// ErrInvalidRange is returned when a line range violates
	// 1 <= start <= end.
	ErrInvalidRange = errors.New("depgraph: invalid line range")

	// ErrEmptyBatch is returned when the PR list passed to Analyze is
	// empty. Callers decide whether this is exceptional.
	ErrEmptyBatch = errors.New("depgraph: empty PR batch")

	// ErrInconsistentInput is returned when a PR id appears in the
	// changes map but not in the PR list, or vice versa.
	ErrInconsistentInput = errors.New("depgraph: PR list and change map disagree")

	// ErrCancelled is returned when cooperative cancellation was
	// requested before the analysis completed.
	ErrCancelled = errors.New("depgraph: analysis cancelled")

	// ErrInternal indicates an invariant violation detected during
	// verification. This should be unreachable in correct code; it means
	// the normalizer produced output that violated its own contract.
	ErrInternal = errors.New("depgraph: internal invariant violation")
)
