// Package depgraph computes the pairwise conflict graph over a batch of
// pull requests: two PRs conflict when they modify overlapping regions of
// the same file. It is a pure, in-memory batch engine — no network or
// file-system access, no persistence. See the surrounding repository's
// internal/ghclient, internal/gitcmd, and internal/tui packages for the
// collaborators that produce the input batch and consume the result.
package depgraph

import "time"

// ChangeKind identifies the kind of change a FileChange represents.
type ChangeKind int

// Recognized change kinds. The zero value is Modify, matching the common
// case of a PR editing an existing file without adding, deleting, or
// renaming it.
const (
	Modify ChangeKind = iota
	Add
	Delete
	Rename
)

// String renders the ChangeKind for logging and error messages.
func (k ChangeKind) String() string {
	switch k {
	case Modify:
		return "modify"
	case Add:
		return "add"
	case Delete:
		return "delete"
	case Rename:
		return "rename"
	default:
		return "unknown"
	}
}

// LineRange is an inclusive, 1-based line interval. Construct with
// NewLineRange to enforce Start <= End and Start >= 1; the zero value is
// not a valid range.
type LineRange struct {
	Start int
	End   int
}

// NewLineRange validates and constructs a LineRange.
func NewLineRange(start, end int) (LineRange, error) {
	if start < 1 {
		return LineRange{}, ErrInvalidRange
	}
	if start > end {
		return LineRange{}, ErrInvalidRange
	}
	return LineRange{Start: start, End: end}, nil
}

// overlaps reports whether r and other share at least one line.
func (r LineRange) overlaps(other LineRange) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// adjacent reports whether other begins exactly one line after r ends,
// the only gap width the normalizer coalesces (spec note: byte-adjacent
// only, not a fuzzy small-gap merge).
func (r LineRange) adjacent(other LineRange) bool {
	return other.Start == r.End+1
}

// FileChange is one PR's modification to a single file.
type FileChange struct {
	// Path is the canonicalized file path this change applies to. For
	// Rename changes, Path holds the new path and OldPath the previous
	// one.
	Path    string
	OldPath string
	Kind    ChangeKind
	// Ranges is the ordered, disjoint, start-sorted list of line ranges
	// touched by this change. An empty Ranges list means the change is
	// whole-file in nature (common for Add/Delete/Rename, but also legal
	// for Modify when no line-level detail is available).
	Ranges []LineRange
}

// PRInfo is the caller-supplied identity and metadata for one pull
// request. All fields besides ID are opaque pass-through metadata: the
// analyzer never branches on Title or Selected.
type PRInfo struct {
	CommitID *string
	Title    string
	ID       int
	Selected bool
}

// Conflict is a confirmed dependency between two PRs: at least one shared
// file has an overlapping line range, or a shared file is whole-file
// contended (e.g. both PRs add, delete, or rename it).
type Conflict struct {
	PRAID int
	PRBID int
	Files []FileConflict
}

// FileConflict describes the overlap found in one file shared by the two
// PRs in a Conflict.
type FileConflict struct {
	Path      string
	WholeFile bool
	Overlaps  []RangeOverlap
}

// RangeOverlap pairs one range from each PR's change to the same file
// that share at least one line.
type RangeOverlap struct {
	A LineRange
	B LineRange
}

// Stats summarizes one analysis run.
type Stats struct {
	PRCount               int
	FileCount             int
	CandidatePairCount    int
	VerifiedConflictCount int
	WallTime              time.Duration
}

// AnalysisResult is the output of Analyze: a deterministic, sorted
// conflict list plus run statistics.
type AnalysisResult struct {
	Conflicts []Conflict
	Stats     Stats
}
