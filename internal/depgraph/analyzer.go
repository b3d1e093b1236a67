package depgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Options configures one Analyze run. The zero value means host-CPU
// parallelism and no cancellation, but also adjacent-range coalescing
// disabled and no change kind treated as whole-file; DefaultOptions
// returns coalescing enabled and Add/Delete/Rename as whole-file kinds.
type Options struct {
	// Parallelism is the worker count; 0 means host CPU count.
	Parallelism int
	// Cancel is polled at pair granularity; nil means never cancelled.
	Cancel CancelFunc
	// CoalesceAdjacent treats [a,b],[b+1,c] as touching during
	// normalization when true (the default via DefaultOptions).
	CoalesceAdjacent bool
	// WholeFileChangeKinds lists kinds that force a whole-file conflict
	// regardless of declared ranges. Defaults to {Add, Delete, Rename}
	// via DefaultOptions.
	WholeFileChangeKinds []ChangeKind
}

// DefaultOptions returns the spec-mandated defaults.
func DefaultOptions() Options {
	return Options{
		CoalesceAdjacent:     true,
		WholeFileChangeKinds: []ChangeKind{Add, Delete, Rename},
	}
}

func (o Options) wholeFile(k ChangeKind) bool {
	for _, wk := range o.WholeFileChangeKinds {
		if wk == k {
			return true
		}
	}
	return false
}

// Analyzer runs dependency analysis with a fixed configuration, mirroring
// the upstream design's DependencyAnalyzer: construct once, call Analyze
// per batch.
type Analyzer struct {
	opts Options
}

// New constructs an Analyzer with the given options. Zero-value fields in
// opts that correspond to spec defaults (CoalesceAdjacent,
// WholeFileChangeKinds) should be set via DefaultOptions first if the
// caller wants the standard behavior; New does not silently substitute
// defaults, since an explicit empty WholeFileChangeKinds is a legitimate
// configuration (never treat anything as whole-file regardless of kind).
func New(opts Options) *Analyzer {
	return &Analyzer{opts: opts}
}

// Analyze runs the full four-stage pipeline (normalize, build index,
// generate candidates, verify and aggregate) over prList/prChanges and
// returns the deterministic conflict graph.
func (an *Analyzer) Analyze(ctx context.Context, prList []PRInfo, prChanges map[int][]FileChange) (AnalysisResult, error) {
	start := monotonicNow()

	if len(prList) == 0 {
		return AnalysisResult{}, ErrEmptyBatch
	}
	if err := checkConsistent(prList, prChanges); err != nil {
		return AnalysisResult{}, err
	}

	batch, err := normalize(prChanges, an.opts.CoalesceAdjacent)
	if err != nil {
		return AnalysisResult{}, err
	}

	idOf := DensePRIndexes(prList)
	idx := BuildIndex(idOf, batch.changes)

	candidates, err := parallelGenerateCandidates(ctx, idx, an.opts.Parallelism)
	if err != nil {
		return AnalysisResult{}, translateCancelErr(err)
	}

	conflicts, err := parallelVerify(ctx, idx, batch, candidates, an.opts, an.opts.Parallelism, an.opts.Cancel)
	if err != nil {
		return AnalysisResult{}, translateCancelErr(err)
	}

	merged := mergeConflictsByPair(conflicts)
	sortConflicts(merged)

	return AnalysisResult{
		Conflicts: merged,
		Stats: Stats{
			PRCount:               len(prList),
			FileCount:             idx.FileCount(),
			CandidatePairCount:    len(candidates),
			VerifiedConflictCount: len(merged),
			WallTime:              sinceMonotonic(start),
		},
	}, nil
}

// Analyze is a convenience entry point equivalent to
// New(opts).Analyze(ctx, ...), matching spec.md §6's
// free-function signature for callers that don't need a reusable
// Analyzer value.
func Analyze(ctx context.Context, prList []PRInfo, prChanges map[int][]FileChange, opts Options) (AnalysisResult, error) {
	return New(opts).Analyze(ctx, prList, prChanges)
}

// checkConsistent enforces that prList and prChanges describe exactly the
// same set of PR ids in both directions, per the InconsistentInput error
// definition.
func checkConsistent(prList []PRInfo, prChanges map[int][]FileChange) error {
	ids := make(map[int]bool, len(prList))
	for _, pr := range prList {
		ids[pr.ID] = true
	}
	for id := range prChanges {
		if !ids[id] {
			return fmt.Errorf("%w: pr id %d in changes but not in PR list", ErrInconsistentInput, id)
		}
	}
	for id := range ids {
		if _, ok := prChanges[id]; !ok {
			return fmt.Errorf("%w: pr id %d in PR list but not in changes", ErrInconsistentInput, id)
		}
	}
	return nil
}

// mergeConflictsByPair deduplicates conflicts that arrived from different
// verification workers for the same canonical pair (this can happen only
// if a caller reuses PR ids across an inconsistent batch; within one
// Analyze run, parallelVerify already emits at most one Conflict per
// pair, since the candidate generator's output is pre-merged across
// files). Kept to make the pipeline robust to future candidate-generation
// strategies that do emit duplicate pairs.
func mergeConflictsByPair(conflicts []Conflict) []Conflict {
	byPair := make(map[[2]int]*Conflict, len(conflicts))
	var order [][2]int
	for _, c := range conflicts {
		key := [2]int{c.PRAID, c.PRBID}
		if existing, ok := byPair[key]; ok {
			existing.Files = mergeFileConflicts(existing.Files, c.Files)
			continue
		}
		cp := c
		byPair[key] = &cp
		order = append(order, key)
	}
	out := make([]Conflict, 0, len(order))
	for _, key := range order {
		out = append(out, *byPair[key])
	}
	return out
}

func mergeFileConflicts(a, b []FileConflict) []FileConflict {
	byPath := make(map[string]FileConflict, len(a)+len(b))
	var order []string
	for _, fc := range append(append([]FileConflict{}, a...), b...) {
		if existing, ok := byPath[fc.Path]; ok {
			existing.WholeFile = existing.WholeFile || fc.WholeFile
			existing.Overlaps = append(existing.Overlaps, fc.Overlaps...)
			byPath[fc.Path] = existing
			continue
		}
		byPath[fc.Path] = fc
		order = append(order, fc.Path)
	}
	sort.Strings(order)
	out := make([]FileConflict, 0, len(order))
	for _, p := range order {
		out = append(out, byPath[p])
	}
	return out
}

// sortConflicts sorts a conflict list lexicographically by (pr_a_id,
// pr_b_id) and, within each conflict, files by path and overlaps by the
// first range's start.
func sortConflicts(conflicts []Conflict) {
	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].PRAID != conflicts[j].PRAID {
			return conflicts[i].PRAID < conflicts[j].PRAID
		}
		return conflicts[i].PRBID < conflicts[j].PRBID
	})
	for ci := range conflicts {
		files := conflicts[ci].Files
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
		for fi := range files {
			overlaps := files[fi].Overlaps
			sort.Slice(overlaps, func(i, j int) bool { return overlaps[i].A.Start < overlaps[j].A.Start })
		}
	}
}

func translateCancelErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrCancelled
	}
	return err
}

// monotonicNow/sinceMonotonic isolate the one non-deterministic input
// (wall-clock time) to Stats.WallTime, which callers are told to ignore
// when comparing AnalysisResult values for determinism.
func monotonicNow() time.Time { return time.Now() }

func sinceMonotonic(start time.Time) time.Duration { return time.Since(start) }
