package depgraph

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// pathIntern records each canonicalized path seen during normalization
// under its xxhash uint64 key, keeping every distinct string that shares
// a hash. The bitmap index, the candidate generator and the normalizer's
// own grouping map all key on the canonical path string; none of them
// reads this table or its keys.
type pathIntern struct {
	byHash map[uint64][]string
}

func newPathIntern() *pathIntern {
	return &pathIntern{byHash: make(map[uint64][]string)}
}

// key returns the interned key for path, registering it if new.
func (p *pathIntern) key(canonical string) uint64 {
	h := xxhash.Sum64String(canonical)
	for _, existing := range p.byHash[h] {
		if existing == canonical {
			return h
		}
	}
	p.byHash[h] = append(p.byHash[h], canonical)
	return h
}

// canonicalizePath normalizes separators and strips a redundant leading
// "./", comparing case-sensitively thereafter.
func canonicalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	cleaned := path.Clean(p)
	if cleaned == "." {
		return p
	}
	return cleaned
}

// normalizedBatch is the output of normalize: per-PR, per-path disjoint
// sorted FileChange lists, plus the path-intern table built along the way.
type normalizedBatch struct {
	changes map[int][]FileChange
	// byPath[prID][path] gives O(1) access to one PR's change to one
	// file, used by the verifier once the candidate generator has
	// already narrowed down which (pr, pr, file) triples are worth
	// inspecting.
	byPath map[int]map[string]FileChange
	intern *pathIntern
}

func (b *normalizedBatch) changeFor(prID int, path string) (FileChange, bool) {
	m, ok := b.byPath[prID]
	if !ok {
		return FileChange{}, false
	}
	fc, ok := m[path]
	return fc, ok
}

// normalize canonicalizes paths, merges ranges, and collapses duplicate
// (PR, path) entries for every PR in prChanges.
//
// normalize is pure: it never mutates its input, and calling it twice on
// the same input yields byte-identical output (normalization is
// idempotent, since coalescing a list already in disjoint-sorted form is
// a no-op).
func normalize(prChanges map[int][]FileChange, coalesceAdjacent bool) (*normalizedBatch, error) {
	if len(prChanges) == 0 {
		return nil, ErrEmptyBatch
	}

	intern := newPathIntern()
	out := make(map[int][]FileChange, len(prChanges))
	byPathIdx := make(map[int]map[string]FileChange, len(prChanges))

	for prID, changes := range prChanges {
		// Group by canonical path, accumulating ranges and tracking a
		// representative Kind/OldPath pair.
		type bucket struct {
			kind    ChangeKind
			oldPath string
			ranges  []LineRange
		}
		byPath := make(map[string]*bucket)
		var order []string

		for _, ch := range changes {
			canon := canonicalizePath(ch.Path)
			for _, r := range ch.Ranges {
				if r.Start < 1 || r.Start > r.End {
					return nil, fmt.Errorf("pr %d, file %q: %w", prID, canon, ErrInvalidRange)
				}
			}
			intern.key(canon)

			b, ok := byPath[canon]
			if !ok {
				b = &bucket{kind: ch.Kind, oldPath: canonicalizePathIfSet(ch.OldPath)}
				byPath[canon] = b
				order = append(order, canon)
			}
			b.ranges = append(b.ranges, ch.Ranges...)
			// A later change to the same path wins for Kind/OldPath;
			// this mirrors unioning multiple FileChange entries for one
			// (PR, path) pair into a single record.
			b.kind = ch.Kind
			if ch.OldPath != "" {
				b.oldPath = canonicalizePathIfSet(ch.OldPath)
			}
		}

		sort.Strings(order)
		normalizedChanges := make([]FileChange, 0, len(order))
		byPathForPR := make(map[string]FileChange, len(order))
		for _, canon := range order {
			b := byPath[canon]
			fc := FileChange{
				Path:    canon,
				OldPath: b.oldPath,
				Kind:    b.kind,
				Ranges:  coalesceRanges(b.ranges, coalesceAdjacent),
			}
			normalizedChanges = append(normalizedChanges, fc)
			byPathForPR[canon] = fc
			if fc.Kind == Rename && fc.OldPath != "" {
				byPathForPR[fc.OldPath] = fc
			}
		}
		out[prID] = normalizedChanges
		byPathIdx[prID] = byPathForPR
	}

	return &normalizedBatch{changes: out, byPath: byPathIdx, intern: intern}, nil
}

func canonicalizePathIfSet(p string) string {
	if p == "" {
		return ""
	}
	return canonicalizePath(p)
}

// coalesceRanges sorts ranges by start and merges overlapping or
// byte-adjacent ranges, per coalesce_adjacent=true semantics: [a,b] and
// [c,d] with c <= b+1 become [a, max(b,d)].
func coalesceRanges(ranges []LineRange, coalesceAdjacent bool) []LineRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]LineRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := make([]LineRange, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		touches := next.Start <= cur.End || (coalesceAdjacent && next.Start == cur.End+1)
		if touches {
			if next.End > cur.End {
				cur.End = next.End
			}
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	merged = append(merged, cur)
	return merged
}
