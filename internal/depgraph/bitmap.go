package depgraph

import (
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// PRBitmapIndex is the inverted (file -> PRs) index: for each touched
// path, a bitmap with bit i set iff the PR at dense index i touches that
// path. It is built once per analysis run by BuildIndex and is read-only
// thereafter, safe for concurrent use by many goroutines.
type PRBitmapIndex struct {
	byPath map[string]*bitset.BitSet
	// paths holds every key of byPath, sorted once by BuildIndex, so the
	// candidate generator iterates paths in a stable order.
	paths []string

	// idOf maps a PR id to its dense index in [0, N).
	idOf map[int]int
	// prOf is the inverse of idOf: prOf[i] is the PR id at dense index i.
	prOf []int

	n int
}

// BuildIndex constructs a PRBitmapIndex from a dense PR-index assignment
// and normalized per-PR file changes. It is a single pass over changes;
// for every (pr index, path) pair it sets the corresponding bit in that
// path's bitmap.
//
// BuildIndex panics if a change references a PR id absent from idOf —
// that is a programmer error (an inconsistent caller), not a data error,
// per spec: "out-of-range PR indices are a programmer error and should
// abort the run."
func BuildIndex(idOf map[int]int, changes map[int][]FileChange) *PRBitmapIndex {
	n := len(idOf)
	prOf := make([]int, n)
	for prID, idx := range idOf {
		prOf[idx] = prID
	}

	idx := &PRBitmapIndex{
		byPath: make(map[string]*bitset.BitSet),
		idOf:   idOf,
		prOf:   prOf,
		n:      n,
	}

	for prID, fileChanges := range changes {
		prIdx, ok := idOf[prID]
		if !ok {
			panic("depgraph: BuildIndex: change references unknown PR id")
		}
		for _, fc := range fileChanges {
			idx.touch(fc.Path, prIdx)
			if fc.Kind == Rename && fc.OldPath != "" && fc.OldPath != fc.Path {
				idx.touch(fc.OldPath, prIdx)
			}
		}
	}

	idx.paths = make([]string, 0, len(idx.byPath))
	for p := range idx.byPath {
		idx.paths = append(idx.paths, p)
	}
	sort.Strings(idx.paths)

	return idx
}

func (idx *PRBitmapIndex) touch(path string, prIdx int) {
	bs, ok := idx.byPath[path]
	if !ok {
		bs = bitset.New(uint(idx.n))
		idx.byPath[path] = bs
	}
	bs.Set(uint(prIdx))
}

// PRCount returns N, the number of PRs this index was built over.
func (idx *PRBitmapIndex) PRCount() int { return idx.n }

// FileCount returns the number of distinct paths in the index.
func (idx *PRBitmapIndex) FileCount() int { return len(idx.paths) }

// Paths returns the sorted list of distinct paths touched by any PR in
// the batch.
func (idx *PRBitmapIndex) Paths() []string { return idx.paths }

// Bitmap returns the bitmap for path and whether it exists.
func (idx *PRBitmapIndex) Bitmap(path string) (*bitset.BitSet, bool) {
	bs, ok := idx.byPath[path]
	return bs, ok
}

// PRIndex returns the dense index for a PR id.
func (idx *PRBitmapIndex) PRIndex(prID int) (int, bool) {
	i, ok := idx.idOf[prID]
	return i, ok
}

// PRAt returns the PR id at dense index i.
func (idx *PRBitmapIndex) PRAt(i int) int { return idx.prOf[i] }

// DensePRIndexes assigns PR ids to contiguous indices in [0, N) in the
// order they appear in prList, the stable mapping spec.md requires.
func DensePRIndexes(prList []PRInfo) map[int]int {
	idOf := make(map[int]int, len(prList))
	for i, pr := range prList {
		idOf[pr.ID] = i
	}
	return idOf
}
