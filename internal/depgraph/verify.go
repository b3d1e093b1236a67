package depgraph

import (
	"fmt"
	"sort"
)

// verifyPair inspects every file shared by prA and prB and produces a
// Conflict if at least one shared file has a true line-range overlap or
// is whole-file contended. It returns (nil, nil) when no shared file
// produces a conflict.
func verifyPair(prA, prB int, sharedFiles []string, batch *normalizedBatch, opts Options) (*Conflict, error) {
	a, b := prA, prB
	if a > b {
		a, b = b, a
	}

	var fileConflicts []FileConflict
	for _, path := range sharedFiles {
		fcA, okA := batch.changeFor(a, path)
		fcB, okB := batch.changeFor(b, path)
		if !okA || !okB {
			return nil, fmt.Errorf("%w: pr %d/%d share file %q per index but not per normalized batch", ErrInternal, prA, prB, path)
		}

		fc, ok, err := verifyFile(path, fcA, fcB, opts)
		if err != nil {
			return nil, err
		}
		if ok {
			fileConflicts = append(fileConflicts, fc)
		}
	}

	if len(fileConflicts) == 0 {
		return nil, nil
	}

	sort.Slice(fileConflicts, func(i, j int) bool { return fileConflicts[i].Path < fileConflicts[j].Path })
	return &Conflict{PRAID: a, PRBID: b, Files: fileConflicts}, nil
}

// verifyFile checks a single shared file for a conflict between the two
// PRs' changes to it.
func verifyFile(path string, a, b FileChange, opts Options) (FileConflict, bool, error) {
	if opts.wholeFile(a.Kind) || opts.wholeFile(b.Kind) {
		return FileConflict{Path: path, WholeFile: true}, true, nil
	}
	if len(a.Ranges) == 0 || len(b.Ranges) == 0 {
		// A PR touches the file without declaring line ranges (e.g. a
		// whole-file rename or delete not covered by opts.wholeFile) —
		// treat as whole-file per spec's special case.
		return FileConflict{Path: path, WholeFile: true}, true, nil
	}

	overlaps, err := mergeOverlaps(a.Ranges, b.Ranges)
	if err != nil {
		return FileConflict{}, false, err
	}
	if len(overlaps) == 0 {
		return FileConflict{}, false, nil
	}
	return FileConflict{Path: path, Overlaps: overlaps}, true, nil
}

// mergeOverlaps performs a linear merge over two sorted, disjoint range
// lists, recording every pair that shares at least one line. It requires
// both inputs to already be sorted-disjoint (the Normalizer's contract);
// a violation is an internal invariant error, not a data error.
func mergeOverlaps(a, b []LineRange) ([]RangeOverlap, error) {
	if err := requireSortedDisjoint(a); err != nil {
		return nil, err
	}
	if err := requireSortedDisjoint(b); err != nil {
		return nil, err
	}

	var overlaps []RangeOverlap
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].overlaps(b[j]) {
			overlaps = append(overlaps, RangeOverlap{A: a[i], B: b[j]})
			// Advance whichever range ends first; a range can overlap
			// more than one range from the other side.
			if a[i].End <= b[j].End {
				i++
			} else {
				j++
			}
			continue
		}
		if a[i].Start < b[j].Start {
			i++
		} else {
			j++
		}
	}

	sort.Slice(overlaps, func(x, y int) bool { return overlaps[x].A.Start < overlaps[y].A.Start })
	return overlaps, nil
}

func requireSortedDisjoint(ranges []LineRange) error {
	for i := 1; i < len(ranges); i++ {
		if ranges[i].Start <= ranges[i-1].End {
			return fmt.Errorf("%w: ranges not sorted-disjoint at index %d", ErrInternal, i)
		}
	}
	return nil
}
