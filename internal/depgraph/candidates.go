package depgraph

// pair is an unordered PR-index pair with a < b, the shared currency
// between the candidate generator and the verifier.
type pair struct {
	a, b int
}

// candidatesForFile walks one file's bitmap and emits every pair of set
// bits, a < b. The same pair may be emitted once per shared file; callers
// aggregate across files.
func candidatesForFile(bs interface{ NextSet(uint) (uint, bool) }, into func(pair)) {
	var bits []int
	for i, ok := bs.NextSet(0); ok; i, ok = bs.NextSet(i + 1) {
		bits = append(bits, int(i))
	}
	for i := 0; i < len(bits); i++ {
		for j := i + 1; j < len(bits); j++ {
			into(pair{a: bits[i], b: bits[j]})
		}
	}
}

// generateCandidates enumerates every candidate pair in the index,
// deduplicated, along with the shared files for each. Populations of 0
// or 1 contribute no pairs but are retained in the index for round-trip
// fidelity, per spec.
func generateCandidates(idx *PRBitmapIndex) map[pair][]string {
	sharedByPair := make(map[pair][]string)
	for _, path := range idx.paths {
		bs := idx.byPath[path]
		if bs.Count() < 2 {
			continue
		}
		candidatesForFile(bs, func(p pair) {
			sharedByPair[p] = append(sharedByPair[p], path)
		})
	}
	return sharedByPair
}
