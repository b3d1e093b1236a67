// Package testgen generates synthetic PR batches for scale and benchmark
// testing of internal/depgraph, ported from the original implementation's
// criterion benchmark harness (benches/dependency_analysis.rs).
package testgen

import (
	"fmt"

	"github.com/codeGROOVE-dev/mergedeps/internal/depgraph"
)

// Scenario names a named (numPRs, filesPerPR, overlapRate, linesPerFile)
// combination from the calibration table.
type Scenario struct {
	Name         string
	NumPRs       int
	FilesPerPR   int
	OverlapRate  float64
	LinesPerFile int
}

// Scenarios mirrors the benchmark suite's scenario table: small/medium/large
// scale release batches at increasing overlap density, plus stress and
// worst-case scenarios.
var Scenarios = []Scenario{
	{"small_sparse", 30, 8, 0.1, 3},
	{"small_medium", 30, 8, 0.3, 3},
	{"small_dense", 30, 8, 0.7, 3},
	{"medium_sparse", 100, 12, 0.15, 4},
	{"medium_medium", 100, 12, 0.35, 4},
	{"medium_dense", 100, 12, 0.6, 4},
	{"large_sparse", 300, 15, 0.1, 5},
	{"large_medium", 300, 15, 0.25, 5},
	{"large_dense", 300, 15, 0.5, 5},
	{"stress_sparse", 500, 20, 0.1, 6},
	{"stress_medium", 500, 20, 0.3, 6},
	{"worst_case", 100, 5, 1.0, 3},
}

// Generate produces a deterministic synthetic batch for the given
// parameters, following the same construction the original benchmark
// used: a pool of files shared across PRs at the requested overlap rate,
// plus files unique to each PR, with line ranges that may themselves
// overlap across PRs touching the same shared file.
func Generate(numPRs, filesPerPR int, overlapRate float64, linesPerFile int) ([]depgraph.PRInfo, map[int][]depgraph.FileChange) {
	prs := make([]depgraph.PRInfo, 0, numPRs)
	changes := make(map[int][]depgraph.FileChange, numPRs)

	totalUniqueFiles := int(float64(numPRs)*float64(filesPerPR)*(1.0-overlapRate*0.5) + 0.999999)
	sharedFiles := int(float64(totalUniqueFiles) * overlapRate)
	if sharedFiles < 1 {
		sharedFiles = 1
	}

	sharedPerPR := int(float64(filesPerPR) * overlapRate)

	for i := range numPRs {
		prID := i + 1
		commitID := fmt.Sprintf("abc%04x", i)
		prs = append(prs, depgraph.PRInfo{
			ID:       prID,
			Title:    fmt.Sprintf("PR #%d", prID),
			Selected: i%3 == 0,
			CommitID: &commitID,
		})

		prChanges := make([]depgraph.FileChange, 0, filesPerPR)
		for j := range filesPerPR {
			var fileIdx int
			if j < sharedPerPR {
				fileIdx = (i + j) % sharedFiles
			} else {
				fileIdx = sharedFiles + i*filesPerPR + j
			}

			path := fmt.Sprintf("src/module%d/file%d.go", fileIdx/10, fileIdx%100)

			ranges := make([]depgraph.LineRange, 0, linesPerFile)
			for k := range linesPerFile {
				start := (i*50+k*20)%1000 + 1
				end := start + 10 + k%5
				r, err := depgraph.NewLineRange(start, end)
				if err != nil {
					// Construction parameters above always satisfy
					// start <= end and start >= 1; a violation means
					// this generator itself has a bug.
					panic(fmt.Sprintf("testgen: invalid generated range: %v", err))
				}
				ranges = append(ranges, r)
			}

			prChanges = append(prChanges, depgraph.FileChange{
				Path:   path,
				Kind:   depgraph.Modify,
				Ranges: ranges,
			})
		}
		changes[prID] = prChanges
	}

	return prs, changes
}
