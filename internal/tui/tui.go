// Package tui renders dependency-analysis results and conflict-resolution
// prompts to a terminal. It mirrors the panel layout of an interactive
// merge-conflict screen (title, file list, instructions, help) but as
// plain text, since this tool runs non-interactively far more often than
// it runs attended.
package tui

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/codeGROOVE-dev/mergedeps/internal/depgraph"
)

// PrintConflicts renders an AnalysisResult as a human-readable report.
func PrintConflicts(w io.Writer, result depgraph.AnalysisResult) {
	fmt.Fprintf(w, "Analyzed %d PRs, %d files, %d candidate pairs in %s\n",
		result.Stats.PRCount, result.Stats.FileCount, result.Stats.CandidatePairCount, result.Stats.WallTime)

	if len(result.Conflicts) == 0 {
		fmt.Fprintln(w, "No conflicts found.")
		return
	}

	fmt.Fprintf(w, "\n%d conflicting PR pair(s):\n\n", len(result.Conflicts))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PR A\tPR B\tFILE\tDETAIL")
	for _, c := range result.Conflicts {
		for _, fc := range c.Files {
			detail := "whole file"
			if !fc.WholeFile {
				detail = fmt.Sprintf("%d overlapping range(s)", len(fc.Overlaps))
			}
			fmt.Fprintf(tw, "#%d\t#%d\t%s\t%s\n", c.PRAID, c.PRBID, fc.Path, detail)
		}
	}
	tw.Flush()
}

// ConflictResolutionPrompt renders the instructions shown to a user who
// must manually resolve a cherry-pick conflict before the tool can
// continue: the repository path, the files git reports as unmerged, and
// the two keys that advance or abandon the operation.
func ConflictResolutionPrompt(w io.Writer, repoPath string, conflictedFiles []string) {
	fmt.Fprintln(w, "== Merge Conflict Detected ==")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Conflicted Files:")
	for _, f := range conflictedFiles {
		fmt.Fprintf(w, "  - %s\n", f)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Repository: %s\n", repoPath)
	fmt.Fprintln(w, "Please resolve conflicts in another terminal and stage the changes.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "[c] Continue (after resolving)   [a] Abort")
}
