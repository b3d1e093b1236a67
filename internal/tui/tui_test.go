package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/mergedeps/internal/depgraph"
)

func TestPrintConflicts_NoConflicts(t *testing.T) {
	var buf bytes.Buffer
	PrintConflicts(&buf, depgraph.AnalysisResult{
		Stats: depgraph.Stats{PRCount: 3, FileCount: 5, CandidatePairCount: 1, WallTime: 2 * time.Millisecond},
	})

	out := buf.String()
	if !strings.Contains(out, "No conflicts found.") {
		t.Errorf("expected no-conflicts message, got: %q", out)
	}
	if !strings.Contains(out, "Analyzed 3 PRs") {
		t.Errorf("expected stats summary, got: %q", out)
	}
}

func TestPrintConflicts_WithConflicts(t *testing.T) {
	var buf bytes.Buffer
	result := depgraph.AnalysisResult{
		Stats: depgraph.Stats{PRCount: 2, FileCount: 1, CandidatePairCount: 1},
		Conflicts: []depgraph.Conflict{
			{
				PRAID: 1,
				PRBID: 2,
				Files: []depgraph.FileConflict{
					{Path: "main.go", WholeFile: false, Overlaps: []depgraph.RangeOverlap{
						{A: depgraph.LineRange{Start: 1, End: 5}, B: depgraph.LineRange{Start: 3, End: 8}},
					}},
				},
			},
		},
	}
	PrintConflicts(&buf, result)

	out := buf.String()
	if !strings.Contains(out, "#1") || !strings.Contains(out, "#2") {
		t.Errorf("expected PR ids in output, got: %q", out)
	}
	if !strings.Contains(out, "main.go") {
		t.Errorf("expected file path in output, got: %q", out)
	}
	if !strings.Contains(out, "overlapping range") {
		t.Errorf("expected overlap detail, got: %q", out)
	}
}

func TestConflictResolutionPrompt(t *testing.T) {
	var buf bytes.Buffer
	ConflictResolutionPrompt(&buf, "/tmp/repo", []string{"a.go", "b.go"})

	out := buf.String()
	for _, want := range []string{"/tmp/repo", "a.go", "b.go", "[c] Continue", "[a] Abort"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got: %q", want, out)
		}
	}
}
