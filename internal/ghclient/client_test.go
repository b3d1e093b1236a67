package ghclient

import (
	"testing"

	"github.com/codeGROOVE-dev/mergedeps/internal/depgraph"
)

func TestChangeKindFromStatus(t *testing.T) {
	cases := map[string]depgraph.ChangeKind{
		"added":    depgraph.Add,
		"removed":  depgraph.Delete,
		"renamed":  depgraph.Rename,
		"modified": depgraph.Modify,
		"unknown":  depgraph.Modify,
	}
	for status, want := range cases {
		if got := changeKindFromStatus(status); got != want {
			t.Errorf("changeKindFromStatus(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestParsePatchRanges_SingleHunk(t *testing.T) {
	patch := "@@ -10,5 +12,7 @@ func foo() {\n+line1\n+line2\n context\n"
	ranges := parsePatchRanges(patch)
	if len(ranges) != 1 {
		t.Fatalf("expected 1 range, got %d: %v", len(ranges), ranges)
	}
	if ranges[0].Start != 12 || ranges[0].End != 18 {
		t.Errorf("expected [12,18], got [%d,%d]", ranges[0].Start, ranges[0].End)
	}
}

func TestParsePatchRanges_MultipleHunks(t *testing.T) {
	patch := "@@ -1,2 +1,2 @@\n context\n@@ -50,1 +51,3 @@\n+new\n"
	ranges := parsePatchRanges(patch)
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %d: %v", len(ranges), ranges)
	}
}

func TestParsePatchRanges_SingleLineHunk(t *testing.T) {
	// A hunk header with no comma means a single-line span: "+N @@".
	patch := "@@ -5 +7 @@\n+line\n"
	ranges := parsePatchRanges(patch)
	if len(ranges) != 1 {
		t.Fatalf("expected 1 range, got %d", len(ranges))
	}
	if ranges[0].Start != 7 || ranges[0].End != 7 {
		t.Errorf("expected [7,7], got [%d,%d]", ranges[0].Start, ranges[0].End)
	}
}

func TestParsePatchRanges_EmptyPatch(t *testing.T) {
	if ranges := parsePatchRanges(""); ranges != nil {
		t.Errorf("expected nil for empty patch, got %v", ranges)
	}
}

func TestParsePatchRanges_MalformedHeaderSkipped(t *testing.T) {
	patch := "@@ garbage @@\ncontext\n"
	if ranges := parsePatchRanges(patch); len(ranges) != 0 {
		t.Errorf("expected no ranges from malformed header, got %v", ranges)
	}
}
