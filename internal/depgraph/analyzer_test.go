package depgraph

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func mustRange(t *testing.T, start, end int) LineRange {
	t.Helper()
	r, err := NewLineRange(start, end)
	if err != nil {
		t.Fatalf("NewLineRange(%d, %d): %v", start, end, err)
	}
	return r
}

func TestAnalyze_DisjointFiles(t *testing.T) {
	prs := []PRInfo{{ID: 1}, {ID: 2}}
	changes := map[int][]FileChange{
		1: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 1, 10)}}},
		2: {{Path: "b.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 1, 10)}}},
	}
	res, err := Analyze(context.Background(), prs, changes, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %v", res.Conflicts)
	}
	if res.Stats.CandidatePairCount != 0 {
		t.Errorf("expected 0 candidate pairs, got %d", res.Stats.CandidatePairCount)
	}
}

func TestAnalyze_SameFileDisjointRanges(t *testing.T) {
	prs := []PRInfo{{ID: 1}, {ID: 2}}
	changes := map[int][]FileChange{
		1: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 1, 10)}}},
		2: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 20, 30)}}},
	}
	res, err := Analyze(context.Background(), prs, changes, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Stats.CandidatePairCount != 1 {
		t.Errorf("expected 1 candidate pair, got %d", res.Stats.CandidatePairCount)
	}
	if len(res.Conflicts) != 0 {
		t.Errorf("expected candidate to be verified non-overlapping, got %v", res.Conflicts)
	}
}

func TestAnalyze_SameFileOverlappingRanges(t *testing.T) {
	prs := []PRInfo{{ID: 1}, {ID: 2}}
	changes := map[int][]FileChange{
		1: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 1, 10)}}},
		2: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 5, 15)}}},
	}
	res, err := Analyze(context.Background(), prs, changes, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %v", res.Conflicts)
	}
	c := res.Conflicts[0]
	if c.PRAID != 1 || c.PRBID != 2 {
		t.Errorf("conflict pair = (%d,%d), want (1,2)", c.PRAID, c.PRBID)
	}
	if len(c.Files) != 1 || c.Files[0].Path != "a.txt" {
		t.Fatalf("unexpected files: %v", c.Files)
	}
	wantOverlap := RangeOverlap{A: mustRange(t, 1, 10), B: mustRange(t, 5, 15)}
	if !reflect.DeepEqual(c.Files[0].Overlaps, []RangeOverlap{wantOverlap}) {
		t.Errorf("overlaps = %v, want %v", c.Files[0].Overlaps, wantOverlap)
	}
}

func TestAnalyze_AdjacentRangesDoNotConflictAcrossPRs(t *testing.T) {
	prs := []PRInfo{{ID: 1}, {ID: 2}}
	changes := map[int][]FileChange{
		1: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 1, 10)}}},
		2: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 11, 20)}}},
	}
	res, err := Analyze(context.Background(), prs, changes, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Conflicts) != 0 {
		t.Errorf("adjacent (non-overlapping) ranges across PRs should not conflict, got %v", res.Conflicts)
	}
}

func TestAnalyze_WholeFileDeleteVsModify(t *testing.T) {
	prs := []PRInfo{{ID: 1}, {ID: 2}}
	changes := map[int][]FileChange{
		1: {{Path: "a.txt", Kind: Delete}},
		2: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 5, 10)}}},
	}
	res, err := Analyze(context.Background(), prs, changes, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %v", res.Conflicts)
	}
	fc := res.Conflicts[0].Files[0]
	if !fc.WholeFile {
		t.Error("expected whole-file conflict")
	}
}

func TestAnalyze_ThreeWayOverlapOnTwoFiles(t *testing.T) {
	prs := []PRInfo{{ID: 1}, {ID: 2}, {ID: 3}}
	changes := map[int][]FileChange{
		1: {
			{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 1, 10)}},
			{Path: "b.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 1, 5)}},
		},
		2: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 5, 15)}}},
		3: {{Path: "b.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 3, 8)}}},
	}
	res, err := Analyze(context.Background(), prs, changes, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %v", res.Conflicts)
	}
	if res.Conflicts[0].PRAID != 1 || res.Conflicts[0].PRBID != 2 {
		t.Errorf("conflicts[0] = %+v, want (1,2)", res.Conflicts[0])
	}
	if res.Conflicts[1].PRAID != 1 || res.Conflicts[1].PRBID != 3 {
		t.Errorf("conflicts[1] = %+v, want (1,3)", res.Conflicts[1])
	}
}

func TestAnalyze_EmptyBatch(t *testing.T) {
	_, err := Analyze(context.Background(), nil, nil, DefaultOptions())
	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestAnalyze_InconsistentInput(t *testing.T) {
	prs := []PRInfo{{ID: 1}}
	changes := map[int][]FileChange{
		2: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 1, 1)}}},
	}
	_, err := Analyze(context.Background(), prs, changes, DefaultOptions())
	if !errors.Is(err, ErrInconsistentInput) {
		t.Fatalf("expected ErrInconsistentInput, got %v", err)
	}
}

func TestAnalyze_Determinism(t *testing.T) {
	prs := []PRInfo{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}
	changes := map[int][]FileChange{
		1: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 1, 50)}}},
		2: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 10, 20)}}},
		3: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 30, 40)}}},
		4: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 100, 200)}}},
	}
	opts := DefaultOptions()
	opts.Parallelism = 4

	first, err := Analyze(context.Background(), prs, changes, opts)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Analyze(context.Background(), prs, changes, opts)
		if err != nil {
			t.Fatalf("Analyze (run %d): %v", i, err)
		}
		if !reflect.DeepEqual(first.Conflicts, again.Conflicts) {
			t.Fatalf("non-deterministic conflicts on run %d:\nfirst=%v\nagain=%v", i, first.Conflicts, again.Conflicts)
		}
	}
}

func TestAnalyze_MonotonicityUnderPRRemoval(t *testing.T) {
	prs := []PRInfo{{ID: 1}, {ID: 2}, {ID: 3}}
	changes := map[int][]FileChange{
		1: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 1, 10)}}},
		2: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 5, 15)}}},
		3: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 8, 20)}}},
	}
	full, err := Analyze(context.Background(), prs, changes, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	without3 := []PRInfo{{ID: 1}, {ID: 2}}
	changesWithout3 := map[int][]FileChange{1: changes[1], 2: changes[2]}
	reduced, err := Analyze(context.Background(), without3, changesWithout3, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze (reduced): %v", err)
	}

	var expected []Conflict
	for _, c := range full.Conflicts {
		if c.PRAID == 3 || c.PRBID == 3 {
			continue
		}
		expected = append(expected, c)
	}
	if !reflect.DeepEqual(expected, reduced.Conflicts) {
		t.Errorf("monotonicity violated: full-minus-3=%v reduced=%v", expected, reduced.Conflicts)
	}
}

func TestAnalyze_Symmetry(t *testing.T) {
	forward := map[int][]FileChange{
		1: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 1, 10)}}},
		2: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 5, 15)}}},
	}
	reversed := map[int][]FileChange{
		2: forward[2],
		1: forward[1],
	}
	resFwd, err := Analyze(context.Background(), []PRInfo{{ID: 1}, {ID: 2}}, forward, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	resRev, err := Analyze(context.Background(), []PRInfo{{ID: 2}, {ID: 1}}, reversed, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !reflect.DeepEqual(resFwd.Conflicts, resRev.Conflicts) {
		t.Errorf("symmetry violated: fwd=%v rev=%v", resFwd.Conflicts, resRev.Conflicts)
	}
	for _, c := range resFwd.Conflicts {
		if c.PRAID == c.PRBID {
			t.Errorf("reflexive conflict found: %+v", c)
		}
		if c.PRAID >= c.PRBID {
			t.Errorf("conflict not canonically oriented: %+v", c)
		}
	}
}

func TestAnalyze_Cancellation(t *testing.T) {
	prs := []PRInfo{{ID: 1}, {ID: 2}, {ID: 3}}
	changes := map[int][]FileChange{
		1: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 1, 10)}}},
		2: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 5, 15)}}},
		3: {{Path: "a.txt", Kind: Modify, Ranges: []LineRange{mustRange(t, 8, 20)}}},
	}
	opts := DefaultOptions()
	opts.Cancel = func() bool { return true }
	_, err := Analyze(context.Background(), prs, changes, opts)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}
