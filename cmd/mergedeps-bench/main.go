// Package main runs the dependency analyzer against synthetic PR batches
// of known size and overlap density, reporting wall-clock time per
// scenario. It exists to validate the analyzer's scaling behavior without
// needing a live repository with thousands of open pull requests.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/codeGROOVE-dev/mergedeps/internal/depgraph"
	"github.com/codeGROOVE-dev/mergedeps/internal/depgraph/testgen"
)

var (
	scenarioName = flag.String("scenario", "", "run only the named scenario (default: run all)")
	jsonOutput   = flag.Bool("json", false, "emit one JSON line per scenario instead of a table")
	parallelism  = flag.Int("parallelism", 0, "worker count (0 = GOMAXPROCS)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Benchmarks the dependency analyzer against synthetic PR batches.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})))

	scenarios := testgen.Scenarios
	if *scenarioName != "" {
		scenarios = filterScenario(scenarios, *scenarioName)
		if len(scenarios) == 0 {
			fmt.Fprintf(os.Stderr, "unknown scenario %q\n", *scenarioName)
			os.Exit(1)
		}
	}

	ctx := context.Background()
	opts := depgraph.DefaultOptions()
	opts.Parallelism = *parallelism

	for _, sc := range scenarios {
		prList, prChanges := testgen.Generate(sc.NumPRs, sc.FilesPerPR, sc.OverlapRate, sc.LinesPerFile)

		start := time.Now()
		result, err := depgraph.Analyze(ctx, prList, prChanges, opts)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scenario %s failed: %v\n", sc.Name, err)
			os.Exit(1)
		}

		if *jsonOutput {
			fmt.Printf(`{"scenario":%q,"pr_count":%d,"candidate_pairs":%d,"conflicts":%d,"wall_time_ns":%d}`+"\n",
				sc.Name, sc.NumPRs, result.Stats.CandidatePairCount, len(result.Conflicts), elapsed.Nanoseconds())
			continue
		}
		fmt.Printf("%-20s prs=%-6d candidates=%-8d conflicts=%-6d time=%s\n",
			sc.Name, sc.NumPRs, result.Stats.CandidatePairCount, len(result.Conflicts), elapsed)
	}
}

func filterScenario(scenarios []testgen.Scenario, name string) []testgen.Scenario {
	for _, sc := range scenarios {
		if sc.Name == name {
			return []testgen.Scenario{sc}
		}
	}
	return nil
}
