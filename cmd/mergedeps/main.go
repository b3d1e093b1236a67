// Package main implements a CLI tool that finds pairs of open pull
// requests whose file changes conflict, so they cannot both merge
// cleanly without a manual rebase.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/mergedeps/internal/config"
	"github.com/codeGROOVE-dev/mergedeps/internal/depgraph"
	"github.com/codeGROOVE-dev/mergedeps/internal/ghclient"
	"github.com/codeGROOVE-dev/mergedeps/internal/gitcmd"
	"github.com/codeGROOVE-dev/mergedeps/internal/tui"
)

var (
	verbose       = flag.Bool("v", false, "Verbose output with detailed diagnostics")
	tokenFlag     = flag.String("token", "", "GitHub token (defaults to $GITHUB_TOKEN, then gsm, then gh CLI)")
	gsmSecretName = flag.String("gsm-secret", "", "gsm secret name holding a GitHub token, for non-interactive deployments")
	parallelism   = flag.Int("parallelism", 0, "worker count for candidate generation and verification (0 = GOMAXPROCS)")
	repoPath      = flag.String("repo-path", "", "local git working tree, used only when resolving cherry-pick conflicts")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <owner/repo>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Finds open pull requests whose file changes would conflict if merged together.\n\n")
		fmt.Fprintf(os.Stderr, "Arguments:\n")
		fmt.Fprintf(os.Stderr, "  owner/repo    Repository to analyze (e.g., golang/go)\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s golang/go\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -v -parallelism 4 golang/go\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	ctx := context.Background()

	owner, repo, err := parseRepoArg(flag.Arg(0))
	if err != nil {
		slog.Error("invalid repository argument", "error", err)
		os.Exit(1)
	}

	token, err := config.ResolveToken(ctx, *tokenFlag, *gsmSecretName)
	if err != nil {
		slog.Error("failed to resolve GitHub token", "error", err)
		slog.Info("set GITHUB_TOKEN, pass -token, or run: gh auth login")
		os.Exit(1)
	}

	gh := ghclient.New(ghclient.Config{Token: token, HTTPTimeout: 30 * time.Second})

	slog.Info("fetching open pull requests", "owner", owner, "repo", repo)
	prList, prChanges, err := gh.OpenPRBatch(ctx, owner, repo)
	if err != nil {
		slog.Error("failed to fetch pull requests", "error", err)
		os.Exit(1)
	}
	if len(prList) == 0 {
		fmt.Println("No open pull requests found.")
		return
	}

	slog.Info("analyzing batch", "pr_count", len(prList))
	opts := depgraph.DefaultOptions()
	opts.Parallelism = *parallelism
	result, err := depgraph.Analyze(ctx, prList, prChanges, opts)
	if err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	tui.PrintConflicts(os.Stdout, result)

	if *repoPath != "" {
		maybeResolveConflicts(ctx, *repoPath)
	}
}

// maybeResolveConflicts checks a local working tree for an in-progress,
// unresolved cherry-pick and prints resolution instructions if one is
// found. It never blocks waiting for the user to act.
func maybeResolveConflicts(ctx context.Context, dir string) {
	r, err := gitcmd.Open(ctx, dir)
	if err != nil {
		slog.Warn("repo-path is not a git repository, skipping conflict check", "path", dir, "error", err)
		return
	}
	files, err := r.ConflictedFiles(ctx)
	if err != nil {
		slog.Warn("failed to check for conflicts", "error", err)
		return
	}
	if len(files) == 0 {
		return
	}
	fmt.Println()
	tui.ConflictResolutionPrompt(os.Stdout, dir, files)
}

// parseRepoArg accepts "owner/repo" or a full
// "https://github.com/owner/repo" URL.
func parseRepoArg(arg string) (owner, repo string, err error) {
	arg = strings.TrimPrefix(arg, "https://github.com/")
	arg = strings.TrimPrefix(arg, "http://github.com/")
	arg = strings.TrimSuffix(arg, "/")

	parts := strings.Split(arg, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("expected owner/repo")
	}
	return parts[0], parts[1], nil
}
