// Package config resolves the credentials and runtime settings the CLI
// needs to talk to the hosted code-review service: a GitHub token (from
// flags, environment, gsm-managed secrets, or the gh CLI, in that order)
// plus a Config struct for the repository and runtime settings of a run.
// Only the token is resolved here; there is no PR-range setting.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/gsm"
)

// Config holds the resolved settings for one mergedeps run.
type Config struct {
	// GitHubToken authenticates REST/GraphQL calls made by
	// internal/ghclient.
	GitHubToken string
	// Owner and Repository identify which repository's open PRs to
	// analyze.
	Owner      string
	Repository string
	// Parallelism is forwarded to depgraph.Options.Parallelism; 0 keeps
	// the host-CPU default.
	Parallelism int
	// HTTPTimeout bounds individual REST/GraphQL calls.
	HTTPTimeout time.Duration
}

// ErrNoToken is returned when no GitHub token could be resolved from any
// source.
var ErrNoToken = errors.New("config: no GitHub token available")

// ResolveToken finds a GitHub token, trying in order: an explicit flag
// value, the GITHUB_TOKEN environment variable, a gsm-managed secret
// (production deployments), and finally the local gh CLI (developer
// workstations). This mirrors the upstream CLI's getGitHubToken, widened
// with a gsm-backed path for non-interactive/service deployments.
func ResolveToken(ctx context.Context, flagValue, gsmSecretName string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		return tok, nil
	}
	if gsmSecretName != "" {
		tok, err := fetchFromGSM(ctx, gsmSecretName)
		if err == nil && tok != "" {
			return tok, nil
		}
	}
	tok, err := tokenFromGHCLI(ctx)
	if err == nil && tok != "" {
		return tok, nil
	}
	return "", ErrNoToken
}

// fetchFromGSM resolves a token from a Google Secret Manager-backed
// secret, the path production deployments of this tool use instead of
// shipping a raw token in the environment.
func fetchFromGSM(ctx context.Context, secretName string) (string, error) {
	client, err := gsm.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("gsm client: %w", err)
	}
	defer client.Close()

	val, err := client.AccessSecret(ctx, secretName)
	if err != nil {
		return "", fmt.Errorf("gsm access secret %q: %w", secretName, err)
	}
	return strings.TrimSpace(val), nil
}

// tokenFromGHCLI shells out to "gh auth token", the developer-workstation
// fallback.
func tokenFromGHCLI(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "gh", "auth", "token")
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("gh auth token: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(out.String()), nil
}
