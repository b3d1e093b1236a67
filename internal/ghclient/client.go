package ghclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/codeGROOVE-dev/mergedeps/internal/depgraph"
)

const (
	maxRetryAttempts  = 10
	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 30 * time.Second
	defaultCacheTTL   = 10 * time.Minute
)

// Client fetches pull request metadata and file-level diffs from a hosted
// code-review service's REST API and assembles them into the
// depgraph.PRInfo / depgraph.FileChange batch the analyzer consumes.
type Client struct {
	httpClient *http.Client
	cache      *cache
	baseURL    string
	token      string
}

// Config configures a new Client.
type Config struct {
	Token       string
	BaseURL     string // defaults to "https://api.github.com"
	HTTPTimeout time.Duration
	CacheTTL    time.Duration
}

// New creates a Client authenticated with a personal access token or
// GitHub App installation token (the caller resolves which via
// internal/config / internal/githubapp; this package does not care which
// kind of bearer token it was handed).
func New(cfg Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cache:      newCache(ttl),
		baseURL:    baseURL,
		token:      cfg.Token,
	}
}

// OpenPRBatch fetches every open, non-draft pull request for owner/repo
// along with its changed-file list, ready to pass to depgraph.Analyze.
func (c *Client) OpenPRBatch(ctx context.Context, owner, repo string) ([]depgraph.PRInfo, map[int][]depgraph.FileChange, error) {
	numbers, err := c.listOpenPRNumbers(ctx, owner, repo)
	if err != nil {
		return nil, nil, fmt.Errorf("list open PRs for %s/%s: %w", owner, repo, err)
	}

	prList := make([]depgraph.PRInfo, 0, len(numbers))
	changes := make(map[int][]depgraph.FileChange, len(numbers))
	for _, n := range numbers {
		pr, err := c.prInfo(ctx, owner, repo, n)
		if err != nil {
			slog.Warn("skipping PR, failed to fetch metadata", "owner", owner, "repo", repo, "number", n, "error", err)
			continue
		}
		fc, err := c.fileChanges(ctx, owner, repo, n)
		if err != nil {
			slog.Warn("skipping PR, failed to fetch file changes", "owner", owner, "repo", repo, "number", n, "error", err)
			continue
		}
		prList = append(prList, pr)
		changes[pr.ID] = fc
	}
	return prList, changes, nil
}

func (c *Client) listOpenPRNumbers(ctx context.Context, owner, repo string) ([]int, error) {
	cacheKey := fmt.Sprintf("open-pr-numbers:%s/%s", owner, repo)
	if cached, ok := c.cache.get(cacheKey); ok {
		return cached.([]int), nil
	}

	type prStub struct {
		Number int  `json:"number"`
		Draft  bool `json:"draft"`
	}
	var stubs []prStub
	for page := 1; ; page++ {
		var batch []prStub
		url := fmt.Sprintf("%s/repos/%s/%s/pulls?state=open&per_page=100&page=%d", c.baseURL, owner, repo, page)
		if err := c.getJSON(ctx, url, &batch); err != nil {
			return nil, err
		}
		stubs = append(stubs, batch...)
		if len(batch) < 100 {
			break
		}
	}

	numbers := make([]int, 0, len(stubs))
	for _, s := range stubs {
		if !s.Draft {
			numbers = append(numbers, s.Number)
		}
	}
	c.cache.setWithTTL(cacheKey, numbers, 2*time.Minute)
	return numbers, nil
}

func (c *Client) prInfo(ctx context.Context, owner, repo string, number int) (depgraph.PRInfo, error) {
	cacheKey := fmt.Sprintf("pr-info:%s/%s:%d", owner, repo, number)
	if cached, ok := c.cache.get(cacheKey); ok {
		return cached.(depgraph.PRInfo), nil
	}

	var body struct {
		Title      string `json:"title"`
		MergeCommitSHA string `json:"merge_commit_sha"`
	}
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, owner, repo, number)
	if err := c.getJSON(ctx, url, &body); err != nil {
		return depgraph.PRInfo{}, err
	}

	info := depgraph.PRInfo{ID: number, Title: body.Title}
	if body.MergeCommitSHA != "" {
		sha := body.MergeCommitSHA
		info.CommitID = &sha
	}
	c.cache.set(cacheKey, info)
	return info, nil
}

func (c *Client) fileChanges(ctx context.Context, owner, repo string, number int) ([]depgraph.FileChange, error) {
	cacheKey := fmt.Sprintf("pr-files:%s/%s:%d", owner, repo, number)
	if cached, ok := c.cache.get(cacheKey); ok {
		return cached.([]depgraph.FileChange), nil
	}

	type apiFile struct {
		Filename         string `json:"filename"`
		PreviousFilename string `json:"previous_filename"`
		Status           string `json:"status"` // "added", "modified", "removed", "renamed"
		Patch            string `json:"patch"`
	}
	var files []apiFile
	for page := 1; ; page++ {
		var batch []apiFile
		url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/files?per_page=100&page=%d", c.baseURL, owner, repo, number, page)
		if err := c.getJSON(ctx, url, &batch); err != nil {
			return nil, err
		}
		files = append(files, batch...)
		if len(batch) < 100 {
			break
		}
	}

	out := make([]depgraph.FileChange, 0, len(files))
	for _, f := range files {
		out = append(out, depgraph.FileChange{
			Path:    f.Filename,
			OldPath: f.PreviousFilename,
			Kind:    changeKindFromStatus(f.Status),
			Ranges:  parsePatchRanges(f.Patch),
		})
	}
	c.cache.set(cacheKey, out)
	return out, nil
}

func changeKindFromStatus(status string) depgraph.ChangeKind {
	switch status {
	case "added":
		return depgraph.Add
	case "removed":
		return depgraph.Delete
	case "renamed":
		return depgraph.Rename
	default:
		return depgraph.Modify
	}
}

// parsePatchRanges extracts the new-side changed-line ranges from a unified
// diff hunk header ("@@ -a,b +c,d @@"), one LineRange per hunk.
func parsePatchRanges(patch string) []depgraph.LineRange {
	if patch == "" {
		return nil
	}
	var ranges []depgraph.LineRange
	for _, line := range strings.Split(patch, "\n") {
		if !strings.HasPrefix(line, "@@") {
			continue
		}
		parts := strings.Split(line, " ")
		if len(parts) < 3 {
			continue
		}
		newPart := strings.TrimPrefix(parts[2], "+")

		var start, count int
		if _, err := fmt.Sscanf(newPart, "%d,%d", &start, &count); err != nil {
			if _, err := fmt.Sscanf(newPart, "%d", &start); err != nil {
				continue
			}
			count = 1
		}
		if start <= 0 || count <= 0 {
			continue
		}
		if r, err := depgraph.NewLineRange(start, start+count-1); err == nil {
			ranges = append(ranges, r)
		}
	}
	return ranges
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	return retryWithBackoff(ctx, "GET "+url, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "token "+c.token)
		req.Header.Set("Accept", "application/vnd.github.v3+json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer drainAndCloseBody(resp.Body)

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("http %d: rate limited", resp.StatusCode)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("http %d: server error", resp.StatusCode)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("http %d: %s", resp.StatusCode, bytes.TrimSpace(body))
		}

		dec := json.NewDecoder(resp.Body)
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

func drainAndCloseBody(body io.ReadCloser) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		slog.Warn("failed to drain response body", "error", err)
	}
	if err := body.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err)
	}
}

// retryWithBackoff wraps fn with exponential backoff via the
// codeGROOVE-dev/retry library, retrying on rate limits, server errors,
// and transient network failures.
func retryWithBackoff(ctx context.Context, operation string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(uint(maxRetryAttempts)),
		retry.Delay(initialRetryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxJitter(initialRetryDelay/4),
		retry.OnRetry(func(n uint, err error) {
			slog.Info("retrying after failure", "operation", operation, "attempt", n+1, "max_attempts", maxRetryAttempts, "error", err)
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if err == nil {
				return false
			}
			msg := err.Error()
			return strings.Contains(msg, "rate limited") ||
				strings.Contains(msg, "server error") ||
				strings.Contains(msg, "connection refused") ||
				strings.Contains(msg, "timeout") ||
				strings.Contains(msg, "EOF")
		}),
	)
}
