// Package watch subscribes to real-time pull-request events over a
// WebSocket feed and triggers a fresh dependency analysis whenever a
// monitored repository's PRs change, instead of requiring the caller to
// poll on a fixed interval.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/codeGROOVE-dev/sprinkler/pkg/client"
)

const (
	eventChannelSize   = 100
	eventDedupWindow   = 5 * time.Second
	eventMapMaxSize    = 1000
	eventMapCleanupAge = 1 * time.Hour
	triggerMaxRetries  = 3
	triggerMaxDelay    = 10 * time.Second
)

// Trigger is invoked with the repository whose PRs changed. Implementations
// typically re-fetch that repo's batch and re-run the analyzer.
type Trigger func(ctx context.Context, owner, repo string) error

// Monitor subscribes to pull_request events for a fixed set of
// owner/repository pairs and invokes a Trigger, deduplicated, whenever one
// of them changes.
type Monitor struct {
	trigger         Trigger
	client          *client.Client
	cancel          context.CancelFunc
	eventChan       chan string
	lastEventMap    map[string]time.Time
	lastConnectedAt time.Time
	token           string
	repos           map[string]bool // "owner/repo" -> watched
	mu              sync.RWMutex
	isRunning       bool
	isConnected     bool
}

// New creates a Monitor that calls trigger whenever a watched repository
// reports pull-request activity.
func New(token string, repos []string, trigger Trigger) *Monitor {
	watched := make(map[string]bool, len(repos))
	for _, r := range repos {
		watched[r] = true
	}
	return &Monitor{
		trigger:      trigger,
		token:        token,
		repos:        watched,
		eventChan:    make(chan string, eventChannelSize),
		lastEventMap: make(map[string]time.Time),
	}
}

// Start begins monitoring. It returns once the WebSocket client and event
// processor goroutines are launched; it does not block.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return nil
	}
	if len(m.repos) == 0 {
		slog.Info("watch: no repositories configured, skipping start")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	cfg := client.Config{
		ServerURL:      "wss://" + client.DefaultServerAddress + "/ws",
		Token:          m.token,
		Organization:   "*",
		EventTypes:     []string{"pull_request"},
		UserEventsOnly: false,
		NoReconnect:    false,
		OnConnect: func() {
			m.mu.Lock()
			m.isConnected = true
			m.lastConnectedAt = time.Now()
			m.mu.Unlock()
			slog.Info("watch: websocket connected")
		},
		OnDisconnect: func(err error) {
			m.mu.Lock()
			m.isConnected = false
			m.mu.Unlock()
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("watch: websocket disconnected", "error", err)
			}
		},
		OnEvent: func(event client.Event) {
			m.handleEvent(event)
		},
	}

	wsClient, err := client.New(cfg)
	if err != nil {
		cancel()
		return fmt.Errorf("create sprinkler client: %w", err)
	}
	m.client = wsClient
	m.isRunning = true

	go m.processEvents(runCtx)
	go func() {
		startTime := time.Now()
		if err := wsClient.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("watch: websocket client error", "uptime", time.Since(startTime).Round(time.Second), "error", err)
			m.mu.Lock()
			m.isRunning = false
			m.mu.Unlock()
		}
	}()

	return nil
}

// Stop shuts down the monitor's background goroutines.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isRunning {
		return
	}
	m.cancel()
	m.isRunning = false
}

func (m *Monitor) handleEvent(event client.Event) {
	if event.Type != "pull_request" || event.URL == "" {
		return
	}

	owner, repo, _ := parsePRURL(event.URL)
	if owner == "" || repo == "" {
		return
	}
	key := owner + "/" + repo

	m.mu.RLock()
	watched := m.repos[key]
	m.mu.RUnlock()
	if !watched {
		return
	}

	m.mu.Lock()
	now := time.Now()
	if last, ok := m.lastEventMap[key]; ok && now.Sub(last) < eventDedupWindow {
		m.mu.Unlock()
		return
	}
	m.lastEventMap[key] = now
	if len(m.lastEventMap) > eventMapMaxSize {
		cutoff := now.Add(-eventMapCleanupAge)
		for k, t := range m.lastEventMap {
			if t.Before(cutoff) {
				delete(m.lastEventMap, k)
			}
		}
	}
	m.mu.Unlock()

	select {
	case m.eventChan <- key:
	default:
		slog.Warn("watch: event channel full, dropping event", "repo", key)
	}
}

func (m *Monitor) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case key := <-m.eventChan:
			m.processOne(ctx, key)
		}
	}
}

func (m *Monitor) processOne(ctx context.Context, key string) {
	owner, repo, ok := strings.Cut(key, "/")
	if !ok {
		return
	}
	start := time.Now()

	err := retry.Do(
		func() error { return m.trigger(ctx, owner, repo) },
		retry.Attempts(triggerMaxRetries),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxDelay(triggerMaxDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Info("watch: retrying trigger", "attempt", n+1, "repo", key, "error", err)
		}),
		retry.Context(ctx),
	)
	if err != nil {
		slog.Warn("watch: trigger failed after retries", "repo", key, "elapsed", time.Since(start).Round(time.Millisecond), "error", err)
		return
	}
	slog.Info("watch: re-analyzed repository", "repo", key, "elapsed", time.Since(start).Round(time.Millisecond))
}

// parsePRURL extracts owner, repo, and PR number from a
// "https://github.com/owner/repo/pull/123" URL.
func parsePRURL(url string) (owner, repo string, number int) {
	const minParts = 7
	parts := strings.Split(url, "/")
	if len(parts) < minParts || parts[2] != "github.com" {
		return "", "", 0
	}
	var n int
	if _, err := fmt.Sscanf(parts[6], "%d", &n); err != nil {
		return "", "", 0
	}
	return parts[3], parts[4], n
}
