// Package worker keeps the leaderboard warm: it periodically rebuilds the
// ranking, pushes it to WebSocket subscribers and records a snapshot for
// history. Request-path reads still go through the TTL cache; the worker
// only makes sure the cache rarely goes cold.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/xpboard/internal/config"
	"github.com/xpboard/internal/domain"
	"github.com/xpboard/internal/leaderboard"
	"github.com/xpboard/internal/websocket"
)

// SnapshotStore persists ranking snapshots. May be nil when no database
// is wired.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap domain.Snapshot) error
	PruneSnapshots(ctx context.Context, olderThan time.Duration) (int64, error)
}

// RefreshWorker periodically rebuilds and broadcasts the leaderboard.
type RefreshWorker struct {
	provider leaderboard.Provider
	hub      *websocket.Hub
	store    SnapshotStore
	config   *config.RefreshConfig
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewRefreshWorker creates a new refresh worker. hub and store may be nil.
func NewRefreshWorker(
	provider leaderboard.Provider,
	hub *websocket.Hub,
	store SnapshotStore,
	cfg *config.RefreshConfig,
	logger *slog.Logger,
) *RefreshWorker {
	return &RefreshWorker{
		provider: provider,
		hub:      hub,
		store:    store,
		config:   cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background refresh process
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("refresh worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background refresh process
func (w *RefreshWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("refresh worker stopped")
	return nil
}

// run is the main worker loop
func (w *RefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	// Warm the cache before the first tick.
	w.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

// refresh rebuilds the snapshot, broadcasts it and persists it.
func (w *RefreshWorker) refresh(ctx context.Context) {
	startTime := time.Now()

	snap, err := w.provider.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			w.logger.Debug("leaderboard not configured, skipping refresh")
			return
		}
		w.logger.Error("failed to refresh leaderboard", "error", err)
		return
	}

	if w.hub != nil {
		w.hub.BroadcastLeaderboard(snap)
		// Per-wallet rank pushes only for wallets someone is watching.
		for _, e := range snap.Entries {
			if w.hub.GetSubscriberCount(websocket.TopicRankPrefix+e.Wallet) > 0 {
				w.hub.BroadcastRank(e.Wallet, e.Rank)
			}
		}
	}

	if w.store != nil {
		if err := w.store.SaveSnapshot(ctx, snap); err != nil {
			w.logger.Warn("failed to persist snapshot", "error", err)
		}
		if w.config.Retention > 0 {
			if pruned, err := w.store.PruneSnapshots(ctx, w.config.Retention); err != nil {
				w.logger.Warn("failed to prune snapshots", "error", err)
			} else if pruned > 0 {
				w.logger.Debug("pruned old snapshots", "count", pruned)
			}
		}
	}

	w.logger.Info("leaderboard refreshed",
		"duration", time.Since(startTime),
		"wallets", len(snap.Entries),
		"truncated", snap.Truncated,
	)
}

// IsRunning returns whether the worker is currently running
func (w *RefreshWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single refresh cycle (useful for manual triggers)
func (w *RefreshWorker) RunOnce(ctx context.Context) {
	w.refresh(ctx)
}
