// Package maintenance runs periodic background tasks as Go tickers.
// Replaces pg_cron — all scheduled work is driven from Go since it is
// already a persistent, long-running service (required for LISTEN/NOTIFY).
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/ciclismopt/assist/internal/assist"
	"github.com/ciclismopt/assist/internal/trigger"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	DismissalInterval time.Duration // Expired trigger dismissals
	SessionInterval   time.Duration // Stale in-memory sessions
	DismissWindow     time.Duration // How long a dismissal stays relevant
	SessionTTL        time.Duration // Inactivity before a session is dropped
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		DismissalInterval: 30 * time.Minute,
		SessionInterval:   15 * time.Minute,
		DismissWindow:     24 * time.Hour,
		SessionTTL:        2 * time.Hour,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dismissals trigger.DismissalStore, coord *assist.Coordinator, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"dismissals", cfg.DismissalInterval,
		"sessions", cfg.SessionInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Dismissals: drop rows whose quiet window has long expired
	if cfg.DismissalInterval > 0 {
		t := time.NewTicker(cfg.DismissalInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { purgeDismissals(ctx, dismissals, cfg.DismissWindow, logger) })
	}

	// Sessions: drop users who went away without closing the app
	if cfg.SessionInterval > 0 {
		t := time.NewTicker(cfg.SessionInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { purgeSessions(coord, cfg.SessionTTL, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// purgeDismissals removes dismissal rows older than the quiet window; they
// no longer silence anything and only bloat the table.
func purgeDismissals(ctx context.Context, store trigger.DismissalStore, window time.Duration, logger *slog.Logger) {
	n, err := store.Purge(ctx, time.Now().Add(-window))
	if err != nil {
		logger.Warn("Cleanup: failed to purge expired dismissals", "error", err)
	} else if n > 0 {
		logger.Info("Cleanup: purged expired dismissals", "count", n)
	}
}

// purgeSessions evicts sessions with no activity inside the TTL.
func purgeSessions(coord *assist.Coordinator, ttl time.Duration, logger *slog.Logger) {
	if n := coord.PurgeSessions(ttl); n > 0 {
		logger.Info("Cleanup: purged idle sessions", "count", n)
	}
}
