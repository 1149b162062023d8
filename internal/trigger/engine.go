package trigger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Engine evaluates the rule table against a context snapshot. It keeps an
// in-memory per-user cooldown map and consults the dismissal store; rule
// panics are isolated so one bad rule never blocks the rest.
type Engine struct {
	rules      []rule
	dismissals DismissalStore
	cooldown   time.Duration
	dismissFor time.Duration
	now        func() time.Time
	logger     *slog.Logger

	mu    sync.Mutex
	fired map[uuid.UUID]map[Kind]time.Time
}

// Config tunes the engine windows. Zero values fall back to the defaults
// used in production.
type Config struct {
	Cooldown      time.Duration // per-kind re-fire window, default 5m
	DismissWindow time.Duration // per-kind quiet window after dismissal, default 24h
	IdleThreshold time.Duration // inactivity before the idle rule fires, default 30s
	Now           func() time.Time
}

func NewEngine(dismissals DismissalStore, cfg Config, logger *slog.Logger) *Engine {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.DismissWindow <= 0 {
		cfg.DismissWindow = 24 * time.Hour
	}
	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		rules:      buildRules(cfg.IdleThreshold),
		dismissals: dismissals,
		cooldown:   cfg.Cooldown,
		dismissFor: cfg.DismissWindow,
		now:        cfg.Now,
		logger:     logger,
		fired:      map[uuid.UUID]map[Kind]time.Time{},
	}
}

// Evaluate runs the rule table and returns the highest-priority firing rule
// that is neither cooling down nor dismissed, or nil when nothing applies.
// The winning kind's cooldown starts immediately.
func (e *Engine) Evaluate(ctx context.Context, userID uuid.UUID, tc *Context) *Suggestion {
	now := e.now()

	for i := range e.rules {
		r := &e.rules[i]

		if !e.fires(r, tc) {
			continue
		}
		if e.onCooldown(userID, r.kind, now) {
			continue
		}
		dismissed, err := e.isDismissed(ctx, userID, r.kind, now)
		if err != nil {
			e.logger.Warn("dismissal lookup failed, skipping kind",
				"kind", r.kind, "user", userID, "error", err)
			continue
		}
		if dismissed {
			continue
		}

		s, ok := e.builds(r, tc)
		if !ok {
			continue
		}
		s.CreatedAt = now
		e.markFired(userID, r.kind, now)
		e.logger.Info("trigger fired", "kind", r.kind, "user", userID, "priority", s.Priority)
		return &s
	}
	return nil
}

// fires runs the predicate with panic isolation.
func (e *Engine) fires(r *rule, tc *Context) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("trigger rule panicked", "kind", r.kind, "panic", rec)
			ok = false
		}
	}()
	return r.when(tc)
}

// builds runs the suggestion builder with the same isolation as fires: a
// panicking builder skips its rule and evaluation moves on.
func (e *Engine) builds(r *rule, tc *Context) (s Suggestion, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("trigger builder panicked", "kind", r.kind, "panic", rec)
			ok = false
		}
	}()
	return r.build(tc), true
}

// Dismiss records a user dismissal, silencing the kind for the dismissal
// window. The write goes through the store so it survives restarts.
func (e *Engine) Dismiss(ctx context.Context, userID uuid.UUID, kind Kind) error {
	return e.dismissals.Dismiss(ctx, userID, kind, e.now())
}

// ClearCooldown resets the in-memory cooldown for one user, typically after
// their team state changed and stale throttles no longer apply.
func (e *Engine) ClearCooldown(userID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.fired, userID)
}

func (e *Engine) onCooldown(userID uuid.UUID, kind Kind, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	last, ok := e.fired[userID][kind]
	return ok && now.Sub(last) < e.cooldown
}

func (e *Engine) markFired(userID uuid.UUID, kind Kind, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fired[userID] == nil {
		e.fired[userID] = map[Kind]time.Time{}
	}
	e.fired[userID][kind] = now
}

func (e *Engine) isDismissed(ctx context.Context, userID uuid.UUID, kind Kind, now time.Time) (bool, error) {
	at, ok, err := e.dismissals.DismissedAt(ctx, userID, kind)
	if err != nil {
		return false, err
	}
	return ok && now.Sub(at) < e.dismissFor, nil
}
