// Package assist holds the coordinator that ties sessions, the trigger
// engine, the chat generator, and the action executor together.
package assist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ciclismopt/assist/internal/action"
	"github.com/ciclismopt/assist/internal/config"
	"github.com/ciclismopt/assist/internal/llm"
	"github.com/ciclismopt/assist/internal/parser"
	"github.com/ciclismopt/assist/internal/repo"
	"github.com/ciclismopt/assist/internal/trigger"
)

// firstVisitTTL is how long an onboarding tip stays in the suggestion slot
// before it silently expires.
const firstVisitTTL = 15 * time.Second

// Entitlements gates proactive suggestions. Chat and action execution stay
// available to everyone.
type Entitlements interface {
	AllowSuggestions(ctx context.Context, userID uuid.UUID) (bool, error)
}

// AllowAll grants every user access. Used until the billing service ships
// its entitlement endpoint.
type AllowAll struct{}

func (AllowAll) AllowSuggestions(ctx context.Context, userID uuid.UUID) (bool, error) {
	return true, nil
}

// Coordinator owns the session table and orchestrates the reactive flows:
// screen changes, interactions, idle detection, chat, and action execution.
type Coordinator struct {
	engine   *trigger.Engine
	executor *action.Executor
	parser   *parser.Parser
	gen      llm.Generator
	teams    repo.TeamRepo
	races    repo.RaceRepo
	entitled Entitlements
	cfg      *config.Config
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

type Deps struct {
	Engine       *trigger.Engine
	Executor     *action.Executor
	Parser       *parser.Parser
	Generator    llm.Generator
	Teams        repo.TeamRepo
	Races        repo.RaceRepo
	Entitlements Entitlements
	Now          func() time.Time
}

func NewCoordinator(deps Deps, cfg *config.Config, logger *slog.Logger) *Coordinator {
	if deps.Entitlements == nil {
		deps.Entitlements = AllowAll{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Coordinator{
		engine:   deps.Engine,
		executor: deps.Executor,
		parser:   deps.Parser,
		gen:      deps.Generator,
		teams:    deps.Teams,
		races:    deps.Races,
		entitled: deps.Entitlements,
		cfg:      cfg,
		logger:   logger,
		now:      deps.Now,
		sessions: map[uuid.UUID]*session{},
	}
}

// session returns the live session for a user, creating it on first touch.
func (c *Coordinator) session(userID uuid.UUID) *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	if !ok {
		s = newSession(userID, c.now())
		c.sessions[userID] = s
	}
	return s
}

// Subscribe opens a new event stream for a user's session. Each subscriber
// receives every event independently; the returned cancel func must be
// called when the consumer disconnects.
func (c *Coordinator) Subscribe(userID uuid.UUID) (<-chan Event, func()) {
	s := c.session(userID)
	id, ch := s.subscribe()
	return ch, func() { s.unsubscribe(id) }
}

// --------------------------------------------------------------------------
// Reactive entry points
// --------------------------------------------------------------------------

// OnScreenChange records the navigation, refreshes the cached team state,
// and evaluates triggers. The returned suggestion, if any, is the current
// slot content. The screen is marked visited only after evaluation so the
// first-visit rules see it fresh.
func (c *Coordinator) OnScreenChange(ctx context.Context, userID uuid.UUID, screen string) *trigger.Suggestion {
	s := c.session(userID)
	now := c.now()

	s.mu.Lock()
	s.screen = screen
	s.lastActive = now
	s.mu.Unlock()

	c.refresh(ctx, s)
	sug := c.evaluate(ctx, s)

	s.mu.Lock()
	s.visited[screen] = true
	s.mu.Unlock()
	return sug
}

// OnInteraction resets the idle clock. errorOccurred feeds the repeated
// error rule; three strikes re-evaluate immediately.
func (c *Coordinator) OnInteraction(ctx context.Context, userID uuid.UUID, errorOccurred bool) *trigger.Suggestion {
	s := c.session(userID)

	s.mu.Lock()
	s.lastActive = c.now()
	if errorOccurred {
		s.errorCount++
	}
	count := s.errorCount
	s.mu.Unlock()

	if errorOccurred && count >= 3 {
		return c.evaluate(ctx, s)
	}
	return nil
}

// OnTransfersChanged re-reads team state and re-evaluates. Called by the
// HTTP layer and by the database listener on team mutations.
func (c *Coordinator) OnTransfersChanged(ctx context.Context, userID uuid.UUID) *trigger.Suggestion {
	s := c.session(userID)
	c.refresh(ctx, s)
	return c.evaluate(ctx, s)
}

// Dismiss silences the kind for the dismissal window and clears the slot
// when it holds that kind.
func (c *Coordinator) Dismiss(ctx context.Context, userID uuid.UUID, kind trigger.Kind) error {
	if err := c.engine.Dismiss(ctx, userID, kind); err != nil {
		return err
	}
	s := c.session(userID)
	s.mu.Lock()
	if s.suggestion != nil && s.suggestion.Kind == kind {
		s.suggestion = nil
	}
	s.mu.Unlock()
	s.emit(Event{Type: EventDismissed, Kind: kind})
	return nil
}

// CurrentSuggestion returns the slot content, dropping it when expired.
func (c *Coordinator) CurrentSuggestion(userID uuid.UUID) *trigger.Suggestion {
	s := c.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suggestion != nil && !s.suggestionExpiry.IsZero() && c.now().After(s.suggestionExpiry) {
		s.suggestion = nil
	}
	return s.suggestion
}

// ExpandToChat moves the current suggestion into a chat conversation and
// clears the slot.
func (c *Coordinator) ExpandToChat(userID uuid.UUID) *trigger.Suggestion {
	s := c.session(userID)
	s.mu.Lock()
	sug := s.suggestion
	s.suggestion = nil
	s.mu.Unlock()
	if sug != nil {
		s.emit(Event{Type: EventExpandChat, Suggestion: sug})
	}
	return sug
}

// --------------------------------------------------------------------------
// Chat and execution
// --------------------------------------------------------------------------

// Chat answers a free-form question grounded in the cached team state.
// Quota exhaustion and generator failures degrade to canned replies; the
// parser guarantees at least one action either way.
func (c *Coordinator) Chat(ctx context.Context, userID uuid.UUID, question string) parser.Parsed {
	s := c.session(userID)
	c.refresh(ctx, s)

	s.mu.Lock()
	s.lastActive = c.now()
	pc := llm.PromptContext{
		Screen:             s.screen,
		TeamSize:           s.state.teamSize,
		MaxTeamSize:        config.MaxTeamSize,
		HasCaptain:         s.state.hasCaptain,
		PendingTransfers:   s.state.pendingTransfers,
		FreeTransfers:      s.state.freeTransfers,
		WildcardAvailable:  s.state.wildcardAvailable,
		HoursUntilNextRace: s.state.hoursUntilNextRace,
	}
	s.mu.Unlock()

	reply, err := c.gen.Generate(ctx, llm.BuildPrompt(pc, question))
	if err != nil {
		if errors.Is(err, llm.ErrQuotaExceeded) {
			c.logger.Warn("chat quota exhausted, serving canned reply", "user", userID)
		} else {
			c.logger.Error("chat generation failed, serving canned reply", "user", userID, "error", err)
		}
		reply, _ = llm.Canned{}.Generate(ctx, question)
	}
	return c.parser.Parse(reply)
}

// ExecuteAction dispatches an action against the user's team. Error results
// count toward the repeated-error rule.
func (c *Coordinator) ExecuteAction(ctx context.Context, userID uuid.UUID, a action.Action) action.Result {
	s := c.session(userID)
	c.refresh(ctx, s)

	s.mu.Lock()
	s.lastActive = c.now()
	teamID := s.state.teamID
	s.mu.Unlock()

	res := c.executor.Execute(ctx, teamID, a)

	if res.Status == action.StatusError {
		s.mu.Lock()
		s.errorCount++
		s.mu.Unlock()
	}
	s.emit(Event{Type: EventActionResult, Result: &res})
	return res
}

// --------------------------------------------------------------------------
// Idle detection
// --------------------------------------------------------------------------

// StartIdleChecker runs the single idle sweep loop until ctx is cancelled.
func (c *Coordinator) StartIdleChecker(ctx context.Context) {
	interval := c.cfg.IdleCheckInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	c.logger.Info("idle checker started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("idle checker stopped")
			return
		case <-ticker.C:
			c.sweepIdle(ctx)
		}
	}
}

// sweepIdle evaluates every session whose user has been inactive past the
// threshold. The idle rule itself re-checks screen and duration.
func (c *Coordinator) sweepIdle(ctx context.Context) {
	c.mu.Lock()
	sessions := make([]*session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.Unlock()

	now := c.now()
	for _, s := range sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastActive) > c.cfg.IdleThreshold
		s.mu.Unlock()
		if idle {
			c.evaluate(ctx, s)
		}
	}
}

// PurgeSessions drops sessions inactive beyond the TTL and returns how many
// were removed. Called from the maintenance loop.
func (c *Coordinator) PurgeSessions(olderThan time.Duration) int {
	cutoff := c.now().Add(-olderThan)
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, s := range c.sessions {
		s.mu.Lock()
		stale := s.lastActive.Before(cutoff)
		s.mu.Unlock()
		if stale {
			delete(c.sessions, id)
			removed++
		}
	}
	return removed
}

// --------------------------------------------------------------------------
// Internals
// --------------------------------------------------------------------------

// refresh re-reads team and race state. Each call claims a sequence number
// before touching the repositories; a result older than the one already
// applied is discarded, so concurrent refreshes never regress the cache.
// Repository failures keep the previous snapshot.
func (c *Coordinator) refresh(ctx context.Context, s *session) {
	s.mu.Lock()
	s.refreshSeq++
	seq := s.refreshSeq
	s.mu.Unlock()

	state, err := c.loadState(ctx, s.userID)
	if err != nil {
		c.logger.Warn("state refresh failed, keeping stale snapshot", "user", s.userID, "error", err)
		return
	}

	s.mu.Lock()
	if seq > s.stateSeq {
		s.state = *state
		s.stateSeq = seq
	}
	s.mu.Unlock()
}

func (c *Coordinator) loadState(ctx context.Context, userID uuid.UUID) (*teamState, error) {
	var st teamState

	team, err := c.teams.ByUser(ctx, userID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		// No team yet: triggers still run on a zero snapshot.
	case err != nil:
		return nil, err
	default:
		st.teamID = &team.ID
		st.hasCaptain = team.HasCaptain()
		st.pendingTransfers = team.PendingTransfers
		st.freeTransfers = team.FreeTransfers
		st.wildcardAvailable = team.WildcardAvailable
		st.wildcardActive = team.WildcardActive

		size, err := c.teams.RosterSize(ctx, team.ID)
		if err != nil {
			return nil, err
		}
		st.teamSize = size
	}

	race, err := c.races.Next(ctx)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		// Off season: deadline rules stay silent.
	case err != nil:
		return nil, err
	default:
		hours := race.TransferDeadline.Sub(c.now()).Hours()
		st.hoursUntilNextRace = &hours
	}

	return &st, nil
}

// evaluate runs the engine against the session snapshot, honoring the
// entitlement gate, and updates the slot only when the winning kind differs
// from what is already shown.
func (c *Coordinator) evaluate(ctx context.Context, s *session) *trigger.Suggestion {
	ok, err := c.entitled.AllowSuggestions(ctx, s.userID)
	if err != nil {
		c.logger.Warn("entitlement check failed, skipping evaluation", "user", s.userID, "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	now := c.now()
	s.mu.Lock()
	tc := s.snapshotLocked(now)
	s.mu.Unlock()

	sug := c.engine.Evaluate(ctx, s.userID, tc)
	if sug == nil {
		return nil
	}

	s.mu.Lock()
	if s.suggestion != nil && s.suggestion.Kind == sug.Kind {
		held := s.suggestion
		s.mu.Unlock()
		return held
	}
	s.suggestion = sug
	if sug.Kind.FirstVisit() {
		s.suggestionExpiry = now.Add(firstVisitTTL)
	} else {
		s.suggestionExpiry = time.Time{}
	}
	s.mu.Unlock()

	s.emit(Event{Type: EventSuggestion, Suggestion: sug})
	return sug
}
