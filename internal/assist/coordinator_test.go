package assist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ciclismopt/assist/internal/action"
	"github.com/ciclismopt/assist/internal/config"
	"github.com/ciclismopt/assist/internal/llm"
	"github.com/ciclismopt/assist/internal/parser"
	"github.com/ciclismopt/assist/internal/repo"
	"github.com/ciclismopt/assist/internal/trigger"
)

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

type stubTeams struct {
	team *repo.Team
	size int
	err  error
}

func (f *stubTeams) ByUser(ctx context.Context, userID uuid.UUID) (*repo.Team, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.team == nil {
		return nil, repo.ErrNotFound
	}
	return f.team, nil
}

func (f *stubTeams) ByID(ctx context.Context, teamID uuid.UUID) (*repo.Team, error) {
	return f.ByUser(ctx, uuid.Nil)
}

func (f *stubTeams) RosterSize(ctx context.Context, teamID uuid.UUID) (int, error) {
	return f.size, nil
}

func (f *stubTeams) SetCaptain(ctx context.Context, teamID uuid.UUID, riderID int64) error {
	return nil
}

func (f *stubTeams) SetWildcardActive(ctx context.Context, teamID uuid.UUID, active bool) error {
	return nil
}

func (f *stubTeams) AddRider(ctx context.Context, teamID uuid.UUID, riderID int64) error {
	return nil
}

func (f *stubTeams) RemoveRider(ctx context.Context, teamID uuid.UUID, riderID int64) error {
	return nil
}

func (f *stubTeams) InRoster(ctx context.Context, teamID uuid.UUID, riderID int64) (bool, error) {
	return false, nil
}

func (f *stubTeams) BumpPendingTransfers(ctx context.Context, teamID uuid.UUID) error {
	return nil
}

func (f *stubTeams) SetRiderActive(ctx context.Context, teamID uuid.UUID, riderID int64, active bool) error {
	return nil
}

func (f *stubTeams) ActivateTripleCaptain(ctx context.Context, teamID uuid.UUID, raceID int64) error {
	return nil
}

type stubRaces struct {
	race *repo.Race
}

func (f *stubRaces) Next(ctx context.Context) (*repo.Race, error) {
	if f.race == nil {
		return nil, repo.ErrNotFound
	}
	return f.race, nil
}

func (f *stubRaces) Upcoming(ctx context.Context, limit int) ([]repo.Race, error) {
	return nil, nil
}

type stubRiders struct{}

func (stubRiders) ByID(ctx context.Context, id int64) (*repo.Rider, error) {
	return nil, repo.ErrNotFound
}

func (stubRiders) ByName(ctx context.Context, name string) (*repo.Rider, error) {
	return nil, repo.ErrNotFound
}

func (stubRiders) OnTeam(ctx context.Context, teamID uuid.UUID) ([]repo.Rider, error) {
	return nil, nil
}

type stubGen struct {
	reply string
	err   error
}

func (g stubGen) Generate(ctx context.Context, prompt string) (string, error) {
	return g.reply, g.err
}

type denyAll struct{}

func (denyAll) AllowSuggestions(ctx context.Context, userID uuid.UUID) (bool, error) {
	return false, nil
}

type fixture struct {
	c     *Coordinator
	teams *stubTeams
	races *stubRaces
	now   *time.Time
}

func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Now()

	teams := &stubTeams{}
	races := &stubRaces{}
	nowFn := func() time.Time { return now }

	deps := Deps{
		Engine: trigger.NewEngine(trigger.NewMemoryDismissalStore(), trigger.Config{
			Now: nowFn,
		}, logger),
		Executor:  action.NewExecutor(teams, stubRiders{}, logger),
		Parser:    parser.New(logger),
		Generator: stubGen{reply: "ok"},
		Teams:     teams,
		Races:     races,
		Now:       nowFn,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	cfg := &config.Config{
		IdleCheckInterval: 10 * time.Second,
		IdleThreshold:     30 * time.Second,
		SessionTTL:        2 * time.Hour,
	}
	return &fixture{
		c:     NewCoordinator(deps, cfg, logger),
		teams: teams,
		races: races,
		now:   &now,
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestFirstVisitSuggestionOnScreenChange(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	s := f.c.OnScreenChange(context.Background(), user, action.RouteMarket)
	require.NotNil(t, s)
	assert.Equal(t, trigger.KindFirstVisitMarket, s.Kind)

	// The screen is now visited; re-entering stays quiet.
	*f.now = f.now.Add(6 * time.Minute)
	assert.Nil(t, f.c.OnScreenChange(context.Background(), user, action.RouteMarket))
}

func TestFirstVisitTipExpires(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	require.NotNil(t, f.c.OnScreenChange(context.Background(), user, action.RouteMarket))
	require.NotNil(t, f.c.CurrentSuggestion(user))

	*f.now = f.now.Add(16 * time.Second)
	assert.Nil(t, f.c.CurrentSuggestion(user), "onboarding tips expire")
}

func TestSlotKeptWhenSameKindFiresAgain(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	teamID := uuid.New()
	f.teams.team = &repo.Team{ID: teamID}
	f.teams.size = 15

	first := f.c.OnScreenChange(context.Background(), user, action.RouteTeam)
	require.NotNil(t, first)
	require.Equal(t, trigger.KindNoCaptain, first.Kind)

	// Past cooldown the same kind fires again; the slot keeps the original
	// card instead of flashing a new one.
	*f.now = f.now.Add(6 * time.Minute)
	again := f.c.OnTransfersChanged(context.Background(), user)
	require.NotNil(t, again)
	assert.Equal(t, first.ID, again.ID)
}

func TestEntitlementGateSkipsEvaluation(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Entitlements = denyAll{} })

	s := f.c.OnScreenChange(context.Background(), uuid.New(), action.RouteMarket)
	assert.Nil(t, s)
}

func TestStaleRefreshDiscarded(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	s := f.c.session(user)

	// A slow refresh claims its sequence number first.
	s.mu.Lock()
	s.refreshSeq++
	slowSeq := s.refreshSeq
	s.mu.Unlock()

	// A later refresh completes with the current repository state.
	teamID := uuid.New()
	f.teams.team = &repo.Team{ID: teamID, PendingTransfers: 4}
	f.teams.size = 12
	f.c.refresh(context.Background(), s)

	s.mu.Lock()
	require.Equal(t, 12, s.state.teamSize)
	appliedSeq := s.stateSeq
	s.mu.Unlock()
	require.Greater(t, appliedSeq, slowSeq)

	// The slow refresh finally lands with an outdated snapshot; the guard
	// must reject it.
	stale := teamState{teamSize: 3}
	s.mu.Lock()
	if slowSeq > s.stateSeq {
		s.state = stale
		s.stateSeq = slowSeq
	}
	current := s.state.teamSize
	s.mu.Unlock()

	assert.Equal(t, 12, current)
}

func TestRefreshFailureKeepsStaleSnapshot(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	s := f.c.session(user)

	teamID := uuid.New()
	f.teams.team = &repo.Team{ID: teamID}
	f.teams.size = 10
	f.c.refresh(context.Background(), s)
	require.Equal(t, 10, s.state.teamSize)

	f.teams.err = errors.New("connection refused")
	f.c.refresh(context.Background(), s)
	assert.Equal(t, 10, s.state.teamSize, "failed refresh keeps previous state")
}

func TestRepeatedErrorsSurfaceHelp(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	assert.Nil(t, f.c.OnInteraction(context.Background(), user, true))
	assert.Nil(t, f.c.OnInteraction(context.Background(), user, true))

	s := f.c.OnInteraction(context.Background(), user, true)
	require.NotNil(t, s)
	assert.Equal(t, trigger.KindRepeatedErrors, s.Kind)
}

func TestChatQuotaFallsBackToCanned(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Generator = stubGen{err: llm.ErrQuotaExceeded}
	})

	out := f.c.Chat(context.Background(), uuid.New(), "o que e o wildcard?")

	assert.NotEmpty(t, out.Message)
	assert.NotEmpty(t, out.Actions)
	assert.Contains(t, out.Message, "wildcard")
}

func TestChatParsesStructuredReply(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Generator = stubGen{reply: "```json\n" +
			`{"message": "Escolhe um capitao", "actions": [{"type": "NAVIGATE_TO", "title": "Equipa", "params": {"route": "fantasy/team"}}]}` +
			"\n```"}
	})

	out := f.c.Chat(context.Background(), uuid.New(), "ajuda com capitao")

	assert.Equal(t, parser.SourceStructured, out.Source)
	assert.Equal(t, "Escolhe um capitao", out.Message)
}

func TestExecuteActionWithoutTeam(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	res := f.c.ExecuteAction(context.Background(), user, action.Action{
		Kind:   action.KindBuyCyclist,
		Params: map[string]string{"cyclistId": "1"},
	})
	assert.Equal(t, action.StatusRequiresAuth, res.Status)
}

func TestEventsEmittedOnSuggestionAndDismiss(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	events, cancel := f.c.Subscribe(user)
	defer cancel()

	sug := f.c.OnScreenChange(context.Background(), user, action.RouteMarket)
	require.NotNil(t, sug)

	ev := <-events
	assert.Equal(t, EventSuggestion, ev.Type)
	require.NotNil(t, ev.Suggestion)
	assert.Equal(t, sug.ID, ev.Suggestion.ID)

	require.NoError(t, f.c.Dismiss(context.Background(), user, sug.Kind))
	ev = <-events
	assert.Equal(t, EventDismissed, ev.Type)
	assert.Equal(t, sug.Kind, ev.Kind)
	assert.Nil(t, f.c.CurrentSuggestion(user))
}

func TestEveryCommonSubscriberSeesEvents(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	first, cancelFirst := f.c.Subscribe(user)
	second, cancelSecond := f.c.Subscribe(user)
	defer cancelSecond()

	sug := f.c.OnScreenChange(context.Background(), user, action.RouteMarket)
	require.NotNil(t, sug)

	for _, events := range []<-chan Event{first, second} {
		ev := <-events
		assert.Equal(t, EventSuggestion, ev.Type)
		require.NotNil(t, ev.Suggestion)
		assert.Equal(t, sug.ID, ev.Suggestion.ID)
	}

	// A cancelled subscriber's channel closes; the survivor still receives.
	cancelFirst()
	_, open := <-first
	assert.False(t, open)

	require.NoError(t, f.c.Dismiss(context.Background(), user, sug.Kind))
	ev := <-second
	assert.Equal(t, EventDismissed, ev.Type)
}

func TestIdleSweepFiresIdleRule(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	f.c.OnScreenChange(context.Background(), user, action.RouteMarket)
	require.NoError(t, f.c.Dismiss(context.Background(), user, trigger.KindFirstVisitMarket))

	*f.now = f.now.Add(6 * time.Minute)
	f.c.sweepIdle(context.Background())

	s := f.c.CurrentSuggestion(user)
	require.NotNil(t, s)
	assert.Equal(t, trigger.KindIdleOnScreen, s.Kind)
}

func TestIdleSweepSkipsActiveSessions(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()

	f.c.OnScreenChange(context.Background(), user, action.RouteMarket)
	require.NoError(t, f.c.Dismiss(context.Background(), user, trigger.KindFirstVisitMarket))
	f.c.OnInteraction(context.Background(), user, false)

	f.c.sweepIdle(context.Background())
	assert.Nil(t, f.c.CurrentSuggestion(user))
}

func TestExpandToChatClearsSlot(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	events, cancel := f.c.Subscribe(user)
	defer cancel()

	require.NotNil(t, f.c.OnScreenChange(context.Background(), user, action.RouteMarket))
	<-events

	sug := f.c.ExpandToChat(user)
	require.NotNil(t, sug)
	assert.Nil(t, f.c.CurrentSuggestion(user))

	ev := <-events
	assert.Equal(t, EventExpandChat, ev.Type)
}

func TestPurgeSessions(t *testing.T) {
	f := newFixture(t)

	f.c.OnScreenChange(context.Background(), uuid.New(), action.RouteHome)
	*f.now = f.now.Add(3 * time.Hour)
	f.c.OnScreenChange(context.Background(), uuid.New(), action.RouteHome)

	removed := f.c.PurgeSessions(2 * time.Hour)
	assert.Equal(t, 1, removed)
}
