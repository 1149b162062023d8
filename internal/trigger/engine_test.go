package trigger

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ciclismopt/assist/internal/action"
)

func testEngine(t *testing.T, now *time.Time) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(NewMemoryDismissalStore(), Config{
		Now: func() time.Time { return *now },
	}, logger)
}

func hoursPtr(h float64) *float64 { return &h }

func TestNoCaptainFiresOnTeamScreen(t *testing.T) {
	now := time.Now()
	e := testEngine(t, &now)
	user := uuid.New()

	s := e.Evaluate(context.Background(), user, &Context{
		Screen:     action.RouteTeam,
		TeamSize:   15,
		HasCaptain: false,
		VisitedScreens: map[string]bool{
			action.RouteTeam: true,
		},
	})

	require.NotNil(t, s)
	assert.Equal(t, KindNoCaptain, s.Kind)
	assert.Equal(t, 90, s.Priority)
	require.NotEmpty(t, s.Actions)
	assert.Equal(t, action.RouteTeam, s.Actions[0].Param("route"))
}

func TestNoCaptainSilentOffTeamScreen(t *testing.T) {
	now := time.Now()
	e := testEngine(t, &now)

	s := e.Evaluate(context.Background(), uuid.New(), &Context{
		Screen:         action.RouteHome,
		TeamSize:       15,
		HasCaptain:     false,
		VisitedScreens: map[string]bool{action.RouteHome: true},
	})

	assert.Nil(t, s)
}

func TestTransferDeadlineOutranksNoCaptain(t *testing.T) {
	now := time.Now()
	e := testEngine(t, &now)

	s := e.Evaluate(context.Background(), uuid.New(), &Context{
		Screen:             action.RouteTeam,
		TeamSize:           15,
		HasCaptain:         false,
		HoursUntilNextRace: hoursPtr(3),
		VisitedScreens:     map[string]bool{action.RouteTeam: true},
	})

	require.NotNil(t, s)
	assert.Equal(t, KindTransferDeadline, s.Kind)
}

func TestWildcardOutranksPenaltyWarning(t *testing.T) {
	now := time.Now()
	e := testEngine(t, &now)

	tc := &Context{
		Screen:            action.RouteMarket,
		TeamSize:          15,
		HasCaptain:        true,
		PendingTransfers:  5,
		FreeTransfers:     2,
		WildcardAvailable: true,
		VisitedScreens:    map[string]bool{action.RouteMarket: true},
	}

	s := e.Evaluate(context.Background(), uuid.New(), tc)
	require.NotNil(t, s)
	assert.Equal(t, KindWildcardOpportunity, s.Kind)

	// Without the wildcard only the penalty warning remains.
	tc.WildcardAvailable = false
	s = e.Evaluate(context.Background(), uuid.New(), tc)
	require.NotNil(t, s)
	assert.Equal(t, KindTransferPenaltyThreshold, s.Kind)
	assert.Contains(t, s.Message, "12 pontos")
}

func TestUnknownRaceHoursSuppressesDeadlines(t *testing.T) {
	now := time.Now()
	e := testEngine(t, &now)

	s := e.Evaluate(context.Background(), uuid.New(), &Context{
		Screen:         action.RouteHome,
		TeamSize:       10,
		HasCaptain:     true,
		VisitedScreens: map[string]bool{action.RouteHome: true},
	})

	assert.Nil(t, s, "incomplete team without a known race must stay quiet")
}

func TestCooldownSuppressesRepeat(t *testing.T) {
	now := time.Now()
	e := testEngine(t, &now)
	user := uuid.New()
	tc := &Context{
		Screen:         action.RouteTeam,
		TeamSize:       15,
		VisitedScreens: map[string]bool{action.RouteTeam: true},
	}

	first := e.Evaluate(context.Background(), user, tc)
	require.NotNil(t, first)
	assert.Equal(t, KindNoCaptain, first.Kind)

	assert.Nil(t, e.Evaluate(context.Background(), user, tc))

	now = now.Add(5*time.Minute - time.Millisecond)
	assert.Nil(t, e.Evaluate(context.Background(), user, tc), "still inside cooldown")

	now = now.Add(2 * time.Millisecond)
	again := e.Evaluate(context.Background(), user, tc)
	require.NotNil(t, again, "cooldown expired")
	assert.Equal(t, KindNoCaptain, again.Kind)
}

func TestCooldownIsPerUser(t *testing.T) {
	now := time.Now()
	e := testEngine(t, &now)
	tc := &Context{
		Screen:         action.RouteTeam,
		TeamSize:       15,
		VisitedScreens: map[string]bool{action.RouteTeam: true},
	}

	require.NotNil(t, e.Evaluate(context.Background(), uuid.New(), tc))
	require.NotNil(t, e.Evaluate(context.Background(), uuid.New(), tc))
}

func TestDismissalWindowBoundary(t *testing.T) {
	now := time.Now()
	e := testEngine(t, &now)
	user := uuid.New()
	tc := &Context{
		Screen:         action.RouteTeam,
		TeamSize:       15,
		VisitedScreens: map[string]bool{action.RouteTeam: true},
	}

	require.NotNil(t, e.Evaluate(context.Background(), user, tc))
	require.NoError(t, e.Dismiss(context.Background(), user, KindNoCaptain))
	e.ClearCooldown(user)

	assert.Nil(t, e.Evaluate(context.Background(), user, tc), "dismissed kind stays quiet")

	now = now.Add(24*time.Hour - time.Millisecond)
	e.ClearCooldown(user)
	assert.Nil(t, e.Evaluate(context.Background(), user, tc), "still inside dismissal window")

	now = now.Add(2 * time.Millisecond)
	e.ClearCooldown(user)
	s := e.Evaluate(context.Background(), user, tc)
	require.NotNil(t, s, "dismissal window expired")
	assert.Equal(t, KindNoCaptain, s.Kind)
}

func TestDismissalDoesNotSilenceOtherKinds(t *testing.T) {
	now := time.Now()
	e := testEngine(t, &now)
	user := uuid.New()

	require.NoError(t, e.Dismiss(context.Background(), user, KindTransferDeadline))

	s := e.Evaluate(context.Background(), user, &Context{
		Screen:             action.RouteTeam,
		TeamSize:           15,
		HoursUntilNextRace: hoursPtr(3),
		VisitedScreens:     map[string]bool{action.RouteTeam: true},
	})

	require.NotNil(t, s)
	assert.Equal(t, KindNoCaptain, s.Kind, "next rule down takes over")
}

func TestFirstVisitTipFiresOnce(t *testing.T) {
	now := time.Now()
	e := testEngine(t, &now)
	user := uuid.New()

	s := e.Evaluate(context.Background(), user, &Context{
		Screen:         action.RouteMarket,
		VisitedScreens: map[string]bool{},
	})
	require.NotNil(t, s)
	assert.Equal(t, KindFirstVisitMarket, s.Kind)
	assert.True(t, s.Kind.FirstVisit())

	s = e.Evaluate(context.Background(), user, &Context{
		Screen:         action.RouteMarket,
		VisitedScreens: map[string]bool{action.RouteMarket: true},
	})
	assert.Nil(t, s)
}

func TestIdleRuleNeedsIdleScreen(t *testing.T) {
	now := time.Now()
	e := testEngine(t, &now)

	s := e.Evaluate(context.Background(), uuid.New(), &Context{
		Screen:         action.RouteMarket,
		IdleFor:        45 * time.Second,
		VisitedScreens: map[string]bool{action.RouteMarket: true},
	})
	require.NotNil(t, s)
	assert.Equal(t, KindIdleOnScreen, s.Kind)

	s = e.Evaluate(context.Background(), uuid.New(), &Context{
		Screen:         action.RouteNews,
		IdleFor:        45 * time.Second,
		VisitedScreens: map[string]bool{action.RouteNews: true},
	})
	assert.Nil(t, s, "idle rule only applies to fantasy screens")
}

func TestRepeatedErrorsThreshold(t *testing.T) {
	now := time.Now()
	e := testEngine(t, &now)

	s := e.Evaluate(context.Background(), uuid.New(), &Context{
		Screen:         action.RouteHome,
		ErrorCount:     2,
		VisitedScreens: map[string]bool{action.RouteHome: true},
	})
	assert.Nil(t, s)

	s = e.Evaluate(context.Background(), uuid.New(), &Context{
		Screen:         action.RouteHome,
		ErrorCount:     3,
		VisitedScreens: map[string]bool{action.RouteHome: true},
	})
	require.NotNil(t, s)
	assert.Equal(t, KindRepeatedErrors, s.Kind)
}

func TestRulePanicIsIsolated(t *testing.T) {
	now := time.Now()
	e := testEngine(t, &now)

	// Prepend a rule with a broken predicate; evaluation must skip it and
	// still reach the rest of the table.
	e.rules = append([]rule{{
		kind:  Kind("BROKEN"),
		when:  func(c *Context) bool { panic("boom") },
		build: func(c *Context) Suggestion { return Suggestion{} },
	}}, e.rules...)

	s := e.Evaluate(context.Background(), uuid.New(), &Context{
		Screen:         action.RouteTeam,
		TeamSize:       15,
		VisitedScreens: map[string]bool{action.RouteTeam: true},
	})

	require.NotNil(t, s)
	assert.Equal(t, KindNoCaptain, s.Kind)
}

func TestBuilderPanicIsIsolated(t *testing.T) {
	now := time.Now()
	e := testEngine(t, &now)

	// A firing rule whose builder panics must be skipped, without starting
	// its cooldown, and lower-priority rules must still be evaluated.
	e.rules = append([]rule{{
		kind:  Kind("BROKEN"),
		when:  func(c *Context) bool { return true },
		build: func(c *Context) Suggestion { panic("boom") },
	}}, e.rules...)

	s := e.Evaluate(context.Background(), uuid.New(), &Context{
		Screen:         action.RouteTeam,
		TeamSize:       15,
		VisitedScreens: map[string]bool{action.RouteTeam: true},
	})

	require.NotNil(t, s)
	assert.Equal(t, KindNoCaptain, s.Kind)
}

func TestNilVisitedScreensDoesNotPanic(t *testing.T) {
	now := time.Now()
	e := testEngine(t, &now)

	assert.NotPanics(t, func() {
		e.Evaluate(context.Background(), uuid.New(), &Context{Screen: action.RouteHome})
	})
}

func TestPenaltyPoints(t *testing.T) {
	tc := &Context{PendingTransfers: 5, FreeTransfers: 2}
	assert.Equal(t, 12, tc.PenaltyPoints())

	tc = &Context{PendingTransfers: 2, FreeTransfers: 2}
	assert.Equal(t, 0, tc.PenaltyPoints())
}

func TestMemoryStorePurge(t *testing.T) {
	store := NewMemoryDismissalStore()
	user := uuid.New()
	now := time.Now()

	require.NoError(t, store.Dismiss(context.Background(), user, KindNoCaptain, now.Add(-25*time.Hour)))
	require.NoError(t, store.Dismiss(context.Background(), user, KindRaceDeadline, now))

	n, err := store.Purge(context.Background(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := store.DismissedAt(context.Background(), user, KindRaceDeadline)
	require.NoError(t, err)
	assert.True(t, ok)
}
