package action

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ciclismopt/assist/internal/repo"
)

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

type fakeTeamRepo struct {
	team       *repo.Team
	roster     map[int64]bool
	active     map[int64]bool
	pending    int
	captain    *int64
	tripleRace *int64
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{roster: map[int64]bool{}, active: map[int64]bool{}}
}

func (f *fakeTeamRepo) ByUser(ctx context.Context, userID uuid.UUID) (*repo.Team, error) {
	if f.team == nil {
		return nil, repo.ErrNotFound
	}
	return f.team, nil
}

func (f *fakeTeamRepo) ByID(ctx context.Context, teamID uuid.UUID) (*repo.Team, error) {
	if f.team == nil {
		return nil, repo.ErrNotFound
	}
	return f.team, nil
}

func (f *fakeTeamRepo) RosterSize(ctx context.Context, teamID uuid.UUID) (int, error) {
	return len(f.roster), nil
}

func (f *fakeTeamRepo) SetCaptain(ctx context.Context, teamID uuid.UUID, riderID int64) error {
	f.captain = &riderID
	return nil
}

func (f *fakeTeamRepo) SetWildcardActive(ctx context.Context, teamID uuid.UUID, active bool) error {
	f.team.WildcardActive = active
	return nil
}

func (f *fakeTeamRepo) AddRider(ctx context.Context, teamID uuid.UUID, riderID int64) error {
	f.roster[riderID] = true
	return nil
}

func (f *fakeTeamRepo) RemoveRider(ctx context.Context, teamID uuid.UUID, riderID int64) error {
	delete(f.roster, riderID)
	return nil
}

func (f *fakeTeamRepo) InRoster(ctx context.Context, teamID uuid.UUID, riderID int64) (bool, error) {
	return f.roster[riderID], nil
}

func (f *fakeTeamRepo) BumpPendingTransfers(ctx context.Context, teamID uuid.UUID) error {
	f.pending++
	return nil
}

func (f *fakeTeamRepo) SetRiderActive(ctx context.Context, teamID uuid.UUID, riderID int64, active bool) error {
	f.active[riderID] = active
	return nil
}

func (f *fakeTeamRepo) ActivateTripleCaptain(ctx context.Context, teamID uuid.UUID, raceID int64) error {
	f.tripleRace = &raceID
	return nil
}

type fakeRiderRepo struct {
	riders map[int64]*repo.Rider
}

func (f *fakeRiderRepo) ByID(ctx context.Context, id int64) (*repo.Rider, error) {
	if r, ok := f.riders[id]; ok {
		return r, nil
	}
	return nil, repo.ErrNotFound
}

func (f *fakeRiderRepo) ByName(ctx context.Context, name string) (*repo.Rider, error) {
	for _, r := range f.riders {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeRiderRepo) OnTeam(ctx context.Context, teamID uuid.UUID) ([]repo.Rider, error) {
	return nil, nil
}

func testExecutor(teams *fakeTeamRepo, riders *fakeRiderRepo) *Executor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewExecutor(teams, riders, logger)
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestTeamScopedWithoutTeamRequiresAuth(t *testing.T) {
	exec := testExecutor(newFakeTeamRepo(), &fakeRiderRepo{})

	kinds := []Kind{
		KindBuyCyclist, KindSellCyclist, KindSetCaptain,
		KindActivateCyclist, KindDeactivateCyclist,
		KindUseTripleCaptain, KindUseWildcard,
	}
	for _, kind := range kinds {
		res := exec.Execute(context.Background(), nil, Action{
			Kind:   kind,
			Params: map[string]string{"cyclistId": "42"},
		})
		assert.Equal(t, StatusRequiresAuth, res.Status, "kind %s", kind)
		assert.Equal(t, "Precisas de criar uma equipa primeiro", res.Message)
	}
}

func TestNavigateNormalizesAliases(t *testing.T) {
	exec := testExecutor(newFakeTeamRepo(), &fakeRiderRepo{})

	res := exec.Execute(context.Background(), nil, Action{
		Kind:   KindNavigateTo,
		Params: map[string]string{"route": "mercado"},
	})
	require.Equal(t, StatusNavigate, res.Status)
	assert.Equal(t, RouteMarket, res.Route)
}

func TestNavigateCanonicalPassthrough(t *testing.T) {
	exec := testExecutor(newFakeTeamRepo(), &fakeRiderRepo{})

	res := exec.Execute(context.Background(), nil, Action{
		Kind:   KindNavigateTo,
		Params: map[string]string{"route": "fantasy/market"},
	})
	require.Equal(t, StatusNavigate, res.Status)
	assert.Equal(t, "fantasy/market", res.Route)
}

func TestNavigateFallsBackToTitleThenHome(t *testing.T) {
	exec := testExecutor(newFakeTeamRepo(), &fakeRiderRepo{})

	res := exec.Execute(context.Background(), nil, Action{
		Kind:  KindNavigateTo,
		Title: "Ver o calendario de provas",
	})
	require.Equal(t, StatusNavigate, res.Status)
	assert.Equal(t, RouteCalendar, res.Route)

	res = exec.Execute(context.Background(), nil, Action{Kind: KindNavigateTo})
	require.Equal(t, StatusNavigate, res.Status)
	assert.Equal(t, RouteHome, res.Route)
}

func TestBuyCyclistByID(t *testing.T) {
	teams := newFakeTeamRepo()
	riders := &fakeRiderRepo{riders: map[int64]*repo.Rider{
		7: {ID: 7, Name: "Joao Almeida"},
	}}
	exec := testExecutor(teams, riders)
	teamID := uuid.New()

	res := exec.Execute(context.Background(), &teamID, Action{
		Kind:   KindBuyCyclist,
		Params: map[string]string{"cyclistId": "7"},
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Contains(t, res.Message, "Joao Almeida")
	assert.True(t, teams.roster[7])
	assert.Equal(t, 1, teams.pending)
}

func TestBuyCyclistByNameFallback(t *testing.T) {
	teams := newFakeTeamRepo()
	riders := &fakeRiderRepo{riders: map[int64]*repo.Rider{
		3: {ID: 3, Name: "Tadej Pogacar"},
	}}
	exec := testExecutor(teams, riders)
	teamID := uuid.New()

	res := exec.Execute(context.Background(), &teamID, Action{
		Kind:   KindBuyCyclist,
		Params: map[string]string{"cyclistName": "Tadej Pogacar"},
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.True(t, teams.roster[3])
}

func TestBuyCyclistMissingParams(t *testing.T) {
	exec := testExecutor(newFakeTeamRepo(), &fakeRiderRepo{})
	teamID := uuid.New()

	res := exec.Execute(context.Background(), &teamID, Action{Kind: KindBuyCyclist})
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, "ID do ciclista nao especificado", res.Message)
}

func TestSellCyclistNotInRoster(t *testing.T) {
	teams := newFakeTeamRepo()
	riders := &fakeRiderRepo{riders: map[int64]*repo.Rider{
		9: {ID: 9, Name: "Wout van Aert"},
	}}
	exec := testExecutor(teams, riders)
	teamID := uuid.New()

	res := exec.Execute(context.Background(), &teamID, Action{
		Kind:   KindSellCyclist,
		Params: map[string]string{"cyclistId": "9"},
	})
	require.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, "Wout van Aert")
}

func TestSetCaptainRequiresRosterMembership(t *testing.T) {
	teams := newFakeTeamRepo()
	teams.roster[5] = true
	riders := &fakeRiderRepo{riders: map[int64]*repo.Rider{
		5: {ID: 5, Name: "Remco Evenepoel"},
	}}
	exec := testExecutor(teams, riders)
	teamID := uuid.New()

	res := exec.Execute(context.Background(), &teamID, Action{
		Kind:   KindSetCaptain,
		Params: map[string]string{"cyclistId": "5"},
	})
	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, teams.captain)
	assert.Equal(t, int64(5), *teams.captain)
}

func TestActivateCyclistUpdatesLineup(t *testing.T) {
	teams := newFakeTeamRepo()
	teams.roster[11] = true
	riders := &fakeRiderRepo{riders: map[int64]*repo.Rider{
		11: {ID: 11, Name: "Jonas Vingegaard"},
	}}
	exec := testExecutor(teams, riders)
	teamID := uuid.New()

	res := exec.Execute(context.Background(), &teamID, Action{
		Kind:   KindActivateCyclist,
		Params: map[string]string{"cyclistId": "11"},
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Contains(t, res.Message, "Jonas Vingegaard")
	assert.True(t, teams.active[11])

	res = exec.Execute(context.Background(), &teamID, Action{
		Kind:   KindDeactivateCyclist,
		Params: map[string]string{"cyclistId": "11"},
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Contains(t, res.Message, "suplentes")
	assert.False(t, teams.active[11])
}

func TestActivateCyclistMissingParams(t *testing.T) {
	exec := testExecutor(newFakeTeamRepo(), &fakeRiderRepo{})
	teamID := uuid.New()

	for _, kind := range []Kind{KindActivateCyclist, KindDeactivateCyclist} {
		res := exec.Execute(context.Background(), &teamID, Action{Kind: kind})
		require.Equal(t, StatusError, res.Status, "kind %s", kind)
		assert.Equal(t, "ID do ciclista nao especificado", res.Message)
	}
}

func TestActivateCyclistNotInRoster(t *testing.T) {
	teams := newFakeTeamRepo()
	riders := &fakeRiderRepo{riders: map[int64]*repo.Rider{
		11: {ID: 11, Name: "Jonas Vingegaard"},
	}}
	exec := testExecutor(teams, riders)
	teamID := uuid.New()

	res := exec.Execute(context.Background(), &teamID, Action{
		Kind:   KindActivateCyclist,
		Params: map[string]string{"cyclistId": "11"},
	})
	require.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, "nao esta na tua equipa")
	assert.Empty(t, teams.active)
}

func TestTripleCaptainRequiresRaceID(t *testing.T) {
	teams := newFakeTeamRepo()
	exec := testExecutor(teams, &fakeRiderRepo{})
	teamID := uuid.New()

	res := exec.Execute(context.Background(), &teamID, Action{Kind: KindUseTripleCaptain})
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, "ID da corrida nao especificado", res.Message)
	assert.Nil(t, teams.tripleRace)

	res = exec.Execute(context.Background(), &teamID, Action{
		Kind:   KindUseTripleCaptain,
		Params: map[string]string{"raceId": "volta"},
	})
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, "ID da corrida invalido", res.Message)
}

func TestTripleCaptainActivatesForRace(t *testing.T) {
	teams := newFakeTeamRepo()
	exec := testExecutor(teams, &fakeRiderRepo{})
	teamID := uuid.New()

	res := exec.Execute(context.Background(), &teamID, Action{
		Kind:   KindUseTripleCaptain,
		Params: map[string]string{"raceId": "21"},
	})
	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, teams.tripleRace)
	assert.Equal(t, int64(21), *teams.tripleRace)
}

func TestUseWildcardAlreadyActive(t *testing.T) {
	teams := newFakeTeamRepo()
	teamID := uuid.New()
	teams.team = &repo.Team{ID: teamID, WildcardAvailable: true, WildcardActive: true}
	exec := testExecutor(teams, &fakeRiderRepo{})

	res := exec.Execute(context.Background(), &teamID, Action{Kind: KindUseWildcard})
	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, "O wildcard ja esta ativo", res.Message)
}

func TestUseWildcardActivates(t *testing.T) {
	teams := newFakeTeamRepo()
	teamID := uuid.New()
	teams.team = &repo.Team{ID: teamID, WildcardAvailable: true}
	exec := testExecutor(teams, &fakeRiderRepo{})

	res := exec.Execute(context.Background(), &teamID, Action{Kind: KindUseWildcard})
	require.Equal(t, StatusSuccess, res.Status)
	assert.True(t, teams.team.WildcardActive)
}

func TestUnknownKindIsError(t *testing.T) {
	exec := testExecutor(newFakeTeamRepo(), &fakeRiderRepo{})

	res := exec.Execute(context.Background(), nil, Action{Kind: Kind("TELEPORT")})
	assert.Equal(t, StatusError, res.Status)
}

func TestNormalizeRoute(t *testing.T) {
	cases := map[string]string{
		"mercado":        RouteMarket,
		"Minha Equipa":   RouteTeam,
		"  calendario  ": RouteCalendar,
		"classificacao":  RouteLeagues,
		"fantasy/team":   "fantasy/team",
		"custom/deep":    "custom/deep",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeRoute(in), "input %q", in)
	}
}
