package action

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ciclismopt/assist/internal/repo"
)

// Executor dispatches actions against the fantasy repositories. It never
// returns a Go error to callers: every outcome, including repository
// failures and panics inside a handler, becomes a Result.
type Executor struct {
	teams  repo.TeamRepo
	riders repo.RiderRepo
	logger *slog.Logger
}

func NewExecutor(teams repo.TeamRepo, riders repo.RiderRepo, logger *slog.Logger) *Executor {
	return &Executor{teams: teams, riders: riders, logger: logger}
}

// Execute dispatches a single action for the given team. teamID is nil when
// the user has no fantasy team yet; team-scoped actions then short-circuit
// to RequiresAuth without touching any repository.
func (e *Executor) Execute(ctx context.Context, teamID *uuid.UUID, a Action) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("action handler panicked", "kind", a.Kind, "panic", r)
			result = Failure("Nao foi possivel executar a acao. Tenta novamente.")
		}
	}()

	if a.IsTeamScoped() && teamID == nil {
		return RequiresAuth("Precisas de criar uma equipa primeiro")
	}

	switch a.Kind {
	case KindNavigateTo:
		return Navigate(e.resolveRoute(a))
	case KindBuyCyclist:
		return e.buyCyclist(ctx, *teamID, a)
	case KindSellCyclist:
		return e.sellCyclist(ctx, *teamID, a)
	case KindSetCaptain:
		return e.setCaptain(ctx, *teamID, a)
	case KindActivateCyclist:
		return e.setRiderActive(ctx, *teamID, a, true)
	case KindDeactivateCyclist:
		return e.setRiderActive(ctx, *teamID, a, false)
	case KindUseTripleCaptain:
		return e.useTripleCaptain(ctx, *teamID, a)
	case KindUseWildcard:
		return e.useWildcard(ctx, *teamID)
	case KindShowHelp, KindExplainRules:
		return Navigate(RouteAssist)
	case KindShowRiderStats, KindCompareRiders:
		return Navigate(RouteMarket)
	default:
		e.logger.Warn("unknown action kind", "kind", a.Kind)
		return Failure("Acao desconhecida")
	}
}

// resolveRoute picks a navigation target from the action params, falling
// back to title keywords and finally to home.
func (e *Executor) resolveRoute(a Action) string {
	for _, key := range []string{"route", "destination", "screen", "target"} {
		if raw := a.Param(key); raw != "" {
			return NormalizeRoute(raw)
		}
	}
	if title := strings.ToLower(a.Title); title != "" {
		for alias, route := range routeAliases {
			if strings.Contains(title, alias) {
				return route
			}
		}
	}
	return RouteHome
}

func (e *Executor) buyCyclist(ctx context.Context, teamID uuid.UUID, a Action) Result {
	rider, res := e.resolveRider(ctx, a)
	if rider == nil {
		return res
	}

	if err := e.teams.AddRider(ctx, teamID, rider.ID); err != nil {
		e.logger.Error("add rider failed", "team", teamID, "rider", rider.ID, "error", err)
		return Failure("Nao foi possivel adicionar o ciclista. Tenta novamente.")
	}
	if err := e.teams.BumpPendingTransfers(ctx, teamID); err != nil {
		e.logger.Warn("bump pending transfers failed", "team", teamID, "error", err)
	}
	return Success("Ciclista " + rider.Name + " adicionado a equipa")
}

func (e *Executor) sellCyclist(ctx context.Context, teamID uuid.UUID, a Action) Result {
	rider, res := e.resolveRider(ctx, a)
	if rider == nil {
		return res
	}

	in, err := e.teams.InRoster(ctx, teamID, rider.ID)
	if err != nil {
		e.logger.Error("roster check failed", "team", teamID, "error", err)
		return Failure("Nao foi possivel verificar a equipa. Tenta novamente.")
	}
	if !in {
		return Failure("O ciclista " + rider.Name + " nao esta na tua equipa")
	}

	if err := e.teams.RemoveRider(ctx, teamID, rider.ID); err != nil {
		e.logger.Error("remove rider failed", "team", teamID, "rider", rider.ID, "error", err)
		return Failure("Nao foi possivel remover o ciclista. Tenta novamente.")
	}
	return Success("Ciclista " + rider.Name + " removido da equipa")
}

func (e *Executor) setCaptain(ctx context.Context, teamID uuid.UUID, a Action) Result {
	rider, res := e.resolveRider(ctx, a)
	if rider == nil {
		return res
	}

	in, err := e.teams.InRoster(ctx, teamID, rider.ID)
	if err != nil {
		e.logger.Error("roster check failed", "team", teamID, "error", err)
		return Failure("Nao foi possivel verificar a equipa. Tenta novamente.")
	}
	if !in {
		return Failure("O ciclista " + rider.Name + " nao esta na tua equipa")
	}

	if err := e.teams.SetCaptain(ctx, teamID, rider.ID); err != nil {
		e.logger.Error("set captain failed", "team", teamID, "rider", rider.ID, "error", err)
		return Failure("Nao foi possivel definir o capitao. Tenta novamente.")
	}
	return Success(rider.Name + " e agora o teu capitao")
}

func (e *Executor) setRiderActive(ctx context.Context, teamID uuid.UUID, a Action, active bool) Result {
	rider, res := e.resolveRider(ctx, a)
	if rider == nil {
		return res
	}

	in, err := e.teams.InRoster(ctx, teamID, rider.ID)
	if err != nil {
		e.logger.Error("roster check failed", "team", teamID, "error", err)
		return Failure("Nao foi possivel verificar a equipa. Tenta novamente.")
	}
	if !in {
		return Failure("O ciclista " + rider.Name + " nao esta na tua equipa")
	}

	if err := e.teams.SetRiderActive(ctx, teamID, rider.ID, active); err != nil {
		e.logger.Error("set rider active failed", "team", teamID, "rider", rider.ID, "active", active, "error", err)
		return Failure("Nao foi possivel alterar a convocatoria. Tenta novamente.")
	}
	if active {
		return Success("Ciclista " + rider.Name + " ativado para a proxima corrida")
	}
	return Success("Ciclista " + rider.Name + " movido para os suplentes")
}

func (e *Executor) useTripleCaptain(ctx context.Context, teamID uuid.UUID, a Action) Result {
	raw := a.Param("raceId")
	if raw == "" {
		return Failure("ID da corrida nao especificado")
	}
	raceID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Failure("ID da corrida invalido")
	}

	if err := e.teams.ActivateTripleCaptain(ctx, teamID, raceID); err != nil {
		e.logger.Error("activate triple captain failed", "team", teamID, "race", raceID, "error", err)
		return Failure("Nao foi possivel ativar o Triple Captain. Tenta novamente.")
	}
	return Success("Triple Captain ativado para esta corrida!")
}

func (e *Executor) useWildcard(ctx context.Context, teamID uuid.UUID) Result {
	team, err := e.teams.ByID(ctx, teamID)
	if err != nil {
		e.logger.Error("team lookup failed", "team", teamID, "error", err)
		return Failure("Nao foi possivel carregar a equipa. Tenta novamente.")
	}
	if !team.WildcardAvailable {
		return Failure("Ja usaste o teu wildcard esta epoca")
	}
	if team.WildcardActive {
		return Failure("O wildcard ja esta ativo")
	}
	if err := e.teams.SetWildcardActive(ctx, teamID, true); err != nil {
		e.logger.Error("activate wildcard failed", "team", teamID, "error", err)
		return Failure("Nao foi possivel ativar o wildcard. Tenta novamente.")
	}
	return Success("Wildcard ativado! Transferencias ilimitadas ate a proxima corrida.")
}

// resolveRider finds the target cyclist from params, preferring an explicit
// id over a name search. On failure the Result explains what was missing.
func (e *Executor) resolveRider(ctx context.Context, a Action) (*repo.Rider, Result) {
	if idStr := a.Param("cyclistId"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, Failure("ID do ciclista invalido")
		}
		rider, err := e.riders.ByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, Failure("Ciclista nao encontrado")
		}
		if err != nil {
			e.logger.Error("rider lookup failed", "id", id, "error", err)
			return nil, Failure("Nao foi possivel procurar o ciclista. Tenta novamente.")
		}
		return rider, Result{}
	}

	if name := a.Param("cyclistName"); name != "" {
		rider, err := e.riders.ByName(ctx, name)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, Failure("Nao encontrei nenhum ciclista chamado " + name)
		}
		if err != nil {
			e.logger.Error("rider search failed", "name", name, "error", err)
			return nil, Failure("Nao foi possivel procurar o ciclista. Tenta novamente.")
		}
		return rider, Result{}
	}

	return nil, Failure("ID do ciclista nao especificado")
}
