package trigger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ciclismopt/assist/internal/action"
	"github.com/ciclismopt/assist/internal/config"
)

// Suggestion is the proactive card shown to the user. Actions are the
// one-tap follow-ups; Priority mirrors the originating rule.
type Suggestion struct {
	ID        uuid.UUID       `json:"id"`
	Kind      Kind            `json:"kind"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Actions   []action.Action `json:"actions"`
	Priority  int             `json:"priority"`
	CreatedAt time.Time       `json:"created_at"`
}

// rule pairs a predicate with a suggestion builder. Predicates are pure
// functions of the context snapshot.
type rule struct {
	kind  Kind
	when  func(*Context) bool
	build func(*Context) Suggestion
}

// buildRules assembles the rule table. Order within equal priorities is the
// tie-break, so the table is kept sorted by priority descending.
func buildRules(idleThreshold time.Duration) []rule {
	return []rule{
		{
			kind: KindTransferDeadline,
			when: func(c *Context) bool {
				return c.hoursBelow(6) && c.TeamSize > 0
			},
			build: func(c *Context) Suggestion {
				return newSuggestion(KindTransferDeadline,
					"Mercado fecha em breve!",
					fmt.Sprintf("O mercado fecha em menos de %.0f horas. Confirma as tuas transferencias.", *c.HoursUntilNextRace),
					action.Action{
						Kind: action.KindNavigateTo, Title: "Ir ao Mercado",
						Params:   map[string]string{"route": action.RouteMarket},
						Priority: action.PriorityHigh,
					})
			},
		},
		{
			kind: KindNoCaptain,
			when: func(c *Context) bool {
				return c.TeamSize > 0 && !c.HasCaptain && c.Screen == action.RouteTeam
			},
			build: func(c *Context) Suggestion {
				return newSuggestion(KindNoCaptain,
					"Falta-te um capitao!",
					"A tua equipa nao tem capitao. O capitao marca pontos a dobrar.",
					action.Action{
						Kind: action.KindNavigateTo, Title: "Escolher Capitao",
						Params:   map[string]string{"route": action.RouteTeam},
						Priority: action.PriorityHigh,
					})
			},
		},
		{
			kind: KindRaceDeadline,
			when: func(c *Context) bool {
				return c.hoursBelow(24) && c.TeamSize > 0
			},
			build: func(c *Context) Suggestion {
				return newSuggestion(KindRaceDeadline,
					"Corrida amanha!",
					fmt.Sprintf("A proxima corrida comeca em %.0f horas. Revê a tua equipa.", *c.HoursUntilNextRace),
					action.Action{
						Kind: action.KindNavigateTo, Title: "Ver Equipa",
						Params:   map[string]string{"route": action.RouteTeam},
						Priority: action.PriorityHigh,
					})
			},
		},
		{
			kind: KindIncompleteTeam,
			when: func(c *Context) bool {
				return c.TeamSize >= 1 && c.TeamSize < config.MaxTeamSize && c.hoursBelow(48)
			},
			build: func(c *Context) Suggestion {
				missing := config.MaxTeamSize - c.TeamSize
				return newSuggestion(KindIncompleteTeam,
					"Equipa incompleta",
					fmt.Sprintf("Faltam-te %d ciclistas e a corrida esta proxima. Completa a equipa no mercado.", missing),
					action.Action{
						Kind: action.KindNavigateTo, Title: "Completar Equipa",
						Params:   map[string]string{"route": action.RouteMarket},
						Priority: action.PriorityHigh,
					})
			},
		},
		{
			kind: KindWildcardOpportunity,
			when: func(c *Context) bool {
				return c.WildcardAvailable && !c.WildcardActive &&
					c.PendingTransfers > 4 && c.Screen == action.RouteMarket
			},
			build: func(c *Context) Suggestion {
				return newSuggestion(KindWildcardOpportunity,
					"Usa o teu wildcard?",
					fmt.Sprintf("Tens %d transferencias pendentes. Com o wildcard nao pagas penalizacao.", c.PendingTransfers),
					action.Action{
						Kind: action.KindUseWildcard, Title: "Ativar Wildcard",
						Priority: action.PriorityHigh,
					},
					action.Action{
						Kind: action.KindShowHelp, Title: "O que e o wildcard?",
						Params:   map[string]string{"topic": "wildcard"},
						Priority: action.PriorityLow,
					})
			},
		},
		{
			kind: KindTransferPenaltyThreshold,
			when: func(c *Context) bool {
				return c.PendingTransfers > c.FreeTransfers &&
					!c.WildcardActive && c.Screen == action.RouteMarket
			},
			build: func(c *Context) Suggestion {
				return newSuggestion(KindTransferPenaltyThreshold,
					"Atencao a penalizacao",
					fmt.Sprintf("Vais pagar %d pontos de penalizacao por estas transferencias.", c.PenaltyPoints()),
					action.Action{
						Kind: action.KindNavigateTo, Title: "Rever Transferencias",
						Params:   map[string]string{"route": action.RouteMarket},
						Priority: action.PriorityMedium,
					})
			},
		},
		{
			kind: KindRepeatedErrors,
			when: func(c *Context) bool {
				return c.ErrorCount >= 3
			},
			build: func(c *Context) Suggestion {
				return newSuggestion(KindRepeatedErrors,
					"Precisas de ajuda?",
					"Parece que algo nao esta a correr bem. Posso explicar como funciona o jogo.",
					action.Action{
						Kind: action.KindShowHelp, Title: "Pedir Ajuda",
						Params:   map[string]string{"topic": "general"},
						Priority: action.PriorityMedium,
					})
			},
		},
		{
			// Reserved: needs rider form history, not yet in the snapshot.
			kind:  KindFormDropAlert,
			when:  func(c *Context) bool { return false },
			build: func(c *Context) Suggestion { return Suggestion{} },
		},
		{
			// Reserved: needs market pricing signals, not yet in the snapshot.
			kind:  KindUndervaluedCyclist,
			when:  func(c *Context) bool { return false },
			build: func(c *Context) Suggestion { return Suggestion{} },
		},
		{
			kind: KindFirstVisitMarket,
			when: func(c *Context) bool {
				return c.Screen == action.RouteMarket && !c.Visited(action.RouteMarket)
			},
			build: func(c *Context) Suggestion {
				return newSuggestion(KindFirstVisitMarket,
					"Bem-vindo ao mercado!",
					"Aqui podes comprar e vender ciclistas. Os precos mudam com a forma de cada um.",
					helpNav("market"))
			},
		},
		{
			kind: KindFirstVisitMyTeam,
			when: func(c *Context) bool {
				return c.Screen == action.RouteTeam && !c.Visited(action.RouteTeam)
			},
			build: func(c *Context) Suggestion {
				return newSuggestion(KindFirstVisitMyTeam,
					"A tua equipa",
					"Escolhe o teu capitao aqui. Ele marca pontos a dobrar em cada corrida.",
					helpNav("team"))
			},
		},
		{
			kind: KindFirstVisitLeagues,
			when: func(c *Context) bool {
				return c.Screen == action.RouteLeagues && !c.Visited(action.RouteLeagues)
			},
			build: func(c *Context) Suggestion {
				return newSuggestion(KindFirstVisitLeagues,
					"Ligas e classificacoes",
					"Compete com amigos em ligas privadas ou sobe no ranking nacional.",
					helpNav("leagues"))
			},
		},
		{
			kind: KindIdleOnScreen,
			when: func(c *Context) bool {
				return c.IdleFor > idleThreshold &&
					(c.Screen == action.RouteMarket || c.Screen == action.RouteTeam)
			},
			build: func(c *Context) Suggestion {
				return newSuggestion(KindIdleOnScreen,
					"Posso ajudar?",
					"Se tens duvidas sobre o que fazer neste ecra, pergunta-me.",
					action.Action{
						Kind: action.KindShowHelp, Title: "Mostrar Dicas",
						Params:   map[string]string{"topic": "screen"},
						Priority: action.PriorityLow,
					})
			},
		},
	}
}

func newSuggestion(kind Kind, title, message string, actions ...action.Action) Suggestion {
	return Suggestion{
		ID:       uuid.New(),
		Kind:     kind,
		Title:    title,
		Message:  message,
		Actions:  actions,
		Priority: kind.Priority(),
	}
}

func helpNav(topic string) action.Action {
	return action.Action{
		Kind:     action.KindShowHelp,
		Title:    "Saber mais",
		Params:   map[string]string{"topic": topic},
		Priority: action.PriorityLow,
	}
}
