package action

import (
	"sort"
	"strings"
)

// Canonical screen routes shared by the trigger engine, the parser, and the
// executor. These mirror the mobile navigation graph.
const (
	RouteMarket   = "fantasy/market"
	RouteTeam     = "fantasy/team"
	RouteLeagues  = "fantasy/leagues"
	RouteCalendar = "calendar"
	RouteNews     = "news"
	RouteHome     = "home"
	RouteProfile  = "profile"
	RouteFantasy  = "apostas"
	RoutePremium  = "premium"
	RouteAssist   = "ai"
)

// routeAliases maps colloquial names (Portuguese and English) the LLM tends to
// produce onto canonical routes.
var routeAliases = map[string]string{
	"mercado":       RouteMarket,
	"market":        RouteMarket,
	"equipa":        RouteTeam,
	"team":          RouteTeam,
	"minha equipa":  RouteTeam,
	"ligas":         RouteLeagues,
	"leagues":       RouteLeagues,
	"classificacao": RouteLeagues,
	"standings":     RouteLeagues,
	"calendario":    RouteCalendar,
	"calendar":      RouteCalendar,
	"noticias":      RouteNews,
	"news":          RouteNews,
	"provas":        RouteHome,
	"eventos":       RouteHome,
	"home":          RouteHome,
	"perfil":        RouteProfile,
	"profile":       RouteProfile,
	"apostas":       RouteFantasy,
	"fantasy":       RouteFantasy,
	"jogo":          RouteFantasy,
	"premium":       RoutePremium,
	"ai":            RouteAssist,
	"assistente":    RouteAssist,
}

// NormalizeRoute resolves an alias to its canonical route. Unknown values
// pass through unchanged so deep links keep working.
func NormalizeRoute(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := routeAliases[key]; ok {
		return canonical
	}
	return raw
}

// KnownRoutes returns every canonical route with the aliases that resolve to
// it, sorted for stable serialization.
func KnownRoutes() map[string][]string {
	out := map[string][]string{}
	for alias, route := range routeAliases {
		out[route] = append(out[route], alias)
	}
	for route := range out {
		sort.Strings(out[route])
	}
	return out
}
