package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ciclismopt/assist/internal/action"
)

// Heuristic extraction for replies without structured JSON. Stages run in
// order: explicit verb+name patterns first (buy, sell, captain), then topic
// keywords mapped to navigation, then phrase scans. Duplicate targets are
// collapsed keeping the first occurrence.

var (
	buyPattern  = regexp.MustCompile(`(?i)(?:comprar|buy|adiciona|recruta|contratar)\s+["']?([A-Za-zÀ-ÿ][A-Za-zÀ-ÿ\s]{2,25})`)
	sellPattern = regexp.MustCompile(`(?i)(?:vender|sell|remover|dispensar|libertar)\s+["']?([A-Za-zÀ-ÿ][A-Za-zÀ-ÿ\s]{2,25})`)

	captainPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:define|escolhe|faz|torna)\s+["']?([A-Za-zÀ-ÿ][A-Za-zÀ-ÿ\s]{2,25}?)["']?\s+(?:como\s+)?capit`),
		regexp.MustCompile(`(?i)capit[aã]o\s+(?:deve\s+ser|devia\s+ser|ideal(?:\s+é)?(?:\s+o)?)\s+["']?([A-Za-zÀ-ÿ][A-Za-zÀ-ÿ\s]{2,25})`),
	}

	navPhrasePattern = regexp.MustCompile(`(?i)(?:vai\s+(?:ao|à|a)|consulta\s+(?:o|a)|abre\s+(?:o|a)|visita\s+(?:o|a))\s+([A-Za-zÀ-ÿ][A-Za-zÀ-ÿ\s/]{2,25})`)
)

// stopWords are generic fantasy terms a verb pattern may capture instead of
// a rider name.
var stopWords = map[string]bool{
	"equipa":         true,
	"ciclista":       true,
	"ciclistas":      true,
	"corrida":        true,
	"corridas":       true,
	"capitao":        true,
	"pontos":         true,
	"preco":          true,
	"mercado":        true,
	"wildcard":       true,
	"transferencia":  true,
	"transferencias": true,
	"jogador":        true,
	"jogadores":      true,
	"alguem":         true,
	"outro":          true,
	"melhor":         true,
}

func (p *Parser) extractActions(text string) []action.Action {
	var actions []action.Action
	lower := strings.ToLower(text)

	// Captain suggestions are the highest-signal output the model produces;
	// only the first match is taken.
	for _, pat := range captainPatterns {
		if m := pat.FindStringSubmatch(text); m != nil {
			if name := cleanName(m[1]); name != "" {
				actions = append(actions, action.Action{
					Kind:     action.KindSetCaptain,
					Title:    "Capitao: " + name,
					Params:   map[string]string{"cyclistName": name},
					Priority: action.PriorityHigh,
				})
				break
			}
		}
	}

	for _, m := range buyPattern.FindAllStringSubmatch(text, -1) {
		if name := cleanName(m[1]); name != "" {
			actions = append(actions, action.Action{
				Kind:     action.KindBuyCyclist,
				Title:    "Comprar " + name,
				Params:   map[string]string{"cyclistName": name},
				Priority: action.PriorityMedium,
			})
		}
	}

	for _, m := range sellPattern.FindAllStringSubmatch(text, -1) {
		if name := cleanName(m[1]); name != "" {
			actions = append(actions, action.Action{
				Kind:     action.KindSellCyclist,
				Title:    "Vender " + name,
				Params:   map[string]string{"cyclistName": name},
				Priority: action.PriorityMedium,
			})
		}
	}

	actions = append(actions, topicNavigation(lower)...)

	for _, m := range navPhrasePattern.FindAllStringSubmatch(text, -1) {
		target := strings.TrimSpace(m[1])
		route := action.NormalizeRoute(firstWord(target))
		if route == firstWord(target) {
			continue // not a known screen
		}
		actions = append(actions, navAction(route, "Ir para "+firstWord(target)))
	}

	return dedup(actions)
}

// topicNavigation maps topic keywords in the reply to navigation or help
// actions.
func topicNavigation(lower string) []action.Action {
	var actions []action.Action

	if strings.Contains(lower, "mercado") || strings.Contains(lower, "comprar") || strings.Contains(lower, "vender") {
		actions = append(actions, navAction(action.RouteMarket, "Ver Mercado"))
	}
	if strings.Contains(lower, "minha equipa") || strings.Contains(lower, "tua equipa") {
		actions = append(actions, navAction(action.RouteTeam, "Ver Equipa"))
	}
	if strings.Contains(lower, "capit") {
		if strings.Contains(lower, "como ") || strings.Contains(lower, "o que e") {
			actions = append(actions, helpAction("captain"))
		} else {
			actions = append(actions, navAction(action.RouteTeam, "Escolher Capitao"))
		}
	}
	if strings.Contains(lower, "calendario") || strings.Contains(lower, "corrida") || strings.Contains(lower, "etapa") {
		actions = append(actions, navAction(action.RouteCalendar, "Ver Calendario"))
	}
	if strings.Contains(lower, "wildcard") {
		if strings.Contains(lower, "como ") || strings.Contains(lower, "o que e") {
			actions = append(actions, helpAction("wildcard"))
		} else {
			actions = append(actions, navAction(action.RouteTeam, "Gerir Wildcard"))
		}
	}
	if strings.Contains(lower, "liga") || strings.Contains(lower, "ranking") || strings.Contains(lower, "classificacao") {
		actions = append(actions, navAction(action.RouteLeagues, "Ver Ligas"))
	}
	if strings.Contains(lower, "noticia") {
		actions = append(actions, navAction(action.RouteNews, "Ver Noticias"))
	}
	return actions
}

func navAction(route, title string) action.Action {
	return action.Action{
		Kind:     action.KindNavigateTo,
		Title:    title,
		Params:   map[string]string{"route": route},
		Priority: action.PriorityMedium,
	}
}

// cleanName trims a captured rider name down to at most three capitalized
// words, rejecting generic fantasy vocabulary the regex may have swallowed.
func cleanName(raw string) string {
	var kept []string
	for _, w := range strings.Fields(strings.TrimSpace(raw)) {
		if stopWords[normalizeWord(w)] {
			break
		}
		if r := []rune(w); len(r) == 0 || !unicode.IsUpper(r[0]) {
			break
		}
		kept = append(kept, w)
		if len(kept) == 3 {
			break
		}
	}
	name := strings.Join(kept, " ")
	if len(name) <= 3 {
		return ""
	}
	return name
}

func normalizeWord(w string) string {
	w = strings.ToLower(w)
	replacer := strings.NewReplacer(
		"á", "a", "à", "a", "ã", "a", "â", "a",
		"é", "e", "ê", "e",
		"í", "i",
		"ó", "o", "õ", "o", "ô", "o",
		"ú", "u", "ç", "c",
	)
	return replacer.Replace(w)
}

func firstWord(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return strings.ToLower(fields[0])
	}
	return ""
}

// dedup keeps the first action per (kind, target) pair. Target is the route
// for navigation and the rider name for roster moves.
func dedup(actions []action.Action) []action.Action {
	seen := map[string]bool{}
	out := actions[:0]
	for _, a := range actions {
		key := string(a.Kind) + "|" + a.Param("route") + "|" + strings.ToLower(a.Param("cyclistName")) + "|" + a.Param("topic")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}
