// Package parser turns free-form LLM replies into a display message plus a
// non-empty list of typed actions. Parsing never fails: structured JSON is
// preferred, heuristics recover actions from plain prose, and a navigation
// fallback covers everything else.
package parser

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/ciclismopt/assist/internal/action"
)

// Source records which stage produced the actions.
type Source string

const (
	SourceStructured Source = "structured"
	SourceHeuristic  Source = "heuristic"
	SourceFallback   Source = "fallback"
)

// Parsed is the normalized output: Message is always non-empty for non-empty
// input, Actions always holds at least one entry.
type Parsed struct {
	Message string          `json:"message"`
	Actions []action.Action `json:"actions"`
	Source  Source          `json:"source"`
}

// Parser is stateless and safe for concurrent use.
type Parser struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse never returns an error and never returns zero actions. A panic in
// any stage degrades to a generic help action rather than propagating.
func (p *Parser) Parse(raw string) (out Parsed) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("parser panicked", "panic", r)
			out = Parsed{
				Message: strings.TrimSpace(raw),
				Actions: []action.Action{helpAction("general")},
				Source:  SourceFallback,
			}
			if out.Message == "" {
				out.Message = "Posso ajudar-te com a tua equipa fantasy."
			}
		}
	}()

	if parsed, ok := p.parseStructured(raw); ok {
		return parsed
	}

	text := stripFences(raw)
	actions := p.extractActions(text)
	source := SourceHeuristic
	if len(actions) == 0 {
		actions = fallbackActions()
		source = SourceFallback
	}

	message := strings.TrimSpace(text)
	if message == "" {
		message = "Posso ajudar-te com a tua equipa fantasy."
	}
	return Parsed{Message: message, Actions: actions, Source: source}
}

// --------------------------------------------------------------------------
// Stage 1: fenced JSON
// --------------------------------------------------------------------------

type structuredReply struct {
	Message string `json:"message"`
	Actions []struct {
		Type     string            `json:"type"`
		Title    string            `json:"title"`
		Params   map[string]string `json:"params"`
		Priority string            `json:"priority"`
	} `json:"actions"`
}

func (p *Parser) parseStructured(raw string) (Parsed, bool) {
	body, ok := extractFencedJSON(raw)
	if !ok {
		return Parsed{}, false
	}

	var reply structuredReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		p.logger.Debug("structured parse failed, falling through", "error", err)
		return Parsed{}, false
	}
	if reply.Message == "" && len(reply.Actions) == 0 {
		return Parsed{}, false
	}

	actions := make([]action.Action, 0, len(reply.Actions))
	for _, a := range reply.Actions {
		if a.Type == "" {
			continue
		}
		actions = append(actions, action.Action{
			Kind:     action.Kind(a.Type),
			Title:    a.Title,
			Params:   a.Params,
			Priority: action.Priority(a.Priority),
		})
	}
	if len(actions) == 0 {
		actions = fallbackActions()
	}

	message := reply.Message
	if message == "" {
		message = "Posso ajudar-te com a tua equipa fantasy."
	}
	return Parsed{Message: message, Actions: actions, Source: SourceStructured}, true
}

// extractFencedJSON pulls the body out of the first ```json fence. A bare
// ``` fence whose body starts with { is accepted too.
func extractFencedJSON(raw string) (string, bool) {
	if start := strings.Index(raw, "```json"); start >= 0 {
		rest := raw[start+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end]), true
		}
		return strings.TrimSpace(rest), true
	}
	if start := strings.Index(raw, "```"); start >= 0 {
		rest := raw[start+3:]
		end := strings.Index(rest, "```")
		if end < 0 {
			end = len(rest)
		}
		body := strings.TrimSpace(rest[:end])
		if strings.HasPrefix(body, "{") {
			return body, true
		}
	}

	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed, true
	}
	return "", false
}

// stripFences removes code fences so heuristics see only prose.
func stripFences(raw string) string {
	if !strings.Contains(raw, "```") {
		return raw
	}
	var b strings.Builder
	inFence := false
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if !inFence {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// --------------------------------------------------------------------------
// Fallback
// --------------------------------------------------------------------------

func fallbackActions() []action.Action {
	return []action.Action{{
		Kind:     action.KindNavigateTo,
		Title:    "Ver Fantasy",
		Params:   map[string]string{"route": action.RouteFantasy},
		Priority: action.PriorityLow,
	}}
}

func helpAction(topic string) action.Action {
	return action.Action{
		Kind:     action.KindShowHelp,
		Title:    "Ajuda",
		Params:   map[string]string{"topic": topic},
		Priority: action.PriorityLow,
	}
}
