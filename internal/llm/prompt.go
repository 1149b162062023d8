package llm

import (
	"fmt"
	"strings"
)

// PromptContext is the team snapshot woven into every chat prompt so the
// model answers about the user's actual situation.
type PromptContext struct {
	Screen             string
	TeamSize           int
	MaxTeamSize        int
	HasCaptain         bool
	PendingTransfers   int
	FreeTransfers      int
	WildcardAvailable  bool
	HoursUntilNextRace *float64
}

// BuildPrompt assembles the system framing, the state preamble, and the
// user's question into one generation prompt. The JSON contract in the
// framing is what the structured parser stage expects.
func BuildPrompt(pc PromptContext, question string) string {
	var b strings.Builder

	b.WriteString("Es o assistente de uma app de fantasy de ciclismo em portugues de Portugal. ")
	b.WriteString("Responde de forma curta e pratica. ")
	b.WriteString("Quando sugerires uma acao concreta, inclui um bloco ```json com os campos ")
	b.WriteString(`"message" e "actions" (type, title, params, priority).` + "\n\n")

	b.WriteString("Estado do utilizador:\n")
	fmt.Fprintf(&b, "- Ecra atual: %s\n", orUnknown(pc.Screen))
	fmt.Fprintf(&b, "- Equipa: %d/%d ciclistas\n", pc.TeamSize, pc.MaxTeamSize)
	if pc.TeamSize > 0 && !pc.HasCaptain {
		b.WriteString("- Sem capitao definido\n")
	}
	if pc.PendingTransfers > 0 {
		fmt.Fprintf(&b, "- Transferencias pendentes: %d (gratis: %d)\n", pc.PendingTransfers, pc.FreeTransfers)
	}
	if pc.WildcardAvailable {
		b.WriteString("- Wildcard disponivel\n")
	}
	if pc.HoursUntilNextRace != nil {
		fmt.Fprintf(&b, "- Proxima corrida em %.0f horas\n", *pc.HoursUntilNextRace)
	}

	b.WriteString("\nPergunta: ")
	b.WriteString(question)
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "desconhecido"
	}
	return s
}
