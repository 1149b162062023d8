// Package llm wraps text generation behind a small interface so the
// assistant works with the Gemini API, a canned offline generator, or a test
// double interchangeably.
package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrQuotaExceeded is returned when the daily generation budget is spent.
// Callers degrade to canned replies instead of surfacing an error.
var ErrQuotaExceeded = errors.New("daily generation quota exceeded")

// Generator produces an assistant reply for a user prompt. The prompt
// already carries the team-state preamble; implementations only transport.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// --------------------------------------------------------------------------
// Canned generator — no API key configured, or quota fallback
// --------------------------------------------------------------------------

// Canned answers from a small keyword table. It keeps the assistant useful
// offline: replies are plain prose the parser turns into navigation actions.
type Canned struct{}

func (Canned) Generate(ctx context.Context, prompt string) (string, error) {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "capit"):
		return "O capitao marca pontos a dobrar em cada corrida. Vai a minha equipa para escolheres o teu capitao.", nil
	case strings.Contains(lower, "wildcard"):
		return "O wildcard permite transferencias ilimitadas sem penalizacao durante uma corrida. So podes usar um por epoca, na tua equipa.", nil
	case strings.Contains(lower, "mercado"), strings.Contains(lower, "comprar"), strings.Contains(lower, "vender"):
		return "No mercado podes comprar e vender ciclistas dentro do teu orcamento. Vai ao mercado para veres os precos atuais.", nil
	case strings.Contains(lower, "pontos"), strings.Contains(lower, "pontuacao"):
		return "Os pontos dependem dos resultados reais de cada corrida. Consulta a classificacao nas ligas para veres a tua posicao.", nil
	case strings.Contains(lower, "corrida"), strings.Contains(lower, "calendario"):
		return "Podes ver as proximas corridas e os prazos de transferencia no calendario.", nil
	default:
		return "Posso ajudar-te com a tua equipa fantasy: capitao, transferencias, wildcard e calendario. Sobre o que queres saber?", nil
	}
}
