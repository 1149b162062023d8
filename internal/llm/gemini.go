package llm

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Gemini generates replies through the Gemini API with a token-bucket daily
// quota. When the quota is spent Generate returns ErrQuotaExceeded without
// hitting the network.
type Gemini struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

const secondsPerDay = 24 * 60 * 60

// NewGemini creates the client. dailyLimit caps requests per rolling day;
// the bucket starts full so bursts after a quiet period are allowed.
func NewGemini(ctx context.Context, apiKey, model string, dailyLimit int, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if dailyLimit <= 0 {
		dailyLimit = 100
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(float64(dailyLimit)/secondsPerDay), dailyLimit),
		logger:  logger,
	}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.limiter.Allow() {
		g.logger.Warn("generation quota exhausted", "model", g.model)
		return "", ErrQuotaExceeded
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopK:            genai.Ptr[float32](40),
		TopP:            genai.Ptr[float32](0.95),
		MaxOutputTokens: 1024,
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", g.model)
	}
	return text, nil
}
