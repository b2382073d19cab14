package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/zhouzirui/snakeaid/backend/internal/config"
	"github.com/zhouzirui/snakeaid/backend/internal/model/responder"
)

// GeminiGenerator calls Google Gemini through a chat session seeded with the
// stored history.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator opens a Gemini client.
func NewGeminiGenerator(ctx context.Context, cfg config.GeminiConfig) (*GeminiGenerator, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("gemini api key or model missing")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: cfg.Model}, nil
}

// Name implements Generator.
func (g *GeminiGenerator) Name() string { return config.ProviderGemini }

// Generate implements Generator. A model handle is created per call because
// the system instruction changes with every triage result.
func (g *GeminiGenerator) Generate(ctx context.Context, system string, history []responder.Turn, query string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.3)
	model.SetMaxOutputTokens(1024)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	session := model.StartChat()
	session.History = buildContents(history)

	resp, err := session.SendMessage(ctx, genai.Text(query))
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates")
	}

	text := extractText(resp)
	log.Debug().Int("length", len(text)).Msg("gemini reply generated")
	return text, nil
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func buildContents(turns []responder.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := "user"
		if turn.Role == responder.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(turn.Content)}})
	}
	return contents
}

func extractText(resp *genai.GenerateContentResponse) string {
	var result strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				result.WriteString(string(text))
			}
		}
	}
	return result.String()
}
