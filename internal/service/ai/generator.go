package ai

import (
	"context"
	"fmt"

	"github.com/zhouzirui/snakeaid/backend/internal/config"
	"github.com/zhouzirui/snakeaid/backend/internal/model/responder"
)

// Generator produces a reply for query given a system prompt and prior turns.
type Generator interface {
	Generate(ctx context.Context, system string, history []responder.Turn, query string) (string, error)
	Name() string
}

// NewGenerator builds the backend selected by cfg. It returns nil without an
// error when no provider is configured.
func NewGenerator(ctx context.Context, cfg config.ResponderConfig) (Generator, error) {
	switch provider := cfg.ResolveProvider(); provider {
	case config.ProviderArk:
		return NewArkGenerator(ctx, cfg.Ark)
	case config.ProviderGemini:
		return NewGeminiGenerator(ctx, cfg.Gemini)
	case config.ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported responder provider %q", provider)
	}
}
