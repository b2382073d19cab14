package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/snakeaid/backend/internal/config"
	"github.com/zhouzirui/snakeaid/backend/internal/model/responder"
)

// ArkGenerator runs an eino chain (template then chat model).
type ArkGenerator struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArkGenerator creates the Ark chat model and compiles the chain.
func NewArkGenerator(ctx context.Context, cfg config.ArkConfig) (*ArkGenerator, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return newArkGenerator(ctx, chatModel)
}

func newArkGenerator(ctx context.Context, chatModel model.ChatModel) (*ArkGenerator, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ArkGenerator{chain: runnable}, nil
}

// Name implements Generator.
func (g *ArkGenerator) Name() string { return config.ProviderArk }

// Generate implements Generator.
func (g *ArkGenerator) Generate(ctx context.Context, system string, history []responder.Turn, query string) (string, error) {
	response, err := g.chain.Invoke(ctx, map[string]any{
		"system":  system,
		"history": buildHistoryMessages(history),
		"query":   query,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}

	log.Debug().Int("length", len(response.Content)).Msg("ark reply generated")
	return response.Content, nil
}

func buildHistoryMessages(turns []responder.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case responder.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case responder.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
