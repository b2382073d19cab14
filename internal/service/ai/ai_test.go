package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/snakeaid/backend/internal/analysis/triage"
	"github.com/zhouzirui/snakeaid/backend/internal/config"
	"github.com/zhouzirui/snakeaid/backend/internal/model/responder"
)

type fakeChatModel struct {
	reply    string
	err      error
	received []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.received = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools([]*schema.ToolInfo) error { return nil }

func TestArkGeneratorBuildsConversation(t *testing.T) {
	fake := &fakeChatModel{reply: "Call 999 now"}
	gen, err := newArkGenerator(context.Background(), fake)
	require.NoError(t, err)

	history := []responder.Turn{
		{Role: responder.RoleUser, Content: "I was bitten"},
		{Role: responder.RoleAssistant, Content: "Stay still"},
	}
	reply, err := gen.Generate(context.Background(), "system rules", history, "it is swelling")
	require.NoError(t, err)
	assert.Equal(t, "Call 999 now", reply)

	require.Len(t, fake.received, 4)
	assert.Equal(t, schema.System, fake.received[0].Role)
	assert.Equal(t, "system rules", fake.received[0].Content)
	assert.Equal(t, schema.User, fake.received[1].Role)
	assert.Equal(t, schema.Assistant, fake.received[2].Role)
	assert.Equal(t, "it is swelling", fake.received[3].Content)
	assert.Equal(t, config.ProviderArk, gen.Name())
}

func TestArkGeneratorPropagatesModelError(t *testing.T) {
	gen, err := newArkGenerator(context.Background(), &fakeChatModel{err: errors.New("quota exceeded")})
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "system", nil, "help")
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestNewGeneratorWithoutProvider(t *testing.T) {
	gen, err := NewGenerator(context.Background(), config.ResponderConfig{Provider: config.ProviderNone})
	require.NoError(t, err)
	assert.Nil(t, gen)

	_, err = NewGenerator(context.Background(), config.ResponderConfig{Provider: config.ProviderGemini})
	assert.Error(t, err)
}

func TestBuildSystemPrompt(t *testing.T) {
	tmpl := DefaultPromptTemplate()

	base := tmpl.BuildSystemPrompt(nil, true)
	assert.Contains(t, base, "1. Always prioritize getting medical help immediately")
	assert.Contains(t, base, "5. Include emergency number 999")
	assert.Contains(t, base, "complete first aid steps")

	assessment := triage.Analyze("My friend was bitten and he can't breathe, he passed out")
	guided := tmpl.BuildSystemPrompt(&assessment, false)
	assert.Contains(t, guided, "follow-up message")
	assert.Contains(t, guided, "Someone else was bitten")
	assert.Contains(t, guided, "breathing difficulty")
	assert.Contains(t, guided, "life threatening")

	self := triage.Analyze("I was bitten and I feel dizzy")
	assert.Contains(t, tmpl.BuildSystemPrompt(&self, true), "address them directly")
}

func TestBuildContentsMapsRoles(t *testing.T) {
	contents := buildContents([]responder.Turn{
		{Role: responder.RoleUser, Content: "a"},
		{Role: responder.RoleAssistant, Content: "b"},
	})
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
}
