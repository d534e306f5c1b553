package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		want     Provider
		wantErr  bool
	}{
		{name: "valid openai", provider: "openai", want: ProviderOpenAI},
		{name: "valid ollama", provider: "ollama", want: ProviderOllama},
		{name: "valid anthropic", provider: "anthropic", want: ProviderAnthropic},
		{name: "valid gemini", provider: "gemini", want: ProviderGemini},
		{name: "none disables", provider: "none", want: ProviderNone},
		{name: "invalid provider", provider: "invalid", wantErr: true},
		{name: "case sensitive", provider: "OPENAI", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateProvider(tt.provider)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewChatModelRequiresKeys(t *testing.T) {
	ctx := context.Background()
	for _, p := range []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGemini} {
		_, err := NewChatModel(ctx, Config{Provider: p})
		assert.Error(t, err, p)
	}
	_, err := NewChatModel(ctx, Config{Provider: "bogus"})
	assert.Error(t, err)
}

func TestNewWithNoneProvider(t *testing.T) {
	g, err := New(context.Background(), Config{Provider: ProviderNone})
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, "gpt-4o-mini", DefaultModel(ProviderOpenAI))
	assert.Empty(t, DefaultModel(ProviderNone))
}

type fakeChatModel struct {
	reply string
	err   error
	got   []*schema.Message
	opts  int
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.got = input
	f.opts = len(opts)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestChatGeneratorGenerate(t *testing.T) {
	fake := &fakeChatModel{reply: `{"description":"x"}`}
	g := NewChatGenerator(fake, 0.7)

	out, err := g.Generate(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"description":"x"}`, out)
	require.Len(t, fake.got, 2)
	assert.Equal(t, schema.System, fake.got[0].Role)
	assert.Equal(t, "user", fake.got[1].Content)
	assert.Equal(t, 1, fake.opts)
}

func TestChatGeneratorErrors(t *testing.T) {
	_, err := NewChatGenerator(&fakeChatModel{err: errors.New("rate limited")}, 0).Generate(context.Background(), "s", "u")
	assert.ErrorContains(t, err, "rate limited")

	_, err = NewChatGenerator(&fakeChatModel{reply: "   "}, 0).Generate(context.Background(), "s", "u")
	assert.Error(t, err)
}

func TestNilGeneratorIsDisabled(t *testing.T) {
	var g *ChatGenerator
	_, err := g.Generate(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrDisabled)
}
