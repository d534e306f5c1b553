package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrDisabled is returned by a nil generator.
var ErrDisabled = errors.New("llm: provider disabled")

// ChatGenerator adapts a chat model to the single-turn generate call the
// insight synthesizer needs.
type ChatGenerator struct {
	model       model.BaseChatModel
	temperature float32
}

func NewChatGenerator(m model.BaseChatModel, temperature float32) *ChatGenerator {
	return &ChatGenerator{model: m, temperature: temperature}
}

// New builds the generator for cfg. ProviderNone yields a nil generator so
// every narrative degrades.
func New(ctx context.Context, cfg Config) (*ChatGenerator, error) {
	if cfg.Provider == ProviderNone || cfg.Provider == "" {
		return nil, nil
	}
	m, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewChatGenerator(m, cfg.Temperature), nil
}

// Generate sends one system and one user message and returns the reply text.
func (g *ChatGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	if g == nil || g.model == nil {
		return "", ErrDisabled
	}
	msgs := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(prompt),
	}
	var opts []model.Option
	if g.temperature > 0 {
		opts = append(opts, model.WithTemperature(g.temperature))
	}
	resp, err := g.model.Generate(ctx, msgs, opts...)
	if err != nil {
		return "", fmt.Errorf("chat model: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("chat model returned empty content")
	}
	return resp.Content, nil
}
