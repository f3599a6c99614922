package llm

import (
	"context"
	"fmt"

	"github.com/maintdesk/backend/internal/apperr"
	"github.com/maintdesk/backend/internal/config"
)

// Gateway routes generation and embedding calls to the configured
// providers. Construction is cheap and requires no credentials; a call
// that needs a provider nobody configured fails with
// apperr.ErrNotConfigured.
type Gateway interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error)
	Configured() bool
}

type gateway struct {
	providers     map[string]Provider
	chatProvider  string
	embedProvider string
	chatModel     string
	embedModel    string
	temperature   float64
	maxTokens     int
}

func NewGateway(cfg config.LLMConfig) Gateway {
	g := &gateway{
		providers:     make(map[string]Provider),
		chatProvider:  cfg.ChatProvider,
		embedProvider: cfg.EmbedProvider,
		chatModel:     cfg.ChatModel,
		embedModel:    cfg.EmbedModel,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
	}

	if cfg.OpenAIKey != "" {
		g.providers["openai"] = NewOpenAIProvider(cfg.OpenAIKey)
	}
	if cfg.AnthropicKey != "" {
		g.providers["anthropic"] = NewAnthropicProvider(cfg.AnthropicKey)
	}
	if cfg.CohereKey != "" {
		g.providers["cohere"] = NewCohereProvider(cfg.CohereBaseURL, cfg.CohereKey)
	}

	return g
}

func (g *gateway) Configured() bool {
	return len(g.providers) > 0
}

func (g *gateway) provider(name, role string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: no %s provider %q (missing API key?)", apperr.ErrNotConfigured, role, name)
	}
	return p, nil
}

func (g *gateway) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	p, err := g.provider(g.chatProvider, "generation")
	if err != nil {
		return nil, err
	}
	if req.Model == "" {
		req.Model = g.chatModel
	}
	if req.Temperature == 0 {
		req.Temperature = g.temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = g.maxTokens
	}
	return p.Generate(ctx, req)
}

func (g *gateway) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	p, err := g.provider(g.embedProvider, "embedding")
	if err != nil {
		return nil, err
	}
	if req.Model == "" {
		req.Model = g.embedModel
	}
	if req.Truncate == "" {
		req.Truncate = "END"
	}
	return p.Embed(ctx, req)
}
