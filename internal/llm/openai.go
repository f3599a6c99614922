package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/maintdesk/backend/internal/apperr"
)

type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	system := req.System
	if len(req.Evidence) > 0 {
		system = system + "\n\n" + formatEvidence(req.Evidence)
	}

	msgs := []openai.ChatCompletionMessage{}
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Question,
	})

	oReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: msgs,
	}
	if req.Temperature > 0 {
		oReq.Temperature = float32(req.Temperature)
	}
	if req.MaxTokens > 0 {
		oReq.MaxTokens = req.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, oReq)
	if err != nil {
		return nil, fmt.Errorf("%w: openai chat: %v", apperr.ErrGenerationService, err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return &GenerateResponse{
		Answer: content,
		Model:  resp.Model,
		Tokens: resp.Usage.TotalTokens,
	}, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	// OpenAI's embedding API has no input-type distinction; the tag is
	// accepted and ignored here.
	oReq := openai.EmbeddingRequest{
		Input: req.Input,
		Model: openai.EmbeddingModel(req.Model),
	}

	resp, err := p.client.CreateEmbeddings(ctx, oReq)
	if err != nil {
		return nil, fmt.Errorf("%w: openai embeddings: %v", apperr.ErrEmbeddingService, err)
	}
	if len(resp.Data) != len(req.Input) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
			apperr.ErrEmbeddingService, len(req.Input), len(resp.Data))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}

	return &EmbedResponse{Embeddings: embeddings, Model: req.Model}, nil
}

// formatEvidence renders the retrieved chunks as numbered sources for
// the system preamble, in similarity-rank order.
func formatEvidence(evidence []string) string {
	var sb strings.Builder
	sb.WriteString("Context documents:\n")
	for i, e := range evidence {
		fmt.Fprintf(&sb, "\n[Source %d]\n%s\n", i+1, e)
	}
	return strings.TrimRight(sb.String(), "\n")
}
