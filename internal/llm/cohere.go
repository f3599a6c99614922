package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/maintdesk/backend/internal/apperr"
)

// CohereProvider talks to the Cohere embed API directly over HTTP.
// Cohere is the embedding default because its vector space is split by
// input type (search_document vs search_query), which is exactly the
// contract the batcher needs, and its per-request cap of 96 texts sets
// the batch size used upstream.
type CohereProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewCohereProvider(baseURL, apiKey string) *CohereProvider {
	return &CohereProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (p *CohereProvider) Name() string { return "cohere" }

// Generate is unsupported; Cohere is wired for embeddings only here.
func (p *CohereProvider) Generate(_ context.Context, _ GenerateRequest) (*GenerateResponse, error) {
	return nil, fmt.Errorf("%w: cohere provider handles embeddings only", apperr.ErrNotConfigured)
}

type cohereEmbedRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
	Truncate  string   `json:"truncate,omitempty"`
}

type cohereEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Message    string      `json:"message"`
}

func (p *CohereProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	body, err := json.Marshal(cohereEmbedRequest{
		Model:     req.Model,
		Texts:     req.Input,
		InputType: string(req.InputType),
		Truncate:  req.Truncate,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: cohere embed: %v", apperr.ErrEmbeddingService, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read embed response: %v", apperr.ErrEmbeddingService, err)
	}

	var parsed cohereEmbedResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode embed response: %v", apperr.ErrEmbeddingService, err)
	}

	if resp.StatusCode >= 400 {
		msg := parsed.Message
		if msg == "" {
			msg = string(data)
		}
		return nil, fmt.Errorf("%w: cohere embed (%d): %s", apperr.ErrEmbeddingService, resp.StatusCode, msg)
	}

	if len(parsed.Embeddings) != len(req.Input) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
			apperr.ErrEmbeddingService, len(req.Input), len(parsed.Embeddings))
	}

	return &EmbedResponse{Embeddings: parsed.Embeddings, Model: req.Model}, nil
}
