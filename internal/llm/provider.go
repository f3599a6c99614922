package llm

import "context"

// InputType tags an embedding request with the vector space it is
// meant for. Documents are embedded for indexing, queries for search;
// the tag changes how the service positions the vector and must match
// the call site.
type InputType string

const (
	InputDocument InputType = "search_document"
	InputQuery    InputType = "search_query"
)

// Provider abstracts one external model vendor.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error)
}

// GenerateRequest carries a question plus the retrieved evidence as a
// separate list. Provider adapters decide how their vendor wants the
// evidence presented; callers never fold it into the question text.
type GenerateRequest struct {
	Model       string
	System      string
	Question    string
	Evidence    []string
	Temperature float64
	MaxTokens   int
}

type GenerateResponse struct {
	Answer string `json:"answer"`
	Model  string `json:"model"`
	Tokens int    `json:"tokens"`
}

// EmbedRequest holds up to one batch of input strings. Callers are
// responsible for the per-request item cap; providers reject nothing.
type EmbedRequest struct {
	Model     string
	Input     []string
	InputType InputType
	Truncate  string // truncation policy, e.g. "END"
}

type EmbedResponse struct {
	Embeddings [][]float32
	Model      string
}
