package embedding_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maintdesk/backend/internal/apperr"
	"github.com/maintdesk/backend/internal/embedding"
	"github.com/maintdesk/backend/internal/llm"
)

// fakeGateway returns a deterministic vector per input and records
// every batch it sees.
type fakeGateway struct {
	batches    [][]string
	inputTypes []llm.InputType
	failAtCall int // 1-based call number to fail on, 0 = never
	dropLast   int // vectors silently omitted from each response
	calls      int
}

func (f *fakeGateway) Embed(_ context.Context, req llm.EmbedRequest) (*llm.EmbedResponse, error) {
	f.calls++
	if f.failAtCall > 0 && f.calls == f.failAtCall {
		return nil, fmt.Errorf("%w: quota exceeded", apperr.ErrEmbeddingService)
	}
	f.batches = append(f.batches, req.Input)
	f.inputTypes = append(f.inputTypes, req.InputType)

	out := make([][]float32, len(req.Input))
	for i, text := range req.Input {
		n, _ := strconv.Atoi(text)
		out[i] = []float32{float32(n), 1}
	}
	if f.dropLast > 0 && f.dropLast < len(out) {
		out = out[:len(out)-f.dropLast]
	}
	return &llm.EmbedResponse{Embeddings: out}, nil
}

func (f *fakeGateway) Generate(_ context.Context, _ llm.GenerateRequest) (*llm.GenerateResponse, error) {
	return &llm.GenerateResponse{Answer: "ok"}, nil
}

func (f *fakeGateway) Configured() bool { return true }

func numberedTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = strconv.Itoa(i)
	}
	return texts
}

func TestEmbedDocuments_PartitionsAndPreservesOrder(t *testing.T) {
	gw := &fakeGateway{}
	b := embedding.NewBatcher(gw, nil, 96)

	vectors, err := b.EmbedDocuments(context.Background(), numberedTexts(200), nil)

	require.NoError(t, err)
	require.Len(t, vectors, 200)
	require.Len(t, gw.batches, 3)
	assert.Len(t, gw.batches[0], 96)
	assert.Len(t, gw.batches[1], 96)
	assert.Len(t, gw.batches[2], 8)
	for i, v := range vectors {
		assert.Equal(t, float32(i), v[0], "vector %d out of order", i)
	}
}

func TestEmbedDocuments_UsesDocumentInputType(t *testing.T) {
	gw := &fakeGateway{}
	b := embedding.NewBatcher(gw, nil, 10)

	_, err := b.EmbedDocuments(context.Background(), numberedTexts(15), nil)

	require.NoError(t, err)
	for _, it := range gw.inputTypes {
		assert.Equal(t, llm.InputDocument, it)
	}
}

func TestEmbedDocuments_ProgressMonotonicReaches100(t *testing.T) {
	gw := &fakeGateway{}
	b := embedding.NewBatcher(gw, nil, 30)

	var reports [][2]int
	_, err := b.EmbedDocuments(context.Background(), numberedTexts(100), func(done, total int) {
		reports = append(reports, [2]int{done, total})
	})

	require.NoError(t, err)
	require.NotEmpty(t, reports)
	prev := 0
	for _, r := range reports {
		assert.GreaterOrEqual(t, r[0], prev)
		assert.Equal(t, 100, r[1])
		prev = r[0]
	}
	assert.Equal(t, 100, reports[len(reports)-1][0])
}

func TestEmbedDocuments_BatchFailureIsAtomic(t *testing.T) {
	gw := &fakeGateway{failAtCall: 2}
	b := embedding.NewBatcher(gw, nil, 10)

	vectors, err := b.EmbedDocuments(context.Background(), numberedTexts(25), nil)

	assert.Nil(t, vectors)
	assert.ErrorIs(t, err, apperr.ErrEmbeddingService)
}

func TestEmbedDocuments_ShortBatchIsServiceError(t *testing.T) {
	gw := &fakeGateway{dropLast: 1}
	b := embedding.NewBatcher(gw, nil, 10)

	vectors, err := b.EmbedDocuments(context.Background(), numberedTexts(2), nil)

	assert.Nil(t, vectors)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrEmbeddingService,
		"a response with fewer vectors than texts must fail, not misalign")
}

func TestEmbedDocuments_Empty(t *testing.T) {
	gw := &fakeGateway{}
	b := embedding.NewBatcher(gw, nil, 10)

	vectors, err := b.EmbedDocuments(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Zero(t, gw.calls)
}

func TestEmbedQuery_UsesQueryInputType(t *testing.T) {
	gw := &fakeGateway{}
	b := embedding.NewBatcher(gw, nil, 10)

	vec, err := b.EmbedQuery(context.Background(), "7")

	require.NoError(t, err)
	assert.Equal(t, []float32{7, 1}, vec)
	require.Len(t, gw.inputTypes, 1)
	assert.Equal(t, llm.InputQuery, gw.inputTypes[0])
}

func TestEmbedQuery_PropagatesServiceError(t *testing.T) {
	gw := &fakeGateway{failAtCall: 1}
	b := embedding.NewBatcher(gw, nil, 10)

	_, err := b.EmbedQuery(context.Background(), "anything")

	assert.ErrorIs(t, err, apperr.ErrEmbeddingService)
	assert.True(t, errors.Is(err, apperr.ErrEmbeddingService))
}

func TestNewBatcher_ClampsOversizedBatch(t *testing.T) {
	gw := &fakeGateway{}
	b := embedding.NewBatcher(gw, nil, 500)

	_, err := b.EmbedDocuments(context.Background(), numberedTexts(100), nil)

	require.NoError(t, err)
	require.Len(t, gw.batches, 2)
	assert.Len(t, gw.batches[0], 96)
}
