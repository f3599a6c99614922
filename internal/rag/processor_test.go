package rag_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maintdesk/backend/internal/apperr"
	"github.com/maintdesk/backend/internal/config"
	"github.com/maintdesk/backend/internal/embedding"
	"github.com/maintdesk/backend/internal/llm"
	"github.com/maintdesk/backend/internal/models"
	"github.com/maintdesk/backend/internal/rag"
	"github.com/maintdesk/backend/internal/store"
)

func testRAGConfig() config.RAGConfig {
	return config.RAGConfig{
		ChunkSize:        40,
		ChunkOverlap:     0,
		EmbedBatchSize:   96,
		MergeThreshold:   0.9,
		TabularThreshold: 0.95,
		TopK:             12,
		MinSimilarity:    0.35,
	}
}

func newProcessor(s *store.SQLiteStore, gw llm.Gateway) *rag.Processor {
	cfg := testRAGConfig()
	return rag.NewProcessor(s, embedding.NewBatcher(gw, nil, cfg.EmbedBatchSize), cfg)
}

func TestProcess_EndToEnd(t *testing.T) {
	s := newTestStore(t)
	gw := &fakeGateway{}
	p := newProcessor(s, gw)
	ctx := context.Background()

	owner := uuid.New()
	raw := []byte("Check the hydraulic pressure every morning. Replace the filter after 500 hours of use.")
	doc := newRawDoc(owner, "text/plain", raw)
	require.NoError(t, s.PutDocument(ctx, doc))

	var events []rag.Progress
	err := p.Process(ctx, doc.ID, owner, func(pr rag.Progress) {
		events = append(events, pr)
	})
	require.NoError(t, err)

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, got.Processed)
	assert.Equal(t, models.DocStatusReady, got.Status)
	assert.Nil(t, got.RawData)
	assert.NotEmpty(t, got.Text)

	st, err := s.Stats(ctx, owner)
	require.NoError(t, err)
	assert.Greater(t, st.ChunkCount, 1, "chunk size 40 should split this text")

	require.NotEmpty(t, events)
	assert.Equal(t, rag.StageExtracting, events[0].Stage)
	assert.Equal(t, 0, events[0].Percent)
	last := events[len(events)-1]
	assert.Equal(t, rag.StageComplete, last.Stage)
	assert.Equal(t, 100, last.Percent)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Percent, events[i-1].Percent,
			"percent must never go backwards")
		if events[i].Stage != rag.StageComplete {
			assert.Less(t, events[i].Percent, 100, "only the final stage reports 100")
		}
	}
}

func TestProcess_WrongOwner(t *testing.T) {
	s := newTestStore(t)
	p := newProcessor(s, &fakeGateway{})
	ctx := context.Background()

	doc := newRawDoc(uuid.New(), "text/plain", []byte("some text"))
	require.NoError(t, s.PutDocument(ctx, doc))

	err := p.Process(ctx, doc.ID, uuid.New(), nil)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	got, getErr := s.GetDocument(ctx, doc.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.DocStatusPending, got.Status)
}

func TestProcess_MissingDocument(t *testing.T) {
	s := newTestStore(t)
	p := newProcessor(s, &fakeGateway{})

	err := p.Process(context.Background(), uuid.New(), uuid.New(), nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestProcess_AlreadyProcessed(t *testing.T) {
	s := newTestStore(t)
	p := newProcessor(s, &fakeGateway{})
	ctx := context.Background()

	doc := newRawDoc(uuid.New(), "text/plain", []byte("some text"))
	doc.Processed = true
	doc.Status = models.DocStatusReady
	require.NoError(t, s.PutDocument(ctx, doc))

	err := p.Process(ctx, doc.ID, doc.OwnerID, nil)
	assert.ErrorIs(t, err, apperr.ErrAlreadyProcessed)
}

func TestProcess_UnsupportedFormatMarksFailed(t *testing.T) {
	s := newTestStore(t)
	p := newProcessor(s, &fakeGateway{})
	ctx := context.Background()

	doc := newRawDoc(uuid.New(), "image/png", []byte{0x89, 0x50})
	require.NoError(t, s.PutDocument(ctx, doc))

	err := p.Process(ctx, doc.ID, doc.OwnerID, nil)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedFormat)

	got, getErr := s.GetDocument(ctx, doc.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.DocStatusFailed, got.Status)
	assert.False(t, got.Processed)
}

func TestProcess_EmbeddingFailureKeepsExtractedText(t *testing.T) {
	s := newTestStore(t)
	gw := &fakeGateway{embedErr: errors.New("service unavailable")}
	p := newProcessor(s, gw)
	ctx := context.Background()

	doc := newRawDoc(uuid.New(), "text/plain", []byte("oil change interval is 500 hours"))
	require.NoError(t, s.PutDocument(ctx, doc))

	err := p.Process(ctx, doc.ID, doc.OwnerID, nil)
	require.Error(t, err)

	got, getErr := s.GetDocument(ctx, doc.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.DocStatusFailed, got.Status)
	assert.False(t, got.Processed)
	assert.Equal(t, "oil change interval is 500 hours", got.Text,
		"extraction result survives an embedding failure")

	st, statErr := s.Stats(ctx, doc.OwnerID)
	require.NoError(t, statErr)
	assert.Zero(t, st.ChunkCount, "no chunks land when embedding fails")
}

func TestProcess_MergesIdenticalEmbeddings(t *testing.T) {
	s := newTestStore(t)
	gw := &fakeGateway{
		embedFn: func(req llm.EmbedRequest) ([][]float32, error) {
			vecs := make([][]float32, len(req.Input))
			for i := range vecs {
				vecs[i] = []float32{1, 0, 0}
			}
			return vecs, nil
		},
	}
	p := newProcessor(s, gw)
	ctx := context.Background()

	raw := []byte("Grease the bearings weekly without fail. Grease the bearings weekly without fail.")
	doc := newRawDoc(uuid.New(), "text/plain", raw)
	require.NoError(t, s.PutDocument(ctx, doc))

	require.NoError(t, p.Process(ctx, doc.ID, doc.OwnerID, nil))

	st, err := s.Stats(ctx, doc.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.ChunkCount, "identical embeddings collapse into one chunk")
}
