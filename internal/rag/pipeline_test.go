package rag_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/maintdesk/backend/internal/llm"
	"github.com/maintdesk/backend/internal/models"
	"github.com/maintdesk/backend/internal/store"
)

// fakeGateway satisfies llm.Gateway with scripted responses. The
// default Embed hands out orthogonal basis vectors in call order, so
// nothing merges unless a test overrides embedFn.
type fakeGateway struct {
	mu            sync.Mutex
	unconfigured  bool
	answer        string
	generateErr   error
	embedErr      error
	embedFn       func(req llm.EmbedRequest) ([][]float32, error)
	embedCount    int
	generateCalls []llm.GenerateRequest
}

const fakeDim = 8

func (f *fakeGateway) Configured() bool { return !f.unconfigured }

func (f *fakeGateway) Generate(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls = append(f.generateCalls, req)
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return &llm.GenerateResponse{Answer: f.answer, Model: "fake-chat"}, nil
}

func (f *fakeGateway) Embed(_ context.Context, req llm.EmbedRequest) (*llm.EmbedResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	if f.embedFn != nil {
		vecs, err := f.embedFn(req)
		if err != nil {
			return nil, err
		}
		return &llm.EmbedResponse{Embeddings: vecs, Model: "fake-embed"}, nil
	}
	vecs := make([][]float32, len(req.Input))
	for i := range req.Input {
		v := make([]float32, fakeDim)
		v[f.embedCount%fakeDim] = 1
		f.embedCount++
		vecs[i] = v
	}
	return &llm.EmbedResponse{Embeddings: vecs, Model: "fake-embed"}, nil
}

func (f *fakeGateway) lastGenerate(t *testing.T) llm.GenerateRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.generateCalls)
	return f.generateCalls[len(f.generateCalls)-1]
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newRawDoc(owner uuid.UUID, mediaType string, raw []byte) *models.Document {
	return &models.Document{
		ID:         uuid.New(),
		OwnerID:    owner,
		Filename:   "manual.txt",
		MediaType:  mediaType,
		SizeBytes:  int64(len(raw)),
		RawData:    raw,
		Status:     models.DocStatusPending,
		UploadedAt: time.Now(),
	}
}
