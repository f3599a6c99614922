package document_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maintdesk/backend/internal/apperr"
	"github.com/maintdesk/backend/internal/document"
	"github.com/maintdesk/backend/internal/models"
	"github.com/maintdesk/backend/internal/store"
)

func newService(t *testing.T) (*document.Service, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return document.NewService(s), s
}

func TestUpload_CreatesPendingDocument(t *testing.T) {
	svc, _ := newService(t)
	owner := uuid.New()

	doc, err := svc.Upload(context.Background(), owner, "pump-manual.txt", "text/plain", []byte("manual text"))
	require.NoError(t, err)

	assert.Equal(t, owner, doc.OwnerID)
	assert.Equal(t, "pump-manual.txt", doc.Filename)
	assert.Equal(t, "text/plain", doc.MediaType)
	assert.Equal(t, int64(len("manual text")), doc.SizeBytes)
	assert.Equal(t, models.DocStatusPending, doc.Status)
	assert.False(t, doc.Processed)
	assert.Equal(t, []byte("manual text"), doc.RawData)
}

func TestUpload_FallsBackToExtension(t *testing.T) {
	svc, _ := newService(t)

	doc, err := svc.Upload(context.Background(), uuid.New(), "rows.csv", "application/octet-stream", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, "text/csv", doc.MediaType)
}

func TestUpload_RejectsUnsupportedFormat(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Upload(context.Background(), uuid.New(), "photo.png", "image/png", []byte{0x89})
	assert.ErrorIs(t, err, apperr.ErrUnsupportedFormat)
}

func TestUpload_RejectsEmptyPayload(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Upload(context.Background(), uuid.New(), "empty.txt", "text/plain", nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestUpload_RejectsOversizedPayload(t *testing.T) {
	svc, _ := newService(t)

	data := make([]byte, document.MaxUploadBytes+1)
	_, err := svc.Upload(context.Background(), uuid.New(), "big.txt", "text/plain", data)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestGet_OwnerChecks(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	owner := uuid.New()

	doc, err := svc.Upload(ctx, owner, "m.txt", "text/plain", []byte("x"))
	require.NoError(t, err)

	got, err := svc.Get(ctx, owner, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	_, err = svc.Get(ctx, uuid.New(), doc.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = svc.Get(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestList_OnlyOwnersDocuments(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	owner := uuid.New()

	mine, err := svc.Upload(ctx, owner, "mine.txt", "text/plain", []byte("x"))
	require.NoError(t, err)
	_, err = svc.Upload(ctx, uuid.New(), "theirs.txt", "text/plain", []byte("y"))
	require.NoError(t, err)

	docs, err := svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, mine.ID, docs[0].ID)
}

func TestDelete_OwnerScoped(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	owner := uuid.New()

	doc, err := svc.Upload(ctx, owner, "m.txt", "text/plain", []byte("x"))
	require.NoError(t, err)

	err = svc.Delete(ctx, uuid.New(), doc.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	// Still there after the rejected delete.
	_, err = svc.Get(ctx, owner, doc.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, doc.ID))
	_, err = svc.Get(ctx, owner, doc.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCheckProcessable(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	owner := uuid.New()

	doc, err := svc.Upload(ctx, owner, "m.txt", "text/plain", []byte("some text"))
	require.NoError(t, err)

	got, err := svc.CheckProcessable(ctx, owner, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	doc.Text = "some text"
	require.NoError(t, st.CommitProcessed(ctx, doc, []models.Chunk{{
		ID:         uuid.New(),
		DocumentID: doc.ID,
		OwnerID:    owner,
		Seq:        0,
		Text:       "some text",
		Embedding:  []float32{1, 0},
		CreatedAt:  doc.UploadedAt,
	}}))

	_, err = svc.CheckProcessable(ctx, owner, doc.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadyProcessed)
}
