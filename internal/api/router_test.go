package api_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maintdesk/backend/internal/api"
	"github.com/maintdesk/backend/internal/auth"
	"github.com/maintdesk/backend/internal/config"
	"github.com/maintdesk/backend/internal/store"
)

const testSecret = "test-secret"

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{
		Auth: config.AuthConfig{JWTSecret: testSecret},
		RAG: config.RAGConfig{
			ChunkSize:        1000,
			ChunkOverlap:     200,
			EmbedBatchSize:   96,
			MergeThreshold:   0.9,
			TabularThreshold: 0.95,
			TopK:             12,
			MinSimilarity:    0.35,
		},
	}
	// No redis and no provider keys: cache-less, LLM endpoints report
	// not configured.
	return api.NewRouter(st, nil, cfg).Setup()
}

func bearerFor(t *testing.T, ownerID uuid.UUID) string {
	t.Helper()
	token, err := auth.IssueToken(testSecret, ownerID, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(h http.Handler, method, target, bearer string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func uploadBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_RequiresAuth(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/api/v1/documents", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(h, http.MethodGet, "/api/v1/documents", "Bearer not-a-token", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_RejectsExpiredToken(t *testing.T) {
	h := newTestHandler(t)
	token, err := auth.IssueToken(testSecret, uuid.New(), -time.Minute)
	require.NoError(t, err)

	rec := doRequest(h, http.MethodGet, "/api/v1/documents", "Bearer "+token, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDocuments_UploadListGetDelete(t *testing.T) {
	h := newTestHandler(t)
	owner := uuid.New()
	bearer := bearerFor(t, owner)

	body, ct := uploadBody(t, "pump-manual.txt", "Check the oil daily.")
	rec := doRequest(h, http.MethodPost, "/api/v1/documents", bearer, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "pending", created.Status)

	rec = doRequest(h, http.MethodGet, "/api/v1/documents", bearer, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	rec = doRequest(h, http.MethodGet, "/api/v1/documents/"+created.ID+"/status", bearer, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending"`)

	// Someone else's token cannot see or delete it.
	other := bearerFor(t, uuid.New())
	rec = doRequest(h, http.MethodGet, "/api/v1/documents/"+created.ID, other, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = doRequest(h, http.MethodDelete, "/api/v1/documents/"+created.ID, other, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(h, http.MethodDelete, "/api/v1/documents/"+created.ID, bearer, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(h, http.MethodGet, "/api/v1/documents/"+created.ID, bearer, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocuments_UploadUnsupportedFormat(t *testing.T) {
	h := newTestHandler(t)
	bearer := bearerFor(t, uuid.New())

	body, ct := uploadBody(t, "photo.png", "not really a png")
	rec := doRequest(h, http.MethodPost, "/api/v1/documents", bearer, body, ct)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestChatQuery_NoProviderConfigured(t *testing.T) {
	h := newTestHandler(t)
	bearer := bearerFor(t, uuid.New())

	body := bytes.NewBufferString(`{"question": "How often should I grease the bearings?"}`)
	rec := doRequest(h, http.MethodPost, "/api/v1/chat/query", bearer, body, "application/json")
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestChatQuery_EmptyQuestion(t *testing.T) {
	h := newTestHandler(t)
	bearer := bearerFor(t, uuid.New())

	body := bytes.NewBufferString(`{"question": "  "}`)
	rec := doRequest(h, http.MethodPost, "/api/v1/chat/query", bearer, body, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatHistory_EmptyAndClear(t *testing.T) {
	h := newTestHandler(t)
	bearer := bearerFor(t, uuid.New())

	rec := doRequest(h, http.MethodGet, "/api/v1/chat/history", bearer, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Zero(t, hist.Count)

	rec = doRequest(h, http.MethodDelete, "/api/v1/chat/history", bearer, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStats_EmptyOwner(t *testing.T) {
	h := newTestHandler(t)
	bearer := bearerFor(t, uuid.New())

	rec := doRequest(h, http.MethodGet, "/api/v1/stats", bearer, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `"chunk_count":0`), body)
	assert.True(t, strings.Contains(body, `"document_count":0`), body)
}
