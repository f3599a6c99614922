package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/maintdesk/backend/internal/apperr"
	"github.com/maintdesk/backend/internal/config"
	"github.com/maintdesk/backend/internal/models"
)

// PostgresStore backs the same interface with postgres + pgvector.
// Similarity ranking runs in SQL; cosine distance ordering there
// matches the brute-force scan's ordering, and the vector column's
// fixed dimensionality enforces the equal-length invariant at write
// time.
type PostgresStore struct {
	pool *pgxpool.Pool
	dim  int
}

func NewPostgresStore(ctx context.Context, cfg config.StoreConfig, dim int) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, dim: dim}
	if err := s.bootstrap(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS documents (
			id          UUID PRIMARY KEY,
			owner_id    UUID NOT NULL,
			filename    TEXT NOT NULL,
			media_type  TEXT NOT NULL,
			size_bytes  BIGINT NOT NULL,
			text        TEXT NOT NULL DEFAULT '',
			raw_data    BYTEA,
			status      TEXT NOT NULL,
			processed   BOOLEAN NOT NULL DEFAULT false,
			uploaded_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id          UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			owner_id    UUID NOT NULL,
			seq         INT NOT NULL,
			text        TEXT NOT NULL,
			embedding   vector(%d) NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			pos         BIGSERIAL
		)`, s.dim),
		`CREATE INDEX IF NOT EXISTS idx_chunks_owner ON chunks(owner_id)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id         UUID PRIMARY KEY,
			owner_id   UUID NOT NULL,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			source_ids JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_owner ON messages(owner_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) PutDocument(ctx context.Context, doc *models.Document) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, owner_id, filename, media_type, size_bytes, text, raw_data, status, processed, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, doc.OwnerID, doc.Filename, doc.MediaType, doc.SizeBytes,
		doc.Text, doc.RawData, doc.Status, doc.Processed, doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, filename, media_type, size_bytes, text, raw_data, status, processed, uploaded_at
		 FROM documents WHERE id = $1`, id,
	).Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.MediaType, &doc.SizeBytes,
		&doc.Text, &doc.RawData, &doc.Status, &doc.Processed, &doc.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, ownerID uuid.UUID) ([]models.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, filename, media_type, size_bytes, text, raw_data, status, processed, uploaded_at
		 FROM documents WHERE owner_id = $1 ORDER BY uploaded_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.MediaType, &doc.SizeBytes,
			&doc.Text, &doc.RawData, &doc.Status, &doc.Processed, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET filename = $1, media_type = $2, size_bytes = $3, text = $4, raw_data = $5, status = $6, processed = $7
		 WHERE id = $8`,
		doc.Filename, doc.MediaType, doc.SizeBytes, doc.Text, doc.RawData,
		doc.Status, doc.Processed, doc.ID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: document %s", apperr.ErrNotFound, doc.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: document %s", apperr.ErrNotFound, id)
	}
	return nil
}

func (s *PostgresStore) CommitProcessed(ctx context.Context, doc *models.Document, chunks []models.Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO chunks (id, document_id, owner_id, seq, text, embedding, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, c.DocumentID, c.OwnerID, c.Seq, c.Text, pgvector.NewVector(c.Embedding), c.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Seq, err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE documents SET text = $1, raw_data = NULL, status = $2, processed = true WHERE id = $3`,
		doc.Text, models.DocStatusReady, doc.ID,
	)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("vector length mismatch: %d vs %d", len(query), s.dim)
	}

	// pgvector's cosine distance is NaN against a zero-norm query, and
	// NaN never fails the similarity floor below. Define the
	// similarity of every chunk as 0 instead, like the sqlite scan.
	if isZeroVector(query) {
		if opts.MinSimilarity > 0 {
			return nil, nil
		}
		return s.searchZeroNorm(ctx, opts)
	}

	embedding := pgvector.NewVector(query)
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, owner_id, seq, text, created_at,
		        1 - (embedding <=> $1) AS similarity
		 FROM chunks
		 WHERE owner_id = $2
		 ORDER BY embedding <=> $1, pos
		 LIMIT $3`,
		embedding, opts.OwnerID, opts.TopK,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Chunk.ID, &r.Chunk.DocumentID, &r.Chunk.OwnerID,
			&r.Chunk.Seq, &r.Chunk.Text, &r.Chunk.CreatedAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if r.Similarity < opts.MinSimilarity {
			continue
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PostgresStore) searchZeroNorm(ctx context.Context, opts SearchOptions) ([]SearchResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, owner_id, seq, text, created_at
		 FROM chunks
		 WHERE owner_id = $1
		 ORDER BY pos
		 LIMIT $2`,
		opts.OwnerID, opts.TopK,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Chunk.ID, &r.Chunk.DocumentID, &r.Chunk.OwnerID,
			&r.Chunk.Seq, &r.Chunk.Text, &r.Chunk.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PostgresStore) Stats(ctx context.Context, ownerID uuid.UUID) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT document_id) FROM chunks WHERE owner_id = $1`, ownerID,
	).Scan(&st.ChunkCount, &st.DocumentCount)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	sources, err := json.Marshal(msg.SourceIDs)
	if err != nil {
		return fmt.Errorf("marshal source ids: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO messages (id, owner_id, role, content, source_ids, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.OwnerID, msg.Role, msg.Content, sources, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, ownerID uuid.UUID) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, role, content, source_ids, created_at
		 FROM messages WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var (
			m       models.Message
			sources []byte
		)
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Role, &m.Content, &sources, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := json.Unmarshal(sources, &m.SourceIDs); err != nil {
			return nil, fmt.Errorf("parse source ids: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *PostgresStore) ClearMessages(ctx context.Context, ownerID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM messages WHERE owner_id = $1", ownerID)
	return err
}
