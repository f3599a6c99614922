package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/maintdesk/backend/internal/apperr"
	"github.com/maintdesk/backend/internal/models"
	"github.com/maintdesk/backend/pkg/vectormath"
)

// SQLiteStore is the default backend: a single local database file,
// no external services. Similarity search is a brute-force scan over
// the owner's chunks with cosine computed in process; at the corpus
// sizes a single user produces, an index structure would cost more
// than it saves.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	owner_id    TEXT NOT NULL,
	filename    TEXT NOT NULL,
	media_type  TEXT NOT NULL,
	size_bytes  INTEGER NOT NULL,
	text        TEXT NOT NULL DEFAULT '',
	raw_data    BLOB,
	status      TEXT NOT NULL,
	processed   INTEGER NOT NULL DEFAULT 0,
	uploaded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id);

CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	owner_id    TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	text        TEXT NOT NULL,
	embedding   BLOB NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_owner ON chunks(owner_id);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	source_ids TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_owner ON messages(owner_id);
`

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) PutDocument(ctx context.Context, doc *models.Document) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, owner_id, filename, media_type, size_bytes, text, raw_data, status, processed, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID.String(), doc.OwnerID.String(), doc.Filename, doc.MediaType, doc.SizeBytes,
		doc.Text, doc.RawData, doc.Status, boolToInt(doc.Processed), doc.UploadedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, filename, media_type, size_bytes, text, raw_data, status, processed, uploaded_at
		 FROM documents WHERE id = ?`, id.String())

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, ownerID uuid.UUID) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, filename, media_type, size_bytes, text, raw_data, status, processed, uploaded_at
		 FROM documents WHERE owner_id = ? ORDER BY uploaded_at DESC`, ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET filename = ?, media_type = ?, size_bytes = ?, text = ?, raw_data = ?, status = ?, processed = ?
		 WHERE id = ?`,
		doc.Filename, doc.MediaType, doc.SizeBytes, doc.Text, doc.RawData,
		doc.Status, boolToInt(doc.Processed), doc.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: document %s", apperr.ErrNotFound, doc.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", id.String()); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: document %s", apperr.ErrNotFound, id)
	}
	return tx.Commit()
}

func (s *SQLiteStore) CommitProcessed(ctx context.Context, doc *models.Document, chunks []models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range chunks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, document_id, owner_id, seq, text, embedding, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.ID.String(), c.DocumentID.String(), c.OwnerID.String(), c.Seq,
			c.Text, encodeVector(c.Embedding), c.CreatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Seq, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET text = ?, raw_data = NULL, status = ?, processed = 1 WHERE id = ?`,
		doc.Text, models.DocStatusReady, doc.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}

	// rowid order makes tie-breaking stable by insertion.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, owner_id, seq, text, embedding, created_at
		 FROM chunks WHERE owner_id = ? ORDER BY rowid`, opts.OwnerID.String())
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}

		sim, err := vectormath.Cosine(query, chunk.Embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", chunk.ID, err)
		}
		if sim < opts.MinSimilarity {
			continue
		}
		results = append(results, SearchResult{Chunk: *chunk, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

func (s *SQLiteStore) Stats(ctx context.Context, ownerID uuid.UUID) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT document_id) FROM chunks WHERE owner_id = ?`,
		ownerID.String(),
	).Scan(&st.ChunkCount, &st.DocumentCount)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &st, nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	sources, err := json.Marshal(msg.SourceIDs)
	if err != nil {
		return fmt.Errorf("marshal source ids: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, owner_id, role, content, source_ids, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID.String(), msg.OwnerID.String(), msg.Role, msg.Content, string(sources), msg.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, ownerID uuid.UUID) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, role, content, source_ids, created_at
		 FROM messages WHERE owner_id = ? ORDER BY created_at, rowid`, ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var (
			m         models.Message
			id, own   string
			sources   string
			createdAt int64
		)
		if err := rows.Scan(&id, &own, &m.Role, &m.Content, &sources, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if m.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse message id: %w", err)
		}
		if m.OwnerID, err = uuid.Parse(own); err != nil {
			return nil, fmt.Errorf("parse owner id: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &m.SourceIDs); err != nil {
			return nil, fmt.Errorf("parse source ids: %w", err)
		}
		m.CreatedAt = time.Unix(0, createdAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *SQLiteStore) ClearMessages(ctx context.Context, ownerID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE owner_id = ?", ownerID.String())
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc        models.Document
		id, own    string
		processed  int
		uploadedAt int64
		raw        []byte
	)
	err := row.Scan(&id, &own, &doc.Filename, &doc.MediaType, &doc.SizeBytes,
		&doc.Text, &raw, &doc.Status, &processed, &uploadedAt)
	if err != nil {
		return nil, err
	}
	if doc.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse document id: %w", err)
	}
	if doc.OwnerID, err = uuid.Parse(own); err != nil {
		return nil, fmt.Errorf("parse owner id: %w", err)
	}
	doc.RawData = raw
	doc.Processed = processed != 0
	doc.UploadedAt = time.Unix(0, uploadedAt)
	return &doc, nil
}

func scanChunk(row rowScanner) (*models.Chunk, error) {
	var (
		chunk     models.Chunk
		id, docID string
		own       string
		blob      []byte
		createdAt int64
	)
	err := row.Scan(&id, &docID, &own, &chunk.Seq, &chunk.Text, &blob, &createdAt)
	if err != nil {
		return nil, err
	}
	if chunk.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse chunk id: %w", err)
	}
	if chunk.DocumentID, err = uuid.Parse(docID); err != nil {
		return nil, fmt.Errorf("parse document id: %w", err)
	}
	if chunk.OwnerID, err = uuid.Parse(own); err != nil {
		return nil, fmt.Errorf("parse owner id: %w", err)
	}
	chunk.Embedding = decodeVector(blob)
	chunk.CreatedAt = time.Unix(0, createdAt)
	return &chunk, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) []float32 {
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
