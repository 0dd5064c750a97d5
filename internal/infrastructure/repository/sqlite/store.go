// Package sqlite keeps documents and indexed chunks in a single SQLite file.
// It uses modernc.org/sqlite, so the binary needs no cgo toolchain.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
	"github.com/kirillkom/drhp-retrieval/internal/infrastructure/repository/vecblob"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	page_count INTEGER NOT NULL DEFAULT 0,
	risk_factors TEXT NOT NULL DEFAULT '',
	objects TEXT NOT NULL DEFAULT '',
	financials TEXT NOT NULL DEFAULT '',
	promoters TEXT NOT NULL DEFAULT '',
	litigation TEXT NOT NULL DEFAULT '',
	overview TEXT NOT NULL DEFAULT '',
	quality TEXT NOT NULL DEFAULT '',
	sections_found TEXT NOT NULL DEFAULT '[]',
	facts TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	processed_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	chunk_id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	page_number INTEGER NOT NULL,
	section TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	text TEXT NOT NULL,
	token_estimate INTEGER NOT NULL,
	embedding BLOB NOT NULL,
	indexed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id, chunk_index);
`

// Store implements both the document repository and the chunk store.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the database file if needed and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Single writer keeps SQLite from returning SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Create(ctx context.Context, doc *domain.Document) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO documents (id, name, storage_path, status, error_message, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		doc.ID, doc.Name, doc.StoragePath, string(doc.Status), doc.Error,
		formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, storage_path, page_count,
	risk_factors, objects, financials, promoters, litigation, overview,
	quality, sections_found, facts, status, error_message, processed_at, created_at, updated_at
FROM documents
WHERE id = ?
`, id)

	var (
		doc                  domain.Document
		quality, status      string
		foundRaw, factsRaw   string
		processedAt          sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&doc.ID, &doc.Name, &doc.StoragePath, &doc.PageCount,
		&doc.Sections.RiskFactors, &doc.Sections.Objects, &doc.Sections.Financials,
		&doc.Sections.Promoters, &doc.Sections.Litigation, &doc.Sections.Overview,
		&quality, &foundRaw, &factsRaw, &status, &doc.Error, &processedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if err := json.Unmarshal([]byte(foundRaw), &doc.SectionsFound); err != nil {
		return nil, fmt.Errorf("unmarshal sections_found: %w", err)
	}
	if err := json.Unmarshal([]byte(factsRaw), &doc.Facts); err != nil {
		return nil, fmt.Errorf("unmarshal facts: %w", err)
	}
	doc.Quality = domain.Quality(quality)
	doc.Status = domain.DocumentStatus(status)
	doc.CreatedAt = parseTime(createdAt)
	doc.UpdatedAt = parseTime(updatedAt)
	if processedAt.Valid && processedAt.String != "" {
		t := parseTime(processedAt.String)
		doc.ProcessedAt = &t
	}
	return &doc, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	result, err := s.db.ExecContext(ctx, `
UPDATE documents SET status = ?, error_message = ?, updated_at = ? WHERE id = ?
`, string(status), errMessage, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRow(result, "update document status", id)
}

func (s *Store) SaveAnalysis(ctx context.Context, id string, a domain.Analysis) error {
	found := a.SectionsFound
	if found == nil {
		found = []domain.SectionTag{}
	}
	foundJSON, err := json.Marshal(found)
	if err != nil {
		return fmt.Errorf("marshal sections_found: %w", err)
	}
	factsJSON, err := json.Marshal(a.Facts)
	if err != nil {
		return fmt.Errorf("marshal facts: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
UPDATE documents
SET page_count = ?,
	risk_factors = ?, objects = ?, financials = ?, promoters = ?, litigation = ?, overview = ?,
	quality = ?, sections_found = ?, facts = ?, status = ?, error_message = ?,
	processed_at = ?, updated_at = ?
WHERE id = ?
`,
		a.PageCount,
		a.Sections.RiskFactors, a.Sections.Objects, a.Sections.Financials,
		a.Sections.Promoters, a.Sections.Litigation, a.Sections.Overview,
		string(a.Quality), string(foundJSON), string(factsJSON), string(a.Status), a.Error,
		formatTime(a.ProcessedAt), formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return requireRow(result, "save analysis", id)
}

func (s *Store) CountChunks(ctx context.Context, documentID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE document_id = ?`, documentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

func (s *Store) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunks tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO chunks
	(chunk_id, document_id, page_number, section, chunk_index, text, token_estimate, embedding, indexed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return fmt.Errorf("prepare chunk upsert: %w", err)
	}
	defer stmt.Close()

	for _, ch := range chunks {
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.PageNumber, string(ch.Section), ch.Index,
			ch.Text, ch.TokenEstimate, vecblob.Encode(ch.Vector), formatTime(ch.IndexedAt),
		); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", ch.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (s *Store) ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT chunk_id, document_id, page_number, section, chunk_index, text, token_estimate, embedding, indexed_at
FROM chunks
WHERE document_id = ?
ORDER BY chunk_index
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var (
			ch        domain.Chunk
			section   string
			blob      []byte
			indexedAt string
		)
		if err := rows.Scan(
			&ch.ID, &ch.DocumentID, &ch.PageNumber, &section, &ch.Index,
			&ch.Text, &ch.TokenEstimate, &blob, &indexedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		ch.Section = domain.SectionTag(section)
		ch.IndexedAt = parseTime(indexedAt)
		if ch.Vector, err = vecblob.Decode(blob); err != nil {
			return nil, fmt.Errorf("decode chunk %s vector: %w", ch.ID, err)
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func requireRow(result sql.Result, operation, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
