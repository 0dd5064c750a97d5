package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
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
	sections_found JSONB NOT NULL DEFAULT '[]'::jsonb,
	facts JSONB NOT NULL DEFAULT '{}'::jsonb,
	status TEXT NOT NULL,
	error_message TEXT,
	processed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS chunks (
	chunk_id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	page_number INTEGER NOT NULL,
	section TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	text TEXT NOT NULL,
	token_estimate INTEGER NOT NULL,
	embedding BYTEA NOT NULL,
	indexed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id, chunk_index);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (id, name, storage_path, status, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		doc.ID, doc.Name, doc.StoragePath, string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, storage_path, page_count,
	risk_factors, objects, financials, promoters, litigation, overview,
	quality, sections_found, facts, status, COALESCE(error_message, ''), processed_at, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var (
		doc         domain.Document
		quality     string
		foundRaw    []byte
		factsRaw    []byte
		status      string
		processedAt sql.NullTime
	)
	err := row.Scan(
		&doc.ID, &doc.Name, &doc.StoragePath, &doc.PageCount,
		&doc.Sections.RiskFactors, &doc.Sections.Objects, &doc.Sections.Financials,
		&doc.Sections.Promoters, &doc.Sections.Litigation, &doc.Sections.Overview,
		&quality, &foundRaw, &factsRaw, &status, &doc.Error, &processedAt, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if len(foundRaw) > 0 {
		if err := json.Unmarshal(foundRaw, &doc.SectionsFound); err != nil {
			return nil, fmt.Errorf("unmarshal sections_found: %w", err)
		}
	}
	if len(factsRaw) > 0 {
		if err := json.Unmarshal(factsRaw, &doc.Facts); err != nil {
			return nil, fmt.Errorf("unmarshal facts: %w", err)
		}
	}
	doc.Quality = domain.Quality(quality)
	doc.Status = domain.DocumentStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		doc.ProcessedAt = &t
	}
	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRow(result, "update document status", id)
}

// SaveAnalysis writes every derived field of a processing run in one statement.
func (r *DocumentRepository) SaveAnalysis(ctx context.Context, id string, a domain.Analysis) error {
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

	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET page_count = $2,
	risk_factors = $3, objects = $4, financials = $5, promoters = $6, litigation = $7, overview = $8,
	quality = $9, sections_found = $10, facts = $11, status = $12, error_message = $13,
	processed_at = $14, updated_at = $15
WHERE id = $1
`,
		id, a.PageCount,
		a.Sections.RiskFactors, a.Sections.Objects, a.Sections.Financials,
		a.Sections.Promoters, a.Sections.Litigation, a.Sections.Overview,
		string(a.Quality), foundJSON, factsJSON, string(a.Status), a.Error,
		a.ProcessedAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return requireRow(result, "save analysis", id)
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
