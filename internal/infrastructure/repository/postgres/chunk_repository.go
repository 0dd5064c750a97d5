package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
	"github.com/kirillkom/drhp-retrieval/internal/infrastructure/repository/vecblob"
)

type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) CountChunks(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// SaveChunks writes all chunks of a run in one transaction; a chunk_id that
// already exists is overwritten.
func (r *ChunkRepository) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunks tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (chunk_id, document_id, page_number, section, chunk_index, text, token_estimate, embedding, indexed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (chunk_id) DO UPDATE SET
	document_id = EXCLUDED.document_id,
	page_number = EXCLUDED.page_number,
	section = EXCLUDED.section,
	chunk_index = EXCLUDED.chunk_index,
	text = EXCLUDED.text,
	token_estimate = EXCLUDED.token_estimate,
	embedding = EXCLUDED.embedding,
	indexed_at = EXCLUDED.indexed_at
`)
	if err != nil {
		return fmt.Errorf("prepare chunk upsert: %w", err)
	}
	defer stmt.Close()

	for _, ch := range chunks {
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.PageNumber, string(ch.Section), ch.Index,
			ch.Text, ch.TokenEstimate, vecblob.Encode(ch.Vector), ch.IndexedAt,
		); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", ch.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (r *ChunkRepository) ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT chunk_id, document_id, page_number, section, chunk_index, text, token_estimate, embedding, indexed_at
FROM chunks
WHERE document_id = $1
ORDER BY chunk_index
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var (
			ch      domain.Chunk
			section string
			blob    []byte
		)
		if err := rows.Scan(
			&ch.ID,
			&ch.DocumentID,
			&ch.PageNumber,
			&section,
			&ch.Index,
			&ch.Text,
			&ch.TokenEstimate,
			&blob,
			&ch.IndexedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		ch.Section = domain.SectionTag(section)
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
