package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/resilience"
)

// CorpusRepository reads the documentation chunks written by the ingestion
// pipeline.
type CorpusRepository struct {
	db       *sql.DB
	executor *resilience.Executor
}

func NewCorpusRepository(db *sql.DB, executor *resilience.Executor) *CorpusRepository {
	return &CorpusRepository{db: db, executor: executor}
}

// ListChunks returns the whole corpus in id order.
func (r *CorpusRepository) ListChunks(ctx context.Context) ([]domain.Chunk, error) {
	chunks, err := resilience.Call(ctx, r.executor, "postgres.list_chunks", r.listChunks, classifyPostgresError)
	if err != nil {
		return nil, resilience.WrapTemporary("list corpus chunks", err, classifyPostgresError)
	}
	return chunks, nil
}

func (r *CorpusRepository) listChunks(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, text, title, source_url, doc_type, quality
FROM doc_chunks
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Chunk, 0)
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.Text, &c.Title, &c.SourceURL, &c.DocType, &c.QualityTag); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func (r *CorpusRepository) Fingerprint(ctx context.Context) (domain.CorpusFingerprint, error) {
	return resilience.Call(ctx, r.executor, "postgres.corpus_fingerprint", func(ctx context.Context) (domain.CorpusFingerprint, error) {
		var fp domain.CorpusFingerprint
		var last sql.NullTime
		err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(updated_at) FROM doc_chunks`).Scan(&fp.ChunkCount, &last)
		if err != nil {
			return domain.CorpusFingerprint{}, fmt.Errorf("corpus fingerprint: %w", err)
		}
		if last.Valid {
			fp.LastUpdatedAt = last.Time.UTC()
		}
		return fp, nil
	}, classifyPostgresError)
}
