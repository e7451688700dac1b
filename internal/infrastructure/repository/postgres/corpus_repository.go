package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nyayasetu/legal-rag/internal/core/domain"
)

// CorpusRepository is the ingestion catalog: one row per source file of the
// most recent ingestion run. It is bookkeeping for the documents listing, not
// chunk storage; the vector index owns that.
type CorpusRepository struct {
	db *sql.DB
}

func NewCorpusRepository(db *sql.DB) *CorpusRepository {
	return &CorpusRepository{db: db}
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

func (r *CorpusRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS corpus_files (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL UNIQUE,
	pages INTEGER NOT NULL DEFAULT 0,
	chunks INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_corpus_files_status ON corpus_files(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// RecordFile upserts by filename so re-ingesting a corpus rewrites each
// file's row instead of accumulating history.
func (r *CorpusRepository) RecordFile(ctx context.Context, file *domain.CorpusFile) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO corpus_files (id, filename, pages, chunks, status, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (filename) DO UPDATE SET
	pages = EXCLUDED.pages,
	chunks = EXCLUDED.chunks,
	status = EXCLUDED.status,
	error_message = EXCLUDED.error_message,
	updated_at = EXCLUDED.updated_at
`,
		file.ID, file.Filename, file.Pages, file.Chunks, string(file.Status), file.Error,
		file.CreatedAt, file.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert corpus file: %w", err)
	}
	return nil
}

func (r *CorpusRepository) ListFiles(ctx context.Context) ([]domain.CorpusFile, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, filename, pages, chunks, status, error_message, created_at, updated_at
FROM corpus_files
ORDER BY filename
`)
	if err != nil {
		return nil, fmt.Errorf("query corpus files: %w", err)
	}
	defer rows.Close()

	var out []domain.CorpusFile
	for rows.Next() {
		var file domain.CorpusFile
		var status string
		var errMessage sql.NullString
		if err := rows.Scan(
			&file.ID, &file.Filename, &file.Pages, &file.Chunks, &status,
			&errMessage, &file.CreatedAt, &file.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan corpus file: %w", err)
		}
		file.Status = domain.FileStatus(status)
		file.Error = errMessage.String
		out = append(out, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate corpus files: %w", err)
	}
	return out, nil
}

func (r *CorpusRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM corpus_files`); err != nil {
		return fmt.Errorf("clear corpus files: %w", err)
	}
	return nil
}
