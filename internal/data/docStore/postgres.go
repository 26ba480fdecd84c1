package docStore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/internal/domain/docModel"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, user_id, filename, file_type, gcs_path, fulltext_content, chroma_status, failure_reason, chunks_processed, total_chunks, created_at, updated_at`

type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *logger_i.Logger
}

func NewPostgresStore(ctx context.Context) (*PostgresStore, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = config.DatabaseURL
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, logger: logger_i.NewLogger("DocStore")}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	go s.closeOnDone(ctx)
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL,
			filename         TEXT NOT NULL,
			file_type        TEXT NOT NULL,
			gcs_path         TEXT NOT NULL,
			fulltext_content TEXT,
			chroma_status    TEXT NOT NULL,
			failure_reason   TEXT NOT NULL DEFAULT '',
			chunks_processed INTEGER NOT NULL DEFAULT 0,
			total_chunks     INTEGER NOT NULL DEFAULT 0,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS ix_documents_user_id ON documents (user_id);
		CREATE INDEX IF NOT EXISTS ix_documents_status ON documents (chroma_status);
	`)
	if err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) closeOnDone(ctx context.Context) {
	<-ctx.Done()
	s.logger.Info("Closing document store")
	s.pool.Close()
}

func (s *PostgresStore) CreateDocument(ctx context.Context, doc docModel.Document) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, user_id, filename, file_type, gcs_path, fulltext_content, chroma_status, failure_reason, chunks_processed, total_chunks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, doc.Id, doc.UserId, doc.Filename, string(doc.FileType), doc.GcsPath, doc.FulltextContent, string(doc.Status), doc.FailureReason, doc.ChunksProcessed, doc.TotalChunks)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (docModel.Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return docModel.Document{}, docModel.ErrNotFound
	}
	return doc, err
}

func (s *PostgresStore) ListDocuments(ctx context.Context, userId string) ([]docModel.Document, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+documentColumns+` FROM documents WHERE user_id = $1 ORDER BY created_at DESC`, userId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status docModel.DocStatus, reason string) error {
	return s.execOne(ctx, `UPDATE documents SET chroma_status = $2, failure_reason = $3, updated_at = now() WHERE id = $1`, id, string(status), reason)
}

func (s *PostgresStore) SetFulltext(ctx context.Context, id string, fulltext string) error {
	return s.execOne(ctx, `UPDATE documents SET fulltext_content = $2, updated_at = now() WHERE id = $1`, id, fulltext)
}

func (s *PostgresStore) SetTotalChunks(ctx context.Context, id string, total int) error {
	return s.execOne(ctx, `UPDATE documents SET total_chunks = $2, updated_at = now() WHERE id = $1`, id, total)
}

func (s *PostgresStore) SetChunksProcessed(ctx context.Context, id string, processed int) error {
	// never let the counter run past total_chunks, whatever the caller says
	return s.execOne(ctx, `UPDATE documents SET chunks_processed = LEAST($2, total_chunks), updated_at = now() WHERE id = $1`, id, processed)
}

func (s *PostgresStore) UpdateFilename(ctx context.Context, id string, filename string) error {
	return s.execOne(ctx, `UPDATE documents SET filename = $2, updated_at = now() WHERE id = $1`, id, filename)
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM documents WHERE id = $1`, id)
}

func (s *PostgresStore) ListStale(ctx context.Context, statuses []docModel.DocStatus, olderThan time.Time) ([]docModel.Document, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	rows, err := s.pool.Query(ctx, `SELECT `+documentColumns+` FROM documents WHERE chroma_status = ANY($1) AND updated_at < $2`, names, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status docModel.DocStatus) ([]docModel.Document, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+documentColumns+` FROM documents WHERE chroma_status = $1`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (s *PostgresStore) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return docModel.ErrNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (docModel.Document, error) {
	var (
		doc      docModel.Document
		fileType string
		status   string
		fulltext *string
	)
	err := row.Scan(&doc.Id, &doc.UserId, &doc.Filename, &fileType, &doc.GcsPath, &fulltext, &status, &doc.FailureReason, &doc.ChunksProcessed, &doc.TotalChunks, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return docModel.Document{}, err
	}
	doc.FileType = docModel.FileType(fileType)
	doc.Status = docModel.DocStatus(status)
	if fulltext != nil {
		doc.FulltextContent = *fulltext
	}
	return doc, nil
}

func scanDocuments(rows pgx.Rows) ([]docModel.Document, error) {
	var docs []docModel.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
