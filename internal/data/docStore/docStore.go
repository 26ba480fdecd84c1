package docStore

import (
	"context"
	"time"

	"github.com/akolanti/StreamAPI/internal/domain/docModel"
)

// DocumentStore is the system of record for document metadata. Only the
// pipeline orchestrator writes status and chunk counters; handlers write the
// mutable CRUD fields.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc docModel.Document) error
	GetDocument(ctx context.Context, id string) (docModel.Document, error)
	ListDocuments(ctx context.Context, userId string) ([]docModel.Document, error)

	UpdateStatus(ctx context.Context, id string, status docModel.DocStatus, reason string) error
	SetFulltext(ctx context.Context, id string, fulltext string) error
	SetTotalChunks(ctx context.Context, id string, total int) error
	SetChunksProcessed(ctx context.Context, id string, processed int) error
	UpdateFilename(ctx context.Context, id string, filename string) error

	DeleteDocument(ctx context.Context, id string) error

	// ListStale finds documents stuck in a non-terminal status whose last
	// update predates the threshold - the reconciler's crash detector.
	ListStale(ctx context.Context, statuses []docModel.DocStatus, olderThan time.Time) ([]docModel.Document, error)
	ListByStatus(ctx context.Context, status docModel.DocStatus) ([]docModel.Document, error)
}
