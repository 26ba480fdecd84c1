package vectorDB

import (
	"context"

	"github.com/akolanti/StreamAPI/internal/domain/docModel"
)

// ChunkIndex is the derived vector index of document chunks. Writes are
// upserts keyed by the deterministic chunk id, so re-driving a chunk
// overwrites instead of duplicating.
type ChunkIndex interface {
	EnsureCollection(ctx context.Context) error
	UpsertChunk(ctx context.Context, chunk docModel.Chunk, vector []float32) error

	// Reconciler support
	CountByDocument(ctx context.Context, documentId string) (int, error)
	ListChunkIndices(ctx context.Context, documentId string) ([]int, error)

	DeleteByDocument(ctx context.Context, documentId string) error
}
