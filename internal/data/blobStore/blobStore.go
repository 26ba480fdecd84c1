package blobStore

import (
	"context"
	"io"
)

// BlobStore holds the raw uploaded files. Deletion failures are reported but
// callers treat the relational store as the source of truth.
type BlobStore interface {
	Save(ctx context.Context, objectName string, content io.Reader) (string, error)
	Open(ctx context.Context, objectName string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectName string) error
}
