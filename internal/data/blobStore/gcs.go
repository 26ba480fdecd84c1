package blobStore

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"

	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
)

type GCSStore struct {
	bucket *storage.BucketHandle
	name   string
	logger *logger_i.Logger
}

func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	bucketName := os.Getenv("GCS_BUCKET")
	if bucketName == "" {
		bucketName = config.GCSBucket
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	s := &GCSStore{
		bucket: client.Bucket(bucketName),
		name:   bucketName,
		logger: logger_i.NewLogger("GCSStore"),
	}
	go func() {
		<-ctx.Done()
		if err := client.Close(); err != nil {
			s.logger.Error("could not close storage client", "error", err)
		}
	}()
	return s, nil
}

// Save writes the object and returns its gs:// path.
func (s *GCSStore) Save(ctx context.Context, objectName string, content io.Reader) (string, error) {
	writer := s.bucket.Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(writer, content); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	path := fmt.Sprintf("gs://%s/%s", s.name, objectName)
	s.logger.Debug("saved raw file", "path", path)
	return path, nil
}

// Open streams the raw object back, used when a resumed pipeline run needs
// to re-extract and the local spool file did not survive the restart.
func (s *GCSStore) Open(ctx context.Context, objectName string) (io.ReadCloser, error) {
	reader, err := s.bucket.Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object %s: %w", objectName, err)
	}
	return reader, nil
}

func (s *GCSStore) Delete(ctx context.Context, objectName string) error {
	if err := s.bucket.Object(objectName).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete GCS object %s: %w", objectName, err)
	}
	return nil
}
