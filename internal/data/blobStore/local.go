package blobStore

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// LocalStore writes objects under a directory. Used in tests and when no
// bucket is configured.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, err
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Save(ctx context.Context, objectName string, content io.Reader) (string, error) {
	path := filepath.Join(s.root, filepath.Base(objectName))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, content); err != nil {
		return "", err
	}
	return path, nil
}

func (s *LocalStore) Open(ctx context.Context, objectName string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.root, filepath.Base(objectName)))
}

func (s *LocalStore) Delete(ctx context.Context, objectName string) error {
	return os.Remove(filepath.Join(s.root, filepath.Base(objectName)))
}
