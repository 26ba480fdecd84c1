package docStore

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/StreamAPI/internal/domain/docModel"
)

// InMemoryDocStore backs tests and local runs without Postgres.
type InMemoryDocStore struct {
	docMutex *sync.RWMutex
	docMap   map[string]docModel.Document
}

func InitInMemoryDocStore() *InMemoryDocStore {
	return &InMemoryDocStore{
		docMutex: new(sync.RWMutex),
		docMap:   make(map[string]docModel.Document),
	}
}

func (store *InMemoryDocStore) CreateDocument(ctx context.Context, doc docModel.Document) error {
	store.docMutex.Lock()
	defer store.docMutex.Unlock()
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	store.docMap[doc.Id] = doc
	return nil
}

func (store *InMemoryDocStore) GetDocument(ctx context.Context, id string) (docModel.Document, error) {
	store.docMutex.RLock()
	defer store.docMutex.RUnlock()
	doc, found := store.docMap[id]
	if !found {
		return docModel.Document{}, docModel.ErrNotFound
	}
	return doc, nil
}

func (store *InMemoryDocStore) ListDocuments(ctx context.Context, userId string) ([]docModel.Document, error) {
	store.docMutex.RLock()
	defer store.docMutex.RUnlock()
	var docs []docModel.Document
	for _, doc := range store.docMap {
		if doc.UserId == userId {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (store *InMemoryDocStore) UpdateStatus(ctx context.Context, id string, status docModel.DocStatus, reason string) error {
	return store.mutate(id, func(doc *docModel.Document) {
		doc.Status = status
		doc.FailureReason = reason
	})
}

func (store *InMemoryDocStore) SetFulltext(ctx context.Context, id string, fulltext string) error {
	return store.mutate(id, func(doc *docModel.Document) {
		doc.FulltextContent = fulltext
	})
}

func (store *InMemoryDocStore) SetTotalChunks(ctx context.Context, id string, total int) error {
	return store.mutate(id, func(doc *docModel.Document) {
		doc.TotalChunks = total
	})
}

func (store *InMemoryDocStore) SetChunksProcessed(ctx context.Context, id string, processed int) error {
	return store.mutate(id, func(doc *docModel.Document) {
		if processed > doc.TotalChunks {
			processed = doc.TotalChunks
		}
		doc.ChunksProcessed = processed
	})
}

func (store *InMemoryDocStore) UpdateFilename(ctx context.Context, id string, filename string) error {
	return store.mutate(id, func(doc *docModel.Document) {
		doc.Filename = filename
	})
}

func (store *InMemoryDocStore) DeleteDocument(ctx context.Context, id string) error {
	store.docMutex.Lock()
	defer store.docMutex.Unlock()
	if _, found := store.docMap[id]; !found {
		return docModel.ErrNotFound
	}
	delete(store.docMap, id)
	return nil
}

func (store *InMemoryDocStore) ListStale(ctx context.Context, statuses []docModel.DocStatus, olderThan time.Time) ([]docModel.Document, error) {
	store.docMutex.RLock()
	defer store.docMutex.RUnlock()
	var docs []docModel.Document
	for _, doc := range store.docMap {
		for _, st := range statuses {
			if doc.Status == st && doc.UpdatedAt.Before(olderThan) {
				docs = append(docs, doc)
				break
			}
		}
	}
	return docs, nil
}

func (store *InMemoryDocStore) ListByStatus(ctx context.Context, status docModel.DocStatus) ([]docModel.Document, error) {
	store.docMutex.RLock()
	defer store.docMutex.RUnlock()
	var docs []docModel.Document
	for _, doc := range store.docMap {
		if doc.Status == status {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (store *InMemoryDocStore) mutate(id string, fn func(*docModel.Document)) error {
	store.docMutex.Lock()
	defer store.docMutex.Unlock()
	doc, found := store.docMap[id]
	if !found {
		return docModel.ErrNotFound
	}
	fn(&doc)
	doc.UpdatedAt = time.Now()
	store.docMap[id] = doc
	return nil
}

// Backdate is a test hook to simulate a store that has not been touched
// since before the staleness threshold.
func (store *InMemoryDocStore) Backdate(id string, to time.Time) {
	store.docMutex.Lock()
	defer store.docMutex.Unlock()
	doc, found := store.docMap[id]
	if !found {
		return
	}
	doc.UpdatedAt = to
	store.docMap[id] = doc
}
