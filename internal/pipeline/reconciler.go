package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/StreamAPI/internal/adapter/utils"
	"github.com/akolanti/StreamAPI/internal/data/docStore"
	"github.com/akolanti/StreamAPI/internal/domain/docModel"
	"github.com/akolanti/StreamAPI/internal/metrics"
	"github.com/akolanti/StreamAPI/internal/rag/vectorDB"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
)

// Reconciler is the safety net for the pipeline's dual writes. On a fixed
// interval it re-enqueues documents stuck in a non-terminal status and
// verifies that processed documents actually have all their points in the
// vector index. It only re-drives forward; it never deletes.
type Reconciler struct {
	store      docStore.DocumentStore
	index      vectorDB.ChunkIndex
	submit     func(Run) error
	interval   time.Duration
	staleAfter time.Duration
	logger     *logger_i.Logger
}

func NewReconciler(store docStore.DocumentStore, index vectorDB.ChunkIndex, submit func(Run) error, interval time.Duration, staleAfter time.Duration) *Reconciler {
	return &Reconciler{
		store:      store,
		index:      index,
		submit:     submit,
		interval:   interval,
		staleAfter: staleAfter,
		logger:     logger_i.NewLogger("Reconciler"),
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		r.logger.Info("Reconciler started", "interval", r.interval)
		for {
			select {
			case <-ticker.C:
				r.RunOnce(ctx)
			case <-ctx.Done():
				r.logger.Info("Reconciler stopped")
				return
			}
		}
	}()
}

// RunOnce performs a single reconciliation sweep.
func (r *Reconciler) RunOnce(ctx context.Context) {
	r.redriveStale(ctx)
	r.verifyProcessed(ctx)
}

func (r *Reconciler) redriveStale(ctx context.Context) {
	cutoff := time.Now().Add(-r.staleAfter)
	stale, err := r.store.ListStale(ctx, []docModel.DocStatus{docModel.StatusProcessing, docModel.StatusEmbedding}, cutoff)
	if err != nil {
		r.logger.Error("could not list stale documents", "error", err.Error())
		return
	}

	for _, doc := range stale {
		r.enqueue(doc, "stale run")
	}
}

func (r *Reconciler) verifyProcessed(ctx context.Context) {
	docs, err := r.store.ListByStatus(ctx, docModel.StatusProcessed)
	if err != nil {
		r.logger.Error("could not list processed documents", "error", err.Error())
		return
	}

	for _, doc := range docs {
		if doc.TotalChunks == 0 {
			continue
		}
		count, err := r.index.CountByDocument(ctx, doc.Id)
		if err != nil {
			r.logger.Error("could not count vector points", "documentId", doc.Id, "error", err.Error())
			continue
		}
		if count == doc.TotalChunks {
			continue
		}
		r.logger.Warn("vector index out of sync", "documentId", doc.Id, "expected", doc.TotalChunks, "indexed", count)
		r.enqueue(doc, "index mismatch")
	}
}

func (r *Reconciler) enqueue(doc docModel.Document, why string) {
	err := r.submit(Run{DocumentId: doc.Id, TraceId: utils.GetNewUUID()})
	switch {
	case err == nil:
		metrics.IncrementReconcilerRedrives()
		r.logger.Info("re-enqueued document", "documentId", doc.Id, "cause", why)
	case errors.Is(err, docModel.ErrAlreadyProcessing):
		// A live run owns this document; leave it alone.
	default:
		r.logger.Error("could not re-enqueue document", "documentId", doc.Id, "error", err.Error())
	}
}
