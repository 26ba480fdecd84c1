package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/internal/data/blobStore"
	"github.com/akolanti/StreamAPI/internal/data/docStore"
	"github.com/akolanti/StreamAPI/internal/domain/docModel"
	"github.com/akolanti/StreamAPI/internal/metrics"
	"github.com/akolanti/StreamAPI/internal/pipeline/chunker"
	"github.com/akolanti/StreamAPI/internal/pipeline/extract"
	"github.com/akolanti/StreamAPI/internal/rag/embedding"
	"github.com/akolanti/StreamAPI/internal/rag/vectorDB"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
)

const (
	reasonCancelled = "cancelled"
	reasonTimedOut  = "timed out"
)

// runState tracks an in-flight (or reserved) run for one document. Cancel can
// arrive between reservation and execution, so the flag is kept alongside the
// cancel func.
type runState struct {
	cancel    context.CancelFunc
	cancelled bool
}

// Orchestrator drives a document through extract, chunk, embed and persist.
// Every stage transition is persisted before the next stage starts, so a
// crashed run resumes from its last checkpoint instead of starting over.
type Orchestrator struct {
	store    docStore.DocumentStore
	blobs    blobStore.BlobStore
	index    vectorDB.ChunkIndex
	embedder embedding.Embedder
	logger   *logger_i.Logger

	mu       sync.Mutex
	inflight map[string]*runState

	chunkSize    int
	chunkOverlap int
	maxAttempts  int
	backoffBase  time.Duration
	runTimeout   time.Duration
}

func NewOrchestrator(store docStore.DocumentStore, blobs blobStore.BlobStore, index vectorDB.ChunkIndex, embedder embedding.Embedder) *Orchestrator {
	return &Orchestrator{
		store:        store,
		blobs:        blobs,
		index:        index,
		embedder:     embedder,
		logger:       logger_i.NewLogger("PipelineOrchestrator"),
		inflight:     make(map[string]*runState),
		chunkSize:    config.ChunkSize,
		chunkOverlap: config.ChunkOverlap,
		maxAttempts:  config.EmbedMaxAttempts,
		backoffBase:  config.EmbedBackoffBase,
		runTimeout:   config.PipelineRunTimeout,
	}
}

// Begin reserves the single-flight slot for a document. The reservation is
// held until Execute finishes (or releases it on queue overflow).
func (o *Orchestrator) Begin(documentId string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.inflight[documentId]; ok {
		return docModel.ErrAlreadyProcessing
	}
	o.inflight[documentId] = &runState{}
	return nil
}

// Cancel asks an in-flight run to abort at its next checkpoint. Returns false
// when no run is reserved for the document.
func (o *Orchestrator) Cancel(documentId string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	state, ok := o.inflight[documentId]
	if !ok {
		return false
	}
	state.cancelled = true
	if state.cancel != nil {
		state.cancel()
	}
	return true
}

func (o *Orchestrator) release(documentId string) {
	o.mu.Lock()
	delete(o.inflight, documentId)
	o.mu.Unlock()
}

// arm attaches the run's cancel func to its reservation. Returns false when
// the run was cancelled before it ever started.
func (o *Orchestrator) arm(documentId string, cancel context.CancelFunc) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	state, ok := o.inflight[documentId]
	if !ok || state.cancelled {
		return false
	}
	state.cancel = cancel
	return true
}

// Execute runs the pipeline for one document. The caller must hold the
// reservation from Begin; Execute releases it when done.
func (o *Orchestrator) Execute(ctx context.Context, run Run) {
	defer o.release(run.DocumentId)
	if run.LocalPath != "" {
		//the blob store keeps the raw bytes; the spool copy dies with the run
		defer os.Remove(run.LocalPath)
	}

	start := time.Now()
	status := "processed"
	defer func() {
		metrics.CaptureRunMetrics(status, time.Since(start))
	}()

	runCtx, cancel := context.WithTimeout(ctx, o.runTimeout)
	defer cancel()
	if !o.arm(run.DocumentId, cancel) {
		o.fail(ctx, run.DocumentId, reasonCancelled)
		status = "failed"
		return
	}

	log := o.logger.With("traceId", run.TraceId, "documentId", run.DocumentId)

	doc, err := o.store.GetDocument(runCtx, run.DocumentId)
	if err != nil {
		log.Error("document lookup failed", "error", err.Error())
		status = "failed"
		return
	}

	switch doc.Status {
	case docModel.StatusProcessed:
		// Reconciler verification path: fill index holes, never touch counters.
		if err := o.redrive(runCtx, doc, log); err != nil {
			log.Error("redrive failed", "error", err.Error())
			status = "failed"
		}
		return
	case docModel.StatusEmbedding:
		// Crash or stall mid-embed: fulltext and counters are already
		// persisted, jump straight back into the chunk loop.
		err = o.embedFrom(runCtx, doc, log)
	default:
		err = o.runFromExtract(runCtx, doc, run.LocalPath, log)
	}

	if err != nil {
		status = "failed"
		reason := err.Error()
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			reason = reasonTimedOut
		case runCtx.Err() != nil:
			reason = reasonCancelled
		}
		o.fail(ctx, run.DocumentId, reason)
		log.Error("pipeline run failed", "reason", reason, "transient", docModel.IsTransient(err))
		return
	}
	log.Info("pipeline run complete")
}

func (o *Orchestrator) runFromExtract(ctx context.Context, doc docModel.Document, localPath string, log *logger_i.Logger) error {
	if err := o.store.UpdateStatus(ctx, doc.Id, docModel.StatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	if doc.FulltextContent == "" {
		text, err := o.extractText(ctx, doc, localPath)
		if err != nil {
			return err
		}
		if err := o.store.SetFulltext(ctx, doc.Id, text); err != nil {
			return fmt.Errorf("persist fulltext: %w", err)
		}
		doc.FulltextContent = text
	}

	total := chunker.Count(len(doc.FulltextContent), o.chunkSize, o.chunkOverlap)
	if err := o.store.SetTotalChunks(ctx, doc.Id, total); err != nil {
		return fmt.Errorf("persist total chunks: %w", err)
	}
	doc.TotalChunks = total

	if total == 0 {
		// Nothing to embed: an empty document is processed, not failed.
		log.Info("document has no extractable text")
		return o.store.UpdateStatus(ctx, doc.Id, docModel.StatusProcessed, "")
	}

	return o.embedFrom(ctx, doc, log)
}

func (o *Orchestrator) embedFrom(ctx context.Context, doc docModel.Document, log *logger_i.Logger) error {
	if err := o.store.UpdateStatus(ctx, doc.Id, docModel.StatusEmbedding, ""); err != nil {
		return fmt.Errorf("mark embedding: %w", err)
	}

	chunks := chunker.ChunkDocument(doc, o.chunkSize, o.chunkOverlap)
	if len(chunks) != doc.TotalChunks {
		// Stored counters disagree with the stored text; trust the text.
		log.Warn("recomputed chunk count differs from stored total", "stored", doc.TotalChunks, "recomputed", len(chunks))
		if err := o.store.SetTotalChunks(ctx, doc.Id, len(chunks)); err != nil {
			return fmt.Errorf("persist total chunks: %w", err)
		}
	}

	for i := doc.ChunksProcessed; i < len(chunks); i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := o.embedAndUpsert(ctx, chunks[i], log); err != nil {
			return err
		}
		if err := o.store.SetChunksProcessed(ctx, doc.Id, i+1); err != nil {
			return fmt.Errorf("persist chunk progress: %w", err)
		}
		metrics.IncrementChunksEmbedded()
	}

	return o.store.UpdateStatus(ctx, doc.Id, docModel.StatusProcessed, "")
}

// redrive repairs a processed document whose vector index lost points: only
// the missing chunk indices are re-embedded and upserted.
func (o *Orchestrator) redrive(ctx context.Context, doc docModel.Document, log *logger_i.Logger) error {
	if doc.TotalChunks == 0 {
		return nil
	}

	count, err := o.index.CountByDocument(ctx, doc.Id)
	if err != nil {
		return fmt.Errorf("count points: %w", err)
	}
	if count == doc.TotalChunks {
		return nil
	}

	present, err := o.index.ListChunkIndices(ctx, doc.Id)
	if err != nil {
		return fmt.Errorf("list chunk indices: %w", err)
	}
	have := make(map[int]bool, len(present))
	for _, idx := range present {
		have[idx] = true
	}

	chunks := chunker.ChunkDocument(doc, o.chunkSize, o.chunkOverlap)
	for i, chunk := range chunks {
		if have[i] {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Info("re-driving missing chunk", "chunkIndex", i)
		if err := o.embedAndUpsert(ctx, chunk, log); err != nil {
			return err
		}
	}
	return nil
}

// embedAndUpsert runs one chunk through the embedder and the vector store,
// retrying each call with exponential backoff before giving up.
func (o *Orchestrator) embedAndUpsert(ctx context.Context, chunk docModel.Chunk, log *logger_i.Logger) error {
	var vector []float32
	err := o.withRetry(ctx, "embedding", log, func(callCtx context.Context) error {
		start := time.Now()
		v, err := o.embedder.GetEmbedding(callCtx, chunk.Content)
		metrics.CaptureExecutionMetrics("embedding", time.Since(start))
		if err != nil {
			return err
		}
		vector = v
		return nil
	})
	if err != nil {
		return fmt.Errorf("embed chunk %s: %w", chunk.ChunkId, err)
	}

	err = o.withRetry(ctx, "vectorDB", log, func(callCtx context.Context) error {
		start := time.Now()
		err := o.index.UpsertChunk(callCtx, chunk, vector)
		metrics.CaptureExecutionMetrics("vectorDB", time.Since(start))
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert chunk %s: %w", chunk.ChunkId, err)
	}
	return nil
}

func (o *Orchestrator) withRetry(ctx context.Context, service string, log *logger_i.Logger, call func(context.Context) error) error {
	var lastErr error
	backoff := o.backoffBase
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		callCtx, cancel := context.WithTimeout(ctx, config.StageCallTimeout)
		lastErr = call(callCtx)
		cancel()
		if lastErr == nil {
			return nil
		}

		log.Warn("service call failed", "service", service, "attempt", attempt, "error", lastErr.Error())
		if attempt == o.maxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return &docModel.TransientServiceError{Service: service, Err: lastErr}
}

// extractText pulls the raw file either from the upload spool or back out of
// the blob store, then runs the type-tagged extraction strategy.
func (o *Orchestrator) extractText(ctx context.Context, doc docModel.Document, localPath string) (string, error) {
	path := localPath
	if path == "" || !fileExists(path) {
		spooled, err := o.spoolFromBlob(ctx, doc)
		if err != nil {
			return "", err
		}
		defer os.Remove(spooled)
		path = spooled
	}
	return extract.Extract(path, doc.FileType)
}

func (o *Orchestrator) spoolFromBlob(ctx context.Context, doc docModel.Document) (string, error) {
	reader, err := o.blobs.Open(ctx, ObjectName(doc.Id, doc.Filename))
	if err != nil {
		return "", fmt.Errorf("fetch raw file: %w", err)
	}
	defer reader.Close()

	f, err := os.CreateTemp("", "respool-*"+filepath.Ext(doc.Filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("spool raw file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// fail marks the document failed even when the run context is already dead.
func (o *Orchestrator) fail(ctx context.Context, documentId string, reason string) {
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.StageCallTimeout)
	defer cancel()
	err := o.store.UpdateStatus(failCtx, documentId, docModel.StatusFailed, reason)
	if err != nil && !errors.Is(err, docModel.ErrNotFound) {
		o.logger.Error("could not mark document failed", "documentId", documentId, "error", err.Error())
	}
}

// ObjectName is the blob store key for a document's raw upload.
func ObjectName(documentId string, filename string) string {
	return fmt.Sprintf("documents/%s/%s", documentId, filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
