package worker

import (
	"context"
	"sync/atomic"

	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/internal/metrics"
	"github.com/akolanti/StreamAPI/internal/pipeline"
)

func executeRun(run pipeline.Run) {
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, run.TraceId)
	logger.Debug("Processing pipeline run", "documentId", run.DocumentId, "traceId", run.TraceId)

	// Execute owns the run timeout and releases the single-flight slot.
	_pipelineService.Orchestrator.Execute(ctx, run)
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker ", "reason", reason, "workerCount", currentWorkerCount)
	metrics.DecrementActiveWorkerCount()
}
