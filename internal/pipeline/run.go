package pipeline

import (
	"errors"

	"github.com/akolanti/StreamAPI/internal/metrics"
)

// ErrQueueFull is returned when the run queue cannot take another document.
var ErrQueueFull = errors.New("pipeline queue is full")

// Run is one unit of pipeline work: process a single document from whatever
// stage its persisted status says it reached.
type Run struct {
	DocumentId string
	TraceId    string

	// LocalPath points at the upload handler's spool file. Empty on
	// re-drives; the orchestrator then re-fetches from the blob store.
	LocalPath string
}

type Service struct {
	RunChannel        chan Run
	DispatcherChannel chan bool
	Orchestrator      *Orchestrator
}

type ServiceConfig struct {
	RunChannel        chan Run
	DispatcherChannel chan bool
	Orchestrator      *Orchestrator
}

func InitPipelineService(cfg ServiceConfig) *Service {
	return &Service{
		RunChannel:        cfg.RunChannel,
		DispatcherChannel: cfg.DispatcherChannel,
		Orchestrator:      cfg.Orchestrator,
	}
}

// Submit reserves the document's single-flight slot and queues the run.
// A document with a run already in flight is rejected with
// ErrAlreadyProcessing rather than queued twice.
func (s *Service) Submit(run Run) error {
	if err := s.Orchestrator.Begin(run.DocumentId); err != nil {
		return err
	}

	select {
	case s.RunChannel <- run:
		metrics.IncrementRunsInQueue()
	default:
		s.Orchestrator.release(run.DocumentId)
		return ErrQueueFull
	}

	select {
	case s.DispatcherChannel <- true:
		metrics.StartDispatcherSignalCount()
	default:
	}
	return nil
}
