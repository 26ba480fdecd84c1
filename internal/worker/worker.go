package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/internal/metrics"
	"github.com/akolanti/StreamAPI/internal/pipeline"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
)

var (
	_pipelineService   *pipeline.Service
	stopWorkerChannel  chan bool
	workerWaitGroup    *sync.WaitGroup
	dispatcherChannel  chan bool
	currentWorkerCount int64
	logger             *logger_i.Logger
	minWorkerCount     = config.MinWorkerCount
)

func InitServices(pipelineService *pipeline.Service) {
	_pipelineService = pipelineService
	dispatcherChannel = pipelineService.DispatcherChannel
}

func InitWorkerPool(stopWorkerChan chan bool, waitGroup *sync.WaitGroup) {
	stopWorkerChannel = stopWorkerChan
	workerWaitGroup = waitGroup
	logger = logger_i.NewLogger("WorkerPool")
	logger.Info("Initializing worker pool")
	go dispatcher()
}

func dispatcher() {
	createWorker()
	logger.Info("Dispatcher started")
	for range dispatcherChannel {
		if atomic.LoadInt64(&currentWorkerCount) < config.MaxWorkerCount {
			logger.Info("Creating new worker", "WorkerCount :", currentWorkerCount)
			createWorker()
		}
	}
}

func createWorker() {
	workerWaitGroup.Add(1)
	go worker()
	atomic.AddInt64(&currentWorkerCount, 1)
	metrics.IncrementActiveWorkerCount()
	logger.Info("Created new worker")
}

func worker() {
	for {
		select {
		case run := <-_pipelineService.RunChannel:
			executeRun(run)
			metrics.DecrementRunsInQueue()

		case <-stopWorkerChannel:
			removeWorker("Stop worker signal received")
			return

		case <-time.After(config.IdleWorkerTimeout):
			// Worker was idle for too long, decrement counter and retire
			if canRetireIdleWorker() {
				removeWorker("Idle worker timeout - Removed worker")
				return
			}
		}
	}
}

// canRetireIdleWorker keeps the pool at its floor; only surplus workers
// retire on idle timeout.
func canRetireIdleWorker() bool {
	return atomic.LoadInt64(&currentWorkerCount) > minWorkerCount
}
