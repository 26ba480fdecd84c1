// @title           StreamAPI
// @version         1.0
// @description     Live transcription fan-out and async document ingestion
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/internal/data/blobStore"
	"github.com/akolanti/StreamAPI/internal/data/docStore"
	"github.com/akolanti/StreamAPI/internal/data/store"
	"github.com/akolanti/StreamAPI/internal/handlers"
	"github.com/akolanti/StreamAPI/internal/pipeline"
	"github.com/akolanti/StreamAPI/internal/rag/embedding"
	"github.com/akolanti/StreamAPI/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/StreamAPI/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/StreamAPI/internal/rag/vectorDB"
	"github.com/akolanti/StreamAPI/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/StreamAPI/internal/server"
	"github.com/akolanti/StreamAPI/internal/stream"
	"github.com/akolanti/StreamAPI/internal/worker"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
)

var (
	listenAddr        string
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//stream side: registry + router + rolling transcript store
	registry := stream.NewRegistry()
	var transcripts stream.TranscriptStore
	if transcriptStore := store.GetRedisTranscriptStore(serviceContext); transcriptStore != nil {
		transcripts = transcriptStore
	} else {
		logger.Error("Redis is offline - transcript read API will be unavailable")
	}
	eventRouter := stream.NewRouter(registry, transcripts)

	//document side: system of record + raw files + vector index + embedder
	var documents docStore.DocumentStore
	if pg, err := docStore.NewPostgresStore(serviceContext); err != nil {
		logger.Error("Postgres is offline - falling back to the in-memory document store", "error", err.Error())
		documents = docStore.InitInMemoryDocStore()
	} else {
		documents = pg
	}

	var blobs blobStore.BlobStore
	if gcs, err := blobStore.NewGCSStore(serviceContext); err != nil {
		logger.Error("GCS is unavailable - falling back to local blob storage", "error", err.Error())
		local, localErr := blobStore.NewLocalStore(config.SpoolDir + "/blobs")
		if localErr != nil {
			logger.Error("Could not initialize local blob storage. Shutting down.", "error", localErr.Error())
			return
		}
		blobs = local
	} else {
		blobs = gcs
	}

	var chunkIndex vectorDB.ChunkIndex
	if qdrantClient := qdrantDB.GetQuadrantClient(serviceContext); qdrantClient != nil {
		chunkIndex = qdrantClient
	}

	var embedder embedding.Embedder
	switch config.EmbeddingProvider {
	case "openai":
		embedder = openaiEmbedding.GetOpenAIEmbeddingClient(config.OpenAIAPIKey, config.OpenAIEmbeddingModel)
	default:
		embedder = googleEmbedding.GetGoogleEmbeddingClient(serviceContext, config.GoogleEmbeddingModel, config.GoogleEmbeddingAPIKey)
	}

	if chunkIndex == nil || embedder == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "VectorDB", chunkIndex != nil, "EmbeddingService", embedder != nil)
		return
	}
	if err := chunkIndex.EnsureCollection(serviceContext); err != nil {
		logger.Error("Could not ensure the chunk collection. Shutting down.", "error", err.Error())
		return
	}

	//pipeline service + worker pool
	orchestrator := pipeline.NewOrchestrator(documents, blobs, chunkIndex, embedder)
	pipelineService := pipeline.InitPipelineService(pipeline.ServiceConfig{
		RunChannel:        make(chan pipeline.Run, config.PipelineQueueLimit),
		DispatcherChannel: make(chan bool, 1),
		Orchestrator:      orchestrator,
	})
	stopWorkerChannel = make(chan bool, 1)
	worker.InitServices(pipelineService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//reconciler sweeps for stalled runs and index drift
	reconciler := pipeline.NewReconciler(documents, chunkIndex, pipelineService.Submit, config.ReconcileInterval, config.StaleThreshold)
	reconciler.Start(serviceContext)

	handlers.InitStreamHandlers(eventRouter, registry, transcripts)
	handlers.InitDocumentHandler(documents, blobs, chunkIndex, pipelineService)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
