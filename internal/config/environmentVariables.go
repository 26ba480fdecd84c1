package config

import (
	"log/slog"
	"time"
)

type OverflowPolicyType string

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"
	NoAuthBypass   = true
	AuthToken      = ""

	RATE_LIMIT_PER_SECOND       = 50
	BURST_RATE_LIMIT_PER_SECOND = 100

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":8000"

	//stream fan-out
	//each subscriber gets its own bounded outbound queue - a slow client
	//only loses its own events, never blocks the webhook caller
	SubscriberQueueLimit                    = 64
	OverflowDropOldest   OverflowPolicyType = "drop-oldest"
	OverflowDisconnect   OverflowPolicyType = "disconnect"
	OverflowPolicy                          = OverflowDropOldest
	WebsocketWriteWait                      = 10 * time.Second
	WebsocketPongWait                       = 60 * time.Second

	//document pipeline
	PipelineQueueLimit        = 100
	RequestsPerNewWorkerCount = int64(1)
	MaxWorkerCount            = int64(4) //sized for the embedding service rate limit
	MinWorkerCount            = int64(1)
	IdleWorkerTimeout         = 1 * time.Minute
	PipelineRunTimeout        = 10 * time.Minute
	StageCallTimeout          = 60 * time.Second

	//extraction
	PageExtractTimeout = 10 * time.Second
	SpoolDir           = "/tmp/streamapi-uploads"

	//chunking - identical parameters must always yield identical chunk ids
	ChunkSize    = 1000
	ChunkOverlap = 150

	//per-chunk retry
	EmbedMaxAttempts = 3
	EmbedBackoffBase = 500 * time.Millisecond

	//reconciler
	ReconcileInterval = 60 * time.Second
	StaleThreshold    = 5 * time.Minute

	//vectorDB
	EmbeddingOutputDimensionality int32 = 1536
	ChunkCollectionName                 = "document-chunks"
	QdrantConnectionTimeout             = 30 * time.Second
	QdrantHost                          = ""
	QdrantGrpcPort                      = 6334
	QdrantUseTLS                        = false
	QdrantPoolSize                      = 1
	QdrantKeepAliveTimeout              = 30 * time.Second

	//embeddings
	EmbeddingProvider     = "google" //or "openai"
	GoogleEmbeddingModel  = "gemini-embedding-001"
	GoogleEmbeddingAPIKey = ""
	OpenAIEmbeddingModel  = "text-embedding-3-small"
	OpenAIAPIKey          = ""

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//relational store - system of record for document metadata
	DatabaseURL = "postgres://localhost:5432/streamapi"

	//blob storage for raw uploads
	GCSBucket = "streamapi-uploads"

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	RedisPassword = ""

	//redis has 16 DB we can use
	RedisTranscriptStore = 0

	RedisTranscriptTTL = 24 * time.Hour
)
