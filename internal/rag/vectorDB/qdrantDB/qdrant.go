package qdrantDB

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/internal/domain/docModel"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

var logger *logger_i.Logger
var quadrantInstance *qdrant.Client
var once sync.Once
var dimension = uint64(config.EmbeddingOutputDimensionality)
var collectionName = config.ChunkCollectionName

// qdrant point ids must be UUIDs; chunk ids stay deterministic by hashing
// them into the same UUID every time.
var chunkIdNamespace = uuid.MustParse("9a7c5d7e-40bb-4fcb-a3f1-1c52e1a0b7d4")

type ClientHolder struct {
	QObj *qdrant.Client
}

func GetQuadrantClient(ctx context.Context) *ClientHolder {
	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res := newClient(ctx)
		if res != nil {
			quadrantInstance = res
			go closeQdrant(ctx, quadrantInstance)
		}
	})

	if quadrantInstance == nil {
		return nil
	}
	return &ClientHolder{
		QObj: quadrantInstance,
	}
}

func newClient(ctx context.Context) *qdrant.Client {
	host := os.Getenv("QDRANT_HOST")
	port, er := strconv.Atoi(os.Getenv("QDRANT_PORT"))

	if host == "" || er != nil {
		host = config.QdrantHost
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate: ", "error:", err)
		return nil
	}

	err = createCollection(ctx, client, collectionName)
	if err != nil {
		logger.Error("could not create collection: ", "collectionName", collectionName, "error:", err)
		return nil
	}

	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	err := qi.Close()
	if err != nil {
		logger.Error("could not close Qdrant: ", "error:", err)
	}
	logger.Info("Closed Qdrant")
}

func (db *ClientHolder) EnsureCollection(ctx context.Context) error {
	return createCollection(ctx, db.QObj, collectionName)
}

func (db *ClientHolder) UpsertChunk(ctx context.Context, chunk docModel.Chunk, vector []float32) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(uuid.NewSHA1(chunkIdNamespace, []byte(chunk.ChunkId)).String()),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			"chunk_id":     chunk.ChunkId,
			"content":      chunk.Content,
			"filename":     chunk.Metadata.Filename,
			"file_type":    string(chunk.Metadata.FileType),
			"document_id":  chunk.Metadata.DocumentId,
			"chunk_index":  chunk.Metadata.ChunkIndex,
			"total_chunks": chunk.Metadata.TotalChunks,
			"user_id":      chunk.Metadata.UserId,
		}),
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points:         []*qdrant.PointStruct{point},
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (db *ClientHolder) CountByDocument(ctx context.Context, documentId string) (int, error) {
	count, err := db.QObj.Count(ctx, &qdrant.CountPoints{
		CollectionName: collectionName,
		Filter:         documentFilter(documentId),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count failed: %w", err)
	}
	return int(count), nil
}

func (db *ClientHolder) ListChunkIndices(ctx context.Context, documentId string) ([]int, error) {
	points, err := db.QObj.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collectionName,
		Filter:         documentFilter(documentId),
		Limit:          qdrant.PtrOf(uint32(10000)),
		WithPayload:    qdrant.NewWithPayloadInclude("chunk_index"),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant scroll failed: %w", err)
	}

	indices := make([]int, 0, len(points))
	for _, point := range points {
		indices = append(indices, int(point.Payload["chunk_index"].GetIntegerValue()))
	}
	return indices, nil
}

func (db *ClientHolder) DeleteByDocument(ctx context.Context, documentId string) error {
	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collectionName,
		Points:         qdrant.NewPointsSelectorFilter(documentFilter(documentId)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

func documentFilter(documentId string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("document_id", documentId),
		},
	}
}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string) error {
	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
}
