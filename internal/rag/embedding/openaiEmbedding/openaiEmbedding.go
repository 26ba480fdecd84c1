package openaiEmbedding

import (
	"context"
	"errors"
	"sync"

	"github.com/akolanti/StreamAPI/internal/config"
	"github.com/akolanti/StreamAPI/internal/customHttpClient"
	"github.com/akolanti/StreamAPI/internal/rag/embedding"
	"github.com/akolanti/StreamAPI/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client

type client struct {
	openai *openai.Client
	model  string
}

func GetOpenAIEmbeddingClient(apikey string, modelName string) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("openai_embedding")
		if apikey == "" {
			logger.Error("OpenAI API key is empty")
			return
		}
		c := openai.NewClient(
			option.WithAPIKey(apikey),
			option.WithHTTPClient(customHttpClient.Client()),
		)
		embeddingClient = &client{openai: &c, model: modelName}
		logger.Info("OpenAI Embedding client created", "model", modelName)
	})

	if embeddingClient == nil {
		return nil
	}
	return embeddingClient
}

func (c *client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.openai.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{text}},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: openai.Int(int64(config.EmbeddingOutputDimensionality)),
	})
	if err != nil {
		logger.Error("Error getting Embedding from OpenAI", "error", err.Error())
		return nil, err
	}
	if len(resp.Data) == 0 {
		logger.Error("OpenAI returned no embeddings")
		return nil, errors.New("empty embedding response")
	}
	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}
