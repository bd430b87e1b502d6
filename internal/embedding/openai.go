package embedding

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
	"golang.org/x/sync/errgroup"

	"legalmind/internal/rag/interfaces"
)

// maxBatchSize caps how many inputs go into one embeddings request. Large
// documents are embedded as parallel batches.
const maxBatchSize = 100

// maxParallelBatches bounds the in-flight embeddings requests.
const maxParallelBatches = 4

// OpenAIModel is an embedding client for the OpenAI API.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel creates an embedding client for the given model.
func NewOpenAIModel(apiKey, modelName string) (*OpenAIModel, error) {
	config := openai.DefaultConfig(apiKey)
	client := openai.NewClientWithConfig(config)
	return &OpenAIModel{client: client, model: modelName}, nil
}

// Embed generates embedding vectors for texts, preserving input order.
func (m *OpenAIModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelBatches)

	for start := 0; start < len(texts); start += maxBatchSize {
		start := start
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		g.Go(func() error {
			resp, err := m.client.CreateEmbeddings(gctx, openai.EmbeddingRequest{
				Input: texts[start:end],
				Model: openai.EmbeddingModel(m.model),
			})
			if err != nil {
				return fmt.Errorf("failed to create embeddings: %w", err)
			}
			if len(resp.Data) != end-start {
				return fmt.Errorf("embedding batch returned %d vectors for %d inputs", len(resp.Data), end-start)
			}
			for i, d := range resp.Data {
				embeddings[start+i] = d.Embedding
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

var _ interfaces.EmbeddingModel = (*OpenAIModel)(nil)
