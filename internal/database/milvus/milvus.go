package milvus

import (
	"context"
	"fmt"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"legalmind/internal/config"
)

// Column names of the chunk collection. The schema is typed at write time:
// one canonical Milvus type per metadata field.
const (
	FieldID          = "id"
	FieldEmbedding   = "embedding"
	FieldContent     = "content"
	FieldDocumentID  = "document_id"
	FieldCompanyID   = "company_id"
	FieldFilename    = "filename"
	FieldContentType = "content_type"
	FieldChunkIndex  = "chunk_index"
)

var (
	instance *MilvusClient
	once     sync.Once
	initErr  error
)

// MilvusClient bundles the raw Milvus client with its configuration.
type MilvusClient struct {
	Client client.Client
	Config *config.MilvusConfig
}

// GetClient connects to Milvus as a singleton and makes sure the chunk
// collection exists, is indexed, and is loaded for search.
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	once.Do(func() {
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			initErr = fmt.Errorf("failed to connect to Milvus: %w", err)
			return
		}

		mc := &MilvusClient{Client: c, Config: cfg}
		if err := mc.ensureCollection(ctx); err != nil {
			initErr = err
			return
		}

		instance = mc
	})

	return instance, initErr
}

// ensureCollection creates the chunk collection and its index if missing,
// then loads it so it is immediately searchable.
func (c *MilvusClient) ensureCollection(ctx context.Context) error {
	collName := c.Config.Collection

	has, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("failed to check collection '%s': %w", collName, err)
	}

	if !has {
		schema := entity.NewSchema().
			WithName(collName).
			WithDescription("Legal document chunk embeddings").
			WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(c.Config.Dim))).
			WithField(entity.NewField().WithName(FieldContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
			WithField(entity.NewField().WithName(FieldDocumentID).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldCompanyID).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldFilename).WithDataType(entity.FieldTypeVarChar).WithMaxLength(512)).
			WithField(entity.NewField().WithName(FieldContentType).WithDataType(entity.FieldTypeVarChar).WithMaxLength(255)).
			WithField(entity.NewField().WithName(FieldChunkIndex).WithDataType(entity.FieldTypeInt64))

		if err := c.Client.CreateCollection(ctx, schema, 1); err != nil {
			return fmt.Errorf("failed to create collection '%s': %w", collName, err)
		}

		idx, err := entity.NewIndexIvfFlat(entity.COSINE, 128)
		if err != nil {
			return fmt.Errorf("failed to build index definition: %w", err)
		}
		if err := c.Client.CreateIndex(ctx, collName, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create index on '%s': %w", collName, err)
		}
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("failed to load collection '%s': %w", collName, err)
	}
	return nil
}

// Flush forces in-memory segments to be persisted.
func (c *MilvusClient) Flush(ctx context.Context) error {
	if err := c.Client.Flush(ctx, c.Config.Collection, false); err != nil {
		return fmt.Errorf("failed to flush collection '%s': %w", c.Config.Collection, err)
	}
	return nil
}

// Close releases the underlying connection.
func (c *MilvusClient) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
