package processor

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"legalmind/internal/models"
	"legalmind/internal/rag/extractors"
	"legalmind/internal/rag/interfaces"
	"legalmind/internal/rag/schema"
	"legalmind/internal/storage"
	"legalmind/pkg/logger"
)

// Terminal pipeline failures. Each one moves the document to failed with the
// error recorded in its metadata.
var (
	ErrStorageConsistency = errors.New("uploaded object never became visible in storage")
	ErrDownload           = errors.New("failed to download document")
	ErrExtraction         = errors.New("failed to extract document text")
	ErrIndexing           = errors.New("failed to index document chunks")
)

// summaryPromptLimit caps how much extracted text is sent to the model for
// summarization.
const summaryPromptLimit = 4000

// DocumentStore is the relational persistence the pipeline needs.
type DocumentStore interface {
	GetDocument(ctx context.Context, id uint) (*models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	ReplaceChunks(ctx context.Context, documentID uint, chunks []models.DocumentChunk) error
}

// Processor runs uploaded documents through the full pipeline: wait for the
// object store to see the upload, download, extract, chunk, embed, index,
// summarize, finalize.
type Processor struct {
	store      DocumentStore
	objects    storage.ObjectStore
	extractors *extractors.Registry
	splitter   interfaces.Splitter
	embedder   interfaces.EmbeddingModel
	index      interfaces.VectorIndex
	model      interfaces.LLM

	waitAttempts int
	waitInterval time.Duration

	log *logger.Logger
}

// NewProcessor wires a Processor from its collaborators. waitAttempts and
// waitInterval bound the storage consistency poll.
func NewProcessor(
	store DocumentStore,
	objects storage.ObjectStore,
	registry *extractors.Registry,
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	index interfaces.VectorIndex,
	model interfaces.LLM,
	waitAttempts int,
	waitInterval time.Duration,
) *Processor {
	return &Processor{
		store:        store,
		objects:      objects,
		extractors:   registry,
		splitter:     splitter,
		embedder:     embedder,
		index:        index,
		model:        model,
		waitAttempts: waitAttempts,
		waitInterval: waitInterval,
		log:          logger.New("processor"),
	}
}

// Process runs the pipeline for one document. The document is marked
// processing before any external I/O, so observers always see the
// in-progress state. Any terminal error marks it failed and is returned;
// a failed document can be processed again.
func (p *Processor) Process(ctx context.Context, documentID uint) error {
	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to load document %d: %w", documentID, err)
	}
	log := p.log.WithField("document_id", doc.ID)

	doc.Status = models.StatusProcessing
	if err := p.store.UpdateDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to mark document %d processing: %w", doc.ID, err)
	}
	log.Info("document processing started")

	if err := p.run(ctx, doc); err != nil {
		log.WithError(err).Error("document processing failed")
		p.markFailed(ctx, doc, err)
		return err
	}

	log.WithPayload(map[string]interface{}{
		"total_chunks": doc.Metadata["total_chunks"],
	}).Info("document processing completed")
	return nil
}

func (p *Processor) run(ctx context.Context, doc *models.Document) error {
	if err := p.waitForObject(ctx, doc.ObjectKey); err != nil {
		return err
	}

	data, err := p.objects.Get(ctx, doc.ObjectKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}

	text, err := p.extractors.Extract(data, doc.ContentType)
	if err != nil {
		if errors.Is(err, extractors.ErrUnsupportedType) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if text == "" {
		return fmt.Errorf("%w: document produced no text", ErrExtraction)
	}

	fragments := p.splitter.Split(text, map[string]interface{}{
		schema.MetadataKeyDocumentID:  int64(doc.ID),
		schema.MetadataKeyCompanyID:   int64(doc.CompanyID),
		schema.MetadataKeyFilename:    doc.Filename,
		schema.MetadataKeyContentType: doc.ContentType,
	})

	chunks, err := p.indexFragments(ctx, doc, fragments)
	if err != nil {
		return err
	}

	if err := p.store.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return fmt.Errorf("failed to persist chunks for document %d: %w", doc.ID, err)
	}

	p.summarize(ctx, doc, text)

	return p.finalize(ctx, doc, text, len(chunks))
}

// waitForObject polls the object store until the uploaded object is visible.
// Object stores only guarantee eventual visibility after upload, so the
// pipeline never downloads before a successful existence check.
func (p *Processor) waitForObject(ctx context.Context, key string) error {
	for attempt := 0; attempt < p.waitAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrStorageConsistency, ctx.Err())
			case <-time.After(p.waitInterval):
			}
		}
		exists, err := p.objects.Head(ctx, key)
		if err != nil {
			p.log.WithError(err).WithField("object_key", key).Warn("object existence check failed")
			continue
		}
		if exists {
			return nil
		}
	}
	return fmt.Errorf("%w: object '%s' after %d attempts", ErrStorageConsistency, key, p.waitAttempts)
}

// indexFragments embeds every fragment and writes the vectors to the index,
// returning the chunk rows that reference the written entries.
func (p *Processor) indexFragments(ctx context.Context, doc *models.Document, fragments []schema.Fragment) ([]models.DocumentChunk, error) {
	if len(fragments) == 0 {
		return nil, nil
	}

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding: %v", ErrIndexing, err)
	}
	if len(vectors) != len(fragments) {
		return nil, fmt.Errorf("%w: embedded %d of %d fragments", ErrIndexing, len(vectors), len(fragments))
	}

	entries := make([]schema.Entry, len(fragments))
	chunks := make([]models.DocumentChunk, len(fragments))
	for i, f := range fragments {
		metadata := make(map[string]interface{}, len(f.Metadata)+1)
		for k, v := range f.Metadata {
			metadata[k] = v
		}
		metadata[schema.MetadataKeyChunkIndex] = int64(i)

		entries[i] = schema.Entry{
			ID:       uuid.New().String(),
			Vector:   vectors[i],
			Content:  f.Text,
			Metadata: metadata,
		}
		chunks[i] = models.DocumentChunk{
			DocumentID:  doc.ID,
			Content:     f.Text,
			ChunkIndex:  i,
			EmbeddingID: entries[i].ID,
			Metadata:    datatypes.JSONMap(metadata),
		}
	}

	if err := p.index.Add(ctx, entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexing, err)
	}
	return chunks, nil
}

// summarize asks the model for a short summary. Summaries are best effort:
// a generation failure leaves a placeholder on the document and never fails
// the run.
func (p *Processor) summarize(ctx context.Context, doc *models.Document, text string) {
	excerpt := text
	if utf8.RuneCountInString(excerpt) > summaryPromptLimit {
		excerpt = string([]rune(excerpt)[:summaryPromptLimit])
	}
	prompt := fmt.Sprintf(
		"Summarize the following legal document in a few sentences. Focus on the parties, the subject matter, and the key obligations.\n\nDocument: %s\n\n%s",
		doc.Filename, excerpt,
	)

	summary, err := p.model.Generate(ctx, prompt)
	if err != nil {
		p.log.WithError(err).WithField("document_id", doc.ID).Warn("summary generation failed")
		doc.Summary = fmt.Sprintf("Summary generation failed: %v", err)
		return
	}
	doc.Summary = summary
}

func (p *Processor) finalize(ctx context.Context, doc *models.Document, text string, totalChunks int) error {
	now := time.Now()
	// The metadata describes this run only; replacing it drops leftovers
	// from an earlier failed attempt.
	doc.Metadata = datatypes.JSONMap{
		"total_chunks":            totalChunks,
		"total_characters":        utf8.RuneCountInString(text),
		"processing_completed_at": now.Format(time.RFC3339),
	}
	doc.Status = models.StatusCompleted
	doc.ProcessedAt = &now

	if err := p.store.UpdateDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to finalize document %d: %w", doc.ID, err)
	}
	return nil
}

// markFailed records the terminal error on the document. The update itself is
// best effort; a persistence failure here is only logged.
func (p *Processor) markFailed(ctx context.Context, doc *models.Document, cause error) {
	doc.Metadata = datatypes.JSONMap{
		"error":     cause.Error(),
		"failed_at": time.Now().Format(time.RFC3339),
	}
	doc.Status = models.StatusFailed

	if err := p.store.UpdateDocument(ctx, doc); err != nil {
		p.log.WithError(err).WithField("document_id", doc.ID).Error("failed to record document failure")
	}
}
