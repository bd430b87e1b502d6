package processor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"legalmind/internal/models"
	"legalmind/internal/rag/extractors"
	"legalmind/internal/rag/schema"
	"legalmind/internal/rag/splitters"
)

type fakeDocStore struct {
	doc       *models.Document
	chunks    []models.DocumentChunk
	statusLog []models.DocumentStatus
}

func (s *fakeDocStore) GetDocument(_ context.Context, id uint) (*models.Document, error) {
	if s.doc == nil || s.doc.ID != id {
		return nil, errors.New("record not found")
	}
	return s.doc, nil
}

func (s *fakeDocStore) UpdateDocument(_ context.Context, doc *models.Document) error {
	s.doc = doc
	s.statusLog = append(s.statusLog, doc.Status)
	return nil
}

func (s *fakeDocStore) ReplaceChunks(_ context.Context, _ uint, chunks []models.DocumentChunk) error {
	s.chunks = chunks
	return nil
}

type fakeObjects struct {
	data         map[string][]byte
	getErr       error
	headCalls    int
	headFailures int
}

func (o *fakeObjects) Head(_ context.Context, key string) (bool, error) {
	o.headCalls++
	if o.headCalls <= o.headFailures {
		return false, errors.New("transient stat failure")
	}
	_, ok := o.data[key]
	return ok, nil
}

func (o *fakeObjects) Get(_ context.Context, key string) ([]byte, error) {
	if o.getErr != nil {
		return nil, o.getErr
	}
	data, ok := o.data[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (o *fakeObjects) Put(_ context.Context, key string, data []byte, _ string) error {
	o.data[key] = data
	return nil
}

func (o *fakeObjects) Remove(_ context.Context, key string) error {
	delete(o.data, key)
	return nil
}

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type fakeIndex struct {
	entries []schema.Entry
	addErr  error
}

func (f *fakeIndex) Add(_ context.Context, entries []schema.Entry) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeIndex) Query(context.Context, []float32, int, *schema.Filter) ([]schema.Match, error) {
	return nil, nil
}
func (f *fakeIndex) Get(context.Context, *schema.Filter) ([]schema.Match, error) { return nil, nil }
func (f *fakeIndex) Delete(context.Context, *schema.Filter) error                { return nil }

type fakeModel struct {
	reply string
	err   error
}

func (f *fakeModel) Generate(context.Context, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestDoc() *models.Document {
	return &models.Document{
		ID:          1,
		CompanyID:   42,
		Filename:    "contract.txt",
		ObjectKey:   "uploads/key_contract.txt",
		ContentType: "text/plain",
		Status:      models.StatusPending,
	}
}

func newTestProcessor(st *fakeDocStore, objects *fakeObjects, index *fakeIndex, model *fakeModel, attempts int) *Processor {
	return NewProcessor(
		st,
		objects,
		extractors.NewRegistry(),
		splitters.NewCharacterSplitter(100, 20),
		&fakeEmbedder{},
		index,
		model,
		attempts,
		time.Millisecond,
	)
}

func TestProcessHappyPath(t *testing.T) {
	text := strings.Repeat("The supplier shall deliver the goods on time. ", 10)
	st := &fakeDocStore{doc: newTestDoc()}
	objects := &fakeObjects{data: map[string][]byte{st.doc.ObjectKey: []byte(text)}}
	index := &fakeIndex{}
	model := &fakeModel{reply: "A supply agreement."}

	err := newTestProcessor(st, objects, index, model, 3).Process(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, models.StatusProcessing, st.statusLog[0], "processing is marked before any I/O")
	assert.Equal(t, models.StatusCompleted, st.doc.Status)
	require.NotNil(t, st.doc.ProcessedAt)
	assert.Equal(t, "A supply agreement.", st.doc.Summary)

	require.NotEmpty(t, st.chunks)
	assert.Len(t, index.entries, len(st.chunks))
	for i, chunk := range st.chunks {
		assert.Equal(t, i, chunk.ChunkIndex, "chunk indices are contiguous from 0")
		assert.Equal(t, uint(1), chunk.DocumentID)
		assert.Equal(t, index.entries[i].ID, chunk.EmbeddingID)
		assert.Equal(t, index.entries[i].Content, chunk.Content)
		assert.Equal(t, int64(i), index.entries[i].Metadata[schema.MetadataKeyChunkIndex])
		assert.Equal(t, int64(1), index.entries[i].Metadata[schema.MetadataKeyDocumentID])
		assert.Equal(t, int64(42), index.entries[i].Metadata[schema.MetadataKeyCompanyID])
	}

	assert.Equal(t, len(st.chunks), st.doc.Metadata["total_chunks"])
	assert.Equal(t, len([]rune(text)), st.doc.Metadata["total_characters"])
	assert.Contains(t, st.doc.Metadata, "processing_completed_at")
}

func TestProcessStorageConsistencyTimeout(t *testing.T) {
	st := &fakeDocStore{doc: newTestDoc()}
	objects := &fakeObjects{data: map[string][]byte{}}

	err := newTestProcessor(st, objects, &fakeIndex{}, &fakeModel{}, 3).Process(context.Background(), 1)
	require.ErrorIs(t, err, ErrStorageConsistency)

	assert.Equal(t, 3, objects.headCalls)
	assert.Equal(t, models.StatusFailed, st.doc.Status)
	assert.Contains(t, st.doc.Metadata["error"], "never became visible")
	assert.Contains(t, st.doc.Metadata, "failed_at")
}

func TestProcessDownloadFailure(t *testing.T) {
	st := &fakeDocStore{doc: newTestDoc()}
	objects := &fakeObjects{
		data:   map[string][]byte{st.doc.ObjectKey: []byte("text")},
		getErr: errors.New("connection reset"),
	}

	err := newTestProcessor(st, objects, &fakeIndex{}, &fakeModel{}, 3).Process(context.Background(), 1)
	require.ErrorIs(t, err, ErrDownload)
	assert.Equal(t, models.StatusFailed, st.doc.Status)
}

func TestProcessUnsupportedContentType(t *testing.T) {
	st := &fakeDocStore{doc: newTestDoc()}
	st.doc.ContentType = "application/zip"
	objects := &fakeObjects{data: map[string][]byte{st.doc.ObjectKey: []byte("PK...")}}

	err := newTestProcessor(st, objects, &fakeIndex{}, &fakeModel{}, 3).Process(context.Background(), 1)
	require.ErrorIs(t, err, extractors.ErrUnsupportedType)
	assert.Equal(t, models.StatusFailed, st.doc.Status)
}

func TestProcessEmptyExtractionFails(t *testing.T) {
	st := &fakeDocStore{doc: newTestDoc()}
	objects := &fakeObjects{data: map[string][]byte{st.doc.ObjectKey: []byte("")}}

	err := newTestProcessor(st, objects, &fakeIndex{}, &fakeModel{}, 3).Process(context.Background(), 1)
	require.ErrorIs(t, err, ErrExtraction)
	assert.Equal(t, models.StatusFailed, st.doc.Status)
}

func TestProcessIndexingFailure(t *testing.T) {
	st := &fakeDocStore{doc: newTestDoc()}
	objects := &fakeObjects{data: map[string][]byte{st.doc.ObjectKey: []byte("some legal text")}}
	index := &fakeIndex{addErr: errors.New("collection not loaded")}

	err := newTestProcessor(st, objects, index, &fakeModel{}, 3).Process(context.Background(), 1)
	require.ErrorIs(t, err, ErrIndexing)
	assert.Equal(t, models.StatusFailed, st.doc.Status)
}

func TestProcessSummaryFailureStillCompletes(t *testing.T) {
	st := &fakeDocStore{doc: newTestDoc()}
	objects := &fakeObjects{data: map[string][]byte{st.doc.ObjectKey: []byte("some legal text")}}
	model := &fakeModel{err: errors.New("rate limited")}

	err := newTestProcessor(st, objects, &fakeIndex{}, model, 3).Process(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, st.doc.Status)
	assert.Equal(t, "Summary generation failed: rate limited", st.doc.Summary)
}

func TestProcessRetryAfterFailure(t *testing.T) {
	st := &fakeDocStore{doc: newTestDoc()}
	st.doc.Status = models.StatusFailed
	st.doc.Metadata = datatypes.JSONMap{"error": "old failure", "failed_at": "2026-01-01T00:00:00Z"}
	objects := &fakeObjects{data: map[string][]byte{st.doc.ObjectKey: []byte("some legal text")}}

	err := newTestProcessor(st, objects, &fakeIndex{}, &fakeModel{reply: "ok"}, 3).Process(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, st.doc.Status)

	assert.NotContains(t, st.doc.Metadata, "error",
		"a successful run must not report the previous failure")
	assert.NotContains(t, st.doc.Metadata, "failed_at")
	assert.Contains(t, st.doc.Metadata, "total_chunks")
}

func TestProcessUnknownDocument(t *testing.T) {
	st := &fakeDocStore{}
	err := newTestProcessor(st, &fakeObjects{data: map[string][]byte{}}, &fakeIndex{}, &fakeModel{}, 1).Process(context.Background(), 99)
	require.Error(t, err)
	assert.Empty(t, st.statusLog)
}

func TestWaitForObjectSurvivesTransientHeadErrors(t *testing.T) {
	st := &fakeDocStore{doc: newTestDoc()}
	objects := &fakeObjects{
		data:         map[string][]byte{st.doc.ObjectKey: []byte("text")},
		headFailures: 2,
	}

	err := newTestProcessor(st, objects, &fakeIndex{}, &fakeModel{reply: "ok"}, 5).Process(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, st.doc.Status)
	assert.Equal(t, 3, objects.headCalls)
}
