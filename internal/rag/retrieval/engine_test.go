package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalmind/internal/rag/schema"
	"legalmind/pkg/logger"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type fakeIndex struct {
	query func(filter *schema.Filter) ([]schema.Match, error)
	get   func(filter *schema.Filter) ([]schema.Match, error)
}

func (f *fakeIndex) Add(context.Context, []schema.Entry) error { return nil }

func (f *fakeIndex) Query(_ context.Context, _ []float32, _ int, filter *schema.Filter) ([]schema.Match, error) {
	return f.query(filter)
}

func (f *fakeIndex) Get(_ context.Context, filter *schema.Filter) ([]schema.Match, error) {
	return f.get(filter)
}

func (f *fakeIndex) Delete(context.Context, *schema.Filter) error { return nil }

func chunk(id string, docID, companyID int64, index int64, distance float32) schema.Match {
	return schema.Match{
		ID:       id,
		Content:  "content " + id,
		Distance: distance,
		Metadata: map[string]interface{}{
			schema.MetadataKeyDocumentID: docID,
			schema.MetadataKeyCompanyID:  companyID,
			schema.MetadataKeyFilename:   "contract.pdf",
			schema.MetadataKeyChunkIndex: index,
		},
	}
}

// companyIDType tells the two query encodings apart in fakes.
func companyIDType(filter *schema.Filter) string {
	if filter == nil {
		return "none"
	}
	switch filter.Equals[schema.MetadataKeyCompanyID].(type) {
	case int64:
		return "numeric"
	case string:
		return "string"
	default:
		return "none"
	}
}

func newTestEngine(index *fakeIndex) *Engine {
	return NewEngine(&fakeEmbedder{}, index, 6, logger.New("test"))
}

func TestRetrieveMergesAndDeduplicatesEncodings(t *testing.T) {
	a := chunk("a", 1, 42, 0, 0.1)
	b := chunk("b", 1, 42, 1, 0.3)
	index := &fakeIndex{
		query: func(filter *schema.Filter) ([]schema.Match, error) {
			switch companyIDType(filter) {
			case "numeric":
				return []schema.Match{a}, nil
			case "string":
				return []schema.Match{b, a}, nil
			}
			return nil, nil
		},
	}

	passages, err := newTestEngine(index).Retrieve(context.Background(), "q", 5, 42, nil)
	require.NoError(t, err)
	require.Len(t, passages, 2)

	assert.Equal(t, "a", passages[0].ChunkID, "highest score first")
	assert.Equal(t, "b", passages[1].ChunkID)
	assert.InDelta(t, 0.9, passages[0].Score, 1e-6)
	assert.InDelta(t, 0.7, passages[1].Score, 1e-6)
}

func TestRetrieveFallsBackToUnfilteredWhenBothEncodingsFail(t *testing.T) {
	ours := chunk("ours", 1, 42, 0, 0.2)
	theirs := chunk("theirs", 9, 99, 0, 0.1)
	index := &fakeIndex{
		query: func(filter *schema.Filter) ([]schema.Match, error) {
			if filter != nil {
				return nil, errors.New("field type mismatch")
			}
			return []schema.Match{theirs, ours}, nil
		},
	}

	passages, err := newTestEngine(index).Retrieve(context.Background(), "q", 5, 42, nil)
	require.NoError(t, err)
	require.Len(t, passages, 1, "foreign-company results must be filtered out")
	assert.Equal(t, "ours", passages[0].ChunkID)
	assert.Equal(t, uint(1), passages[0].DocumentID)
}

func TestRetrieveTotalFailureIsEmptyNotError(t *testing.T) {
	index := &fakeIndex{
		query: func(*schema.Filter) ([]schema.Match, error) {
			return nil, errors.New("index unavailable")
		},
	}

	passages, err := newTestEngine(index).Retrieve(context.Background(), "q", 5, 42, nil)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestRetrieveForcedContextOnEmptySearch(t *testing.T) {
	byDoc := map[int64][]schema.Match{
		7: {
			chunk("7-2", 7, 42, 2, 0),
			chunk("7-0", 7, 42, 0, 0),
			chunk("7-1", 7, 42, 1, 0),
			chunk("7-3", 7, 42, 3, 0),
		},
		3: {
			chunk("3-0", 3, 42, 0, 0),
			chunk("3-1", 3, 42, 1, 0),
			chunk("3-2", 3, 42, 2, 0),
		},
	}
	index := &fakeIndex{
		query: func(*schema.Filter) ([]schema.Match, error) { return nil, nil },
		get: func(filter *schema.Filter) ([]schema.Match, error) {
			if filter == nil {
				return nil, errors.New("unfiltered get not expected")
			}
			if id, ok := filter.Equals[schema.MetadataKeyDocumentID].(int64); ok {
				return byDoc[id], nil
			}
			return nil, fmt.Errorf("unexpected filter %v", filter.Equals)
		},
	}

	passages, err := newTestEngine(index).Retrieve(context.Background(), "q", 5, 42, []uint{7, 3})
	require.NoError(t, err)
	require.Len(t, passages, 6, "fallback is capped across all documents")

	ids := make([]string, len(passages))
	for i, p := range passages {
		ids[i] = p.ChunkID
		assert.Equal(t, 1.0, p.Score, "forced passages carry score 1.0")
	}
	assert.Equal(t, []string{"7-0", "7-1", "7-2", "7-3", "3-0", "3-1"}, ids,
		"requested document order, chunk order within a document")
}

func TestRetrieveForcedContextUsesStringEncodingWhenNumericFails(t *testing.T) {
	index := &fakeIndex{
		query: func(*schema.Filter) ([]schema.Match, error) { return nil, nil },
		get: func(filter *schema.Filter) ([]schema.Match, error) {
			switch v := filter.Equals[schema.MetadataKeyDocumentID].(type) {
			case int64:
				return nil, errors.New("field type mismatch")
			case string:
				if v == "7" {
					return []schema.Match{chunk("7-0", 7, 42, 0, 0)}, nil
				}
			}
			return nil, nil
		},
	}

	passages, err := newTestEngine(index).Retrieve(context.Background(), "q", 5, 42, []uint{7})
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, "7-0", passages[0].ChunkID)
}

func TestRetrieveNoFallbackWithoutRequestedDocuments(t *testing.T) {
	index := &fakeIndex{
		query: func(*schema.Filter) ([]schema.Match, error) { return nil, nil },
		get: func(*schema.Filter) ([]schema.Match, error) {
			t.Fatal("direct chunk listing must not run without requested documents")
			return nil, nil
		},
	}

	passages, err := newTestEngine(index).Retrieve(context.Background(), "q", 5, 42, nil)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestSimilarityClampsToUnitInterval(t *testing.T) {
	assert.Equal(t, 0.0, similarity(1.5))
	assert.Equal(t, 1.0, similarity(-0.5))
	assert.InDelta(t, 0.75, similarity(0.25), 1e-6)
}

func TestRetrieveScopesToRequestedDocuments(t *testing.T) {
	index := &fakeIndex{
		query: func(filter *schema.Filter) ([]schema.Match, error) {
			if companyIDType(filter) != "numeric" {
				return nil, nil
			}
			// An index entry outside the requested set slipping through the
			// filter must still be dropped.
			return []schema.Match{
				chunk("in", 7, 42, 0, 0.2),
				chunk("out", 8, 42, 0, 0.1),
			}, nil
		},
	}

	passages, err := newTestEngine(index).Retrieve(context.Background(), "q", 5, 42, []uint{7})
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, "in", passages[0].ChunkID)
}
