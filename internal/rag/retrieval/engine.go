package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"legalmind/internal/rag/interfaces"
	"legalmind/internal/rag/schema"
	"legalmind/pkg/logger"
)

// forcedScore marks a passage included by the guaranteed-context fallback
// rather than ranked by similarity.
const forcedScore = 1.0

// Engine executes similarity queries against the vector index with company
// and document scoping.
//
// Metadata may have been written with inconsistent scalar types by older
// write paths, and the index filters by exact type match. The engine
// therefore issues every logical query twice, once with identifiers encoded
// as native integers and once as strings, merges both result sets and
// deduplicates by entry id. If both encodings fail, it degrades to an
// unfiltered query with the intended filter re-applied on stringified
// values. Total failure of all three surfaces as an empty result set, which
// in turn triggers the direct chunk-listing fallback for explicitly
// requested documents.
type Engine struct {
	embedder      interfaces.EmbeddingModel
	index         interfaces.VectorIndex
	fallbackLimit int
	log           *logger.Logger
}

// NewEngine creates a retrieval engine. fallbackLimit caps the total number
// of chunks the forced-context fallback may return across all requested
// documents combined.
func NewEngine(embedder interfaces.EmbeddingModel, index interfaces.VectorIndex, fallbackLimit int, log *logger.Logger) *Engine {
	if fallbackLimit <= 0 {
		fallbackLimit = 6
	}
	return &Engine{
		embedder:      embedder,
		index:         index,
		fallbackLimit: fallbackLimit,
		log:           log,
	}
}

// Retrieve returns the passages backing an answer to query, scoped to
// companyID and optionally restricted to documentIDs.
//
// Ranked results are ordered by descending score. When the semantic search
// returns nothing and documentIDs were supplied, chunks of those documents
// are force-included in requested-id order with score 1.0, so explicitly
// requested documents always contribute context.
func (e *Engine) Retrieve(ctx context.Context, query string, k int, companyID uint, documentIDs []uint) ([]schema.Passage, error) {
	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding returned no vector for query")
	}

	passages := e.search(ctx, vectors[0], k, companyID, documentIDs)
	if len(passages) == 0 && len(documentIDs) > 0 {
		return e.forcedContext(ctx, documentIDs), nil
	}
	return passages, nil
}

// search runs the dual-encoding filtered search and merges the results.
func (e *Engine) search(ctx context.Context, vector []float32, k int, companyID uint, documentIDs []uint) []schema.Passage {
	var resultSets [][]schema.Match
	failures := 0

	for _, filter := range []*schema.Filter{
		numericFilter(companyID, documentIDs),
		stringFilter(companyID, documentIDs),
	} {
		matches, err := e.index.Query(ctx, vector, k, filter)
		if err != nil {
			// One encoding failing is expected with a typed index; the
			// other encoding or the unfiltered fallback covers it.
			e.log.WithError(err).Debug("Filtered vector query failed for one encoding")
			failures++
			continue
		}
		resultSets = append(resultSets, matches)
	}

	if failures == 2 {
		matches, err := e.index.Query(ctx, vector, k, nil)
		if err != nil {
			e.log.WithError(err).Warn("Unfiltered vector query failed; returning empty result set")
			return nil
		}
		resultSets = append(resultSets, matches)
	}

	seen := make(map[string]struct{})
	var passages []schema.Passage
	for _, matches := range resultSets {
		for _, m := range matches {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			// Re-apply the intended scoping post-query; the unfiltered
			// fallback depends on it and it is harmless otherwise.
			if !matchesScope(m.Metadata, companyID, documentIDs) {
				continue
			}
			passages = append(passages, passageFrom(m, similarity(m.Distance)))
		}
	}

	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})
	return passages
}

// forcedContext lists chunks of the requested documents directly, in the
// order the ids were supplied, stopping at the fallback limit even
// mid-document to bound prompt size.
func (e *Engine) forcedContext(ctx context.Context, documentIDs []uint) []schema.Passage {
	seen := make(map[string]struct{})
	var passages []schema.Passage

	for _, docID := range documentIDs {
		if len(passages) >= e.fallbackLimit {
			break
		}
		for _, m := range e.documentChunks(ctx, docID) {
			if len(passages) >= e.fallbackLimit {
				break
			}
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			passages = append(passages, passageFrom(m, forcedScore))
		}
	}
	return passages
}

// documentChunks retrieves all index entries of one document with the same
// dual-encoding strategy as search, ordered by chunk index.
func (e *Engine) documentChunks(ctx context.Context, docID uint) []schema.Match {
	var matches []schema.Match
	failures := 0

	for _, filter := range []*schema.Filter{
		{Equals: map[string]interface{}{schema.MetadataKeyDocumentID: int64(docID)}},
		{Equals: map[string]interface{}{schema.MetadataKeyDocumentID: formatUint(docID)}},
	} {
		got, err := e.index.Get(ctx, filter)
		if err != nil {
			failures++
			continue
		}
		if len(got) > 0 {
			matches = got
			break
		}
	}

	if matches == nil && failures == 2 {
		got, err := e.index.Get(ctx, nil)
		if err != nil {
			e.log.WithError(err).WithPayload(map[string]interface{}{"document_id": docID}).
				Warn("Direct chunk listing failed for all filter encodings")
			return nil
		}
		for _, m := range got {
			if stringify(m.Metadata[schema.MetadataKeyDocumentID]) == formatUint(docID) {
				matches = append(matches, m)
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return chunkIndexOf(matches[i]) < chunkIndexOf(matches[j])
	})
	return matches
}

func numericFilter(companyID uint, documentIDs []uint) *schema.Filter {
	f := &schema.Filter{
		Equals: map[string]interface{}{schema.MetadataKeyCompanyID: int64(companyID)},
	}
	if len(documentIDs) > 0 {
		in := make([]interface{}, len(documentIDs))
		for i, id := range documentIDs {
			in[i] = int64(id)
		}
		f.In = map[string][]interface{}{schema.MetadataKeyDocumentID: in}
	}
	return f
}

func stringFilter(companyID uint, documentIDs []uint) *schema.Filter {
	f := &schema.Filter{
		Equals: map[string]interface{}{schema.MetadataKeyCompanyID: formatUint(companyID)},
	}
	if len(documentIDs) > 0 {
		in := make([]interface{}, len(documentIDs))
		for i, id := range documentIDs {
			in[i] = formatUint(id)
		}
		f.In = map[string][]interface{}{schema.MetadataKeyDocumentID: in}
	}
	return f
}

// matchesScope compares stringified metadata values so entries written with
// either scalar encoding pass the intended filter.
func matchesScope(md map[string]interface{}, companyID uint, documentIDs []uint) bool {
	if stringify(md[schema.MetadataKeyCompanyID]) != formatUint(companyID) {
		return false
	}
	if len(documentIDs) == 0 {
		return true
	}
	got := stringify(md[schema.MetadataKeyDocumentID])
	for _, id := range documentIDs {
		if got == formatUint(id) {
			return true
		}
	}
	return false
}

func passageFrom(m schema.Match, score float64) schema.Passage {
	filename, _ := m.Metadata[schema.MetadataKeyFilename].(string)
	return schema.Passage{
		Content:    m.Content,
		DocumentID: uintOf(m.Metadata[schema.MetadataKeyDocumentID]),
		Filename:   filename,
		Score:      score,
		ChunkID:    m.ID,
	}
}

// similarity converts a raw index distance to a score in [0,1].
func similarity(distance float32) float64 {
	score := 1 - float64(distance)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func chunkIndexOf(m schema.Match) int64 {
	switch v := m.Metadata[schema.MetadataKeyChunkIndex].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		i, _ := strconv.ParseInt(v, 10, 64)
		return i
	default:
		return 0
	}
}

func uintOf(v interface{}) uint {
	switch n := v.(type) {
	case int64:
		return uint(n)
	case int:
		return uint(n)
	case uint:
		return n
	case float64:
		return uint(n)
	case string:
		i, _ := strconv.ParseUint(n, 10, 64)
		return uint(i)
	default:
		return 0
	}
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func formatUint(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
