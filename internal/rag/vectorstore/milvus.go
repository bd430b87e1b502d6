package vectorstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"legalmind/internal/database/milvus"
	"legalmind/internal/rag/interfaces"
	"legalmind/internal/rag/schema"
	"legalmind/pkg/logger"
)

// fieldKinds records the canonical type of every filterable column. Filter
// values that do not match the column's type cannot be rendered and the
// operation fails; callers that try multiple encodings absorb that error.
var fieldKinds = map[string]entity.FieldType{
	milvus.FieldID:          entity.FieldTypeVarChar,
	milvus.FieldDocumentID:  entity.FieldTypeInt64,
	milvus.FieldCompanyID:   entity.FieldTypeInt64,
	milvus.FieldFilename:    entity.FieldTypeVarChar,
	milvus.FieldContentType: entity.FieldTypeVarChar,
	milvus.FieldChunkIndex:  entity.FieldTypeInt64,
}

var outputFields = []string{
	milvus.FieldID,
	milvus.FieldContent,
	milvus.FieldDocumentID,
	milvus.FieldCompanyID,
	milvus.FieldFilename,
	milvus.FieldContentType,
	milvus.FieldChunkIndex,
}

// MilvusIndex adapts the Milvus client to the VectorIndex interface with a
// typed collection schema enforced at write time.
type MilvusIndex struct {
	client     client.Client
	collection string
	log        *logger.Logger
}

// NewMilvusIndex creates a VectorIndex backed by the given Milvus client.
func NewMilvusIndex(mc *milvus.MilvusClient, log *logger.Logger) (interfaces.VectorIndex, error) {
	if mc == nil || mc.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	return &MilvusIndex{
		client:     mc.Client,
		collection: mc.Config.Collection,
		log:        log,
	}, nil
}

// Add inserts entries into the collection. Metadata values are coerced to
// the canonical column types; a value of the wrong type is a write error.
func (s *MilvusIndex) Add(ctx context.Context, entries []schema.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	vectors := make([][]float32, len(entries))
	contents := make([]string, len(entries))
	documentIDs := make([]int64, len(entries))
	companyIDs := make([]int64, len(entries))
	filenames := make([]string, len(entries))
	contentTypes := make([]string, len(entries))
	chunkIndexes := make([]int64, len(entries))

	dim := 0
	for i, e := range entries {
		ids[i] = e.ID
		vectors[i] = e.Vector
		contents[i] = e.Content
		if len(e.Vector) > dim {
			dim = len(e.Vector)
		}

		var err error
		if documentIDs[i], err = metaInt64(e.Metadata, schema.MetadataKeyDocumentID); err != nil {
			return err
		}
		if companyIDs[i], err = metaInt64(e.Metadata, schema.MetadataKeyCompanyID); err != nil {
			return err
		}
		if chunkIndexes[i], err = metaInt64(e.Metadata, schema.MetadataKeyChunkIndex); err != nil {
			return err
		}
		filenames[i], _ = e.Metadata[schema.MetadataKeyFilename].(string)
		contentTypes[i], _ = e.Metadata[schema.MetadataKeyContentType].(string)
	}

	cols := []entity.Column{
		entity.NewColumnVarChar(milvus.FieldID, ids),
		entity.NewColumnFloatVector(milvus.FieldEmbedding, dim, vectors),
		entity.NewColumnVarChar(milvus.FieldContent, contents),
		entity.NewColumnInt64(milvus.FieldDocumentID, documentIDs),
		entity.NewColumnInt64(milvus.FieldCompanyID, companyIDs),
		entity.NewColumnVarChar(milvus.FieldFilename, filenames),
		entity.NewColumnVarChar(milvus.FieldContentType, contentTypes),
		entity.NewColumnInt64(milvus.FieldChunkIndex, chunkIndexes),
	}

	if _, err := s.client.Insert(ctx, s.collection, "", cols...); err != nil {
		return fmt.Errorf("failed to insert entries into Milvus: %w", err)
	}
	return nil
}

// Query runs an approximate nearest-neighbor search with an optional
// metadata filter and returns ranked matches with their distances.
func (s *MilvusIndex) Query(ctx context.Context, vector []float32, k int, filter *schema.Filter) ([]schema.Match, error) {
	expr, err := buildExpr(filter, false)
	if err != nil {
		return nil, err
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(10)
	results, err := s.client.Search(
		ctx, s.collection, nil, expr, outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		milvus.FieldEmbedding, entity.COSINE, k, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search in Milvus: %w", err)
	}

	var matches []schema.Match
	for _, res := range results {
		parsed, err := parseColumns(res.Fields, res.ResultCount)
		if err != nil {
			s.log.WithError(err).Warn("Skipping malformed Milvus search result")
			continue
		}
		for i, m := range parsed {
			// The collection uses cosine similarity; express it as the
			// distance the callers expect (score = 1 - distance).
			m.Distance = 1 - res.Scores[i]
			matches = append(matches, m)
		}
	}
	return matches, nil
}

// Get retrieves matching entries without ranking.
func (s *MilvusIndex) Get(ctx context.Context, filter *schema.Filter) ([]schema.Match, error) {
	expr, err := buildExpr(filter, true)
	if err != nil {
		return nil, err
	}

	rs, err := s.client.Query(ctx, s.collection, nil, expr, outputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to query Milvus: %w", err)
	}

	cols := make([]entity.Column, 0, len(rs))
	rows := 0
	for _, col := range rs {
		cols = append(cols, col)
		if col.Len() > rows {
			rows = col.Len()
		}
	}
	return parseColumns(cols, rows)
}

// Delete removes all entries matching filter.
func (s *MilvusIndex) Delete(ctx context.Context, filter *schema.Filter) error {
	expr, err := buildExpr(filter, true)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("failed to delete from Milvus: %w", err)
	}
	return nil
}

// buildExpr renders a Filter as a Milvus boolean expression. Scalar queries
// (Get/Delete) require a non-empty expression, so an empty filter renders as
// a match-all predicate on the primary key.
func buildExpr(filter *schema.Filter, requireExpr bool) (string, error) {
	var conditions []string
	if filter != nil {
		for key, value := range filter.Equals {
			rendered, err := renderValue(key, value)
			if err != nil {
				return "", err
			}
			conditions = append(conditions, fmt.Sprintf("%s == %s", key, rendered))
		}
		for key, values := range filter.In {
			rendered := make([]string, len(values))
			for i, v := range values {
				r, err := renderValue(key, v)
				if err != nil {
					return "", err
				}
				rendered[i] = r
			}
			conditions = append(conditions, fmt.Sprintf("%s in [%s]", key, strings.Join(rendered, ", ")))
		}
	}
	if len(conditions) == 0 {
		if requireExpr {
			return fmt.Sprintf(`%s != ""`, milvus.FieldID), nil
		}
		return "", nil
	}
	return strings.Join(conditions, " and "), nil
}

// renderValue renders a filter value for its column's canonical type. A
// mismatched value type is an error, never a silent coercion.
func renderValue(key string, value interface{}) (string, error) {
	kind, ok := fieldKinds[key]
	if !ok {
		return "", fmt.Errorf("unknown filter field %q", key)
	}
	switch kind {
	case entity.FieldTypeInt64:
		i, ok := asInt64(value)
		if !ok {
			return "", fmt.Errorf("filter field %q requires an integer, got %T", key, value)
		}
		return strconv.FormatInt(i, 10), nil
	case entity.FieldTypeVarChar:
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("filter field %q requires a string, got %T", key, value)
		}
		return strconv.Quote(s), nil
	default:
		return "", fmt.Errorf("filter field %q has unsupported type", key)
	}
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func metaInt64(md map[string]interface{}, key string) (int64, error) {
	i, ok := asInt64(md[key])
	if !ok {
		return 0, fmt.Errorf("metadata field %q requires an integer, got %T", key, md[key])
	}
	return i, nil
}

// parseColumns turns a set of result columns into matches. The id column is
// mandatory; metadata columns are carried when present.
func parseColumns(cols []entity.Column, rows int) ([]schema.Match, error) {
	byName := make(map[string]entity.Column, len(cols))
	for _, col := range cols {
		byName[col.Name()] = col
	}

	idCol, ok := byName[milvus.FieldID].(*entity.ColumnVarChar)
	if !ok {
		return nil, fmt.Errorf("result set is missing the id column")
	}
	ids := idCol.Data()

	var contents, filenames, contentTypes []string
	var documentIDs, companyIDs, chunkIndexes []int64
	if c, ok := byName[milvus.FieldContent].(*entity.ColumnVarChar); ok {
		contents = c.Data()
	}
	if c, ok := byName[milvus.FieldFilename].(*entity.ColumnVarChar); ok {
		filenames = c.Data()
	}
	if c, ok := byName[milvus.FieldContentType].(*entity.ColumnVarChar); ok {
		contentTypes = c.Data()
	}
	if c, ok := byName[milvus.FieldDocumentID].(*entity.ColumnInt64); ok {
		documentIDs = c.Data()
	}
	if c, ok := byName[milvus.FieldCompanyID].(*entity.ColumnInt64); ok {
		companyIDs = c.Data()
	}
	if c, ok := byName[milvus.FieldChunkIndex].(*entity.ColumnInt64); ok {
		chunkIndexes = c.Data()
	}

	matches := make([]schema.Match, 0, rows)
	for i := 0; i < rows && i < len(ids); i++ {
		m := schema.Match{
			ID:       ids[i],
			Metadata: make(map[string]interface{}, 5),
		}
		if i < len(contents) {
			m.Content = contents[i]
		}
		if i < len(documentIDs) {
			m.Metadata[schema.MetadataKeyDocumentID] = documentIDs[i]
		}
		if i < len(companyIDs) {
			m.Metadata[schema.MetadataKeyCompanyID] = companyIDs[i]
		}
		if i < len(filenames) {
			m.Metadata[schema.MetadataKeyFilename] = filenames[i]
		}
		if i < len(contentTypes) {
			m.Metadata[schema.MetadataKeyContentType] = contentTypes[i]
		}
		if i < len(chunkIndexes) {
			m.Metadata[schema.MetadataKeyChunkIndex] = chunkIndexes[i]
		}
		matches = append(matches, m)
	}
	return matches, nil
}

var _ interfaces.VectorIndex = (*MilvusIndex)(nil)
