package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalmind/internal/rag/schema"
)

func TestBuildExprEquals(t *testing.T) {
	expr, err := buildExpr(&schema.Filter{
		Equals: map[string]interface{}{schema.MetadataKeyDocumentID: int64(7)},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "document_id == 7", expr)
}

func TestBuildExprIn(t *testing.T) {
	expr, err := buildExpr(&schema.Filter{
		In: map[string][]interface{}{schema.MetadataKeyDocumentID: {int64(7), int64(3)}},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "document_id in [7, 3]", expr)
}

func TestBuildExprVarCharQuoting(t *testing.T) {
	expr, err := buildExpr(&schema.Filter{
		Equals: map[string]interface{}{schema.MetadataKeyFilename: `quarterly "final".pdf`},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, `filename == "quarterly \"final\".pdf"`, expr)
}

func TestBuildExprRejectsWrongScalarType(t *testing.T) {
	// A string against an Int64 column is a typed-schema violation, not a
	// coercion. Callers probing both encodings rely on this failing loudly.
	_, err := buildExpr(&schema.Filter{
		Equals: map[string]interface{}{schema.MetadataKeyDocumentID: "7"},
	}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires an integer")

	_, err = buildExpr(&schema.Filter{
		Equals: map[string]interface{}{schema.MetadataKeyFilename: int64(7)},
	}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a string")
}

func TestBuildExprRejectsUnknownField(t *testing.T) {
	_, err := buildExpr(&schema.Filter{
		Equals: map[string]interface{}{"nonsense": int64(1)},
	}, false)
	require.Error(t, err)
}

func TestBuildExprEmptyFilter(t *testing.T) {
	expr, err := buildExpr(nil, false)
	require.NoError(t, err)
	assert.Empty(t, expr, "searches pass no expression when unfiltered")

	expr, err = buildExpr(nil, true)
	require.NoError(t, err)
	assert.Equal(t, `id != ""`, expr, "scalar operations need a match-all predicate")
}

func TestAsInt64AcceptsIntegersOnly(t *testing.T) {
	for _, v := range []interface{}{int(1), int32(2), int64(3), uint(4), uint32(5), uint64(6)} {
		_, ok := asInt64(v)
		assert.True(t, ok, "%T must be accepted", v)
	}
	for _, v := range []interface{}{"7", 7.0, float32(7), true, nil} {
		_, ok := asInt64(v)
		assert.False(t, ok, "%T must be rejected", v)
	}
}

func TestMetaInt64MissingKey(t *testing.T) {
	_, err := metaInt64(map[string]interface{}{}, schema.MetadataKeyDocumentID)
	require.Error(t, err)
}
