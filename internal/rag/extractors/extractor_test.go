package extractors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySupported(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Supported(ContentTypePDF))
	assert.True(t, r.Supported(ContentTypeDOCX))
	assert.True(t, r.Supported("text/plain"))
	assert.True(t, r.Supported("text/markdown; charset=utf-8"))
	assert.False(t, r.Supported("application/zip"))
	assert.False(t, r.Supported("image/png"))
}

func TestRegistryExtractText(t *testing.T) {
	r := NewRegistry()

	text, err := r.Extract([]byte("plain legal text"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "plain legal text", text)
}

func TestRegistryExtractInvalidUTF8(t *testing.T) {
	r := NewRegistry()

	_, err := r.Extract([]byte{0xff, 0xfe, 0xfd}, "text/plain")
	require.Error(t, err)
}

func TestRegistryExtractUnsupported(t *testing.T) {
	r := NewRegistry()

	_, err := r.Extract([]byte("PK..."), "application/zip")
	require.ErrorIs(t, err, ErrUnsupportedType)
}

type stubExtractor struct{ out string }

func (s *stubExtractor) Extract([]byte) (string, error) { return s.out, nil }

func TestRegistryRegisterOverride(t *testing.T) {
	r := NewRegistry()
	r.Register("application/x-custom", &stubExtractor{out: "custom"})

	assert.True(t, r.Supported("application/x-custom"))
	text, err := r.Extract(nil, "application/x-custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", text)
}
