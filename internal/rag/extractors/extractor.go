package extractors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedType is returned when no extractor is registered for the
// declared content type. It is a terminal failure for a processing run.
var ErrUnsupportedType = errors.New("unsupported content type")

// ContentTypeDOCX is the declared type for Word documents.
const ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ContentTypePDF is the declared type for PDF documents.
const ContentTypePDF = "application/pdf"

// Extractor produces plain text from raw document bytes of one format.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// Registry dispatches extraction on the declared content type.
type Registry struct {
	byType map[string]Extractor
}

// NewRegistry returns a Registry with the built-in extractors registered:
// PDF, DOCX, and any text/* type.
func NewRegistry() *Registry {
	return &Registry{
		byType: map[string]Extractor{
			ContentTypePDF:  &PDFExtractor{},
			ContentTypeDOCX: &DocxExtractor{},
		},
	}
}

// Register adds or replaces the extractor for a content type.
func (r *Registry) Register(contentType string, e Extractor) {
	r.byType[contentType] = e
}

// Supported reports whether a content type can be extracted.
func (r *Registry) Supported(contentType string) bool {
	if strings.HasPrefix(contentType, "text/") {
		return true
	}
	_, ok := r.byType[contentType]
	return ok
}

// Extract dispatches on contentType and returns the extracted plain text.
// Unknown types fail with ErrUnsupportedType.
func (r *Registry) Extract(data []byte, contentType string) (string, error) {
	if strings.HasPrefix(contentType, "text/") {
		return (&TextExtractor{}).Extract(data)
	}
	e, ok := r.byType[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return e.Extract(data)
}
