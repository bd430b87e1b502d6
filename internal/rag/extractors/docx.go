package extractors

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/unidoc/unioffice/v2/document"
)

// DocxExtractor extracts plain text from Word (.docx) bytes.
type DocxExtractor struct{}

// Extract reads all paragraph runs of the document, one paragraph per line.
func (e *DocxExtractor) Extract(data []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}
	defer doc.Close()

	var sb strings.Builder
	for _, p := range doc.Paragraphs() {
		for _, r := range p.Runs() {
			sb.WriteString(r.Text())
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

var _ Extractor = (*DocxExtractor)(nil)
