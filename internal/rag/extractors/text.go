package extractors

import (
	"fmt"
	"unicode/utf8"
)

// TextExtractor handles plain text content as-is.
type TextExtractor struct{}

// Extract validates the bytes are UTF-8 and returns them unchanged.
func (e *TextExtractor) Extract(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text content is not valid UTF-8")
	}
	return string(data), nil
}

var _ Extractor = (*TextExtractor)(nil)
