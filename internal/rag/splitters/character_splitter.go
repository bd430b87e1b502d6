package splitters

import (
	"strings"
	"unicode/utf8"

	"legalmind/internal/rag/interfaces"
	"legalmind/internal/rag/schema"
)

// defaultSeparators is the break priority from coarse to fine: paragraph,
// line, sentence-ending punctuation, word, then single character.
var defaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", " ", ""}

// CharacterSplitter splits text into fragments close to ChunkSize characters
// with ChunkOverlap characters repeated between consecutive fragments to
// preserve context across boundaries.
//
// Fragments are windows over the original text, so no text is ever dropped:
// concatenating the fragments minus their overlap reconstructs the input.
type CharacterSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	separators   []string
}

// NewCharacterSplitter creates a splitter with the given target size and
// overlap. Overlap must be smaller than the chunk size; it is clamped
// otherwise.
func NewCharacterSplitter(chunkSize, chunkOverlap int) *CharacterSplitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &CharacterSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}
}

// Split produces the ordered fragment sequence for text. Every fragment
// carries its own copy of boundMetadata, unchanged and with nothing added.
// Empty input yields no fragments; a fragment is never empty.
func (s *CharacterSplitter) Split(text string, boundMetadata map[string]interface{}) []schema.Fragment {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var fragments []schema.Fragment
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.breakPoint(runes, start, end)
		}

		fragments = append(fragments, schema.Fragment{
			Text:     string(runes[start:end]),
			Metadata: copyMetadata(boundMetadata),
		})

		if end == len(runes) {
			break
		}

		next := end - s.ChunkOverlap
		if next <= start {
			// Fragment no longer than the overlap itself; skip the overlap
			// to guarantee forward progress.
			next = end
		}
		start = next
	}

	return fragments
}

// breakPoint picks the split position within (start, limit], preferring the
// latest occurrence of the coarsest separator present in the window. The
// separator stays with the left fragment. When only character-level
// splitting remains, the size limit itself is the break.
func (s *CharacterSplitter) breakPoint(runes []rune, start, limit int) int {
	window := string(runes[start:limit])
	for _, sep := range s.separators {
		if sep == "" {
			break
		}
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		pos := start + utf8.RuneCountInString(window[:idx]) + utf8.RuneCountInString(sep)
		if pos > start && pos < limit {
			return pos
		}
	}
	return limit
}

func copyMetadata(md map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}

var _ interfaces.Splitter = (*CharacterSplitter)(nil)
