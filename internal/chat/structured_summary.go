package chat

import (
	"context"
	"fmt"
	"strings"
)

// structuredSummaryLimit caps how much chunk text is sent to the model for
// an on-demand structured summary.
const structuredSummaryLimit = 8000

// StructuredSummary produces a sectioned summary of a processed document
// from its stored chunk texts. The result goes back to the caller only and
// is never persisted; the short summary written at processing time stays
// untouched.
func (o *Orchestrator) StructuredSummary(ctx context.Context, filename string, chunks []string) (string, error) {
	if len(chunks) == 0 {
		return "", fmt.Errorf("document has no chunks to summarize")
	}

	var b strings.Builder
	b.WriteString("Produce a structured summary of the following legal document with these sections: ")
	b.WriteString("Overview, Parties, Key Terms, Obligations, Important Dates.\n\n")
	fmt.Fprintf(&b, "Document: %s\n\n", filename)

	total := 0
	for _, chunk := range chunks {
		runes := []rune(chunk)
		if total+len(runes) > structuredSummaryLimit {
			runes = runes[:structuredSummaryLimit-total]
		}
		b.WriteString(string(runes))
		b.WriteString("\n")
		total += len(runes)
		if total >= structuredSummaryLimit {
			break
		}
	}

	summary, err := o.model.Generate(ctx, b.String())
	if err != nil {
		return "", fmt.Errorf("failed to generate structured summary: %w", err)
	}
	return summary, nil
}
