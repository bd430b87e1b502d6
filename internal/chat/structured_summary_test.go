package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredSummary(t *testing.T) {
	model := &fakeModel{reply: "Overview: a supply agreement."}
	o := newTestOrchestrator(newFakeChatStore(), &fakeRetriever{}, model)

	summary, err := o.StructuredSummary(context.Background(), "contract.pdf",
		[]string{"clause one", "clause two"})
	require.NoError(t, err)
	assert.Equal(t, "Overview: a supply agreement.", summary)

	assert.Contains(t, model.lastPrompt, "contract.pdf")
	assert.Contains(t, model.lastPrompt, "clause one")
	assert.Contains(t, model.lastPrompt, "clause two")
	for _, section := range []string{"Overview", "Parties", "Key Terms", "Obligations", "Important Dates"} {
		assert.Contains(t, model.lastPrompt, section)
	}
}

func TestStructuredSummaryNoChunks(t *testing.T) {
	o := newTestOrchestrator(newFakeChatStore(), &fakeRetriever{}, &fakeModel{})

	_, err := o.StructuredSummary(context.Background(), "contract.pdf", nil)
	require.Error(t, err)
}

func TestStructuredSummaryTruncatesLongDocuments(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	o := newTestOrchestrator(newFakeChatStore(), &fakeRetriever{}, model)

	chunks := []string{
		strings.Repeat("x", 6000),
		strings.Repeat("y", 6000),
		strings.Repeat("z", 6000),
	}
	_, err := o.StructuredSummary(context.Background(), "big.pdf", chunks)
	require.NoError(t, err)

	assert.Contains(t, model.lastPrompt, "yyyy")
	assert.NotContains(t, model.lastPrompt, "zzzz",
		"chunks past the prompt limit are not sent")
	assert.Less(t, len([]rune(model.lastPrompt)), 8500)
}

func TestStructuredSummaryGenerationFailure(t *testing.T) {
	o := newTestOrchestrator(newFakeChatStore(), &fakeRetriever{}, &fakeModel{err: errors.New("rate limited")})

	_, err := o.StructuredSummary(context.Background(), "contract.pdf", []string{"clause"})
	require.Error(t, err, "on-demand summaries surface the failure instead of an apology")
}
