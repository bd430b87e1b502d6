package chat

import (
	"context"
	"fmt"
)

// Canned prompts for one-click document analysis. Each runs through the
// normal exchange path so the result is grounded and persisted like any
// other turn.
var quickPrompts = map[string]string{
	"summarize":     "Summarize the selected documents. Cover the parties involved, the subject matter, and the overall purpose.",
	"analyze_risks": "Analyze the selected documents for legal risks. List each risk, where it appears, and how severe it is.",
	"key_terms":     "Extract the key terms and definitions from the selected documents, with a short explanation of each.",
	"obligations":   "List the obligations each party takes on in the selected documents, grouped by party.",
	"deadlines":     "List every date, deadline, and time-bound requirement in the selected documents, in chronological order.",
}

// QuickPromptActions returns the supported quick prompt names.
func QuickPromptActions() []string {
	actions := make([]string, 0, len(quickPrompts))
	for action := range quickPrompts {
		actions = append(actions, action)
	}
	return actions
}

// QuickPrompt runs a predefined analysis prompt against the selected
// documents. Unknown actions are an error; everything else behaves exactly
// like Exchange.
func (o *Orchestrator) QuickPrompt(ctx context.Context, companyName, action string, sessionID *uint, documentIDs []uint) (*Response, error) {
	prompt, ok := quickPrompts[action]
	if !ok {
		return nil, fmt.Errorf("unknown quick prompt action '%s'", action)
	}
	return o.Exchange(ctx, Request{
		CompanyName: companyName,
		SessionID:   sessionID,
		Message:     prompt,
		DocumentIDs: documentIDs,
	})
}
