// Package chat orchestrates conversation turns: it builds the document-aware
// prompt, relays it to the model, converts failures into visible replies, and
// persists the transcript.
package chat

import (
	"fmt"
	"strings"
)

// PromptContext carries the document state a question is asked against.
// A zero Fingerprint means no document is open and the question passes
// through to the model untouched.
type PromptContext struct {
	Fingerprint    string
	DisplayName    string
	Page           int
	PageCount      int
	PageText       string
	Summary        string
	SummaryPending bool
}

const (
	summaryPendingPlaceholder = "(the document summary is still being generated)"
	summaryMissingPlaceholder = "(no summary is available for this document)"
	pageTextPlaceholder       = "(no text could be extracted from this page)"
)

// BuildPrompt embeds the question in the document context current at the time
// of asking. The question text is included verbatim.
func BuildPrompt(pc PromptContext, question string) string {
	if pc.Fingerprint == "" {
		return question
	}

	summary := pc.Summary
	if summary == "" {
		if pc.SummaryPending {
			summary = summaryPendingPlaceholder
		} else {
			summary = summaryMissingPlaceholder
		}
	}

	pageText := pc.PageText
	if pageText == "" {
		pageText = pageTextPlaceholder
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a helpful assistant answering questions about the document %q.\n", pc.DisplayName)
	fmt.Fprintf(&b, "The reader is currently viewing page %d of %d.\n", pc.Page, pc.PageCount)
	b.WriteString("\n--- DOCUMENT SUMMARY ---\n")
	b.WriteString(summary)
	fmt.Fprintf(&b, "\n\n--- CURRENT PAGE (page %d) ---\n", pc.Page)
	b.WriteString(pageText)
	b.WriteString("\n\n--- QUESTION ---\n")
	b.WriteString(question)
	return b.String()
}
