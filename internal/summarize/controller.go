// Package summarize generates and memoizes whole-document summaries.
//
// A summary is generated at most once per fingerprint: concurrent requests
// for the same document are collapsed with singleflight, and a stored summary
// short-circuits the model entirely. Failures are not memoized, so a later
// request retries.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/llm"
	"github.com/starford/ansuz/internal/sse"
)

// Publisher receives lifecycle events. *sse.Broker satisfies it.
type Publisher interface {
	Publish(event sse.Event)
}

// Controller coordinates summary generation for document fingerprints.
type Controller struct {
	gen    llm.Generator
	store  history.Store
	events Publisher
	logger *slog.Logger
	group  singleflight.Group
}

// NewController creates a summarization controller. events may be nil.
func NewController(gen llm.Generator, store history.Store, events Publisher, logger *slog.Logger) *Controller {
	return &Controller{gen: gen, store: store, events: events, logger: logger}
}

// Model input is bounded so an enormous document cannot blow the provider's
// request limit; the tail is dropped, not sampled.
const maxTextChars = 120000

// Summarize returns the summary for the document identified by fp whose full
// text is text. A stored summary is returned as-is without touching the
// model; a document with no extractable text yields the empty summary.
func (c *Controller) Summarize(ctx context.Context, fp, text string) (string, error) {
	entry, err := c.store.Load(fp)
	if err != nil {
		return "", fmt.Errorf("summarize: load entry: %w", err)
	}
	if entry.Summary != "" {
		return entry.Summary, nil
	}

	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	v, err, _ := c.group.Do(fp, func() (interface{}, error) {
		// Re-check under the flight: another caller may have stored the
		// summary between our load and joining the group.
		entry, err := c.store.Load(fp)
		if err != nil {
			return "", fmt.Errorf("summarize: load entry: %w", err)
		}
		if entry.Summary != "" {
			return entry.Summary, nil
		}

		summary, err := c.gen.Generate(ctx, buildDigestPrompt(text))
		if err != nil {
			c.logger.Warn("summary generation failed", "fingerprint", fp, "error", err)
			c.publish(sse.Event{Type: sse.EventSummaryFailed, Data: map[string]string{
				"fingerprint": fp,
				"error":       err.Error(),
			}})
			return "", fmt.Errorf("summarize: generate: %w", err)
		}

		summary = strings.TrimSpace(summary)
		if err := c.store.SetSummary(fp, summary); err != nil {
			return "", err
		}

		c.logger.Info("summary generated", "fingerprint", fp, "chars", len(summary))
		c.publish(sse.Event{Type: sse.EventSummaryReady, Data: map[string]string{
			"fingerprint": fp,
		}})
		return summary, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Controller) publish(event sse.Event) {
	if c.events != nil {
		c.events.Publish(event)
	}
}

func buildDigestPrompt(text string) string {
	if len(text) > maxTextChars {
		text = text[:maxTextChars] + "\n\n(document text truncated)"
	}
	var b strings.Builder
	b.WriteString("Provide a structured digest of the following document. ")
	b.WriteString("Cover its objective, methodology, results, and conclusion where applicable. ")
	b.WriteString("Ignore repeated running headers, footers, and page numbers.\n")
	b.WriteString("\n--- DOCUMENT TEXT ---\n")
	b.WriteString(text)
	return b.String()
}
