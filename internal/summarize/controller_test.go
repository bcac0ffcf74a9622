package summarize

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/testutil"
)

type countingGen struct {
	calls   atomic.Int64
	delay   time.Duration
	reply   string
	err     error
	prompts sync.Map
}

func (g *countingGen) Generate(_ context.Context, prompt string) (string, error) {
	n := g.calls.Add(1)
	g.prompts.Store(n, prompt)
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fp(seed string) string {
	return strings.Repeat(seed, 64/len(seed))
}

func TestSummarizeGeneratesAndStores(t *testing.T) {
	gen := &countingGen{reply: "  A digest of the document.  "}
	store := testutil.TestDB(t)
	ctl := NewController(gen, store, nil, discardLogger())

	got, err := ctl.Summarize(context.Background(), fp("ab"), "full document text")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "A digest of the document." {
		t.Errorf("summary = %q", got)
	}

	entry, err := store.Load(fp("ab"))
	if err != nil {
		t.Fatal(err)
	}
	if entry.Summary != "A digest of the document." {
		t.Errorf("stored summary = %q", entry.Summary)
	}

	v, ok := gen.prompts.Load(int64(1))
	if !ok {
		t.Fatal("no prompt recorded")
	}
	prompt := v.(string)
	for _, want := range []string{
		"full document text",
		"objective",
		"methodology",
		"results",
		"conclusion",
		"headers, footers",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestSummarizeMemoized(t *testing.T) {
	gen := &countingGen{reply: "fresh"}
	store := testutil.TestDB(t)
	if err := store.SetSummary(fp("cd"), "already stored"); err != nil {
		t.Fatal(err)
	}
	ctl := NewController(gen, store, nil, discardLogger())

	got, err := ctl.Summarize(context.Background(), fp("cd"), "text")
	if err != nil {
		t.Fatal(err)
	}
	if got != "already stored" {
		t.Errorf("summary = %q, want stored value", got)
	}
	if gen.calls.Load() != 0 {
		t.Errorf("model called %d times for memoized summary", gen.calls.Load())
	}
}

func TestSummarizeEmptyText(t *testing.T) {
	gen := &countingGen{reply: "should not happen"}
	ctl := NewController(gen, testutil.TestDB(t), nil, discardLogger())

	for _, text := range []string{"", "   \n\t  "} {
		got, err := ctl.Summarize(context.Background(), fp("ef"), text)
		if err != nil {
			t.Fatal(err)
		}
		if got != "" {
			t.Errorf("Summarize(%q) = %q, want empty", text, got)
		}
	}
	if gen.calls.Load() != 0 {
		t.Errorf("model called for empty text")
	}
}

func TestSummarizeConcurrentSingleCall(t *testing.T) {
	gen := &countingGen{reply: "one digest", delay: 50 * time.Millisecond}
	ctl := NewController(gen, testutil.TestDB(t), nil, discardLogger())

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := ctl.Summarize(context.Background(), fp("09"), "shared text")
			if err != nil {
				t.Errorf("Summarize: %v", err)
				return
			}
			results[i] = got
		}(i)
	}
	wg.Wait()

	if gen.calls.Load() != 1 {
		t.Errorf("model called %d times, want 1", gen.calls.Load())
	}
	for i, got := range results {
		if got != "one digest" {
			t.Errorf("result[%d] = %q", i, got)
		}
	}
}

func TestSummarizeFailureRetries(t *testing.T) {
	gen := &countingGen{err: errors.New("transient")}
	store := testutil.TestDB(t)
	ctl := NewController(gen, store, nil, discardLogger())

	if _, err := ctl.Summarize(context.Background(), fp("12"), "text"); err == nil {
		t.Fatal("expected error")
	}
	entry, err := store.Load(fp("12"))
	if err != nil {
		t.Fatal(err)
	}
	if entry.Summary != "" {
		t.Errorf("failed generation was memoized: %q", entry.Summary)
	}

	gen.err = nil
	gen.reply = "second attempt"
	got, err := ctl.Summarize(context.Background(), fp("12"), "text")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got != "second attempt" {
		t.Errorf("retry summary = %q", got)
	}
	if gen.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", gen.calls.Load())
	}
}

func TestSummarizePublishesEvents(t *testing.T) {
	broker := sse.NewBroker(time.Second)
	defer broker.Close()
	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	gen := &countingGen{reply: "digest"}
	ctl := NewController(gen, testutil.TestDB(t), broker, discardLogger())

	if _, err := ctl.Summarize(context.Background(), fp("34"), "text"); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "event: summary.ready") {
			t.Errorf("event = %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for summary.ready")
	}
}

func TestSummarizeTruncatesHugeText(t *testing.T) {
	prompt := buildDigestPrompt(strings.Repeat("x", maxTextChars+100))
	if !strings.Contains(prompt, "(document text truncated)") {
		t.Error("oversized text not truncated")
	}
	if len(prompt) > maxTextChars+1000 {
		t.Errorf("prompt length = %d", len(prompt))
	}
}
