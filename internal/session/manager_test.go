package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/fingerprint"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/testutil"
)

// fakeDoc treats its input as pipe-separated page texts.
type fakeDoc struct {
	pages    []string
	failPage int // PageText errors for this page when non-zero
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) PageText(n int) (string, error) {
	if n < 1 || n > len(d.pages) {
		return "", fmt.Errorf("page %d out of range", n)
	}
	if n == d.failPage {
		return "", errors.New("malformed content stream")
	}
	return d.pages[n-1], nil
}

func (d *fakeDoc) Text() (string, error) {
	return strings.Join(d.pages, "\n\n"), nil
}

func fakeLoader(data []byte) (Document, error) {
	return &fakeDoc{pages: strings.Split(string(data), "|")}, nil
}

type fakeSummarizer struct {
	calls atomic.Int64
	reply string
	err   error
	block chan struct{} // when non-nil, Summarize waits for it
}

func (s *fakeSummarizer) Summarize(_ context.Context, fp, text string) (string, error) {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type fakeResetter struct {
	resets atomic.Int64
}

func (r *fakeResetter) Reset() { r.resets.Add(1) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager(t *testing.T, sum Summarizer) (*Manager, *fakeResetter) {
	t.Helper()
	if sum == nil {
		sum = &fakeSummarizer{reply: "a summary"}
	}
	r := &fakeResetter{}
	return NewManager(fakeLoader, testutil.TestDB(t), sum, r, nil, discardLogger()), r
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestOpenSetsState(t *testing.T) {
	m, resetter := newManager(t, nil)

	state, err := m.Open(context.Background(), []byte("alpha|beta|gamma"), "doc.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if state.Fingerprint != fingerprint.Sum([]byte("alpha|beta|gamma")) {
		t.Errorf("fingerprint = %q", state.Fingerprint)
	}
	if state.DisplayName != "doc.pdf" || state.Page != 1 || state.PageCount != 3 {
		t.Errorf("state = %+v", state)
	}
	if state.PageText != "alpha" {
		t.Errorf("page text = %q, want first page", state.PageText)
	}
	if len(state.Transcript) != 0 {
		t.Errorf("fresh document has transcript of %d", len(state.Transcript))
	}
	if resetter.resets.Load() != 1 {
		t.Errorf("resets = %d, want 1", resetter.resets.Load())
	}
}

func TestOpenStartsSummarization(t *testing.T) {
	sum := &fakeSummarizer{reply: "the digest"}
	m, _ := newManager(t, sum)

	state, err := m.Open(context.Background(), []byte("p1|p2"), "doc.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if !state.SummaryPending {
		t.Error("summary not pending right after open")
	}

	waitFor(t, func() bool {
		s := m.Snapshot()
		return !s.SummaryPending && s.Summary == "the digest"
	})
}

func TestOpenSkipsSummarizationWhenStored(t *testing.T) {
	sum := &fakeSummarizer{reply: "unused"}
	r := &fakeResetter{}
	store := testutil.TestDB(t)
	m := NewManager(fakeLoader, store, sum, r, nil, discardLogger())

	data := []byte("page one")
	if err := store.SetSummary(fingerprint.Sum(data), "stored digest"); err != nil {
		t.Fatal(err)
	}

	state, err := m.Open(context.Background(), data, "doc.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if state.SummaryPending {
		t.Error("summary pending despite stored value")
	}
	if state.Summary != "stored digest" {
		t.Errorf("summary = %q", state.Summary)
	}
	time.Sleep(50 * time.Millisecond)
	if sum.calls.Load() != 0 {
		t.Errorf("summarizer called %d times", sum.calls.Load())
	}
}

func TestReopenRecallsTranscriptAndRenames(t *testing.T) {
	store := testutil.TestDB(t)
	m := NewManager(fakeLoader, store, &fakeSummarizer{}, nil, nil, discardLogger())
	data := []byte("same content")
	fp := fingerprint.Sum(data)

	if _, err := m.Open(context.Background(), data, "original.pdf"); err != nil {
		t.Fatal(err)
	}
	pair := []models.ChatMessage{
		models.NewChatMessage(models.SenderUser, "q"),
		models.NewChatMessage(models.SenderAI, "a"),
	}
	if err := store.Save(fp, "original.pdf", pair, ""); err != nil {
		t.Fatal(err)
	}
	m.Close()

	state, err := m.Open(context.Background(), data, "renamed.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Transcript) != 2 {
		t.Fatalf("transcript = %d messages, want 2", len(state.Transcript))
	}
	if state.DisplayName != "renamed.pdf" {
		t.Errorf("display name = %q", state.DisplayName)
	}

	entry, err := store.Load(fp)
	if err != nil {
		t.Fatal(err)
	}
	if entry.DisplayName != "renamed.pdf" {
		t.Errorf("stored display name = %q, want updated", entry.DisplayName)
	}
}

func TestChangePage(t *testing.T) {
	m, _ := newManager(t, nil)
	if _, err := m.ChangePage(1); !errors.Is(err, apperr.ErrNoDocument) {
		t.Errorf("ChangePage without document: %v", err)
	}

	if _, err := m.Open(context.Background(), []byte("one|two|three"), "d.pdf"); err != nil {
		t.Fatal(err)
	}

	state, err := m.ChangePage(3)
	if err != nil {
		t.Fatalf("ChangePage: %v", err)
	}
	if state.Page != 3 || state.PageText != "three" {
		t.Errorf("state = page %d text %q", state.Page, state.PageText)
	}

	for _, n := range []int{0, -1, 4} {
		if _, err := m.ChangePage(n); !errors.Is(err, apperr.ErrPageOutOfRange) {
			t.Errorf("ChangePage(%d) err = %v", n, err)
		}
	}
}

func TestStaleSummaryNotApplied(t *testing.T) {
	sum := &fakeSummarizer{reply: "stale digest", block: make(chan struct{})}
	m, _ := newManager(t, sum)

	if _, err := m.Open(context.Background(), []byte("doomed"), "old.pdf"); err != nil {
		t.Fatal(err)
	}
	m.Close()

	// Release the in-flight summarization after the session moved on.
	close(sum.block)
	time.Sleep(50 * time.Millisecond)

	state := m.Snapshot()
	if state.Summary != "" || state.Fingerprint != "" {
		t.Errorf("stale summary applied: %+v", state)
	}
}

func TestCloseClearsState(t *testing.T) {
	m, resetter := newManager(t, nil)
	state, err := m.Open(context.Background(), []byte("x|y"), "d.pdf")
	if err != nil {
		t.Fatal(err)
	}
	m.AppendFor(state.Fingerprint, models.NewChatMessage(models.SenderUser, "hello"))
	m.Close()

	state = m.Snapshot()
	if state.Fingerprint != "" || state.PageCount != 0 || len(state.Transcript) != 0 {
		t.Errorf("state after close = %+v", state)
	}
	if resetter.resets.Load() != 2 {
		t.Errorf("resets = %d, want 2 (open + close)", resetter.resets.Load())
	}
}

func TestAppendAndPromptContext(t *testing.T) {
	m, _ := newManager(t, &fakeSummarizer{reply: "sum"})
	state, err := m.Open(context.Background(), []byte("first page|second"), "d.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if !m.AppendFor(state.Fingerprint,
		models.NewChatMessage(models.SenderUser, "q"),
		models.NewChatMessage(models.SenderAI, "a"),
	) {
		t.Fatal("append for the active document was refused")
	}

	if got := len(m.Snapshot().Transcript); got != 2 {
		t.Errorf("transcript = %d", got)
	}

	pc := m.PromptContext()
	if pc.DisplayName != "d.pdf" || pc.Page != 1 || pc.PageCount != 2 || pc.PageText != "first page" {
		t.Errorf("prompt context = %+v", pc)
	}
}

func TestAppendForStaleFingerprintDropped(t *testing.T) {
	m, _ := newManager(t, nil)
	state, err := m.Open(context.Background(), []byte("a|b"), "a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	old := state.Fingerprint

	if _, err := m.Open(context.Background(), []byte("c|d"), "b.pdf"); err != nil {
		t.Fatal(err)
	}

	if m.AppendFor(old,
		models.NewChatMessage(models.SenderUser, "question about a"),
		models.NewChatMessage(models.SenderAI, "late answer about a"),
	) {
		t.Error("append for a replaced document was applied")
	}
	if got := len(m.Snapshot().Transcript); got != 0 {
		t.Errorf("transcript = %d messages after dropped append", got)
	}

	if m.AppendFor("", models.NewChatMessage(models.SenderUser, "x")) {
		t.Error("documentless append applied while a document is open")
	}
}

func TestChangePageExtractionFailureWarns(t *testing.T) {
	loader := func(data []byte) (Document, error) {
		return &fakeDoc{pages: strings.Split(string(data), "|"), failPage: 2}, nil
	}
	m := NewManager(loader, testutil.TestDB(t), &fakeSummarizer{}, nil, nil, discardLogger())

	if _, err := m.Open(context.Background(), []byte("one|two|three"), "d.pdf"); err != nil {
		t.Fatal(err)
	}

	state, err := m.ChangePage(2)
	if err != nil {
		t.Fatalf("ChangePage: %v", err)
	}
	if state.Page != 2 || state.PageText != "" {
		t.Errorf("state = page %d text %q", state.Page, state.PageText)
	}
	if !strings.Contains(state.LastError, "page 2") {
		t.Errorf("last error = %q, want page warning", state.LastError)
	}

	state, err = m.ChangePage(3)
	if err != nil {
		t.Fatal(err)
	}
	if state.LastError != "" {
		t.Errorf("warning survived page change: %q", state.LastError)
	}
}

func TestOpenRecordsRecent(t *testing.T) {
	store := testutil.TestDB(t)
	m := NewManager(fakeLoader, store, &fakeSummarizer{}, nil, nil, discardLogger())

	if _, err := m.Open(context.Background(), []byte("aaa"), "a.pdf"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Open(context.Background(), []byte("bbb"), "b.pdf"); err != nil {
		t.Fatal(err)
	}

	refs, err := store.Recent()
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 {
		t.Fatalf("recent = %d entries", len(refs))
	}
	if refs[0].DisplayName != "b.pdf" {
		t.Errorf("most recent = %q, want b.pdf", refs[0].DisplayName)
	}
}
