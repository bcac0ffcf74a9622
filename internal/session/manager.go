// Package session coordinates the mutable state of the single viewing
// session: which document is open, the visible page and its text, the
// summary, and the in-memory transcript.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/chat"
	"github.com/starford/ansuz/internal/fingerprint"
	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/pdftext"
	"github.com/starford/ansuz/internal/sse"
)

// Document is the parsed-document surface the coordinator needs.
// *pdftext.Document satisfies it.
type Document interface {
	PageCount() int
	PageText(n int) (string, error)
	Text() (string, error)
}

// Loader parses raw bytes into a Document. The default wraps pdftext.Load;
// tests substitute fakes.
type Loader func(data []byte) (Document, error)

// DefaultLoader parses PDFs with pdftext.
func DefaultLoader(data []byte) (Document, error) {
	return pdftext.Load(data)
}

// Summarizer produces the memoized document summary.
// *summarize.Controller satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, fp, text string) (string, error)
}

// Resetter drops conversation channel state when the document changes.
type Resetter interface {
	Reset()
}

// Publisher receives session lifecycle events. *sse.Broker satisfies it.
type Publisher interface {
	Publish(event sse.Event)
	PublishPageEvent(fingerprint string, page int)
}

// State is a point-in-time copy of the session.
type State struct {
	Fingerprint    string               `json:"fingerprint"`
	DisplayName    string               `json:"display_name"`
	Page           int                  `json:"page"`
	PageCount      int                  `json:"page_count"`
	PageText       string               `json:"page_text"`
	Summary        string               `json:"summary"`
	SummaryPending bool                 `json:"summary_pending"`
	Transcript     []models.ChatMessage `json:"transcript"`
	LastError      string               `json:"last_error,omitempty"`
}

// Manager owns the session state. All mutation happens under one mutex; the
// generation counter guards against async results landing after the document
// they belong to was replaced or closed.
type Manager struct {
	loader     Loader
	store      history.Store
	summarizer Summarizer
	resetter   Resetter
	events     Publisher
	logger     *slog.Logger

	mu             sync.Mutex
	gen            uint64
	doc            Document
	fingerprint    string
	displayName    string
	page           int
	pageCount      int
	pageText       string
	summary        string
	summaryPending bool
	transcript     []models.ChatMessage
	lastError      string
}

// NewManager creates a session coordinator. resetter and events may be nil.
func NewManager(loader Loader, store history.Store, summarizer Summarizer, resetter Resetter, events Publisher, logger *slog.Logger) *Manager {
	if loader == nil {
		loader = DefaultLoader
	}
	return &Manager{
		loader:     loader,
		store:      store,
		summarizer: summarizer,
		resetter:   resetter,
		events:     events,
		logger:     logger,
	}
}

// Open replaces the session with the document in data. Identity is content
// based: reopening known bytes under a new file name recalls the stored
// transcript and summary, and the new name wins. The conversation channel is
// reset and summarization starts in the background unless already stored.
func (m *Manager) Open(ctx context.Context, data []byte, displayName string) (State, error) {
	fp := fingerprint.Sum(data)

	doc, err := m.loader(data)
	if err != nil {
		return State{}, fmt.Errorf("session: parse document: %w", err)
	}

	entry, err := m.store.Load(fp)
	if err != nil {
		return State{}, err
	}

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.doc = doc
	m.fingerprint = fp
	m.displayName = displayName
	m.page = 1
	m.pageCount = doc.PageCount()
	m.summary = entry.Summary
	m.summaryPending = entry.Summary == ""
	m.transcript = append([]models.ChatMessage{}, entry.Transcript...)
	m.lastError = ""
	m.extractPageLocked(1)
	state := m.snapshotLocked()
	m.mu.Unlock()

	// The document row is upserted on open so the recent index reflects
	// opens, not just chats.
	if err := m.store.Save(fp, displayName, nil, entry.Summary); err != nil {
		m.logger.Error("record open", "fingerprint", fp, "error", err)
	}

	if m.resetter != nil {
		m.resetter.Reset()
	}
	if m.events != nil {
		m.events.Publish(sse.Event{Type: sse.EventDocumentOpened, Data: map[string]interface{}{
			"fingerprint":  fp,
			"display_name": displayName,
			"page_count":   state.PageCount,
		}})
	}

	if m.summaryPendingFor(gen) {
		go m.generateSummary(gen, fp, doc)
	}

	m.logger.Info("document opened",
		"fingerprint", fp, "display_name", displayName, "pages", state.PageCount)
	return state, nil
}

func (m *Manager) summaryPendingFor(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen && m.summaryPending
}

// generateSummary extracts the full text and runs the summarizer. The result
// is applied only if the session still shows the same open.
func (m *Manager) generateSummary(gen uint64, fp string, doc Document) {
	text, err := doc.Text()
	if err != nil {
		m.logger.Warn("full text extraction failed", "fingerprint", fp, "error", err)
		text = ""
	}

	summary, err := m.summarizer.Summarize(context.Background(), fp, text)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return
	}
	m.summaryPending = false
	if err != nil {
		m.lastError = "summary generation failed: " + err.Error()
		return
	}
	m.summary = summary
}

// ChangePage moves the visible page and extracts its text. Page numbers are
// 1-based and must be within the document.
func (m *Manager) ChangePage(n int) (State, error) {
	m.mu.Lock()
	if m.doc == nil {
		m.mu.Unlock()
		return State{}, apperr.ErrNoDocument
	}
	if n < 1 || n > m.pageCount {
		m.mu.Unlock()
		return State{}, fmt.Errorf("%w: %d of %d", apperr.ErrPageOutOfRange, n, m.pageCount)
	}
	m.page = n
	m.extractPageLocked(n)
	fp := m.fingerprint
	state := m.snapshotLocked()
	m.mu.Unlock()

	if m.events != nil {
		m.events.PublishPageEvent(fp, n)
	}
	return state, nil
}

const pageWarningPrefix = "page text unavailable"

func (m *Manager) extractPageLocked(n int) {
	text, err := m.doc.PageText(n)
	if err != nil {
		m.logger.Warn("page text extraction failed",
			"fingerprint", m.fingerprint, "page", n, "error", err)
		m.pageText = ""
		m.lastError = fmt.Sprintf("%s: page %d: %v", pageWarningPrefix, n, err)
		return
	}
	m.pageText = text
	// A warning belongs to the page it was raised on.
	if strings.HasPrefix(m.lastError, pageWarningPrefix) {
		m.lastError = ""
	}
}

// AppendFor records messages in the in-memory transcript, but only while fp
// is still the active fingerprint: a turn that resolves after its document
// was replaced or closed is dropped here, its history row untouched. It
// reports whether the messages were applied.
func (m *Manager) AppendFor(fp string, msgs ...models.ChatMessage) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fp != m.fingerprint {
		return false
	}
	m.transcript = append(m.transcript, msgs...)
	return true
}

// SetLastError records a visible session error, or clears it when empty.
func (m *Manager) SetLastError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = msg
}

// Close clears the session. Persisted history is untouched.
func (m *Manager) Close() {
	m.mu.Lock()
	m.gen++
	m.doc = nil
	m.fingerprint = ""
	m.displayName = ""
	m.page = 0
	m.pageCount = 0
	m.pageText = ""
	m.summary = ""
	m.summaryPending = false
	m.transcript = nil
	m.lastError = ""
	m.mu.Unlock()

	if m.resetter != nil {
		m.resetter.Reset()
	}
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() State {
	return State{
		Fingerprint:    m.fingerprint,
		DisplayName:    m.displayName,
		Page:           m.page,
		PageCount:      m.pageCount,
		PageText:       m.pageText,
		Summary:        m.summary,
		SummaryPending: m.summaryPending,
		Transcript:     append([]models.ChatMessage{}, m.transcript...),
		LastError:      m.lastError,
	}
}

// PromptContext projects the state a question should be answered against.
func (m *Manager) PromptContext() chat.PromptContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return chat.PromptContext{
		Fingerprint:    m.fingerprint,
		DisplayName:    m.displayName,
		Page:           m.page,
		PageCount:      m.pageCount,
		PageText:       m.pageText,
		Summary:        m.summary,
		SummaryPending: m.summaryPending,
	}
}
