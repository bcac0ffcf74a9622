package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/chat"
	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/ingest"
	"github.com/starford/ansuz/internal/llm"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/session"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
)

// Service coordinates the session, chat, vault, and history operations for
// the API layer.
type Service struct {
	session *session.Manager
	chat    *chat.Service
	store   history.Store
	vault   storage.Provider
	ingest  *ingest.Service
	relay   llm.Generator
	events  *sse.Broker
	logger  *slog.Logger
}

// NewService creates a new API service. events may be nil.
func NewService(
	sess *session.Manager,
	chatSvc *chat.Service,
	store history.Store,
	vault storage.Provider,
	ing *ingest.Service,
	relay llm.Generator,
	events *sse.Broker,
	logger *slog.Logger,
) *Service {
	return &Service{
		session: sess,
		chat:    chatSvc,
		store:   store,
		vault:   vault,
		ingest:  ing,
		relay:   relay,
		events:  events,
		logger:  logger,
	}
}

// UploadAndOpen stores uploaded bytes in the vault and opens them as the
// active document.
func (s *Service) UploadAndOpen(ctx context.Context, data []byte, displayName string) (session.State, error) {
	if _, err := s.ingest.Ingest(data, displayName); err != nil {
		return session.State{}, err
	}
	return s.session.Open(ctx, data, displayName)
}

// Reopen loads a previously stored document from the vault by fingerprint.
func (s *Service) Reopen(ctx context.Context, fp string) (session.State, error) {
	if !s.vault.Exists(fp) {
		return session.State{}, fmt.Errorf("%w: document %s", apperr.ErrNotFound, fp)
	}
	data, err := s.vault.Read(fp)
	if err != nil {
		return session.State{}, err
	}
	entry, err := s.store.Load(fp)
	if err != nil {
		return session.State{}, err
	}
	name := entry.DisplayName
	if name == "" {
		name = fp[:12] + ".pdf"
	}
	return s.session.Open(ctx, data, name)
}

// Recent returns the recent-documents index.
func (s *Service) Recent() ([]models.DocumentRef, error) {
	return s.store.Recent()
}

// Search queries stored transcripts and summaries.
func (s *Service) Search(query string, limit int) ([]history.SearchResult, error) {
	return s.store.Search(query, limit)
}

// Snapshot returns the current session state.
func (s *Service) Snapshot() session.State {
	return s.session.Snapshot()
}

// ChangePage moves the visible page.
func (s *Service) ChangePage(n int) (session.State, error) {
	return s.session.ChangePage(n)
}

// CloseSession clears the active document.
func (s *Service) CloseSession() {
	s.session.Close()
}

// Chat runs one exchange against the current session context. The returned
// turn always carries both messages; a model failure is reflected in the
// assistant message and the session error, not in the error return.
func (s *Service) Chat(ctx context.Context, text string) (chat.Turn, error) {
	pc := s.session.PromptContext()
	turn, err := s.chat.Send(ctx, pc, text, s.session)
	if err != nil {
		return chat.Turn{}, err
	}

	// A turn that resolved after the document changed leaves the new
	// session's error state alone.
	if turn.Applied {
		if turn.ModelErr != nil {
			s.session.SetLastError(turn.ModelErr.Error())
		} else {
			s.session.SetLastError("")
		}
	}

	if s.events != nil {
		for _, m := range []models.ChatMessage{turn.User, turn.Reply} {
			s.events.Publish(sse.Event{Type: sse.EventChatMessage, Data: m})
		}
	}
	return turn, nil
}

// Generate relays a bare prompt to the model with no document context and no
// conversation state.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	return s.relay.Generate(ctx, prompt)
}
