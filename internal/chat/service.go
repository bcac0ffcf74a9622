package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/models"
)

// Talker is the conversation channel the orchestrator speaks through.
// *llm.Session satisfies it.
type Talker interface {
	Send(ctx context.Context, prompt string) (string, error)
	Reset()
}

// Transcript receives the messages of a turn as they are produced. The
// session manager satisfies it: AppendFor drops messages once fingerprint
// is no longer the active document.
type Transcript interface {
	AppendFor(fingerprint string, msgs ...models.ChatMessage) bool
}

// Turn is the outcome of one chat exchange. Reply is always populated:
// when the model call fails, Reply carries the visible error text and
// ModelErr the underlying cause. Applied is false when the live transcript
// refused the reply because the active document changed mid-flight.
type Turn struct {
	User     models.ChatMessage
	Reply    models.ChatMessage
	ModelErr error
	Applied  bool
}

// Service turns user questions into transcript message pairs.
type Service struct {
	model  Talker
	store  history.Store
	logger *slog.Logger
}

// NewService creates the chat orchestrator.
func NewService(model Talker, store history.Store, logger *slog.Logger) *Service {
	return &Service{model: model, store: store, logger: logger}
}

// Send runs one exchange: the user message lands in the live transcript
// before the model call, the prompt is built from the context current at the
// time of asking, and the model reply (or a visible failure message) follows
// once the call resolves. When a document is open the resulting pair is
// persisted under its fingerprint even if the session has moved on.
// transcript may be nil.
func (s *Service) Send(ctx context.Context, pc PromptContext, text string, transcript Transcript) (Turn, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Turn{}, apperr.ErrBlankMessage
	}

	turn := Turn{User: models.NewChatMessage(models.SenderUser, trimmed), Applied: true}
	if transcript != nil {
		transcript.AppendFor(pc.Fingerprint, turn.User)
	}

	answer, err := s.model.Send(ctx, BuildPrompt(pc, trimmed))
	if err != nil {
		s.logger.Warn("model call failed", "fingerprint", pc.Fingerprint, "error", err)
		turn.ModelErr = err
		turn.Reply = models.NewChatMessage(models.SenderAI, "Sorry, I encountered an error: "+err.Error())
	} else {
		turn.Reply = models.NewChatMessage(models.SenderAI, answer)
	}
	if transcript != nil {
		turn.Applied = transcript.AppendFor(pc.Fingerprint, turn.Reply)
	}

	if pc.Fingerprint != "" {
		pair := []models.ChatMessage{turn.User, turn.Reply}
		if err := s.store.Save(pc.Fingerprint, pc.DisplayName, pair, pc.Summary); err != nil {
			// The exchange already happened; losing persistence must not
			// surface as a chat failure.
			s.logger.Error("persist transcript", "fingerprint", pc.Fingerprint, "error", err)
		}
	}

	return turn, nil
}

// Reset drops the model-side conversation, used when the active document
// changes or the channel state has gone bad.
func (s *Service) Reset() {
	s.model.Reset()
}
