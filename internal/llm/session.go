package llm

import (
	"context"
	"sync"
)

// Session is the one logical conversation channel reused across chat turns.
// It accumulates alternating user/model contents and replays them with each
// call so the provider sees the whole conversation. A failed call leaves the
// channel history untouched.
type Session struct {
	mu       sync.Mutex
	gen      ContentGenerator
	contents []Content
}

// NewSession creates a conversation session backed by gen.
func NewSession(gen ContentGenerator) *Session {
	return &Session{gen: gen}
}

// Send appends prompt as a user turn, invokes the model with the full
// conversation, and records the model's reply on success.
func (s *Session) Send(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents := append(append([]Content{}, s.contents...), Content{
		Role:  "user",
		Parts: []Part{{Text: prompt}},
	})

	text, err := s.gen.GenerateContents(ctx, contents)
	if err != nil {
		return "", err
	}

	s.contents = append(contents, Content{
		Role:  "model",
		Parts: []Part{{Text: text}},
	})
	return text, nil
}

// Reset discards the accumulated conversation, e.g. when the provider-side
// session has become invalid or the active document changed.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contents = nil
}

// Len returns the number of accumulated turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contents)
}
