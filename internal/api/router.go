package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Post("/documents", h.UploadDocument)
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents/{fingerprint}/open", h.OpenDocument)

	// Search.
	r.Get("/search", h.Search)

	// Session.
	r.Get("/session", h.GetSession)
	r.Put("/session/page", h.ChangePage)
	r.Delete("/session", h.CloseSession)

	// Chat.
	r.Post("/chat", h.SendChat)
	r.Get("/chat", h.GetTranscript)

	// Bare model relay.
	r.Post("/generate", h.Generate)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
