package api

import (
	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/session"
)

// SessionState is the session snapshot response type (aliased from the
// domain layer).
type SessionState = session.State

// DocumentListResponse wraps the recent-documents index.
type DocumentListResponse struct {
	Documents []models.DocumentRef `json:"documents" validate:"required"`
	Total     int                  `json:"total" example:"3" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = history.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// PageRequest is the request body for changing the visible page.
type PageRequest struct {
	Page int `json:"page" example:"3" validate:"required"`
}

// ChatRequest is the request body for a chat turn.
type ChatRequest struct {
	Message string `json:"message" example:"What is this document about?" validate:"required"`
}

// ChatResponse carries the user/assistant message pair for one turn.
type ChatResponse struct {
	Messages []models.ChatMessage `json:"messages" validate:"required"`
}

// TranscriptResponse carries the full in-session transcript.
type TranscriptResponse struct {
	Messages []models.ChatMessage `json:"messages" validate:"required"`
}

// GenerateRequest is the request body for the bare model relay.
type GenerateRequest struct {
	Prompt string `json:"prompt" example:"Write a haiku" validate:"required"`
}

// GenerateResponse is the relay response.
type GenerateResponse struct {
	Text string `json:"text" validate:"required"`
}
