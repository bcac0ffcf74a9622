package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

const maxUploadBytes = 50 << 20 // 50 MB

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// UploadDocument handles POST /api/documents (multipart/form-data, field "file").
//
//	@Summary		Upload a PDF and open it as the active document
//	@Tags			documents
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"PDF file"
//	@Success		201		{object}	SessionState
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	state, err := h.svc.UploadAndOpen(r.Context(), data, header.Filename)
	if err != nil {
		slog.Error("upload failed", slog.String("name", header.Filename), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody("not a readable PDF"))
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// OpenDocument handles POST /api/documents/{fingerprint}/open.
//
//	@Summary		Reopen a stored document as the active document
//	@Tags			documents
//	@Produce		json
//	@Param			fingerprint	path		string	true	"Document fingerprint"
//	@Success		200			{object}	SessionState
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{fingerprint}/open [post]
func (h *Handler) OpenDocument(w http.ResponseWriter, r *http.Request) {
	fp := chi.URLParam(r, "fingerprint")
	state, err := h.svc.Reopen(r.Context(), fp)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("reopen failed", slog.String("fingerprint", fp), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List known documents, most recently accessed first
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	refs, err := h.svc.Recent()
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if refs == nil {
		refs = []models.DocumentRef{}
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: refs, Total: len(refs)})
}

// Search handles GET /api/search.
//
//	@Summary		Search stored transcripts and summaries
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Query string"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	results, err := h.svc.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// GetSession handles GET /api/session.
//
//	@Summary		Current session snapshot
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	SessionState
//	@Security		BearerAuth
//	@Router			/session [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Snapshot())
}

// ChangePage handles PUT /api/session/page.
//
//	@Summary		Change the visible page of the active document
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PageRequest	true	"Target page (1-based)"
//	@Success		200		{object}	SessionState
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/page [put]
func (h *Handler) ChangePage(w http.ResponseWriter, r *http.Request) {
	var req PageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	state, err := h.svc.ChangePage(req.Page)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNoDocument):
			writeJSON(w, http.StatusConflict, errorBody("no document open"))
		case errors.Is(err, apperr.ErrPageOutOfRange):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		default:
			slog.Error("change page failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// CloseSession handles DELETE /api/session.
//
//	@Summary		Close the active document
//	@Tags			session
//	@Success		204
//	@Security		BearerAuth
//	@Router			/session [delete]
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	h.svc.CloseSession()
	w.WriteHeader(http.StatusNoContent)
}

// SendChat handles POST /api/chat.
//
// A model failure is not an HTTP failure: the turn still returns 200 and the
// assistant message carries the error text.
//
//	@Summary		Run one chat exchange against the current document context
//	@Tags			chat
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ChatRequest	true	"User message"
//	@Success		200		{object}	ChatResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/chat [post]
func (h *Handler) SendChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	turn, err := h.svc.Chat(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, apperr.ErrBlankMessage) {
			writeJSON(w, http.StatusBadRequest, errorBody("message is blank"))
		} else {
			slog.Error("chat failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Messages: []models.ChatMessage{turn.User, turn.Reply}})
}

// GetTranscript handles GET /api/chat.
//
//	@Summary		Current in-session transcript
//	@Tags			chat
//	@Produce		json
//	@Success		200	{object}	TranscriptResponse
//	@Security		BearerAuth
//	@Router			/chat [get]
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	state := h.svc.Snapshot()
	writeJSON(w, http.StatusOK, TranscriptResponse{Messages: state.Transcript})
}

// Generate handles POST /api/generate.
//
//	@Summary		Relay a bare prompt to the model
//	@Tags			generate
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GenerateRequest	true	"Prompt"
//	@Success		200		{object}	GenerateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/generate [post]
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("prompt is required"))
		return
	}
	text, err := h.svc.Generate(r.Context(), req.Prompt)
	if err != nil {
		slog.Error("generate failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Text: text})
}
