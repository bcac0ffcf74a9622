// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz document tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/chat"
	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/ingest"
	"github.com/starford/ansuz/internal/llm"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/pdftext"
	"github.com/starford/ansuz/internal/storage"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp    *server.MCPServer
	store  history.Store
	vault  storage.Provider
	gen    llm.Generator
	ingest *ingest.Service
}

// New creates a new MCP server with all Ansuz tools registered.
func New(store history.Store, vault storage.Provider, gen llm.Generator, ing *ingest.Service) *Server {
	s := &Server{store: store, vault: vault, gen: gen, ingest: ing}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List stored documents, most recently accessed first."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("document_summary",
		mcp.WithDescription("Return the stored summary for a document."),
		mcp.WithString("fingerprint", mcp.Required(), mcp.Description("SHA-256 content fingerprint of the document")),
	), s.documentSummary)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Extract the plain text of one page of a stored document."),
		mcp.WithString("fingerprint", mcp.Required(), mcp.Description("SHA-256 content fingerprint of the document")),
		mcp.WithNumber("page", mcp.Required(), mcp.Description("Page number, 1-based")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("ask_document",
		mcp.WithDescription("Ask a question about a stored document. The question is answered "+
			"with the document's summary and the given page's text as context, and the "+
			"exchange is appended to the document's transcript."),
		mcp.WithString("fingerprint", mcp.Required(), mcp.Description("SHA-256 content fingerprint of the document")),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question to ask")),
		mcp.WithNumber("page", mcp.Description("Page to use as context, 1-based (default 1)")),
	), s.askDocument)

	s.mcp.AddTool(mcp.NewTool("search_history",
		mcp.WithDescription("Full-text search through stored chat transcripts and summaries."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchHistory)

	s.mcp.AddTool(mcp.NewTool("ingest_document",
		mcp.WithDescription("Fetch a PDF from an http(s) URL or base64 data URI and store it "+
			"in the document vault under its content fingerprint."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:application/pdf;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Display name for the document (optional)")),
	), s.ingestDocument)

	// Resource: tool usage guide.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://usage", "Ansuz Tool Usage",
			mcp.WithResourceDescription("How the document tools fit together."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readUsageResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// loadDocument reads a vaulted document and parses it.
func (s *Server) loadDocument(fp string) (*pdftext.Document, error) {
	data, err := s.vault.Read(fp)
	if err != nil {
		return nil, fmt.Errorf("document not stored: %s", fp)
	}
	return pdftext.Load(data)
}

// optionalPage reads a 1-based page argument, defaulting to def.
func optionalPage(req mcp.CallToolRequest, def int) int {
	args := req.GetArguments()
	if v, ok := args["page"]; ok {
		if f, ok := v.(float64); ok && f >= 1 {
			return int(f)
		}
	}
	return def
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, err := s.store.Recent()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if refs == nil {
		refs = []models.DocumentRef{}
	}
	out, _ := json.MarshalIndent(refs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) documentSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fp, err := req.RequireString("fingerprint")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := s.store.Load(fp)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if entry.Summary == "" {
		return mcp.NewToolResultText("no summary stored for this document"), nil
	}
	return mcp.NewToolResultText(entry.Summary), nil
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fp, err := req.RequireString("fingerprint")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.loadDocument(fp)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page := optionalPage(req, 1)
	text, err := doc.PageText(page)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if text == "" {
		return mcp.NewToolResultText("(no text could be extracted from this page)"), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) askDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fp, err := req.RequireString("fingerprint")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entry, err := s.store.Load(fp)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.loadDocument(fp)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	page := optionalPage(req, 1)
	pageText, err := doc.PageText(page)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	prompt := chat.BuildPrompt(chat.PromptContext{
		Fingerprint: fp,
		DisplayName: entry.DisplayName,
		Page:        page,
		PageCount:   doc.PageCount(),
		PageText:    pageText,
		Summary:     entry.Summary,
	}, question)

	answer, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pair := []models.ChatMessage{
		models.NewChatMessage(models.SenderUser, question),
		models.NewChatMessage(models.SenderAI, answer),
	}
	if err := s.store.Save(fp, entry.DisplayName, pair, entry.Summary); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(answer), nil
}

func (s *Server) searchHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.store.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readUsageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://usage",
			MIMEType: "text/markdown",
			Text:     UsageGuide,
		},
	}, nil
}
