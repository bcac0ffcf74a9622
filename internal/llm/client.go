// Package llm provides the remote language-model client.
//
// The client speaks the Gemini generateContent REST API with a fixed
// generation configuration; the API credential lives here, server-side,
// and never reaches any caller of the HTTP API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Generator produces a model response for a single standalone prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ContentGenerator produces a model response for a full conversation.
type ContentGenerator interface {
	GenerateContents(ctx context.Context, contents []Content) (string, error)
}

// Content is one conversation turn in the provider wire format.
type Content struct {
	Role  string `json:"role"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// Part is a text fragment within a turn.
type Part struct {
	Text string `json:"text"`
}

// Options configures the client.
type Options struct {
	Endpoint        string  // provider base URL
	Model           string  // e.g. "gemini-1.5-flash"
	APIKey          string
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
	Timeout         time.Duration
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	opts   Options
	client *http.Client
}

// NewClient creates a model client with the given options.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		opts:   opts,
		client: &http.Client{Timeout: timeout},
	}
}

// Generate sends a single-prompt request.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.GenerateContents(ctx, []Content{
		{Role: "user", Parts: []Part{{Text: prompt}}},
	})
}

// GenerateContents sends a multi-turn request and returns the model's text.
func (c *Client) GenerateContents(ctx context.Context, contents []Content) (string, error) {
	reqBody, err := json.Marshal(generateRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			Temperature:     c.opts.Temperature,
			TopK:            c.opts.TopK,
			TopP:            c.opts.TopP,
			MaxOutputTokens: c.opts.MaxOutputTokens,
		},
		SafetySettings: defaultSafetySettings,
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.opts.Endpoint, c.opts.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.opts.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Surface the provider's own message where present so the failure
		// text shown in chat is meaningful ("quota exceeded" etc).
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("llm: %s", errResp.Error.Message)
		}
		return "", fmt.Errorf("llm: provider returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("llm: unmarshal response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("llm: provider returned no candidate text")
	}

	var text string
	for _, p := range result.Candidates[0].Content.Parts {
		text += p.Text
	}
	return text, nil
}

type generateRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings,omitempty"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

var defaultSafetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []Part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
