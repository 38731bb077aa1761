// Package gemini implements triage.Provider on the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/linnemanlabs/sahayak/internal/triage"
)

const (
	providerName = "gemini"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.0-flash"
)

// Client implements triage.Provider for the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a Gemini API client. baseURL overrides the API endpoint and is
// empty in production.
func New(ctx context.Context, apiKey, model, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &Client{client: gc, model: model}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Send makes one generateContent call. A response without candidates yields
// empty text, not an error.
func (c *Client) Send(ctx context.Context, req *triage.LLMRequest) (*triage.LLMResponse, error) {
	content := genai.NewContentFromText(req.Prompt, genai.RoleUser)

	resp, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{content}, generateConfig(req))
	if err != nil {
		if code, ok := statusCode(err); ok {
			return nil, &triage.StatusError{
				Provider:   providerName,
				StatusCode: code,
				Message:    http.StatusText(code),
			}
		}
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}
	return fromResponse(c.model, resp), nil
}

func generateConfig(req *triage.LLMRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

func fromResponse(model string, resp *genai.GenerateContentResponse) *triage.LLMResponse {
	out := &triage.LLMResponse{Model: model}
	if resp == nil {
		return out
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = triage.Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
		}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	out.Text = b.String()
	return out
}

func statusCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code != 0 {
		return apiErrPtr.Code, true
	}
	return 0, false
}
