// internal/triage/llm.go
package triage

import (
	"context"
	"fmt"
)

// Provider is the interface for any text-generation backend the advisor can
// call. Implementations must honor ctx cancellation.
type Provider interface {
	Send(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
}

// LLMRequest is a single-turn generation request.
type LLMRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// JSON asks the backend for a JSON-only response when it supports it.
	JSON bool
}

// LLMResponse is the generated text plus accounting.
type LLMResponse struct {
	Text  string
	Model string
	Usage Usage
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// StatusError is returned by providers when the upstream answered with a
// non-success status.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s api error %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s api error %d: %s", e.Provider, e.StatusCode, e.Message)
}
