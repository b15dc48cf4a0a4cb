// Package provider sends transcripts to an OpenAI-compatible chat completion API.
package provider

import (
	"context"

	"github.com/erg0nix/parley/internal/core"
)

// Client generates an assistant reply for an ordered list of messages.
type Client interface {
	// Complete blocks until the whole reply is available.
	Complete(ctx context.Context, messages []core.Message, opts Options) (Response, error)

	// Stream returns the reply as it is generated. The caller must Close the stream.
	Stream(ctx context.Context, messages []core.Message, opts Options) (*Stream, error)
}

// Options controls one generation request. Extra is copied into the request
// body verbatim and never interpreted here.
type Options struct {
	Model       string
	Temperature *float64
	MaxTokens   *int
	Extra       map[string]any
}

// Response holds the parsed result of a non-streaming completion.
type Response struct {
	Content string `json:"content"`
	Usage   *Usage `json:"usage,omitempty"`
}

// Usage tracks token consumption for a single request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
