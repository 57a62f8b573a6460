// Package llm defines the uniform text-completion contract the pipeline
// consumes. Each provider adapter owns its own request shaping and response
// unwrapping; the pipeline only ever sees (text, error).
package llm

import "context"

// Request is a single-shot completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Provider is the interface for any text-completion backend.
type Provider interface {
	// Name identifies the provider for logging and the explanation tag.
	Name() string
	// Generate returns the completion text for the request. An empty
	// completion is an error; callers never receive ("", nil).
	Generate(ctx context.Context, req *Request) (string, error)
}
