// Package llm provides the abstraction over vision-capable chat models.
//
// Providers handle API communication and return plain completions. The
// oracle layer is responsible for prompt construction, response validation,
// and retry policy; keeping providers free of those concerns makes them
// reusable and independently testable.
package llm

import "context"

// CompletionOptions tunes a single completion request.
type CompletionOptions struct {
	// MaxTokens caps the response size. Zero means provider default.
	// The oracle lowers this ceiling on retry to reduce truncation risk.
	MaxTokens int

	// Temperature overrides the sampling temperature when non-nil.
	Temperature *float64
}

// Completion is a full model response with token accounting.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Provider defines the interface for model integrations.
type Provider interface {
	// Complete sends messages to the model and returns the full response.
	// opts may be nil for provider defaults. Network and API failures are
	// returned as errors; an empty Content with a nil error is possible
	// and must be handled by callers (the oracle treats it as an empty
	// response worth retrying).
	Complete(ctx context.Context, messages []*Message, opts *CompletionOptions) (*Completion, error)

	// GetModel returns the model name being used.
	GetModel() string

	// GetBaseURL returns the base URL being used for API requests.
	GetBaseURL() string
}
