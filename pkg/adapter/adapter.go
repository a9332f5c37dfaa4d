// Package adapter wraps the LLM providers behind one synchronous interface:
// a single-shot completion and a blocking chunked completion. Turning the
// blocking calls into cancellable streams is the gen package's job.
package adapter

import (
	"context"
	"fmt"
)

// Adapter is one LLM provider.
type Adapter interface {
	// Complete sends the request and blocks until the full reply is ready.
	Complete(ctx context.Context, req Request) (string, error)

	// CompleteStream sends the request and blocks while calling emit once
	// per text chunk, in order. It returns after the final chunk or on the
	// first error; emit returning an error aborts the call.
	CompleteStream(ctx context.Context, req Request, emit func(delta string) error) error

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// New constructs the named adapter. The mock adapter needs no key.
func New(name, apiKey string) (Adapter, error) {
	switch name {
	case "google":
		return NewGoogleAdapter(apiKey)
	case "openai":
		return NewOpenAIAdapter(apiKey)
	case "anthropic":
		return NewAnthropicAdapter(apiKey)
	case "deepseek":
		return NewDeepSeekAdapter(apiKey)
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown adapter %q", name)
	}
}
