package adapter

import (
	"context"
	"fmt"
	"strings"
)

// MockAdapter returns deterministic responses for local runs and tests. It
// can script per-message chunk sequences and inject failures, including
// mid-stream ones.
type MockAdapter struct {
	responses       map[string][]string
	defaultResponse string

	// Err fails every call. StreamErrAfter > 0 emits that many chunks
	// first, then fails; it only applies when Err is set.
	Err            error
	StreamErrAfter int
}

// NewMockAdapter creates a mock adapter with a default response.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		responses:       make(map[string][]string),
		defaultResponse: "mock response:",
	}
}

// Script sets the chunk sequence returned for a message.
func (a *MockAdapter) Script(message string, chunks ...string) {
	a.responses[message] = chunks
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return "mock"
}

// Models returns the list of supported mock models.
func (a *MockAdapter) Models() []string {
	return []string{"mock-1"}
}

func (a *MockAdapter) chunks(req Request) []string {
	if chunks, ok := a.responses[req.Message]; ok {
		return chunks
	}
	return []string{fmt.Sprintf("%s\n%s", a.defaultResponse, req.Message)}
}

// Complete returns the scripted reply for the message.
func (a *MockAdapter) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if a.Err != nil && a.StreamErrAfter == 0 {
		return "", a.Err
	}
	return strings.Join(a.chunks(req), ""), nil
}

// CompleteStream emits the scripted chunks in order, honoring the injected
// failure point.
func (a *MockAdapter) CompleteStream(ctx context.Context, req Request, emit func(delta string) error) error {
	if a.Err != nil && a.StreamErrAfter == 0 {
		return a.Err
	}
	for i, chunk := range a.chunks(req) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(chunk); err != nil {
			return err
		}
		if a.Err != nil && i+1 == a.StreamErrAfter {
			return a.Err
		}
	}
	return nil
}
