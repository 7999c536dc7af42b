package mock

import (
	"context"
	"sync"

	"github.com/poiesic/merchantdesk/ai"
)

// DefaultCompletion is returned by MockCompleter when no CompleteFunc is set.
const DefaultCompletion = "Based on the available documents, here is what I found."

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via function fields.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, returns DefaultCompletion.
	CompleteFunc func(ctx context.Context, req ai.CompletionRequest) (string, error)

	mu          sync.Mutex
	callCount   int
	lastRequest *ai.CompletionRequest
}

// NewMockCompleter creates a mock completer with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockCompleter().
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete records the request and returns the configured response.
func (m *MockCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.callCount++
	captured := req
	m.lastRequest = &captured
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return DefaultCompletion, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastRequest returns the most recent request, or nil if Complete was never called.
func (m *MockCompleter) LastRequest() *ai.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// Reset clears the call count, recorded request and injected behavior.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastRequest = nil
	m.CompleteFunc = nil
}
