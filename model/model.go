// Package model defines the language-model capability consumed by the
// conversation engine: an ordered message list in, a completion text out.
// Tool availability is communicated purely through the system prompt, so the
// interface stays vendor neutral and a single engine can drive any provider.
package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/zerolxy612/lexiAI-sub001/core"
)

// Request captures the normalized model input produced by the engine.
type Request struct {
	// Messages is the full conversation history in chronological order.
	Messages []core.Message `json:"messages"`
	// Temperature overrides the adapter default when > 0.
	Temperature float64 `json:"temperature,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a completed (non-streaming) model response.
type Response struct {
	Content string      `json:"content"`
	Usage   *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface required to drive generation.
type Model interface {
	// Complete performs one model invocation over the full history.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests. Responses are
// consumed FIFO from a scripted queue; an enqueued error is returned in its
// queue position. It records every request it receives.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	script   []scripted
	requests []Request
}

type scripted struct {
	text string
	err  error
}

// NewMockModel constructs an empty MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{info: Info{Name: name, Provider: "mock"}}
}

// EnqueueResponse appends a canned completion to the script.
func (m *MockModel) EnqueueResponse(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{text: text})
}

// EnqueueError appends a failing invocation to the script.
func (m *MockModel) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{err: err})
}

// Complete implements Model, consuming the next scripted entry.
func (m *MockModel) Complete(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if len(m.script) == 0 {
		return nil, fmt.Errorf("mock model script exhausted after %d calls", len(m.requests))
	}

	next := m.script[0]
	m.script = m.script[1:]

	if next.err != nil {
		return nil, next.err
	}

	return &Response{Content: next.text}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

// CallCount reports how many invocations the mock has served.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of all recorded requests in call order.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := make([]Request, len(m.requests))
	copy(reqs, m.requests)
	return reqs
}
