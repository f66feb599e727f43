package mcp

import "fmt"

// ToolExecutionError reports a failure surfaced by a provider while running a
// tool. It is distinct from transport errors so callers can feed the provider
// message back into the conversation.
type ToolExecutionError struct {
	Tool     string
	Provider string
	Message  string
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s on provider %s failed: %s", e.Tool, e.Provider, e.Message)
}

// ProviderNotFoundError indicates a call referenced a provider id with no
// live connection.
type ProviderNotFoundError struct {
	ProviderID string
}

func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("no connection for provider %s", e.ProviderID)
}
