package assistant

import (
	"context"

	"github.com/zerolxy612/lexiAI-sub001/core"
	"github.com/zerolxy612/lexiAI-sub001/mcp"
)

// ProviderClient is the connection surface the assistant needs from a tool
// provider backend. *mcp.Client is the production implementation; tests
// substitute instrumented fakes.
type ProviderClient interface {
	// Connect establishes (or replaces) the connection for one provider.
	Connect(ctx context.Context, desc core.ProviderDescriptor) error

	// ListTools returns the normalized tool catalog of one connected provider.
	ListTools(ctx context.Context, providerID string) ([]core.Tool, error)

	// CallTool executes a tool on its owning provider and returns the text
	// result.
	CallTool(ctx context.Context, tool core.Tool, args any) (string, error)

	// Close releases all connections. Safe to call more than once.
	Close() error
}

var _ ProviderClient = (*mcp.Client)(nil)
