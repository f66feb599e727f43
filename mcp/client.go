package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/zerolxy612/lexiAI-sub001/core"
	"github.com/zerolxy612/lexiAI-sub001/logging"
)

const (
	clientName      = "lexiai"
	clientVersion   = "0.1.0"
	protocolVersion = "2024-11-05"
)

// ClientOptions configure the provider client.
type ClientOptions struct {
	// Logger receives connection and tool call events.
	Logger logging.Logger
}

// Client manages live connections to MCP tool providers. One Client holds
// many provider connections, keyed by descriptor id. All methods are safe for
// concurrent use.
type Client struct {
	*core.LoggerAdapter

	mu     sync.Mutex
	conns  map[string]*connection
	closed bool
}

type connection struct {
	desc core.ProviderDescriptor
	mcp  *client.Client
}

// NewClient creates an empty provider client.
func NewClient(optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{
		LoggerAdapter: core.NewLoggerAdapter(opts.Logger),
		conns:         make(map[string]*connection),
	}
}

// Connect establishes a connection to the provider described by desc and
// performs the protocol handshake. When the descriptor carries a reconnect
// policy, failed attempts are retried up to the configured bound. A second
// Connect for the same descriptor id replaces the previous connection.
func (c *Client) Connect(ctx context.Context, desc core.ProviderDescriptor) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("provider client is closed")
	}
	c.mu.Unlock()

	attempts := 1
	delay := time.Duration(0)
	if desc.Reconnect.Enabled {
		if desc.Reconnect.MaxAttempts > 0 {
			attempts = desc.Reconnect.MaxAttempts
		}
		delay = time.Duration(desc.Reconnect.DelayMs) * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 && delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		mcpClient, err := c.dial(ctx, desc)
		if err != nil {
			lastErr = err
			c.LogWarn("mcp.connect_attempt_failed",
				"provider", desc.Name, "attempt", attempt, "error", err)
			continue
		}

		c.mu.Lock()
		if prev, ok := c.conns[desc.ID]; ok {
			_ = prev.mcp.Close()
		}
		c.conns[desc.ID] = &connection{desc: desc, mcp: mcpClient}
		c.mu.Unlock()

		c.LogInfo("mcp.connected",
			"provider", desc.Name, "transport", string(desc.Transport))
		return nil
	}

	return fmt.Errorf("connect to provider %s: %w", desc.Name, lastErr)
}

// dial creates, starts and initializes a transport-specific MCP client.
func (c *Client) dial(ctx context.Context, desc core.ProviderDescriptor) (*client.Client, error) {
	var (
		mcpClient *client.Client
		err       error
	)

	switch desc.Transport {
	case core.TransportStdio:
		mcpClient, err = client.NewStdioMCPClient(desc.Command, envSlice(desc.Env), desc.Args...)
	case core.TransportSSE:
		var opts []transport.ClientOption
		if len(desc.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(desc.Headers))
		}
		mcpClient, err = client.NewSSEMCPClient(desc.URL, opts...)
	case core.TransportStreamableHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(desc.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(desc.Headers))
		}
		mcpClient, err = client.NewStreamableHttpClient(desc.URL, opts...)
	default:
		return nil, fmt.Errorf("unsupported transport %q", desc.Transport)
	}
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		_ = mcpClient.Close()
		return nil, fmt.Errorf("start client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = protocolVersion
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		_ = mcpClient.Close()
		return nil, fmt.Errorf("initialize: %w", err)
	}

	return mcpClient, nil
}

// ListTools fetches the provider's tool catalog and normalizes it. The tool
// id defaults to the provider-reported name; callers resolve cross-provider
// collisions.
func (c *Client) ListTools(ctx context.Context, providerID string) ([]core.Tool, error) {
	conn, err := c.conn(providerID)
	if err != nil {
		return nil, err
	}

	resp, err := conn.mcp.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools on provider %s: %w", conn.desc.Name, err)
	}

	tools := make([]core.Tool, 0, len(resp.Tools))
	for _, mcpTool := range resp.Tools {
		tools = append(tools, core.Tool{
			ID:           mcpTool.Name,
			Name:         mcpTool.Name,
			ProviderID:   conn.desc.ID,
			ProviderName: conn.desc.Name,
			Description:  mcpTool.Description,
			InputSchema:  convertSchema(mcpTool.InputSchema),
		})
	}

	return tools, nil
}

// CallTool executes a tool on its owning provider and returns the joined text
// content. A provider-reported failure is returned as *ToolExecutionError.
func (c *Client) CallTool(ctx context.Context, tool core.Tool, args any) (string, error) {
	conn, err := c.conn(tool.ProviderID)
	if err != nil {
		return "", err
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = tool.Name
	req.Params.Arguments = args

	start := time.Now()
	resp, err := conn.mcp.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call tool %s on provider %s: %w", tool.Name, conn.desc.Name, err)
	}

	c.LogDebug("mcp.tool_called",
		"provider", conn.desc.Name, "tool", tool.Name, "duration", time.Since(start))

	if resp.IsError {
		return "", &ToolExecutionError{
			Tool:     tool.Name,
			Provider: conn.desc.Name,
			Message:  errorText(resp),
		}
	}

	return textContent(resp), nil
}

// Providers returns the descriptors of all live connections.
func (c *Client) Providers() []core.ProviderDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()

	descs := make([]core.ProviderDescriptor, 0, len(c.conns))
	for _, conn := range c.conns {
		descs = append(descs, conn.desc)
	}
	return descs
}

// Close shuts down every live connection. It is safe to call more than once;
// later calls are no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for id, conn := range c.conns {
		if err := conn.mcp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close provider %s: %w", conn.desc.Name, err))
		}
		delete(c.conns, id)
	}

	return errors.Join(errs...)
}

func (c *Client) conn(providerID string) (*connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, ok := c.conns[providerID]
	if !ok {
		return nil, &ProviderNotFoundError{ProviderID: providerID}
	}
	return conn, nil
}

// textContent joins all text items of a tool result with newlines.
func textContent(resp *mcp.CallToolResult) string {
	var texts []string
	for _, content := range resp.Content {
		if textItem, ok := content.(mcp.TextContent); ok {
			texts = append(texts, textItem.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// errorText returns the first text item of a failed result.
func errorText(resp *mcp.CallToolResult) string {
	for _, content := range resp.Content {
		if textItem, ok := content.(mcp.TextContent); ok && textItem.Text != "" {
			return textItem.Text
		}
	}
	return "unknown error"
}

// convertSchema normalizes the SDK schema type into a plain map through a
// marshal round trip.
func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}
