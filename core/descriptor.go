package core

// TransportKind selects the wire transport used to reach a tool provider.
type TransportKind string

const (
	// TransportStdio spawns the provider as a subprocess and speaks over its
	// standard streams.
	TransportStdio TransportKind = "stdio"
	// TransportSSE reaches the provider over a server-sent-events endpoint.
	TransportSSE TransportKind = "sse"
	// TransportStreamableHTTP reaches the provider over the streamable HTTP
	// protocol.
	TransportStreamableHTTP TransportKind = "streamableHttp"
)

// ReconnectPolicy describes how an HTTP-based provider connection should be
// re-established after transport failures.
type ReconnectPolicy struct {
	Enabled     bool `json:"enabled"`
	MaxAttempts int  `json:"maxAttempts"`
	DelayMs     int  `json:"delayMs"`
}

// ProviderDescriptor is an immutable, typed description of how to reach one
// configured tool provider. Exactly one descriptor exists per provider,
// keyed by ID. Which parameter fields are meaningful depends on Transport:
// Command/Args/Env for stdio, URL/Headers/Reconnect for sse and
// streamableHttp.
type ProviderDescriptor struct {
	ID        string
	Name      string
	Transport TransportKind

	// stdio transport parameters. Env entries are merged over the process
	// environment when the provider subprocess is spawned.
	Command string
	Args    []string
	Env     map[string]string

	// sse / streamableHttp transport parameters.
	URL       string
	Headers   map[string]string
	Reconnect ReconnectPolicy
}
