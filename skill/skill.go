// Package skill is the orchestration entry point: it turns one incoming
// query into one session, connects the configured tool providers with
// partial-failure tolerance, drives the conversation engine and guarantees
// cleanup. When tool orchestration is unavailable or fails it falls back to a
// direct, toolless answer so the caller always receives text.
package skill

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zerolxy612/lexiAI-sub001/assistant"
	"github.com/zerolxy612/lexiAI-sub001/core"
	"github.com/zerolxy612/lexiAI-sub001/internal/util"
	"github.com/zerolxy612/lexiAI-sub001/logging"
	"github.com/zerolxy612/lexiAI-sub001/mcp"
	"github.com/zerolxy612/lexiAI-sub001/model"
)

// Input carries one orchestration request.
type Input struct {
	// Query is the user's question.
	Query string `json:"query"`

	// Images holds optional image references included as context.
	Images []string `json:"images,omitempty"`

	// MCPServerURLs is a comma-separated list of provider endpoints.
	MCPServerURLs string `json:"mcpServerUrls,omitempty"`

	// AutoConnect enables tool orchestration. When false the query is
	// answered directly without connecting providers.
	AutoConnect bool `json:"autoConnect,omitempty"`

	// ModelTemperature overrides the model default when > 0. Expected range
	// [0,1].
	ModelTemperature float64 `json:"modelTemperature,omitempty"`
}

// Options configure a Manager.
type Options struct {
	// Instruction is the base system instruction passed to each session's
	// engine.
	Instruction string

	// Logger receives orchestration events.
	Logger logging.Logger

	// NewProviderClient constructs the provider backend for one session.
	// Defaults to mcp.NewClient.
	NewProviderClient func() assistant.ProviderClient
}

// Manager maps live session identifiers to conversation engines and owns the
// orchestrate-or-fall-back decision. Safe for concurrent Execute calls under
// distinct sessions.
type Manager struct {
	*core.LoggerAdapter

	llm  model.Model
	opts Options

	mu        sync.Mutex
	sessions  map[string]*assistant.Assistant
	descCache map[string]core.ProviderDescriptor
}

// NewManager creates a Manager bound to one model.
func NewManager(llm model.Model, optFns ...func(o *Options)) *Manager {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.NewProviderClient == nil {
		opts.NewProviderClient = func() assistant.ProviderClient {
			return mcp.NewClient(func(o *mcp.ClientOptions) {
				o.Logger = opts.Logger
			})
		}
	}

	return &Manager{
		LoggerAdapter: core.NewLoggerAdapter(opts.Logger),
		llm:           llm,
		opts:          opts,
		sessions:      make(map[string]*assistant.Assistant),
		descCache:     make(map[string]core.ProviderDescriptor),
	}
}

// SessionCount reports the number of live sessions.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Execute answers one query. Tool orchestration is attempted when providers
// are configured and AutoConnect is set; in every other case, and on any
// unrecovered tool-loop failure, the direct answer path is used instead. The
// session's provider connections are released before Execute returns,
// on success and failure alike.
func (m *Manager) Execute(ctx context.Context, in Input, progress chan<- core.ProgressEvent) (string, error) {
	sessionID := fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), util.ShortID(8))

	a := assistant.New(m.llm, m.opts.NewProviderClient(), func(o *assistant.Options) {
		o.Instruction = m.opts.Instruction
		o.Temperature = in.ModelTemperature
		o.Progress = progress
		o.Logger = m.opts.Logger
	})

	m.mu.Lock()
	m.sessions[sessionID] = a
	m.mu.Unlock()

	defer func() {
		if err := a.Close(); err != nil {
			m.LogWarn("skill.session_close_failed", "session", sessionID, "error", err)
		}
		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.mu.Unlock()
	}()

	m.LogInfo("skill.session_started", "session", sessionID, "auto_connect", in.AutoConnect)

	descriptors := m.descriptors(in.MCPServerURLs)
	if len(descriptors) == 0 || !in.AutoConnect {
		return m.directAnswer(ctx, in)
	}

	summary := m.connectAll(ctx, a, descriptors)
	m.emitSummary(ctx, progress, summary)

	if summary.Connected == 0 {
		return m.directAnswer(ctx, in)
	}

	answer, err := m.runToolLoop(ctx, a, in)
	if err != nil {
		m.LogError("skill.tool_loop_failed", "session", sessionID, "error", err)
		return m.directAnswer(ctx, in)
	}

	return answer, nil
}

// descriptors resolves the endpoint list against the descriptor cache so a
// repeated configuration keeps stable provider identities.
func (m *Manager) descriptors(serverURLs string) []core.ProviderDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()

	var descriptors []core.ProviderDescriptor
	for _, endpoint := range strings.Split(serverURLs, ",") {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint == "" {
			continue
		}
		desc, ok := m.descCache[endpoint]
		if !ok {
			desc = mcp.DescriptorFromURL(endpoint)
			m.descCache[endpoint] = desc
		}
		descriptors = append(descriptors, desc)
	}
	return descriptors
}

// connectAll attempts every provider independently. Failures are recorded per
// provider and never abort the remaining attempts.
func (m *Manager) connectAll(ctx context.Context, a *assistant.Assistant, descriptors []core.ProviderDescriptor) core.ConnectionSummary {
	summary := core.ConnectionSummary{Total: len(descriptors)}

	for _, desc := range descriptors {
		tools, err := a.AddServer(ctx, desc)
		if err != nil {
			summary.Failed++
			if summary.Errors == nil {
				summary.Errors = make(map[string]string)
			}
			summary.Errors[desc.Name] = err.Error()
			m.LogWarn("skill.provider_connect_failed", "provider", desc.Name, "error", err)
			continue
		}
		summary.Connected++
		summary.ToolCount = len(tools)
	}

	m.LogInfo("skill.providers_connected",
		"total", summary.Total, "connected", summary.Connected,
		"failed", summary.Failed, "tools", summary.ToolCount)

	return summary
}

func (m *Manager) emitSummary(ctx context.Context, progress chan<- core.ProgressEvent, summary core.ConnectionSummary) {
	if progress == nil {
		return
	}
	select {
	case progress <- core.ProgressEvent{Type: core.ProgressConnectionSummary, Summary: &summary}:
	case <-ctx.Done():
	}
}

// runToolLoop drives the engine, converting panics into errors so a
// misbehaving provider integration degrades to the fallback path instead of
// crashing the caller.
func (m *Manager) runToolLoop(ctx context.Context, a *assistant.Assistant, in Input) (answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool loop panic: %v", r)
		}
	}()

	return a.Run(ctx, queryWithImages(in))
}

// directAnswer is the fallback policy: one toolless model call over a minimal
// single-turn request.
func (m *Manager) directAnswer(ctx context.Context, in Input) (string, error) {
	m.LogInfo("skill.direct_answer")

	resp, err := m.llm.Complete(ctx, model.Request{
		Messages:    []core.Message{core.NewUserMessage(queryWithImages(in))},
		Temperature: in.ModelTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("direct answer: %w", err)
	}

	return resp.Content, nil
}

// queryWithImages appends image references to the query text.
func queryWithImages(in Input) string {
	if len(in.Images) == 0 {
		return in.Query
	}

	var b strings.Builder
	b.WriteString(in.Query)
	b.WriteString("\n\nAttached images:")
	for _, img := range in.Images {
		b.WriteString("\n- ")
		b.WriteString(img)
	}
	return b.String()
}
