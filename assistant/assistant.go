// Package assistant implements the conversation engine: it owns the message
// history and the turn loop that alternates between model invocations and
// parallel tool execution until the model answers without requesting tools.
package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zerolxy612/lexiAI-sub001/core"
	"github.com/zerolxy612/lexiAI-sub001/extract"
	"github.com/zerolxy612/lexiAI-sub001/logging"
	"github.com/zerolxy612/lexiAI-sub001/model"
)

// maxTurnDepth bounds the model/tool recursion of one run.
const maxTurnDepth = 10

// depthExceededMessage is returned when the turn loop hits maxTurnDepth.
const depthExceededMessage = "I have reached the maximum number of tool-use rounds for this request. Here is my answer based on the information gathered so far; please narrow the request if you need more detail."

// Options configure an Assistant.
type Options struct {
	// Instruction is the base system instruction prepended to the tool
	// protocol section of the system prompt.
	Instruction string

	// Temperature is forwarded to every model call when > 0.
	Temperature float64

	// ToolTimeout bounds each individual provider tool call.
	ToolTimeout time.Duration

	// ModelTimeout bounds each individual model invocation.
	ModelTimeout time.Duration

	// Progress, when non-nil, receives per-turn events: assistant text and
	// tool-call state snapshots. Sends respect context cancellation.
	Progress chan<- core.ProgressEvent

	// Logger receives engine events.
	Logger logging.Logger
}

// Assistant drives a multi-turn conversation against one model and a set of
// connected tool providers. History is append-only; the system prompt always
// sits at index 0 and is rebuilt in place whenever the tool set changes.
//
// An Assistant is single-writer: concurrent Run calls on one instance are not
// supported. Tool calls within a turn do run in parallel.
type Assistant struct {
	*core.LoggerAdapter

	llm       model.Model
	provider  ProviderClient
	extractor *extract.Extractor
	opts      Options

	providers []core.ProviderDescriptor
	tools     []core.Tool
	history   []core.Message

	closeOnce sync.Once
	closeErr  error
}

// New creates an Assistant bound to a model and a provider client. The
// history starts with a system prompt built for an empty tool set.
func New(llm model.Model, provider ProviderClient, optFns ...func(o *Options)) *Assistant {
	opts := Options{
		ToolTimeout:  30 * time.Second,
		ModelTimeout: 60 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	a := &Assistant{
		LoggerAdapter: core.NewLoggerAdapter(opts.Logger),
		llm:           llm,
		provider:      provider,
		extractor: extract.New(func(o *extract.Options) {
			o.Logger = opts.Logger
		}),
		opts: opts,
	}
	a.Reset()

	return a
}

// Reset clears the conversation history and reseeds it with a system prompt
// built for the current tool set. Connected providers are kept.
func (a *Assistant) Reset() {
	a.history = []core.Message{
		core.NewSystemMessage(buildSystemPrompt(a.opts.Instruction, a.tools)),
	}
}

// History returns a copy of the conversation history.
func (a *Assistant) History() []core.Message {
	out := make([]core.Message, len(a.history))
	copy(out, a.history)
	return out
}

// Tools returns a copy of the active tool set.
func (a *Assistant) Tools() []core.Tool {
	out := make([]core.Tool, len(a.tools))
	copy(out, a.tools)
	return out
}

// AddServer connects one provider, reloads the tool catalog across all
// connected providers and rebuilds the system prompt. A connection failure is
// returned to the caller and leaves the previous tool set untouched.
func (a *Assistant) AddServer(ctx context.Context, desc core.ProviderDescriptor) ([]core.Tool, error) {
	if err := a.provider.Connect(ctx, desc); err != nil {
		return nil, fmt.Errorf("add server %s: %w", desc.Name, err)
	}

	a.providers = append(a.providers, desc)

	if err := a.reloadTools(ctx); err != nil {
		return nil, err
	}

	a.LogInfo("assistant.server_added",
		"provider", desc.Name, "tools", len(a.tools))

	return a.Tools(), nil
}

// reloadTools refreshes the tool catalog from every connected provider,
// resolves cross-provider id collisions and rebuilds the system prompt at
// history index 0.
func (a *Assistant) reloadTools(ctx context.Context) error {
	var tools []core.Tool
	seen := make(map[string]bool)

	for _, desc := range a.providers {
		providerTools, err := a.provider.ListTools(ctx, desc.ID)
		if err != nil {
			return fmt.Errorf("list tools on %s: %w", desc.Name, err)
		}
		for _, tool := range providerTools {
			if seen[tool.ID] {
				tool.ID = tool.ProviderName + "_" + tool.Name
			}
			seen[tool.ID] = true
			tools = append(tools, tool)
		}
	}

	a.tools = tools

	prompt := core.NewSystemMessage(buildSystemPrompt(a.opts.Instruction, a.tools))
	if len(a.history) > 0 && a.history[0].Role == core.RoleSystem {
		a.history[0] = prompt
	} else {
		a.history = append([]core.Message{prompt}, a.history...)
	}

	return nil
}

// Run appends the user query to the history and drives the turn loop until
// the model answers without tool calls, the depth bound is hit, or a model
// invocation fails. It returns the final assistant text.
func (a *Assistant) Run(ctx context.Context, query string) (string, error) {
	a.history = append(a.history, core.NewUserMessage(query))
	return a.processConversation(ctx, 0)
}

func (a *Assistant) processConversation(ctx context.Context, depth int) (string, error) {
	if depth >= maxTurnDepth {
		a.LogWarn("assistant.depth_exceeded", "depth", depth)
		a.history = append(a.history, core.NewAssistantMessage(depthExceededMessage))
		return depthExceededMessage, nil
	}

	content, err := a.callModel(ctx)
	if err != nil {
		return "", err
	}

	a.history = append(a.history, core.NewAssistantMessage(content))
	a.emitProgress(ctx, core.ProgressEvent{Type: core.ProgressAssistantText, Text: content})

	requests := a.extractor.Extract(content, a.tools)
	if len(requests) == 0 {
		return content, nil
	}

	a.LogDebug("assistant.tool_calls_extracted", "count", len(requests), "depth", depth)

	a.executeCalls(ctx, requests)

	return a.processConversation(ctx, depth+1)
}

// callModel performs one bounded model invocation over the full history.
func (a *Assistant) callModel(ctx context.Context) (string, error) {
	callCtx := ctx
	if a.opts.ModelTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.opts.ModelTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := a.llm.Complete(callCtx, model.Request{
		Messages:    a.History(),
		Temperature: a.opts.Temperature,
	})
	if err != nil {
		a.LogError("assistant.model_call_failed",
			"model", a.llm.Info().Name, "duration", time.Since(start), "error", err)
		return "", fmt.Errorf("model call: %w", err)
	}

	a.LogDebug("assistant.model_call_completed",
		"model", a.llm.Info().Name, "duration", time.Since(start))

	return resp.Content, nil
}

// executeCalls runs all of a turn's tool calls in parallel and appends one
// result message per call, in extraction order, once every call has settled.
// Failures become error envelopes fed back to the model; they never abort the
// turn.
func (a *Assistant) executeCalls(ctx context.Context, requests []core.ToolCallRequest) {
	byID := make(map[string]core.Tool, len(a.tools))
	for _, tool := range a.tools {
		byID[tool.ID] = tool
	}

	states := make([]core.ToolCallState, len(requests))
	for i, req := range requests {
		states[i] = core.ToolCallState{
			Seq:       req.Seq,
			Tool:      byID[req.ToolID],
			Arguments: req.Arguments,
			Status:    core.ToolCallPending,
		}
	}
	a.emitToolStates(ctx, states)

	for i := range states {
		states[i].Status = core.ToolCallInvoking
	}
	a.emitToolStates(ctx, states)

	var wg sync.WaitGroup
	for i := range states {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			callCtx := ctx
			if a.opts.ToolTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, a.opts.ToolTimeout)
				defer cancel()
			}

			start := time.Now()
			result, err := a.provider.CallTool(callCtx, states[i].Tool, states[i].Arguments)
			if err != nil {
				states[i].Status = core.ToolCallError
				states[i].Err = err.Error()
				a.LogWarn("assistant.tool_call_failed",
					"tool", states[i].Tool.ID, "duration", time.Since(start), "error", err)
				return
			}

			states[i].Status = core.ToolCallDone
			states[i].Result = result
			a.LogDebug("assistant.tool_call_completed",
				"tool", states[i].Tool.ID, "duration", time.Since(start))
		}(i)
	}
	wg.Wait()

	a.emitToolStates(ctx, states)

	for _, state := range states {
		var envelope string
		if state.Status == core.ToolCallError {
			envelope = formatToolError(state.Tool.ID, fmt.Errorf("%s", state.Err))
		} else {
			envelope = formatToolResult(state.Tool.ID, state.Result)
		}
		a.history = append(a.history, core.NewUserMessage(envelope))
	}
}

// emitToolStates sends a snapshot of the turn's tool-call states to the
// progress channel.
func (a *Assistant) emitToolStates(ctx context.Context, states []core.ToolCallState) {
	snapshot := make([]core.ToolCallState, len(states))
	copy(snapshot, states)
	a.emitProgress(ctx, core.ProgressEvent{Type: core.ProgressToolCalls, ToolCalls: snapshot})
}

func (a *Assistant) emitProgress(ctx context.Context, event core.ProgressEvent) {
	if a.opts.Progress == nil {
		return
	}
	select {
	case a.opts.Progress <- event:
	case <-ctx.Done():
	}
}

// Close releases all provider connections. Safe to call more than once;
// later calls return the first result.
func (a *Assistant) Close() error {
	a.closeOnce.Do(func() {
		a.closeErr = a.provider.Close()
		a.LogDebug("assistant.closed", "providers", len(a.providers))
	})
	return a.closeErr
}
