package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zerolxy612/lexiAI-sub001/core"
	"github.com/zerolxy612/lexiAI-sub001/model"
)

// fakeProvider is an instrumented in-memory ProviderClient.
type fakeProvider struct {
	mu         sync.Mutex
	connected  []core.ProviderDescriptor
	tools      map[string][]core.Tool
	connectErr map[string]error
	callFn     func(ctx context.Context, tool core.Tool, args any) (string, error)
	closeCount int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		tools:      make(map[string][]core.Tool),
		connectErr: make(map[string]error),
	}
}

func (p *fakeProvider) Connect(_ context.Context, desc core.ProviderDescriptor) error {
	if err := p.connectErr[desc.ID]; err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = append(p.connected, desc)
	return nil
}

func (p *fakeProvider) ListTools(_ context.Context, providerID string) ([]core.Tool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tools[providerID], nil
}

func (p *fakeProvider) CallTool(ctx context.Context, tool core.Tool, args any) (string, error) {
	if p.callFn != nil {
		return p.callFn(ctx, tool, args)
	}
	return "result for " + tool.ID, nil
}

func (p *fakeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCount++
	return nil
}

func descriptor(id, name string) core.ProviderDescriptor {
	return core.ProviderDescriptor{ID: id, Name: name, Transport: core.TransportStreamableHTTP, URL: "https://" + name}
}

func toolBlock(name, args string) string {
	return fmt.Sprintf("<tool_use><name>%s</name><arguments>%s</arguments></tool_use>", name, args)
}

func setupAssistant(t *testing.T, provider *fakeProvider, llm model.Model) *Assistant {
	t.Helper()
	a := New(llm, provider)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestRun_NoToolCalls(t *testing.T) {
	llm := model.NewMockModel("test")
	llm.EnqueueResponse("The answer is 4.")

	a := setupAssistant(t, newFakeProvider(), llm)

	answer, err := a.Run(context.Background(), "What's 2+2?")

	assert.NoError(t, err)
	assert.Equal(t, "The answer is 4.", answer)
	assert.Equal(t, 1, llm.CallCount())

	history := a.History()
	assert.Len(t, history, 3)
	assert.Equal(t, core.RoleSystem, history[0].Role)
	assert.Equal(t, core.RoleUser, history[1].Role)
	assert.Equal(t, core.RoleAssistant, history[2].Role)
}

func TestAddServer_LoadsToolsAndRebuildsPrompt(t *testing.T) {
	provider := newFakeProvider()
	provider.tools["p1"] = []core.Tool{
		{ID: "get_weather", Name: "get_weather", ProviderID: "p1", ProviderName: "weather", Description: "Current weather"},
	}

	a := setupAssistant(t, provider, model.NewMockModel("test"))

	tools, err := a.AddServer(context.Background(), descriptor("p1", "weather"))

	assert.NoError(t, err)
	assert.Len(t, tools, 1)

	history := a.History()
	assert.Len(t, history, 1)
	assert.Equal(t, core.RoleSystem, history[0].Role)
	assert.Contains(t, history[0].Content, "get_weather")
	assert.Contains(t, history[0].Content, "<tool_use>")
}

func TestAddServer_SystemPromptReplacedNotDuplicated(t *testing.T) {
	provider := newFakeProvider()
	provider.tools["p1"] = []core.Tool{{ID: "alpha_tool", Name: "alpha_tool", ProviderID: "p1", ProviderName: "one"}}
	provider.tools["p2"] = []core.Tool{{ID: "beta_tool", Name: "beta_tool", ProviderID: "p2", ProviderName: "two"}}

	a := setupAssistant(t, provider, model.NewMockModel("test"))

	_, err := a.AddServer(context.Background(), descriptor("p1", "one"))
	assert.NoError(t, err)
	_, err = a.AddServer(context.Background(), descriptor("p2", "two"))
	assert.NoError(t, err)

	history := a.History()
	assert.Len(t, history, 1)
	assert.Equal(t, core.RoleSystem, history[0].Role)
	assert.Contains(t, history[0].Content, "alpha_tool")
	assert.Contains(t, history[0].Content, "beta_tool")
	assert.Len(t, a.Tools(), 2)
}

func TestAddServer_ToolIDCollision(t *testing.T) {
	provider := newFakeProvider()
	provider.tools["p1"] = []core.Tool{{ID: "search", Name: "search", ProviderID: "p1", ProviderName: "alpha"}}
	provider.tools["p2"] = []core.Tool{{ID: "search", Name: "search", ProviderID: "p2", ProviderName: "beta"}}

	a := setupAssistant(t, provider, model.NewMockModel("test"))

	_, err := a.AddServer(context.Background(), descriptor("p1", "alpha"))
	assert.NoError(t, err)
	tools, err := a.AddServer(context.Background(), descriptor("p2", "beta"))
	assert.NoError(t, err)

	assert.Len(t, tools, 2)
	assert.Equal(t, "search", tools[0].ID)
	assert.Equal(t, "beta_search", tools[1].ID)
}

func TestAddServer_ConnectFailurePropagates(t *testing.T) {
	provider := newFakeProvider()
	provider.connectErr["p1"] = errors.New("connection refused")

	a := setupAssistant(t, provider, model.NewMockModel("test"))

	_, err := a.AddServer(context.Background(), descriptor("p1", "down"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, a.Tools())
}

func TestRun_ParallelDispatch(t *testing.T) {
	provider := newFakeProvider()
	provider.tools["p1"] = []core.Tool{
		{ID: "left", Name: "left", ProviderID: "p1", ProviderName: "pair"},
		{ID: "right", Name: "right", ProviderID: "p1", ProviderName: "pair"},
	}

	// Both calls must be in flight at the same time: each arrival is counted
	// and every call blocks until both have arrived. Serial dispatch would
	// time out here.
	barrier := make(chan struct{})
	var arrivals sync.WaitGroup
	arrivals.Add(2)
	go func() {
		arrivals.Wait()
		close(barrier)
	}()

	provider.callFn = func(ctx context.Context, tool core.Tool, _ any) (string, error) {
		arrivals.Done()
		select {
		case <-barrier:
			return "ok:" + tool.ID, nil
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(3 * time.Second):
			return "", errors.New("sibling call never dispatched")
		}
	}

	llm := model.NewMockModel("test")
	llm.EnqueueResponse(toolBlock("left", "{}") + toolBlock("right", "{}"))
	llm.EnqueueResponse("combined answer")

	a := setupAssistant(t, provider, llm)
	_, err := a.AddServer(context.Background(), descriptor("p1", "pair"))
	assert.NoError(t, err)

	answer, err := a.Run(context.Background(), "use both tools")

	assert.NoError(t, err)
	assert.Equal(t, "combined answer", answer)
}

func TestRun_ResultsAppendedInExtractionOrder(t *testing.T) {
	provider := newFakeProvider()
	provider.tools["p1"] = []core.Tool{
		{ID: "slow", Name: "slow", ProviderID: "p1", ProviderName: "pair"},
		{ID: "fast", Name: "fast", ProviderID: "p1", ProviderName: "pair"},
	}
	provider.callFn = func(_ context.Context, tool core.Tool, _ any) (string, error) {
		if tool.ID == "slow" {
			time.Sleep(100 * time.Millisecond)
		}
		return "done:" + tool.ID, nil
	}

	llm := model.NewMockModel("test")
	llm.EnqueueResponse(toolBlock("slow", "{}") + toolBlock("fast", "{}"))
	llm.EnqueueResponse("final")

	a := setupAssistant(t, provider, llm)
	_, err := a.AddServer(context.Background(), descriptor("p1", "pair"))
	assert.NoError(t, err)

	_, err = a.Run(context.Background(), "race them")
	assert.NoError(t, err)

	// [system, user, assistant(2 blocks), user(slow result), user(fast
	// result), assistant(final)] even though fast completed first.
	history := a.History()
	assert.Len(t, history, 6)
	assert.Equal(t, core.RoleUser, history[3].Role)
	assert.Contains(t, history[3].Content, "done:slow")
	assert.Equal(t, core.RoleUser, history[4].Role)
	assert.Contains(t, history[4].Content, "done:fast")
	assert.Equal(t, "final", history[5].Content)
}

func TestRun_ToolErrorFedBackToModel(t *testing.T) {
	provider := newFakeProvider()
	provider.tools["p1"] = []core.Tool{
		{ID: "ok", Name: "ok", ProviderID: "p1", ProviderName: "pair"},
		{ID: "broken", Name: "broken", ProviderID: "p1", ProviderName: "pair"},
	}
	provider.callFn = func(_ context.Context, tool core.Tool, _ any) (string, error) {
		if tool.ID == "broken" {
			return "", errors.New("backend exploded")
		}
		return "fine", nil
	}

	llm := model.NewMockModel("test")
	llm.EnqueueResponse(toolBlock("ok", "{}") + toolBlock("broken", "{}"))
	llm.EnqueueResponse("recovered answer")

	a := setupAssistant(t, provider, llm)
	_, err := a.AddServer(context.Background(), descriptor("p1", "pair"))
	assert.NoError(t, err)

	answer, err := a.Run(context.Background(), "try both")

	assert.NoError(t, err)
	assert.Equal(t, "recovered answer", answer)

	// The second model call must see both outcomes.
	requests := llm.Requests()
	assert.Len(t, requests, 2)
	last := requests[1].Messages
	joined := ""
	for _, msg := range last {
		joined += msg.Content + "\n"
	}
	assert.Contains(t, joined, "fine")
	assert.Contains(t, joined, "Error: backend exploded")
}

func TestRun_ToolStateTransitionsObserved(t *testing.T) {
	provider := newFakeProvider()
	provider.tools["p1"] = []core.Tool{{ID: "t", Name: "t", ProviderID: "p1", ProviderName: "one"}}

	llm := model.NewMockModel("test")
	llm.EnqueueResponse(toolBlock("t", "{}"))
	llm.EnqueueResponse("done")

	progress := make(chan core.ProgressEvent, 32)
	a := New(llm, provider, func(o *Options) {
		o.Progress = progress
	})
	t.Cleanup(func() { _ = a.Close() })

	_, err := a.AddServer(context.Background(), descriptor("p1", "one"))
	assert.NoError(t, err)

	_, err = a.Run(context.Background(), "go")
	assert.NoError(t, err)
	close(progress)

	var statuses []core.ToolCallStatus
	var texts int
	for event := range progress {
		switch event.Type {
		case core.ProgressAssistantText:
			texts++
		case core.ProgressToolCalls:
			assert.Len(t, event.ToolCalls, 1)
			statuses = append(statuses, event.ToolCalls[0].Status)
		}
	}

	assert.Equal(t, 2, texts)
	assert.Equal(t, []core.ToolCallStatus{core.ToolCallPending, core.ToolCallInvoking, core.ToolCallDone}, statuses)
}

func TestRun_DepthBound(t *testing.T) {
	provider := newFakeProvider()
	provider.tools["p1"] = []core.Tool{{ID: "loop", Name: "loop", ProviderID: "p1", ProviderName: "one"}}

	llm := model.NewMockModel("test")
	for i := 0; i < maxTurnDepth; i++ {
		llm.EnqueueResponse(toolBlock("loop", "{}"))
	}
	// Nothing else enqueued: exceeding the bound must not trigger another
	// model call.

	a := setupAssistant(t, provider, llm)
	_, err := a.AddServer(context.Background(), descriptor("p1", "one"))
	assert.NoError(t, err)

	answer, err := a.Run(context.Background(), "never stop")

	assert.NoError(t, err)
	assert.Equal(t, depthExceededMessage, answer)
	assert.Equal(t, maxTurnDepth, llm.CallCount())
}

func TestRun_ModelFailurePropagates(t *testing.T) {
	llm := model.NewMockModel("test")
	llm.EnqueueError(errors.New("rate limited"))

	a := setupAssistant(t, newFakeProvider(), llm)

	_, err := a.Run(context.Background(), "hello")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestReset_ClearsHistoryKeepsTools(t *testing.T) {
	provider := newFakeProvider()
	provider.tools["p1"] = []core.Tool{{ID: "t", Name: "t", ProviderID: "p1", ProviderName: "one"}}

	llm := model.NewMockModel("test")
	llm.EnqueueResponse("first answer")

	a := setupAssistant(t, provider, llm)
	_, err := a.AddServer(context.Background(), descriptor("p1", "one"))
	assert.NoError(t, err)

	_, err = a.Run(context.Background(), "hi")
	assert.NoError(t, err)
	assert.Greater(t, len(a.History()), 1)

	a.Reset()

	history := a.History()
	assert.Len(t, history, 1)
	assert.Equal(t, core.RoleSystem, history[0].Role)
	assert.Contains(t, history[0].Content, "<tool_use>")
	assert.Len(t, a.Tools(), 1)
}

func TestClose_Idempotent(t *testing.T) {
	provider := newFakeProvider()
	a := New(model.NewMockModel("test"), provider)

	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
	assert.Equal(t, 1, provider.closeCount)
}

func TestSystemPrompt_NoToolsIsPlainInstruction(t *testing.T) {
	prompt := buildSystemPrompt("Be concise.", nil)
	assert.Equal(t, "Be concise.", prompt)
	assert.False(t, strings.Contains(prompt, "<tool_use>"))
}
