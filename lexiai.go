// Package lexiai provides a high-level façade over the skill orchestration
// layer, enabling tool-augmented question answering backed by MCP tool
// providers. Most applications interact with this package by:
//  1. Creating a LexiAI via New() (optionally overriding the model and logger)
//  2. Calling Execute() for streaming progress or ExecuteSync() for a plain
//     answer
//
// The façade delegates session handling, provider connection and fallback
// behavior to skill.Manager while keeping setup ergonomics concise. Defaults
// are safe for local development; production deployments typically supply a
// configured model adapter and a structured logger.
package lexiai

import (
	"context"

	"github.com/zerolxy612/lexiAI-sub001/core"
	"github.com/zerolxy612/lexiAI-sub001/logging"
	"github.com/zerolxy612/lexiAI-sub001/model"
	"github.com/zerolxy612/lexiAI-sub001/model/openai"
	"github.com/zerolxy612/lexiAI-sub001/skill"
)

// Options configures the LexiAI instance.
type Options struct {
	// Model answers queries and drives the tool loop. Defaults to the OpenAI
	// adapter with its default model.
	Model model.Model

	// Instruction is the base system instruction for every session.
	Instruction string

	// ProgressBufferSize sets the channel buffer used by ExecuteSync to
	// collect progress events. Larger buffers reduce blocking during bursts
	// of tool activity.
	ProgressBufferSize int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// LexiAI is the high-level façade aggregating the model and the orchestration
// manager.
type LexiAI struct {
	opts    Options
	manager *skill.Manager
}

// New creates a new LexiAI instance with optional overrides.
func New(optFns ...func(o *Options)) *LexiAI {
	opts := Options{
		ProgressBufferSize: 64,
		Logger:             logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Model == nil {
		opts.Model = openai.NewModel()
	}

	manager := skill.NewManager(opts.Model, func(o *skill.Options) {
		o.Instruction = opts.Instruction
		o.Logger = opts.Logger
	})

	return &LexiAI{opts: opts, manager: manager}
}

// Execute runs one orchestration. Progress events are delivered to the given
// channel while the run is in flight; pass nil to skip observation. The
// channel is not closed by Execute.
func (l *LexiAI) Execute(ctx context.Context, in skill.Input, progress chan<- core.ProgressEvent) (string, error) {
	return l.manager.Execute(ctx, in, progress)
}

// ExecuteSync is a synchronous helper that collects progress events
// internally and returns them alongside the final answer.
func (l *LexiAI) ExecuteSync(ctx context.Context, in skill.Input) (string, []core.ProgressEvent, error) {
	progress := make(chan core.ProgressEvent, l.opts.ProgressBufferSize)

	type result struct {
		answer string
		err    error
	}
	done := make(chan result, 1)

	go func() {
		answer, err := l.manager.Execute(ctx, in, progress)
		close(progress)
		done <- result{answer: answer, err: err}
	}()

	var events []core.ProgressEvent
	for event := range progress {
		events = append(events, event)
	}

	res := <-done
	return res.answer, events, res.err
}
