package lexiai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zerolxy612/lexiAI-sub001/model"
	"github.com/zerolxy612/lexiAI-sub001/skill"
)

func TestExecuteSync_DirectAnswer(t *testing.T) {
	llm := model.NewMockModel("test")
	llm.EnqueueResponse("42")

	ai := New(func(o *Options) {
		o.Model = llm
	})

	answer, events, err := ai.ExecuteSync(context.Background(), skill.Input{
		Query: "What is the answer?",
	})

	assert.NoError(t, err)
	assert.Equal(t, "42", answer)
	assert.Empty(t, events)
	assert.Equal(t, 1, llm.CallCount())
}

func TestExecute_NilProgressChannel(t *testing.T) {
	llm := model.NewMockModel("test")
	llm.EnqueueResponse("ok")

	ai := New(func(o *Options) {
		o.Model = llm
	})

	answer, err := ai.Execute(context.Background(), skill.Input{Query: "hi"}, nil)

	assert.NoError(t, err)
	assert.Equal(t, "ok", answer)
}
