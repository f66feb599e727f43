package core

// ProgressEventType categorizes a ProgressEvent.
type ProgressEventType string

const (
	// ProgressAssistantText carries the raw assistant text of one turn.
	ProgressAssistantText ProgressEventType = "assistant_text"
	// ProgressToolCalls carries the full tool-call state collection of the
	// current turn, emitted on every lifecycle transition (pending,
	// invoking, settled).
	ProgressToolCalls ProgressEventType = "tool_calls"
	// ProgressConnectionSummary reports the outcome of one orchestration's
	// provider connection attempts. Emitted exactly once per attempt.
	ProgressConnectionSummary ProgressEventType = "connection_summary"
)

// ConnectionSummary aggregates the result of connecting all configured
// providers for one orchestration attempt.
type ConnectionSummary struct {
	Total     int `json:"total"`
	Connected int `json:"connected"`
	Failed    int `json:"failed"`
	ToolCount int `json:"tool_count"`
	// Errors maps provider name to the connection failure message.
	Errors map[string]string `json:"errors,omitempty"`
}

// ProgressEvent is the unit streamed to an external observer while an
// orchestration runs. It is the only channel by which a caller observes tool
// activity before the final answer is ready. Exactly one of Text, ToolCalls
// or Summary is populated, according to Type.
type ProgressEvent struct {
	Type      ProgressEventType  `json:"type"`
	Text      string             `json:"text,omitempty"`
	ToolCalls []ToolCallState    `json:"tool_calls,omitempty"`
	Summary   *ConnectionSummary `json:"summary,omitempty"`
}
