package core

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem marks the system prompt. At most one system message exists
	// per history and it is always at index 0.
	RoleSystem Role = "system"
	// RoleUser marks user input, including fed-back tool results.
	RoleUser Role = "user"
	// RoleAssistant marks model output.
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn. An ordered slice of messages forms
// the conversation history; insertion order is meaning-bearing and histories
// are append-only during a run.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant-role message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
