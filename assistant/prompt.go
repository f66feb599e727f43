package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zerolxy612/lexiAI-sub001/core"
)

const defaultInstruction = "You are a helpful assistant."

// buildSystemPrompt assembles the system message for the current tool set.
// With no tools it is just the instruction; with tools it additionally
// teaches the model the tool-use block protocol and lists every available
// tool with its input schema.
func buildSystemPrompt(instruction string, tools []core.Tool) string {
	if instruction == "" {
		instruction = defaultInstruction
	}

	if len(tools) == 0 {
		return instruction
	}

	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nYou have access to the following tools. To call a tool, emit a block in exactly this format:\n\n")
	b.WriteString("<tool_use>\n<name>tool_id</name>\n<arguments>{\"param\": \"value\"}</arguments>\n</tool_use>\n\n")
	b.WriteString("You may emit several blocks in one reply; independent calls run in parallel. ")
	b.WriteString("Each result will be returned to you in a <tool_use_result> envelope carrying the tool name and its output. ")
	b.WriteString("When you have everything you need, answer the user directly without any tool_use block.\n\nAvailable tools:\n")

	for _, tool := range tools {
		b.WriteString("\n- ")
		b.WriteString(tool.ID)
		if tool.Description != "" {
			b.WriteString(": ")
			b.WriteString(tool.Description)
		}
		if len(tool.InputSchema) > 0 {
			if schema, err := json.Marshal(tool.InputSchema); err == nil {
				b.WriteString("\n  Input schema: ")
				b.Write(schema)
			}
		}
	}

	return b.String()
}

// formatToolResult wraps a successful tool result in the envelope the model
// was taught to expect.
func formatToolResult(toolID, result string) string {
	return fmt.Sprintf("<tool_use_result>\n<name>%s</name>\n<result>%s</result>\n</tool_use_result>", toolID, result)
}

// formatToolError wraps a tool failure in the same envelope so the model can
// react to it.
func formatToolError(toolID string, err error) string {
	return fmt.Sprintf("<tool_use_result>\n<name>%s</name>\n<result>Error: %s</result>\n</tool_use_result>", toolID, err.Error())
}
