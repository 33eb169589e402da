// Package history holds persisted conversation messages: the flat record
// the backend stores for each turn, and local copies of it.
package history

import (
	"bytes"
	"context"
	"encoding/json"
)

// Kind separates text messages from tool records.
type Kind string

const (
	KindMessage Kind = "message"
	KindTool    Kind = "tool"
)

// Role of a persisted message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolStatus of a persisted tool record.
type ToolStatus string

const (
	ToolStart    ToolStatus = "start"
	ToolComplete ToolStatus = "complete"
	ToolError    ToolStatus = "error"
)

// Message is one persisted record.
type Message struct {
	Kind       Kind            `json:"kind"`
	Role       Role            `json:"role"`
	Content    string          `json:"content"`
	ToolName   string          `json:"tool_name,omitempty"`
	ToolStatus ToolStatus      `json:"tool_status,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolInput  json.RawMessage `json:"tool_input,omitempty"`
	ToolOutput json.RawMessage `json:"tool_output,omitempty"`
}

// IsTool reports whether m records a tool invocation.
func (m Message) IsTool() bool {
	return m.Kind == KindTool || m.Role == RoleTool
}

// HasOutput reports whether a tool output was recorded. A JSON null
// counts as absent.
func (m Message) HasOutput() bool {
	return present(m.ToolOutput)
}

// Source supplies the persisted messages of a conversation.
type Source interface {
	Messages(ctx context.Context, conversationID string) ([]Message, error)
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// clean drops null tool payloads so they are stored and compared as absent.
func clean(msgs []Message) []Message {
	for i := range msgs {
		if !present(msgs[i].ToolInput) {
			msgs[i].ToolInput = nil
		}
		if !present(msgs[i].ToolOutput) {
			msgs[i].ToolOutput = nil
		}
	}
	return msgs
}
