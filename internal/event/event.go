// Package event decodes the assistant backend's NDJSON wire events.
//
// Each line carries one JSON object whose "type" field selects the variant.
// Event is a closed set: only the types declared here implement it.
package event

import "encoding/json"

// Kind is the wire tag of an event.
type Kind string

const (
	KindCheckpoint    Kind = "checkpoint"
	KindResponseChunk Kind = "response_chunk"
	KindFinalResponse Kind = "final_response"
	KindToolCall      Kind = "tool_call"
	KindToolResult    Kind = "tool_result"
	KindError         Kind = "error"
	KindDone          Kind = "done"
)

// Event is one decoded server event.
type Event interface {
	Kind() Kind
	// Conversation returns the checkpoint id the event was tagged with, or "".
	Conversation() string
	sealed()
}

// Checkpoint announces the conversation id for a new stream.
type Checkpoint struct {
	CheckpointID string `json:"checkpoint_id"`
}

// ResponseChunk is an incremental piece of the assistant's answer.
type ResponseChunk struct {
	Text         string `json:"text"`
	CheckpointID string `json:"checkpoint_id"`
}

// FinalResponse carries the complete answer text.
type FinalResponse struct {
	Text         string `json:"text"`
	CheckpointID string `json:"checkpoint_id"`
}

// ToolCall reports that the agent invoked a tool.
type ToolCall struct {
	ToolName     string          `json:"tool_name"`
	Input        json.RawMessage `json:"input,omitempty"`
	CheckpointID string          `json:"checkpoint_id"`
}

// ToolResult reports a tool's output.
type ToolResult struct {
	ToolName     string          `json:"tool_name"`
	Output       json.RawMessage `json:"output,omitempty"`
	CheckpointID string          `json:"checkpoint_id"`
}

// Error is an agent-reported failure. It ends the stream.
type Error struct {
	Message      string `json:"message"`
	CheckpointID string `json:"checkpoint_id,omitempty"`
}

// Done marks the end of a stream.
type Done struct {
	CheckpointID string `json:"checkpoint_id"`
}

func (Checkpoint) Kind() Kind    { return KindCheckpoint }
func (ResponseChunk) Kind() Kind { return KindResponseChunk }
func (FinalResponse) Kind() Kind { return KindFinalResponse }
func (ToolCall) Kind() Kind      { return KindToolCall }
func (ToolResult) Kind() Kind    { return KindToolResult }
func (Error) Kind() Kind         { return KindError }
func (Done) Kind() Kind          { return KindDone }

func (e Checkpoint) Conversation() string    { return e.CheckpointID }
func (e ResponseChunk) Conversation() string { return e.CheckpointID }
func (e FinalResponse) Conversation() string { return e.CheckpointID }
func (e ToolCall) Conversation() string      { return e.CheckpointID }
func (e ToolResult) Conversation() string    { return e.CheckpointID }
func (e Error) Conversation() string         { return e.CheckpointID }
func (e Done) Conversation() string          { return e.CheckpointID }

func (Checkpoint) sealed()    {}
func (ResponseChunk) sealed() {}
func (FinalResponse) sealed() {}
func (ToolCall) sealed()      {}
func (ToolResult) sealed()    {}
func (Error) sealed()         {}
func (Done) sealed()          {}
