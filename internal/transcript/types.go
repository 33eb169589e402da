package transcript

import "encoding/json"

// Role identifies who authored an entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status is the lifecycle state of a tool invocation.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Entry is one visible turn of a conversation.
type Entry struct {
	ID          string      `json:"id"`
	Role        Role        `json:"role"`
	Content     string      `json:"content"`
	IsStreaming bool        `json:"isStreaming"`
	ToolEvents  []ToolEvent `json:"toolEvents,omitempty"`
}

// Empty reports whether the entry has nothing to show. Empty assistant
// entries are pruned rather than exposed.
func (e Entry) Empty() bool {
	return e.Content == "" && len(e.ToolEvents) == 0
}

// Clone returns a copy whose tool events can be modified without affecting e.
func (e Entry) Clone() Entry {
	if e.ToolEvents != nil {
		e.ToolEvents = append([]ToolEvent(nil), e.ToolEvents...)
	}
	return e
}

// ToolEvent is the display record of one tool invocation.
type ToolEvent struct {
	ID             string          `json:"id"`
	ToolName       string          `json:"toolName"`
	Status         Status          `json:"status"`
	RawInput       json.RawMessage `json:"rawInput,omitempty"`
	RawOutput      json.RawMessage `json:"rawOutput,omitempty"`
	Headline       string          `json:"headline"`
	Detail         string          `json:"detail,omitempty"`
	DetailSections []Section       `json:"detailSections,omitempty"`
	Links          []Link          `json:"links,omitempty"`
}

// Section is one titled block of a rich tool rendering.
type Section struct {
	Title    string   `json:"title,omitempty"`
	Lines    []string `json:"lines"`
	Footnote string   `json:"footnote,omitempty"`
}

// Link is a titled URL surfaced by a tool.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}
