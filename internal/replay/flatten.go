package replay

import (
	"github.com/suykerbuyk/atlas-chat/internal/history"
	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

// Flatten projects a transcript onto the persisted message form. Each
// assistant entry becomes its tool records followed by one assistant
// message, so Build(Flatten(entries)) reproduces entries up to ids and
// streaming flags.
func Flatten(entries []transcript.Entry) []history.Message {
	var out []history.Message
	for _, e := range entries {
		if e.Role == transcript.RoleUser {
			out = append(out, history.Message{
				Kind:    history.KindMessage,
				Role:    history.RoleUser,
				Content: e.Content,
			})
			continue
		}
		for _, ev := range e.ToolEvents {
			out = append(out, toolMessage(ev))
		}
		out = append(out, history.Message{
			Kind:    history.KindMessage,
			Role:    history.RoleAssistant,
			Content: e.Content,
		})
	}
	return out
}

func toolMessage(ev transcript.ToolEvent) history.Message {
	m := history.Message{
		Kind:       history.KindTool,
		Role:       history.RoleTool,
		ToolName:   ev.ToolName,
		ToolCallID: ev.ID,
		ToolInput:  ev.RawInput,
	}
	switch ev.Status {
	case transcript.StatusCompleted:
		m.ToolStatus = history.ToolComplete
		m.ToolOutput = ev.RawOutput
	case transcript.StatusError:
		m.ToolStatus = history.ToolError
		m.Content = ev.Detail
	default:
		m.ToolStatus = history.ToolStart
	}
	return m
}
