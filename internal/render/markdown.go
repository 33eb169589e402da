package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

// NoteData holds everything needed to render a conversation as markdown.
type NoteData struct {
	ConversationID string
	Title          string    // defaults to the first user message
	Date           time.Time // zero means today
	Entries        []transcript.Entry
}

// Markdown renders a conversation note: YAML frontmatter, one section per
// entry with its tool activity, and a tool usage table.
func Markdown(d NoteData) string {
	var b strings.Builder
	s := transcript.ComputeStats(d.Entries)

	title := d.Title
	if title == "" {
		title = titleFromFirstMessage(d.Entries)
	}
	date := d.Date
	if date.IsZero() {
		date = time.Now()
	}

	// Frontmatter
	b.WriteString("---\n")
	b.WriteString(fmt.Sprintf("date: %s\n", date.Format("2006-01-02")))
	b.WriteString("type: conversation\n")
	if d.ConversationID != "" {
		b.WriteString(fmt.Sprintf("conversation_id: \"%s\"\n", escapeYAML(d.ConversationID)))
	}
	b.WriteString(fmt.Sprintf("title: \"%s\"\n", escapeYAML(title)))
	b.WriteString(fmt.Sprintf("messages: %d\n", s.UserEntries+s.AssistantEntries))
	if s.ToolEvents > 0 {
		b.WriteString(fmt.Sprintf("tool_uses: %d\n", s.ToolEvents))
		b.WriteString(fmt.Sprintf("tools: [%s]\n", strings.Join(s.ToolNames(), ", ")))
	}
	status := "completed"
	if s.Streaming {
		status = "streaming"
	}
	b.WriteString(fmt.Sprintf("status: %s\n", status))
	b.WriteString("---\n\n")

	b.WriteString(fmt.Sprintf("# %s\n\n", title))

	for _, e := range d.Entries {
		switch e.Role {
		case transcript.RoleUser:
			b.WriteString("## You\n\n")
		default:
			b.WriteString("## Assistant\n\n")
		}

		for _, te := range e.ToolEvents {
			writeToolEvent(&b, te)
		}

		if e.Content != "" {
			b.WriteString(strings.TrimRight(e.Content, "\n"))
			b.WriteString("\n\n")
		}
		if e.IsStreaming {
			b.WriteString("*still streaming*\n\n")
		}
	}

	// Tool Usage
	if s.ToolEvents > 0 {
		b.WriteString("## Tool Usage\n\n")
		b.WriteString(fmt.Sprintf("**Total: %d tool calls**\n\n", s.ToolEvents))
		b.WriteString("| Tool | Count |\n")
		b.WriteString("|------|-------|\n")
		for _, name := range s.ToolNames() {
			b.WriteString(fmt.Sprintf("| %s | %d |\n", name, s.ToolCounts[name]))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeToolEvent(b *strings.Builder, te transcript.ToolEvent) {
	b.WriteString(fmt.Sprintf("> %s **%s**\n", statusMark(te.Status), te.Headline))

	if te.Detail != "" {
		b.WriteString(">\n")
		for _, line := range strings.Split(te.Detail, "\n") {
			b.WriteString(quoteLine(line))
		}
	}

	for _, sec := range te.DetailSections {
		b.WriteString(">\n")
		if sec.Title != "" {
			b.WriteString(fmt.Sprintf("> *%s*\n", sec.Title))
		}
		for _, line := range sec.Lines {
			b.WriteString(fmt.Sprintf("> - %s\n", line))
		}
		if sec.Footnote != "" {
			b.WriteString(fmt.Sprintf("> _%s_\n", sec.Footnote))
		}
	}

	if len(te.Links) > 0 {
		b.WriteString(">\n")
		for _, l := range te.Links {
			b.WriteString(fmt.Sprintf("> - [%s](%s)\n", escapeLinkText(l.Title), l.URL))
		}
	}
	b.WriteString("\n")
}

func quoteLine(line string) string {
	if line == "" {
		return ">\n"
	}
	return "> " + line + "\n"
}

func statusMark(s transcript.Status) string {
	switch s {
	case transcript.StatusCompleted:
		return "✓"
	case transcript.StatusError:
		return "✗"
	default:
		return "…"
	}
}

// NoteFilename returns the filename for an exported conversation note.
func NoteFilename(date time.Time, conversationID string) string {
	id := conversationID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		return date.Format("2006-01-02") + ".md"
	}
	return fmt.Sprintf("%s-%s.md", date.Format("2006-01-02"), id)
}

func titleFromFirstMessage(entries []transcript.Entry) string {
	msg := ""
	for _, e := range entries {
		if e.Role == transcript.RoleUser && strings.TrimSpace(e.Content) != "" {
			msg = e.Content
			break
		}
	}
	if msg == "" {
		return "Conversation"
	}

	msg = strings.TrimSpace(msg)

	// Take first line
	if idx := strings.IndexByte(msg, '\n'); idx > 0 {
		msg = msg[:idx]
	}

	// Truncate
	if r := []rune(msg); len(r) > 80 {
		msg = string(r[:77]) + "..."
	}

	return msg
}

func escapeYAML(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}

func escapeLinkText(s string) string {
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}
