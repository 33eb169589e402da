// Package render turns transcripts into terminal output and markdown notes.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

// Options controls terminal rendering.
type Options struct {
	Color   bool // apply lipgloss styles
	Details bool // print tool details, sections and links
}

type styles struct {
	user      lipgloss.Style
	assistant lipgloss.Style
	running   lipgloss.Style
	completed lipgloss.Style
	failed    lipgloss.Style
	dim       lipgloss.Style
	title     lipgloss.Style
	link      lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		user:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")), // Cyan
		assistant: r.NewStyle().Bold(true).Foreground(lipgloss.Color("15")), // White
		running:   r.NewStyle().Foreground(lipgloss.Color("11")),            // Yellow
		completed: r.NewStyle().Foreground(lipgloss.Color("10")),            // Green
		failed:    r.NewStyle().Foreground(lipgloss.Color("9")),             // Red
		dim:       r.NewStyle().Foreground(lipgloss.Color("8")),             // Gray
		title:     r.NewStyle().Italic(true).Foreground(lipgloss.Color("8")),
		link:      r.NewStyle().Underline(true).Foreground(lipgloss.Color("12")), // Blue
	}
}

// Terminal prints transcripts to a writer.
type Terminal struct {
	w      io.Writer
	opts   Options
	styles styles
}

// NewTerminal returns a terminal renderer writing to w.
func NewTerminal(w io.Writer, opts Options) *Terminal {
	return &Terminal{w: w, opts: opts, styles: newStyles(lipgloss.NewRenderer(w))}
}

// Render writes every entry of the transcript.
func (t *Terminal) Render(entries []transcript.Entry) error {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t.header(e.Role))
		b.WriteString("\n")
		for _, te := range e.ToolEvents {
			b.WriteString(t.toolBlock(te))
		}
		if e.Content != "" {
			b.WriteString(indent(strings.TrimRight(e.Content, "\n"), "  "))
			b.WriteString("\n")
		}
		if e.IsStreaming {
			b.WriteString("  " + t.paint(t.styles.dim, "…") + "\n")
		}
	}
	_, err := io.WriteString(t.w, b.String())
	if err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// Summary writes a one-line tally of the transcript.
func (t *Terminal) Summary(entries []transcript.Entry) error {
	s := transcript.ComputeStats(entries)
	line := fmt.Sprintf("%d messages, %d tool calls", s.UserEntries+s.AssistantEntries, s.ToolEvents)
	if s.Errors > 0 {
		line += fmt.Sprintf(", %d failed", s.Errors)
	}
	if s.Streaming {
		line += ", still streaming"
	}
	_, err := fmt.Fprintln(t.w, t.paint(t.styles.dim, line))
	return err
}

func (t *Terminal) header(role transcript.Role) string {
	if role == transcript.RoleUser {
		return t.paint(t.styles.user, "You")
	}
	return t.paint(t.styles.assistant, "Assistant")
}

func (t *Terminal) toolLine(te transcript.ToolEvent) string {
	var st lipgloss.Style
	switch te.Status {
	case transcript.StatusCompleted:
		st = t.styles.completed
	case transcript.StatusError:
		st = t.styles.failed
	default:
		st = t.styles.running
	}
	return "  " + t.paint(st, statusMark(te.Status)) + " " + te.Headline + "\n"
}

func (t *Terminal) toolBlock(te transcript.ToolEvent) string {
	var b strings.Builder
	b.WriteString(t.toolLine(te))
	if !t.opts.Details {
		return b.String()
	}

	const pad = "      "
	if te.Detail != "" {
		for _, line := range strings.Split(te.Detail, "\n") {
			b.WriteString(pad + t.paint(t.styles.dim, line) + "\n")
		}
	}
	for _, sec := range te.DetailSections {
		if sec.Title != "" {
			b.WriteString(pad + t.paint(t.styles.title, sec.Title) + "\n")
		}
		for _, line := range sec.Lines {
			b.WriteString(pad + "  " + line + "\n")
		}
		if sec.Footnote != "" {
			b.WriteString(pad + "  " + t.paint(t.styles.dim, sec.Footnote) + "\n")
		}
	}
	for _, l := range te.Links {
		b.WriteString(pad + "→ " + l.Title + " " + t.paint(t.styles.link, l.URL) + "\n")
	}
	return b.String()
}

func (t *Terminal) paint(s lipgloss.Style, text string) string {
	if !t.opts.Color || text == "" {
		return text
	}
	return s.Render(text)
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
