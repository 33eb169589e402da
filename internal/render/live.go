package render

import (
	"io"
	"strings"

	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

// Live prints a transcript incrementally as snapshots arrive: new entries
// get a header, assistant text is written as deltas and each tool event is
// printed once per status. It is meant to be installed as a reducer's
// OnChange hook and is not safe for concurrent use.
type Live struct {
	term    *Terminal
	seen    map[string]*liveEntry
	midLine bool
	err     error
}

type liveEntry struct {
	content  string
	tools    map[string]transcript.Status
	finished bool
}

// NewLive returns a live printer writing to w.
func NewLive(w io.Writer, opts Options) *Live {
	return &Live{term: NewTerminal(w, opts), seen: make(map[string]*liveEntry)}
}

// Err returns the first write error, if any.
func (l *Live) Err() error { return l.err }

// Mark records entries as already on screen, such as history shown before
// a new turn starts.
func (l *Live) Mark(entries []transcript.Entry) {
	for _, e := range entries {
		l.seen[e.ID] = &liveEntry{content: e.Content, finished: !e.IsStreaming}
	}
}

// Update prints whatever changed since the previous snapshot. Entries that
// were pruned after being printed are left on screen.
func (l *Live) Update(entries []transcript.Entry) {
	for _, e := range entries {
		le, ok := l.seen[e.ID]
		if !ok {
			if e.Empty() {
				continue
			}
			le = &liveEntry{tools: make(map[string]transcript.Status)}
			l.seen[e.ID] = le
			l.newline()
			l.write(l.term.header(e.Role) + "\n")
		}
		if le.finished && !e.IsStreaming {
			continue
		}
		le.finished = false

		for _, te := range e.ToolEvents {
			if prev, ok := le.tools[te.ID]; ok && prev == te.Status {
				continue
			}
			le.tools[te.ID] = te.Status
			l.newline()
			if te.Status.Terminal() {
				l.write(l.term.toolBlock(te))
			} else {
				l.write(l.term.toolLine(te))
			}
		}

		l.content(le, e.Content)

		if !e.IsStreaming {
			le.finished = true
			l.newline()
		}
	}
}

func (l *Live) content(le *liveEntry, content string) {
	if content == le.content {
		return
	}
	switch {
	case le.content == "":
		l.write("  ")
		l.write(strings.ReplaceAll(content, "\n", "\n  "))
	case strings.HasPrefix(content, le.content):
		if !l.midLine {
			l.write("  ")
		}
		l.write(strings.ReplaceAll(content[len(le.content):], "\n", "\n  "))
	default:
		// Replaced text, e.g. a final response that differs from the chunks.
		l.newline()
		l.write("  " + l.term.paint(l.term.styles.dim, "(revised)") + "\n")
		l.write("  ")
		l.write(strings.ReplaceAll(content, "\n", "\n  "))
	}
	le.content = content
	l.midLine = !strings.HasSuffix(content, "\n")
}

func (l *Live) newline() {
	if l.midLine {
		l.write("\n")
		l.midLine = false
	}
}

func (l *Live) write(s string) {
	if l.err != nil || s == "" {
		return
	}
	_, l.err = io.WriteString(l.term.w, s)
}
