// Package replay rebuilds a transcript from persisted history, producing
// the same shape the live reducer would have built for the same turns.
package replay

import (
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/suykerbuyk/atlas-chat/internal/history"
	"github.com/suykerbuyk/atlas-chat/internal/toolfmt"
	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

// Builder converts message histories to transcripts.
type Builder struct {
	registry *toolfmt.Registry
	newID    func() string
}

// Option configures a Builder.
type Option func(*Builder)

// WithRegistry sets the tool formatters. The default is toolfmt.Default().
func WithRegistry(reg *toolfmt.Registry) Option {
	return func(b *Builder) { b.registry = reg }
}

// WithIDFunc overrides entry id generation.
func WithIDFunc(fn func() string) Option {
	return func(b *Builder) { b.newID = fn }
}

// New returns a Builder.
func New(opts ...Option) *Builder {
	b := &Builder{newID: uuid.NewString}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = toolfmt.Default()
	}
	return b
}

// Build replays messages in order. Tool records are buffered until the
// text message that owns them arrives; the result never contains an
// assistant entry with neither content nor tool events.
func (b *Builder) Build(messages []history.Message) []transcript.Entry {
	var out []transcript.Entry
	var pending []transcript.ToolEvent

	for _, m := range messages {
		if m.IsTool() {
			pending = append(pending, b.toolEvent(m))
			continue
		}

		switch m.Role {
		case history.RoleUser:
			if len(pending) > 0 {
				out = b.attachToLastAssistant(out, pending)
				pending = nil
			}
			out = append(out, transcript.Entry{
				ID:      b.newID(),
				Role:    transcript.RoleUser,
				Content: m.Content,
			})

		case history.RoleAssistant:
			if n := len(out); n > 0 && out[n-1].Role == transcript.RoleAssistant && out[n-1].Content == "" {
				prev := out[n-1].Clone()
				prev.Content = m.Content
				prev.ToolEvents = append(prev.ToolEvents, pending...)
				prev.IsStreaming = false
				out[n-1] = prev
			} else {
				out = append(out, transcript.Entry{
					ID:         b.newID(),
					Role:       transcript.RoleAssistant,
					Content:    m.Content,
					ToolEvents: pending,
				})
			}
			pending = nil
		}
	}

	if len(pending) > 0 {
		if n := len(out); n > 0 && out[n-1].Role == transcript.RoleAssistant {
			host := out[n-1].Clone()
			host.ToolEvents = append(host.ToolEvents, pending...)
			out[n-1] = host
		} else {
			out = append(out, b.placeholder(pending))
		}
	}

	return lo.Reject(out, func(e transcript.Entry, _ int) bool {
		return e.Role == transcript.RoleAssistant && e.Empty()
	})
}

// attachToLastAssistant hands pending tool events to the most recent
// assistant entry, or to a placeholder appended at the current position.
func (b *Builder) attachToLastAssistant(out []transcript.Entry, pending []transcript.ToolEvent) []transcript.Entry {
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role == transcript.RoleAssistant {
			host := out[i].Clone()
			host.ToolEvents = append(host.ToolEvents, pending...)
			out[i] = host
			return out
		}
	}
	return append(out, b.placeholder(pending))
}

func (b *Builder) placeholder(events []transcript.ToolEvent) transcript.Entry {
	return transcript.Entry{
		ID:         b.newID(),
		Role:       transcript.RoleAssistant,
		ToolEvents: events,
	}
}

func (b *Builder) toolEvent(m history.Message) transcript.ToolEvent {
	ev := b.registry.Start(m.ToolName, m.ToolInput)
	switch {
	case m.ToolStatus == history.ToolError:
		detail := ""
		if m.HasOutput() {
			detail = toolfmt.NormaliseDetail(m.ToolOutput)
		}
		if detail == "" {
			detail = m.Content
		}
		return b.registry.Fail(ev, detail)
	case m.ToolStatus == history.ToolComplete || m.HasOutput():
		return b.registry.Finish(ev, m.ToolOutput)
	}
	return ev
}

// Build replays messages with the default formatters.
func Build(messages []history.Message) []transcript.Entry {
	return New().Build(messages)
}
