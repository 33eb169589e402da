// Package reducer folds live server events into a transcript.
//
// A Reducer owns one conversation's transcript. Apply is not safe for
// concurrent use; the session read loop is its only caller. Each event that
// changes the transcript replaces the entry list as a whole, so a slice
// returned by Entries or passed to OnChange is never modified afterwards.
package reducer

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/suykerbuyk/atlas-chat/internal/event"
	"github.com/suykerbuyk/atlas-chat/internal/toolfmt"
	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

// ErrEmptyMessage is returned by Begin for a blank user message. Every
// turn starts with a user entry so consecutive answers stay separate.
var ErrEmptyMessage = errors.New("empty user message")

// Directory is notified when the conversation list may be stale. Refresh
// must not block.
type Directory interface {
	Refresh(conversationID string)
}

// Reducer is the streaming state machine for one conversation.
type Reducer struct {
	entries        []transcript.Entry
	assistantID    string
	conversationID string

	registry  *toolfmt.Registry
	directory Directory
	newID     func() string

	// OnChange receives every new transcript snapshot.
	OnChange func([]transcript.Entry)
}

// Option configures a Reducer.
type Option func(*Reducer)

// WithRegistry sets the tool formatters. The default is toolfmt.Default().
func WithRegistry(reg *toolfmt.Registry) Option {
	return func(r *Reducer) { r.registry = reg }
}

// WithDirectory sets the collaborator notified after state changes that
// affect the conversation list.
func WithDirectory(d Directory) Option {
	return func(r *Reducer) { r.directory = d }
}

// WithIDFunc overrides entry id generation.
func WithIDFunc(fn func() string) Option {
	return func(r *Reducer) { r.newID = fn }
}

// WithEntries seeds the transcript, typically from a history replay.
func WithEntries(entries []transcript.Entry) Option {
	return func(r *Reducer) { r.entries = entries }
}

// WithConversation sets the conversation id known before any checkpoint.
func WithConversation(id string) Option {
	return func(r *Reducer) { r.conversationID = id }
}

// New returns a reducer ready to receive the first turn's events.
func New(opts ...Option) *Reducer {
	r := &Reducer{newID: uuid.NewString}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = toolfmt.Default()
	}
	r.assistantID = r.newID()
	return r
}

// Entries returns the current transcript.
func (r *Reducer) Entries() []transcript.Entry { return r.entries }

// ConversationID returns the id from the latest checkpoint.
func (r *Reducer) ConversationID() string { return r.conversationID }

// AssistantID returns the id the current turn's answer is stored under.
func (r *Reducer) AssistantID() string { return r.assistantID }

// Begin starts a new turn: the user's message is appended and later events
// address a fresh assistant entry. A blank message is rejected and the
// current turn is left as it is.
func (r *Reducer) Begin(userText string) error {
	if strings.TrimSpace(userText) == "" {
		return ErrEmptyMessage
	}
	r.set(transcript.Append(r.entries, transcript.Entry{
		ID:      r.newID(),
		Role:    transcript.RoleUser,
		Content: userText,
	}))
	r.assistantID = r.newID()
	return nil
}

// Apply advances the state machine by one event.
func (r *Reducer) Apply(ev event.Event) {
	switch ev := ev.(type) {
	case event.Checkpoint:
		if ev.CheckpointID != "" {
			r.conversationID = ev.CheckpointID
		}
		r.refresh(ev)

	case event.ResponseChunk:
		e, i := r.current(true)
		e.Content += ev.Text
		e.IsStreaming = true
		r.store(e, i)

	case event.FinalResponse:
		text := strings.TrimSpace(ev.Text)
		e, i := r.current(false)
		if i < 0 && text == "" {
			return
		}
		if text != "" {
			e.Content = text
		}
		e.IsStreaming = false
		r.store(e, i)
		if e.Content != "" {
			r.refresh(ev)
		}

	case event.ToolCall:
		e, i := r.current(true)
		e.ToolEvents = append(e.ToolEvents, r.registry.Start(ev.ToolName, ev.Input))
		r.store(e, i)

	case event.ToolResult:
		e, i := r.current(true)
		if j := firstRunning(e.ToolEvents, ev.ToolName); j >= 0 {
			e.ToolEvents[j] = r.registry.Finish(e.ToolEvents[j], ev.Output)
		} else {
			started := r.registry.Start(ev.ToolName, nil)
			e.ToolEvents = append(e.ToolEvents, r.registry.Finish(started, ev.Output))
		}
		r.store(e, i)
		r.refresh(ev)

	case event.Error:
		e, i := r.current(false)
		failed := r.registry.Fail(r.registry.Start(toolfmt.ErrorToolName, nil), ev.Message)
		e.ToolEvents = append(e.ToolEvents, failed)
		e.Content = ev.Message
		e.IsStreaming = false
		r.store(e, i)

	case event.Done:
		if i := transcript.Index(r.entries, r.assistantID); i >= 0 {
			e := r.entries[i]
			switch {
			case e.Empty():
				r.set(transcript.Remove(r.entries, i))
			case e.IsStreaming:
				e.IsStreaming = false
				r.set(transcript.Replace(r.entries, i, e))
			}
		}
		r.refresh(ev)
	}
}

// current returns a private copy of the live assistant entry and its
// position, or a new entry and -1 when it does not exist yet.
func (r *Reducer) current(streaming bool) (transcript.Entry, int) {
	if i := transcript.Index(r.entries, r.assistantID); i >= 0 {
		return r.entries[i].Clone(), i
	}
	return transcript.Entry{
		ID:          r.assistantID,
		Role:        transcript.RoleAssistant,
		IsStreaming: streaming,
	}, -1
}

func (r *Reducer) store(e transcript.Entry, i int) {
	if i < 0 {
		r.set(transcript.Append(r.entries, e))
		return
	}
	r.set(transcript.Replace(r.entries, i, e))
}

func (r *Reducer) set(entries []transcript.Entry) {
	r.entries = entries
	if r.OnChange != nil {
		r.OnChange(entries)
	}
}

func (r *Reducer) refresh(ev event.Event) {
	if r.directory == nil {
		return
	}
	id := r.conversationID
	if id == "" {
		id = ev.Conversation()
	}
	r.directory.Refresh(id)
}

// firstRunning returns the earliest running event for name, or -1.
func firstRunning(events []transcript.ToolEvent, name string) int {
	for i, ev := range events {
		if ev.ToolName == name && ev.Status == transcript.StatusRunning {
			return i
		}
	}
	return -1
}
