// Package toolfmt turns raw tool payloads into display-ready tool events.
//
// Formatters are pure: they receive values and return new values, and never
// touch the transcript that will hold the result. A Registry maps tool names
// to formatters so new tools can be supported without changing the reducer.
package toolfmt

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

// Invocation is the display shape of a tool call before it completes.
type Invocation struct {
	Headline string
	Detail   string
}

// Formatter is the pair of functions that renders one tool.
type Formatter struct {
	// Invoke summarises the call from its input.
	Invoke func(name string, input json.RawMessage) Invocation
	// Complete fills in the display fields from the output. Status and
	// RawOutput are set by the registry.
	Complete func(ev transcript.ToolEvent, output json.RawMessage) transcript.ToolEvent
}

// ErrorToolName is the pseudo-tool used to surface agent-reported errors.
const ErrorToolName = "error"

// Registry selects a Formatter by tool name, falling back to Generic.
type Registry struct {
	formatters map[string]Formatter
	fallback   Formatter
	newID      func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithIDFunc overrides how tool event ids are generated.
func WithIDFunc(fn func() string) Option {
	return func(r *Registry) {
		r.newID = fn
	}
}

// New returns a registry with only the generic fallback.
func New(opts ...Option) *Registry {
	r := &Registry{
		formatters: make(map[string]Formatter),
		fallback:   Generic(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default returns a registry with every built-in formatter registered.
func Default(opts ...Option) *Registry {
	r := New(opts...)

	search := Search()
	for _, name := range []string{"tavily_search", "tavily_search_results_json", "web_search", "search"} {
		r.Register(name, search)
	}

	r.Register("memory_retriever", Retrieval("Recalling memories"))
	docs := Retrieval("Searching documents")
	r.Register("document_retriever", docs)
	r.Register("doc_retriever", docs)

	tabular := Tabular()
	r.Register("excel_search_tool", tabular)
	r.Register("excel_query_tool", tabular)

	r.Register("location_weather_tool", Location())
	r.Register(ErrorToolName, errorFormatter())

	return r
}

// Register binds f to name, replacing any existing formatter. Missing
// functions in f are taken from the generic formatter.
func (r *Registry) Register(name string, f Formatter) {
	if f.Invoke == nil {
		f.Invoke = r.fallback.Invoke
	}
	if f.Complete == nil {
		f.Complete = r.fallback.Complete
	}
	r.formatters[name] = f
}

// Lookup returns the formatter for name, or the fallback.
func (r *Registry) Lookup(name string) Formatter {
	if f, ok := r.formatters[name]; ok {
		return f
	}
	return r.fallback
}

// Start builds a running tool event for a call.
func (r *Registry) Start(name string, input json.RawMessage) transcript.ToolEvent {
	inv := r.Lookup(name).Invoke(name, input)
	return transcript.ToolEvent{
		ID:       r.newID(),
		ToolName: name,
		Status:   transcript.StatusRunning,
		RawInput: input,
		Headline: inv.Headline,
		Detail:   inv.Detail,
	}
}

// Finish completes a running event with output. Events already in a
// terminal state are returned unchanged.
func (r *Registry) Finish(ev transcript.ToolEvent, output json.RawMessage) transcript.ToolEvent {
	if ev.Status.Terminal() {
		return ev
	}
	out := r.Lookup(ev.ToolName).Complete(ev, output)
	out.Status = transcript.StatusCompleted
	out.RawOutput = output
	return out
}

// Fail moves a running event to the error state with message as detail.
func (r *Registry) Fail(ev transcript.ToolEvent, message string) transcript.ToolEvent {
	if ev.Status.Terminal() {
		return ev
	}
	ev.Status = transcript.StatusError
	ev.Detail = message
	ev.DetailSections = nil
	ev.Links = nil
	return ev
}

func errorFormatter() Formatter {
	return Formatter{
		Invoke: func(string, json.RawMessage) Invocation {
			return Invocation{Headline: "Error"}
		},
		Complete: Generic().Complete,
	}
}
