package event

import (
	"errors"
	"testing"
)

func TestParse_AllKinds(t *testing.T) {
	tests := []struct {
		line string
		kind Kind
		conv string
	}{
		{`{"type":"checkpoint","checkpoint_id":"c1"}`, KindCheckpoint, "c1"},
		{`{"type":"response_chunk","text":"Hel","checkpoint_id":"c1"}`, KindResponseChunk, "c1"},
		{`{"type":"final_response","text":"Hello","checkpoint_id":"c1"}`, KindFinalResponse, "c1"},
		{`{"type":"tool_call","tool_name":"tavily_search","input":{"query":"go"},"checkpoint_id":"c1"}`, KindToolCall, "c1"},
		{`{"type":"tool_result","tool_name":"tavily_search","output":"{\"response\":\"ok\"}","checkpoint_id":"c1"}`, KindToolResult, "c1"},
		{`{"type":"error","message":"boom"}`, KindError, ""},
		{`{"type":"done","checkpoint_id":"c1"}`, KindDone, "c1"},
	}

	for _, tt := range tests {
		ev, err := Parse(tt.line)
		if err != nil {
			t.Fatalf("Parse(%s): %v", tt.line, err)
		}
		if ev.Kind() != tt.kind {
			t.Errorf("Kind = %q, want %q", ev.Kind(), tt.kind)
		}
		if ev.Conversation() != tt.conv {
			t.Errorf("Conversation = %q, want %q", ev.Conversation(), tt.conv)
		}
	}
}

func TestParse_Payloads(t *testing.T) {
	ev, err := Parse(`{"type":"tool_call","tool_name":"tavily_search","input":{"query":"go"}}`)
	if err != nil {
		t.Fatal(err)
	}
	call, ok := ev.(ToolCall)
	if !ok {
		t.Fatalf("got %T, want ToolCall", ev)
	}
	if call.ToolName != "tavily_search" {
		t.Errorf("ToolName = %q", call.ToolName)
	}
	if string(call.Input) != `{"query":"go"}` {
		t.Errorf("Input = %s", call.Input)
	}

	ev, _ = Parse(`{"type":"response_chunk","text":"A"}`)
	if chunk := ev.(ResponseChunk); chunk.Text != "A" {
		t.Errorf("Text = %q, want %q", chunk.Text, "A")
	}
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{`not json`, ErrMalformed},
		{`{"type":"checkpoint"`, ErrMalformed},
		{`[1,2]`, ErrMalformed},
		{`{"type":"response_chunk","text":42}`, ErrMalformed},
		{`{"type":"telemetry"}`, ErrUnknownType},
		{`{"text":"no tag"}`, ErrUnknownType},
		{`null`, ErrUnknownType},
	}

	for _, tt := range tests {
		ev, err := Parse(tt.line)
		if err == nil {
			t.Errorf("Parse(%s) = %v, want error", tt.line, ev)
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("Parse(%s) err = %v, want %v", tt.line, err, tt.want)
		}
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Line != tt.line {
			t.Errorf("Parse(%s) should return *ParseError carrying the line", tt.line)
		}
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	events := []Event{
		Checkpoint{CheckpointID: "c1"},
		ResponseChunk{Text: "line\nbreak", CheckpointID: "c1"},
		ToolCall{ToolName: "memory_retriever", Input: []byte(`{"query":"x"}`), CheckpointID: "c1"},
		Error{Message: "boom"},
		Done{CheckpointID: "c1"},
	}

	for _, ev := range events {
		line, err := Encode(ev)
		if err != nil {
			t.Fatalf("Encode(%v): %v", ev, err)
		}
		got, err := Parse(string(line))
		if err != nil {
			t.Fatalf("Parse(%s): %v", line, err)
		}
		if got.Kind() != ev.Kind() || got.Conversation() != ev.Conversation() {
			t.Errorf("round trip %s: got %#v", line, got)
		}
	}
}
