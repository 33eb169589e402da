package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const exportJSON = `{
  "id": "c1",
  "title": "Weather",
  "created_at": "2024-05-01T10:00:00Z",
  "messages": [
    {"kind": "message", "role": "user", "content": "weather?"},
    {"kind": "tool", "role": "tool", "tool_name": "location_weather_tool", "tool_status": "complete",
     "tool_call_id": "call-1", "tool_input": {}, "tool_output": {"city": "Lisbon"}},
    {"kind": "message", "role": "assistant", "content": "Sunny.", "tool_input": null}
  ]
}`

func TestDecodeObject(t *testing.T) {
	exp, err := Decode([]byte(exportJSON))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if exp.ID != "c1" || exp.Title != "Weather" {
		t.Errorf("export = %q %q, want c1 Weather", exp.ID, exp.Title)
	}
	if len(exp.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(exp.Messages))
	}
	tool := exp.Messages[1]
	if !tool.IsTool() || !tool.HasOutput() {
		t.Errorf("tool message = %+v", tool)
	}
	if string(tool.ToolOutput) != `{"city": "Lisbon"}` {
		t.Errorf("ToolOutput = %s", tool.ToolOutput)
	}
	if exp.Messages[2].ToolInput != nil {
		t.Errorf("null ToolInput = %s, want nil", exp.Messages[2].ToolInput)
	}
}

func TestDecodeArray(t *testing.T) {
	exp, err := Decode([]byte(`[{"kind":"message","role":"user","content":"hi"}]`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(exp.Messages) != 1 || exp.Messages[0].Content != "hi" {
		t.Errorf("messages = %+v", exp.Messages)
	}
}

func TestDecodeRejects(t *testing.T) {
	for _, in := range []string{``, `{"id":"x"}`} {
		if _, err := Decode([]byte(in)); !errors.Is(err, ErrNoMessages) {
			t.Errorf("Decode(%q) error = %v, want ErrNoMessages", in, err)
		}
	}
	if _, err := Decode([]byte(`{broken`)); err == nil {
		t.Error("Decode(broken) succeeded, want error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	if err := os.WriteFile(path, []byte(exportJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	exp, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(exp.Messages) != 3 {
		t.Errorf("messages = %d, want 3", len(exp.Messages))
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}
}

func TestStoreImportAndRead(t *testing.T) {
	ctx := context.Background()
	store, err := OpenStore(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	exp, err := Decode([]byte(exportJSON))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Import(ctx, "c1", exp.Title, exp.Messages); err != nil {
		t.Fatalf("Import: %v", err)
	}

	got, err := store.Messages(ctx, "c1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("messages = %d, want 3", len(got))
	}
	if got[0].Role != RoleUser || got[0].Content != "weather?" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].ToolName != "location_weather_tool" || got[1].ToolStatus != ToolComplete || got[1].ToolCallID != "call-1" {
		t.Errorf("tool = %+v", got[1])
	}
	if string(got[1].ToolInput) != `{}` {
		t.Errorf("ToolInput = %s, want {}", got[1].ToolInput)
	}
	if got[2].ToolInput != nil || got[2].ToolOutput != nil {
		t.Errorf("assistant payloads = %s / %s, want nil", got[2].ToolInput, got[2].ToolOutput)
	}

	// Re-import replaces rather than appends.
	if err := store.Import(ctx, "c1", "Renamed", exp.Messages[:1]); err != nil {
		t.Fatalf("re-Import: %v", err)
	}
	got, err = store.Messages(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("messages after re-import = %d, want 1", len(got))
	}

	convs, err := store.Conversations(ctx)
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(convs) != 1 || convs[0].Title != "Renamed" || convs[0].Messages != 1 {
		t.Errorf("conversations = %+v", convs)
	}
}

func TestStoreUnknownConversation(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	got, err := store.Messages(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("messages = %d, want 0", len(got))
	}
}
