package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

func TestTerminal_Render(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTerminal(&buf, Options{Details: true}).Render(sampleEntries()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "You\n" +
		"  What is the weather in Paris?\n" +
		"\n" +
		"Assistant\n" +
		"  ✓ Local time and weather for Paris\n" +
		"      Weather\n" +
		"        Temperature: 21.0°C\n" +
		"        approximate\n" +
		"  ✗ Error\n" +
		"      rate limited\n" +
		"      → Status [page] https://status.example.com\n" +
		"  It is sunny.\n"
	if got := buf.String(); got != want {
		t.Errorf("Render output:\n%s\nwant:\n%s", got, want)
	}
}

func TestTerminal_RenderCompact(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTerminal(&buf, Options{}).Render(sampleEntries()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "rate limited") {
		t.Error("compact output should omit tool details")
	}
	if !strings.Contains(out, "  ✗ Error\n") {
		t.Errorf("missing tool headline in %q", out)
	}
}

func TestTerminal_Summary(t *testing.T) {
	var buf bytes.Buffer
	entries := append(sampleEntries(), transcript.Entry{ID: "a2", Role: transcript.RoleAssistant, Content: "x", IsStreaming: true})
	if err := NewTerminal(&buf, Options{}).Summary(entries); err != nil {
		t.Fatal(err)
	}
	want := "3 messages, 2 tool calls, 1 failed, still streaming\n"
	if got := buf.String(); got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}
}

func TestIndent(t *testing.T) {
	if got := indent("a\n\nb", "  "); got != "  a\n\n  b" {
		t.Errorf("indent = %q, want %q", got, "  a\n\n  b")
	}
}
