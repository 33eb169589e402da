package toolfmt

import (
	"encoding/json"
	"testing"

	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

func TestShorten(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"abcdefghij", 6, "abc..."},
		{"abcdef", 6, "abcdef"},
		{"short", 0, "short"},
		{"héllo wörld", 8, "héllo..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := Shorten(tt.in, tt.max); got != tt.want {
			t.Errorf("Shorten(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestShortenDefaultLength(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'x'
	}
	got := Shorten(string(long), 0)
	if len(got) != DefaultShortenLength {
		t.Errorf("len = %d, want %d", len(got), DefaultShortenLength)
	}
}

func TestNormaliseDetail(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `"hello"`, "hello"},
		{"number", `42.5`, "42.5"},
		{"bool", `true`, "true"},
		{"null", `null`, ""},
		{"empty", ``, ""},
		{"object order", `{"b":1,"a":"x","c":null}`, "b: 1\na: x\nc: "},
		{"array prefers title", `[{"title":"T","content":"C"},{"content":"C2"},3,"s"]`, "• T\n• C2\n• 3\n• s"},
		{"json in string", `"{\"a\":1}"`, "a: 1"},
		{"nested object", `{"a":{"b":2}}`, `a: {"b":2}`},
		{"not json", `plain words`, "plain words"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormaliseDetail(json.RawMessage(tt.raw)); got != tt.want {
				t.Errorf("NormaliseDetail(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestQueryFrom(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"golang  generics"`, "golang generics"},
		{`{"query":"rust"}`, "rust"},
		{`{"question":"why"}`, ""},
		{`"{\"query\":\"nested\"}"`, "nested"},
		{``, ""},
	}
	for _, tt := range tests {
		if got := queryFrom(json.RawMessage(tt.raw), "query"); got != tt.want {
			t.Errorf("queryFrom(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFlattenSections(t *testing.T) {
	got := FlattenSections([]transcript.Section{
		{Title: "One", Lines: []string{"a", "b"}},
		{Lines: []string{"c"}, Footnote: "note"},
		{},
	})
	want := "One\na\nb\n\nc\nnote"
	if got != want {
		t.Errorf("FlattenSections = %q, want %q", got, want)
	}
}
