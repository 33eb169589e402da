package toolfmt

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/buger/jsonparser"
	"github.com/spf13/cast"

	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

// DefaultShortenLength is the limit Shorten applies when max <= 0.
const DefaultShortenLength = 72

// Shorten cuts s to at most max runes, ending with "..." when it was cut.
func Shorten(s string, max int) string {
	if max <= 0 {
		max = DefaultShortenLength
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// oneLine collapses whitespace runs, including newlines, to single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// decodePayload unwraps a JSON string whose content is itself a JSON object
// or array. Anything else is returned as is.
func decodePayload(raw json.RawMessage) []byte {
	data := []byte(strings.TrimSpace(string(raw)))
	if len(data) == 0 || data[0] != '"' {
		return data
	}
	var inner string
	if err := json.Unmarshal(data, &inner); err != nil {
		return data
	}
	trimmed := strings.TrimSpace(inner)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return data
	}
	if !json.Valid([]byte(trimmed)) {
		return data
	}
	return []byte(trimmed)
}

// NormaliseDetail renders an arbitrary payload as readable text: strings pass
// through, scalars stringify, arrays become bullets and objects become
// "key: value" lines in document order.
func NormaliseDetail(raw json.RawMessage) string {
	data := decodePayload(raw)
	if len(data) == 0 {
		return ""
	}
	value, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return strings.TrimSpace(string(raw))
	}
	return renderValue(value, typ)
}

func renderValue(value []byte, typ jsonparser.ValueType) string {
	switch typ {
	case jsonparser.Array:
		var lines []string
		_, _ = jsonparser.ArrayEach(value, func(item []byte, it jsonparser.ValueType, _ int, _ error) {
			lines = append(lines, "• "+itemText(item, it))
		})
		return strings.Join(lines, "\n")
	case jsonparser.Object:
		var lines []string
		_ = jsonparser.ObjectEach(value, func(key, val []byte, vt jsonparser.ValueType, _ int) error {
			lines = append(lines, fmt.Sprintf("%s: %s", key, inlineValue(val, vt)))
			return nil
		})
		return strings.Join(lines, "\n")
	default:
		return inlineValue(value, typ)
	}
}

// itemText picks the most readable field of an array element.
func itemText(item []byte, typ jsonparser.ValueType) string {
	if typ == jsonparser.Object {
		for _, key := range []string{"title", "content"} {
			if s, ok := stringField(item, key); ok && s != "" {
				return s
			}
		}
	}
	return inlineValue(item, typ)
}

// inlineValue renders a value on a single logical line.
func inlineValue(value []byte, typ jsonparser.ValueType) string {
	switch typ {
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return string(value)
		}
		return s
	case jsonparser.Null:
		return ""
	default:
		// Numbers, booleans and nested structures keep their JSON text.
		return string(value)
	}
}

// stringField reads a string-valued key. Numbers and booleans are accepted
// and returned in their JSON text form.
func stringField(data []byte, keys ...string) (string, bool) {
	value, typ, _, err := jsonparser.Get(data, keys...)
	if err != nil {
		return "", false
	}
	switch typ {
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	case jsonparser.Number, jsonparser.Boolean:
		return string(value), true
	}
	return "", false
}

// firstString returns the first non-empty string among keys.
func firstString(data []byte, keys ...string) string {
	for _, k := range keys {
		if s, ok := stringField(data, k); ok && s != "" {
			return s
		}
	}
	return ""
}

// floatField reads a number, tolerating numeric strings.
func floatField(data []byte, keys ...string) (float64, bool) {
	value, typ, _, err := jsonparser.Get(data, keys...)
	if err != nil {
		return 0, false
	}
	switch typ {
	case jsonparser.Number, jsonparser.String:
		f, err := cast.ToFloat64E(string(value))
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// queryFrom extracts the search text from a tool input that is either a
// plain string or an object carrying one of keys.
func queryFrom(input json.RawMessage, keys ...string) string {
	data := decodePayload(input)
	if len(data) == 0 {
		return ""
	}
	value, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return ""
	}
	switch typ {
	case jsonparser.String:
		s, _ := jsonparser.ParseString(value)
		return oneLine(s)
	case jsonparser.Object:
		return oneLine(firstString(value, keys...))
	}
	return ""
}

// quoted formats a query for a headline.
func quoted(q string) string {
	return "\"" + Shorten(q, 60) + "\""
}

// withSections sets the sections and their flattened text fallback.
func withSections(ev transcript.ToolEvent, sections []transcript.Section) transcript.ToolEvent {
	ev.DetailSections = sections
	ev.Detail = FlattenSections(sections)
	return ev
}

// FlattenSections renders sections as plain text, separated by blank lines.
func FlattenSections(sections []transcript.Section) string {
	var blocks []string
	for _, s := range sections {
		var lines []string
		if s.Title != "" {
			lines = append(lines, s.Title)
		}
		lines = append(lines, s.Lines...)
		if s.Footnote != "" {
			lines = append(lines, s.Footnote)
		}
		if len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(blocks, "\n\n")
}
