package toolfmt

import "strings"

// Markers of the repr-style message dump some dataset agents return
// instead of JSON.
const (
	toolMessageMarker = "ToolMessage(content="
	aiMessageMarker   = "AIMessage(content="
)

// scanMessages returns the decoded string literal that follows every
// occurrence of marker in text. Occurrences not followed by a quoted
// literal are skipped.
func scanMessages(text, marker string) []string {
	var out []string
	pos := 0
	for {
		i := strings.Index(text[pos:], marker)
		if i < 0 {
			return out
		}
		start := pos + i + len(marker)
		for start < len(text) && (text[start] == ' ' || text[start] == '\t') {
			start++
		}
		lit, end, ok := scanQuoted(text, start)
		if ok {
			out = append(out, lit)
			pos = end
		} else {
			pos = start
		}
	}
}

// scanQuoted decodes the single- or double-quoted literal beginning at
// text[start]. It returns the decoded body and the offset just past the
// closing quote. \n, \t and \r decode to control characters; a backslash
// before a quote or another backslash yields that character; any other
// escape is kept verbatim, backslash included.
func scanQuoted(text string, start int) (string, int, bool) {
	if start >= len(text) {
		return "", start, false
	}
	quote := text[start]
	if quote != '\'' && quote != '"' {
		return "", start, false
	}

	var b strings.Builder
	for i := start + 1; i < len(text); i++ {
		c := text[i]
		switch {
		case c == quote:
			return b.String(), i + 1, true
		case c == '\\' && i+1 < len(text):
			i++
			switch next := text[i]; next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '\'', '"':
				b.WriteByte(next)
			default:
				b.WriteByte('\\')
				b.WriteByte(next)
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", len(text), false
}
