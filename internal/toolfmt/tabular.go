package toolfmt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/dustin/go-humanize"

	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

const (
	maxSampleRows   = 3
	cellLength      = 60
	analysisLength  = 320
	maxTableDepth   = 4
	sampleSeparator = "; "
)

// table is a query result recovered from a tool payload.
type table struct {
	Columns  []string
	Rows     [][]string
	Summary  string
	RowCount int
}

// Tabular renders dataset query tools.
func Tabular() Formatter {
	return Formatter{
		Invoke: func(_ string, input json.RawMessage) Invocation {
			if q := queryFrom(input, "query", "input", "question"); q != "" {
				return Invocation{Headline: "Querying the dataset for " + quoted(q)}
			}
			return Invocation{Headline: "Querying the dataset"}
		},
		Complete: tabularComplete,
	}
}

func tabularComplete(ev transcript.ToolEvent, output json.RawMessage) transcript.ToolEvent {
	data := decodePayload(output)

	var tables []table
	var analysis []string
	if t, ok := findTable(data, 0); ok {
		tables = []table{t}
	} else {
		tables, analysis = recoverTables(payloadText(data))
	}
	if len(tables) == 0 && len(analysis) == 0 {
		return genericComplete(ev, output)
	}

	summary := transcript.Section{Title: "Summary"}
	if q := queryFrom(ev.RawInput, "query", "input", "question"); q != "" {
		summary.Lines = append(summary.Lines, "Query: "+quoted(q))
	}

	var current table
	if len(tables) > 0 {
		// The last ToolMessage is the agent's final answer to the query.
		current = tables[len(tables)-1]
		if current.Summary != "" {
			summary.Lines = append(summary.Lines, current.Summary)
		}
		summary.Lines = append(summary.Lines, "Rows: "+humanize.Comma(int64(current.RowCount)))
	}
	if len(analysis) > 0 {
		summary.Lines = append(summary.Lines, Shorten(analysis[len(analysis)-1], analysisLength))
	}
	if len(tables) > 1 {
		summary.Footnote = fmt.Sprintf("Recovered %d tables; showing the most recent.", len(tables))
	}

	sections := []transcript.Section{summary}
	if sample, ok := sampleSection(current); ok {
		sections = append(sections, sample)
	}
	return withSections(ev, sections)
}

func sampleSection(t table) (transcript.Section, bool) {
	if len(t.Rows) == 0 {
		return transcript.Section{}, false
	}
	shown := t.Rows
	if len(shown) > maxSampleRows {
		shown = shown[:maxSampleRows]
	}

	s := transcript.Section{Title: "Sample rows"}
	for _, row := range shown {
		pairs := make([]string, 0, len(row))
		for i, cell := range row {
			col := fmt.Sprintf("column %d", i+1)
			if i < len(t.Columns) {
				col = t.Columns[i]
			}
			pairs = append(pairs, col+": "+Shorten(oneLine(cell), cellLength))
		}
		s.Lines = append(s.Lines, strings.Join(pairs, sampleSeparator))
	}
	if omitted := max(t.RowCount, len(t.Rows)) - len(shown); omitted > 0 {
		s.Footnote = fmt.Sprintf("%s more rows not shown", humanize.Comma(int64(omitted)))
	}
	return s, true
}

// recoverTables scans a repr-style message dump. Tables come from
// ToolMessage literals holding JSON; analysis from AIMessage literals.
func recoverTables(text string) ([]table, []string) {
	var tables []table
	for _, lit := range scanMessages(text, toolMessageMarker) {
		if t, ok := findTable([]byte(strings.TrimSpace(lit)), 0); ok {
			tables = append(tables, t)
		}
	}
	var analysis []string
	for _, lit := range scanMessages(text, aiMessageMarker) {
		if s := strings.TrimSpace(lit); s != "" {
			analysis = append(analysis, s)
		}
	}
	return tables, analysis
}

// payloadText returns the text of a JSON string payload, or the raw bytes.
func payloadText(data []byte) string {
	value, typ, _, err := jsonparser.Get(data)
	if err == nil && typ == jsonparser.String {
		if s, err := jsonparser.ParseString(value); err == nil {
			return s
		}
	}
	return string(data)
}

// findTable locates a {columns, rows} object, looking through data, content
// and result wrappers, JSON-encoded strings and arrays.
func findTable(data []byte, depth int) (table, bool) {
	if depth > maxTableDepth || len(data) == 0 {
		return table{}, false
	}
	value, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return table{}, false
	}
	return tableIn(value, typ, depth)
}

// tableIn searches a value already split out by jsonparser; strings arrive
// without their quotes.
func tableIn(value []byte, typ jsonparser.ValueType, depth int) (table, bool) {
	if depth > maxTableDepth {
		return table{}, false
	}
	switch typ {
	case jsonparser.String:
		inner, ok := embeddedJSON(value)
		if !ok {
			return table{}, false
		}
		return findTable(inner, depth+1)

	case jsonparser.Array:
		var found table
		var ok bool
		_, _ = jsonparser.ArrayEach(value, func(item []byte, it jsonparser.ValueType, _ int, _ error) {
			if !ok {
				found, ok = tableIn(item, it, depth+1)
			}
		})
		return found, ok

	case jsonparser.Object:
		if t, ok := parseTable(value); ok {
			return t, true
		}
		for _, key := range []string{"data", "content", "result"} {
			inner, it, _, err := jsonparser.Get(value, key)
			if err != nil {
				continue
			}
			if t, ok := tableIn(inner, it, depth+1); ok {
				return t, true
			}
		}
	}
	return table{}, false
}

// embeddedJSON decodes an unquoted jsonparser string value and reports
// whether it holds a JSON object or array.
func embeddedJSON(value []byte) ([]byte, bool) {
	s, err := jsonparser.ParseString(value)
	if err != nil {
		return nil, false
	}
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return nil, false
	}
	return []byte(s), true
}

// parseTable reads columns and rows from obj. Rows may be arrays aligned
// with columns or objects keyed by column name.
func parseTable(obj []byte) (table, bool) {
	rowsRaw, rowsType, _, err := jsonparser.Get(obj, "rows")
	if err != nil || rowsType != jsonparser.Array {
		return table{}, false
	}

	var t table
	_, _ = jsonparser.ArrayEach(obj, func(col []byte, ct jsonparser.ValueType, _ int, _ error) {
		t.Columns = append(t.Columns, inlineValue(col, ct))
	}, "columns")

	_, _ = jsonparser.ArrayEach(rowsRaw, func(row []byte, rt jsonparser.ValueType, _ int, _ error) {
		switch rt {
		case jsonparser.Array:
			var cells []string
			_, _ = jsonparser.ArrayEach(row, func(cell []byte, ct jsonparser.ValueType, _ int, _ error) {
				cells = append(cells, inlineValue(cell, ct))
			})
			t.Rows = append(t.Rows, cells)
		case jsonparser.Object:
			t.Rows = append(t.Rows, t.objectRow(row))
		}
	})

	if len(t.Columns) == 0 && len(t.Rows) == 0 {
		if _, _, _, err := jsonparser.Get(obj, "columns"); err != nil {
			return table{}, false
		}
	}

	t.Summary = firstString(obj, "summary")
	t.RowCount = len(t.Rows)
	if n, ok := floatField(obj, "row_count"); ok && n >= 0 {
		t.RowCount = int(n)
	}
	return t, true
}

// objectRow aligns an object row with the table's columns, adopting the
// row's keys as columns when none were declared.
func (t *table) objectRow(row []byte) []string {
	values := make(map[string]string)
	var keys []string
	_ = jsonparser.ObjectEach(row, func(key, val []byte, vt jsonparser.ValueType, _ int) error {
		k := string(key)
		keys = append(keys, k)
		values[k] = inlineValue(val, vt)
		return nil
	})
	if len(t.Columns) == 0 {
		t.Columns = keys
	}
	cells := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		cells[i] = values[col]
	}
	return cells
}
