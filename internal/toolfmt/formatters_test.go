package toolfmt

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

func complete(t *testing.T, name, input, output string) transcript.ToolEvent {
	t.Helper()
	r := Default()
	var in json.RawMessage
	if input != "" {
		in = json.RawMessage(input)
	}
	return r.Finish(r.Start(name, in), json.RawMessage(output))
}

func TestSearchPrefersResponse(t *testing.T) {
	ev := complete(t, "tavily_search", `"weather lisbon"`,
		`{"response":"It is sunny.","results":[{"title":"A","url":"https://a.example"}]}`)
	if ev.Detail != "It is sunny." {
		t.Errorf("Detail = %q, want %q", ev.Detail, "It is sunny.")
	}
	if len(ev.Links) != 0 {
		t.Errorf("Links = %v, want none", ev.Links)
	}
	if want := `Searching the web for "weather lisbon"`; ev.Headline != want {
		t.Errorf("Headline = %q, want %q", ev.Headline, want)
	}
}

func TestHeadlineQuotesPlainText(t *testing.T) {
	ev := Default().Start("tavily_search", json.RawMessage(`{"query":"say \"hi\" to C:\\temp"}`))
	if want := `Searching the web for "say "hi" to C:\temp"`; ev.Headline != want {
		t.Errorf("Headline = %q, want %q", ev.Headline, want)
	}
}

func TestSearchResultsBecomeLinks(t *testing.T) {
	ev := complete(t, "tavily_search_results_json", `{"query":"go"}`,
		`{"results":[{"title":"Go","url":"https://go.dev"},{"url":"https://pkg.go.dev"},{"title":"no url"}]}`)
	want := []transcript.Link{
		{Title: "Go", URL: "https://go.dev"},
		{Title: "https://pkg.go.dev", URL: "https://pkg.go.dev"},
	}
	if !reflect.DeepEqual(ev.Links, want) {
		t.Errorf("Links = %v, want %v", ev.Links, want)
	}
	if ev.Detail != searchSourcesDetail {
		t.Errorf("Detail = %q, want %q", ev.Detail, searchSourcesDetail)
	}
}

func TestSearchPlainString(t *testing.T) {
	ev := complete(t, "web_search", "", `"nothing relevant"`)
	if ev.Detail != "nothing relevant" {
		t.Errorf("Detail = %q, want %q", ev.Detail, "nothing relevant")
	}
}

func TestRetrievalSections(t *testing.T) {
	out := `{"results":[
		{"title":"Handbook","content":"Vacation policy\nallows 25 days","score":0.876},
		{"snippet":"untitled match","score":1.7},
		{"source":"notes.md","text":"third","score":-0.2},
		{"title":"fourth"}
	]}`
	ev := complete(t, "document_retriever", `{"query":"vacation"}`, out)

	if want := `Searching documents for "vacation"`; ev.Headline != want {
		t.Errorf("Headline = %q, want %q", ev.Headline, want)
	}
	if len(ev.DetailSections) != 4 {
		t.Fatalf("sections = %d, want 4", len(ev.DetailSections))
	}

	first := ev.DetailSections[0]
	if first.Title != "Handbook" {
		t.Errorf("Title = %q, want %q", first.Title, "Handbook")
	}
	wantLines := []string{"Vacation policy allows 25 days", "Relevance: 88%"}
	if !reflect.DeepEqual(first.Lines, wantLines) {
		t.Errorf("Lines = %q, want %q", first.Lines, wantLines)
	}

	if got := ev.DetailSections[1].Title; got != "Result 2" {
		t.Errorf("Title = %q, want %q", got, "Result 2")
	}
	if got := ev.DetailSections[1].Lines[1]; got != "Relevance: 100%" {
		t.Errorf("clamped = %q, want %q", got, "Relevance: 100%")
	}
	if got := ev.DetailSections[2].Lines[1]; got != "Relevance: 0%" {
		t.Errorf("clamped = %q, want %q", got, "Relevance: 0%")
	}
	if got := ev.DetailSections[3].Lines[0]; got != "1 additional results not shown" {
		t.Errorf("extra = %q", got)
	}
	if !strings.HasPrefix(ev.Detail, "Handbook\n") {
		t.Errorf("Detail = %q, want flattened sections", ev.Detail)
	}
}

func TestRetrievalEmpty(t *testing.T) {
	ev := complete(t, "memory_retriever", "", `{"results":[],"message":"Memory is empty."}`)
	if ev.Detail != "Memory is empty." {
		t.Errorf("Detail = %q, want %q", ev.Detail, "Memory is empty.")
	}
	if ev.DetailSections != nil {
		t.Errorf("DetailSections = %v, want nil", ev.DetailSections)
	}

	ev = complete(t, "doc_retriever", "", `{"results":[]}`)
	if ev.Detail != noResultsDetail {
		t.Errorf("Detail = %q, want %q", ev.Detail, noResultsDetail)
	}
}

const stockTable = `{"data":{"columns":["name","qty"],"rows":[["a",1],["b",2],["c",3],["d",4]],"summary":"4 records found.","row_count":4}}`

func TestTabularStructured(t *testing.T) {
	ev := complete(t, "excel_query_tool", `{"query":"stock levels"}`, stockTable)
	if len(ev.DetailSections) != 2 {
		t.Fatalf("sections = %d, want 2", len(ev.DetailSections))
	}

	summary := ev.DetailSections[0]
	wantSummary := []string{`Query: "stock levels"`, "4 records found.", "Rows: 4"}
	if !reflect.DeepEqual(summary.Lines, wantSummary) {
		t.Errorf("summary = %q, want %q", summary.Lines, wantSummary)
	}

	sample := ev.DetailSections[1]
	if sample.Title != "Sample rows" {
		t.Errorf("Title = %q, want %q", sample.Title, "Sample rows")
	}
	if len(sample.Lines) != 3 {
		t.Fatalf("rows = %d, want 3", len(sample.Lines))
	}
	if sample.Lines[0] != "name: a; qty: 1" {
		t.Errorf("row = %q, want %q", sample.Lines[0], "name: a; qty: 1")
	}
	if sample.Footnote != "1 more rows not shown" {
		t.Errorf("Footnote = %q, want %q", sample.Footnote, "1 more rows not shown")
	}
}

func TestTabularJSONString(t *testing.T) {
	encoded, err := json.Marshal(stockTable)
	if err != nil {
		t.Fatal(err)
	}
	ev := complete(t, "excel_search_tool", "", string(encoded))
	if len(ev.DetailSections) != 2 {
		t.Fatalf("sections = %d, want 2", len(ev.DetailSections))
	}
	if got := ev.DetailSections[0].Lines[len(ev.DetailSections[0].Lines)-1]; got != "Rows: 4" {
		t.Errorf("last summary line = %q, want %q", got, "Rows: 4")
	}
}

func TestTabularObjectRows(t *testing.T) {
	out := `{"columns":["Region","Total"],"rows":[{"Region":"EU","Total":"1,200.00"}],"row_count":1}`
	ev := complete(t, "excel_query_tool", "", out)
	if got := ev.DetailSections[1].Lines[0]; got != "Region: EU; Total: 1,200.00" {
		t.Errorf("row = %q", got)
	}
	if ev.DetailSections[1].Footnote != "" {
		t.Errorf("Footnote = %q, want empty", ev.DetailSections[1].Footnote)
	}
}

func TestTabularLegacyRepr(t *testing.T) {
	blob := `[HumanMessage(content='q'), ` +
		`ToolMessage(content='{"columns":["a"],"rows":[[1]]}', name='excel'), ` +
		`ToolMessage(content="{\"columns\":[\"b\"],\"rows\":[[2],[3]]}"), ` +
		`AIMessage(content='first look'), AIMessage(content='It\'s two rows.')]`
	encoded, err := json.Marshal(blob)
	if err != nil {
		t.Fatal(err)
	}
	ev := complete(t, "excel_search_tool", "", string(encoded))

	summary := ev.DetailSections[0]
	wantSummary := []string{"Rows: 2", "It's two rows."}
	if !reflect.DeepEqual(summary.Lines, wantSummary) {
		t.Errorf("summary = %q, want %q", summary.Lines, wantSummary)
	}
	if want := "Recovered 2 tables; showing the most recent."; summary.Footnote != want {
		t.Errorf("Footnote = %q, want %q", summary.Footnote, want)
	}
	if got := ev.DetailSections[1].Lines; !reflect.DeepEqual(got, []string{"b: 2", "b: 3"}) {
		t.Errorf("sample = %q", got)
	}
}

func TestTabularUnrecognised(t *testing.T) {
	ev := complete(t, "excel_query_tool", "", `{"error":"file not found"}`)
	if ev.Detail != "error: file not found" {
		t.Errorf("Detail = %q, want %q", ev.Detail, "error: file not found")
	}
	if ev.DetailSections != nil {
		t.Errorf("DetailSections = %v, want nil", ev.DetailSections)
	}
}

func TestRecoverTables(t *testing.T) {
	text := `ToolMessage(content='{"columns":["a"],"rows":[[1]]}') AIMessage(content='done')`
	tables, analysis := recoverTables(text)
	if len(tables) != 1 {
		t.Fatalf("tables = %d, want 1", len(tables))
	}
	if !reflect.DeepEqual(tables[0].Columns, []string{"a"}) {
		t.Errorf("Columns = %q, want [a]", tables[0].Columns)
	}
	if !reflect.DeepEqual(tables[0].Rows, [][]string{{"1"}}) {
		t.Errorf("Rows = %q, want [[1]]", tables[0].Rows)
	}
	if !reflect.DeepEqual(analysis, []string{"done"}) {
		t.Errorf("analysis = %q, want [done]", analysis)
	}
}

func TestScanQuoted(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{`'plain'`, "plain", true},
		{`"it's"`, "it's", true},
		{`'a\nb\tc\rd'`, "a\nb\tc\rd", true},
		{`'q\'s \\ \"x\"'`, `q's \ "x"`, true},
		{`'keep \d and é'`, `keep \d and é`, true},
		{`'unterminated`, "", false},
		{`bare`, "", false},
	}
	for _, tt := range tests {
		got, _, ok := scanQuoted(tt.in, 0)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("scanQuoted(%s) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestScanMessagesSkipsBareMarker(t *testing.T) {
	text := `AIMessage(content=None) AIMessage(content='kept')`
	got := scanMessages(text, aiMessageMarker)
	if !reflect.DeepEqual(got, []string{"kept"}) {
		t.Errorf("scanMessages = %q, want [kept]", got)
	}
}

func TestLocation(t *testing.T) {
	out := `{"ip":"203.0.113.7","city":"Lisbon","region":"Lisbon","country":"Portugal",
		"timezone":"Europe/Lisbon","local_time":"2024-05-01T10:00:00.123456+01:00",
		"weather":{"temp":18.26,"description":"scattered clouds","humidity":71.6}}`
	ev := complete(t, "location_weather_tool", `{}`, out)

	if want := "Local time and weather for Lisbon"; ev.Headline != want {
		t.Errorf("Headline = %q, want %q", ev.Headline, want)
	}
	if len(ev.DetailSections) != 2 {
		t.Fatalf("sections = %d, want 2", len(ev.DetailSections))
	}

	loc := ev.DetailSections[0]
	if loc.Title != "Location" || len(loc.Lines) != 4 {
		t.Fatalf("location = %+v", loc)
	}
	if loc.Lines[0] != "Place: Lisbon, Lisbon, Portugal" {
		t.Errorf("place = %q", loc.Lines[0])
	}
	if !strings.HasPrefix(loc.Lines[2], "Local time: Wed 1 May 2024, 10:00") {
		t.Errorf("time = %q", loc.Lines[2])
	}
	if loc.Lines[3] != "Source: 203.0.113.7" {
		t.Errorf("source = %q", loc.Lines[3])
	}

	want := []string{"Temperature: 18.3°C", "Conditions: Scattered Clouds", "Humidity: 72%"}
	if got := ev.DetailSections[1].Lines; !reflect.DeepEqual(got, want) {
		t.Errorf("weather = %q, want %q", got, want)
	}
}

func TestLocationFallsBackToGeneric(t *testing.T) {
	ev := complete(t, "location_weather_tool", "", `{"status":"unavailable"}`)
	if ev.Headline != "Looking up local time and weather" {
		t.Errorf("Headline = %q", ev.Headline)
	}
	if ev.Detail != "status: unavailable" {
		t.Errorf("Detail = %q, want %q", ev.Detail, "status: unavailable")
	}
}
