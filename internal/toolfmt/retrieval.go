package toolfmt

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/buger/jsonparser"
	"github.com/spf13/cast"

	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

const (
	maxRetrievalResults = 3
	previewLength       = 160
	noResultsDetail     = "No matching results found."
)

// Retrieval renders document and memory lookups. verb starts the headline,
// e.g. "Searching documents".
func Retrieval(verb string) Formatter {
	return Formatter{
		Invoke: func(_ string, input json.RawMessage) Invocation {
			if q := queryFrom(input, "query"); q != "" {
				return Invocation{Headline: verb + " for " + quoted(q)}
			}
			return Invocation{Headline: verb}
		},
		Complete: retrievalComplete,
	}
}

func retrievalComplete(ev transcript.ToolEvent, output json.RawMessage) transcript.ToolEvent {
	data := decodePayload(output)

	var results [][]byte
	_, _ = jsonparser.ArrayEach(data, func(item []byte, typ jsonparser.ValueType, _ int, _ error) {
		if typ == jsonparser.Object {
			results = append(results, item)
		}
	}, "results")

	if len(results) == 0 {
		ev.DetailSections = nil
		if msg := firstString(data, "message", "error"); msg != "" {
			ev.Detail = msg
		} else {
			ev.Detail = noResultsDetail
		}
		return ev
	}

	shown := results
	if len(shown) > maxRetrievalResults {
		shown = shown[:maxRetrievalResults]
	}

	sections := make([]transcript.Section, 0, len(shown)+1)
	for i, item := range shown {
		sections = append(sections, resultSection(i, item))
	}
	if extra := len(results) - len(shown); extra > 0 {
		sections = append(sections, transcript.Section{
			Lines: []string{fmt.Sprintf("%d additional results not shown", extra)},
		})
	}

	return withSections(ev, sections)
}

func resultSection(i int, item []byte) transcript.Section {
	s := transcript.Section{Title: resultTitle(i, item)}

	if preview := firstString(item, "snippet", "summary", "content", "text", "assistant", "user"); preview != "" {
		s.Lines = append(s.Lines, Shorten(oneLine(preview), previewLength))
	}
	if score, ok := floatField(item, "score"); ok {
		s.Lines = append(s.Lines, fmt.Sprintf("Relevance: %d%%", relevance(score)))
	}
	if s.Lines == nil {
		s.Lines = []string{}
	}
	return s
}

func resultTitle(i int, item []byte) string {
	title := firstString(item, "title", "source")
	if title == "" {
		return fmt.Sprintf("Result %d", i+1)
	}
	if idx, ok := stringField(item, "chunk_index"); ok && idx != "" {
		if n, err := cast.ToIntE(idx); err == nil {
			return fmt.Sprintf("%s (part %d)", title, n+1)
		}
	}
	return title
}

// relevance maps a similarity score to a whole percentage.
func relevance(score float64) int {
	return int(math.Round(math.Max(0, math.Min(1, score)) * 100))
}
