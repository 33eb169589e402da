package toolfmt

import (
	"encoding/json"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

const searchSourcesDetail = "Sources consulted for this answer are linked below."

// Search renders web search tools.
func Search() Formatter {
	return Formatter{
		Invoke: func(_ string, input json.RawMessage) Invocation {
			if q := queryFrom(input, "query"); q != "" {
				return Invocation{Headline: "Searching the web for " + quoted(q)}
			}
			return Invocation{Headline: "Searching the web"}
		},
		Complete: searchComplete,
	}
}

func searchComplete(ev transcript.ToolEvent, output json.RawMessage) transcript.ToolEvent {
	data := decodePayload(output)
	ev.DetailSections = nil

	if resp := firstString(data, "response", "answer"); resp != "" {
		ev.Detail = resp
		return ev
	}

	var links []transcript.Link
	_, _ = jsonparser.ArrayEach(data, func(item []byte, typ jsonparser.ValueType, _ int, _ error) {
		if typ != jsonparser.Object {
			return
		}
		url := firstString(item, "url", "link")
		if url == "" {
			return
		}
		title := firstString(item, "title")
		if title == "" {
			title = url
		}
		links = append(links, transcript.Link{Title: title, URL: url})
	}, "results")

	if len(links) > 0 {
		ev.Links = links
		ev.Detail = searchSourcesDetail
		return ev
	}

	if _, typ, _, err := jsonparser.Get(data); err == nil && typ == jsonparser.String {
		ev.Detail = strings.TrimSpace(NormaliseDetail(data))
		return ev
	}
	return genericComplete(ev, output)
}
