package toolfmt

import (
	"encoding/json"
	"strings"

	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

// Generic renders any tool: the headline names the tool and the output is
// normalised into key/value or bulleted text.
func Generic() Formatter {
	return Formatter{
		Invoke:   genericInvoke,
		Complete: genericComplete,
	}
}

func genericInvoke(name string, input json.RawMessage) Invocation {
	inv := Invocation{Headline: "Using " + displayName(name)}
	if detail := NormaliseDetail(input); detail != "" && detail != "{}" {
		inv.Detail = detail
	}
	return inv
}

func genericComplete(ev transcript.ToolEvent, output json.RawMessage) transcript.ToolEvent {
	ev.Detail = NormaliseDetail(output)
	ev.DetailSections = nil
	return ev
}

// displayName turns "location_weather_tool" into "location weather tool".
func displayName(name string) string {
	name = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(name))
	if name == "" {
		return "a tool"
	}
	return name
}
