package toolfmt

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/suykerbuyk/atlas-chat/internal/transcript"
)

const localTimeLayout = "Mon 2 Jan 2006, 15:04 MST"

// Location renders the location and weather lookup tool.
func Location() Formatter {
	return Formatter{
		Invoke: func(string, json.RawMessage) Invocation {
			return Invocation{Headline: "Looking up local time and weather"}
		},
		Complete: locationComplete,
	}
}

func locationComplete(ev transcript.ToolEvent, output json.RawMessage) transcript.ToolEvent {
	data := decodePayload(output)
	if _, typ, _, err := jsonparser.Get(data); err != nil || typ != jsonparser.Object {
		return genericComplete(ev, output)
	}

	var sections []transcript.Section
	if s, ok := locationSection(data); ok {
		sections = append(sections, s)
	}
	if s, ok := weatherSection(data); ok {
		sections = append(sections, s)
	}
	if len(sections) == 0 {
		return genericComplete(ev, output)
	}

	if place := firstString(data, "city", "region", "country"); place != "" {
		ev.Headline = "Local time and weather for " + place
	}
	return withSections(ev, sections)
}

func locationSection(data []byte) (transcript.Section, bool) {
	s := transcript.Section{Title: "Location"}

	var place []string
	for _, key := range []string{"city", "region", "country"} {
		if v, ok := stringField(data, key); ok && v != "" {
			place = append(place, v)
		}
	}
	if len(place) > 0 {
		s.Lines = append(s.Lines, "Place: "+strings.Join(place, ", "))
	}

	tz, _ := stringField(data, "timezone")
	if tz != "" {
		s.Lines = append(s.Lines, "Timezone: "+tz)
	}
	if raw, ok := stringField(data, "local_time"); ok && raw != "" {
		s.Lines = append(s.Lines, "Local time: "+localTime(raw, tz))
	}
	if ip, ok := stringField(data, "ip"); ok && ip != "" {
		s.Lines = append(s.Lines, "Source: "+ip)
	}
	return s, len(s.Lines) > 0
}

// localTime formats an ISO timestamp in its zone, falling back to the raw
// text when it cannot be parsed.
func localTime(raw, tz string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			t = t.In(loc)
		}
	}
	return t.Format(localTimeLayout)
}

func weatherSection(data []byte) (transcript.Section, bool) {
	weather, typ, _, err := jsonparser.Get(data, "weather")
	if err != nil || typ != jsonparser.Object {
		weather = data
	}

	s := transcript.Section{Title: "Weather"}
	if temp, ok := floatField(weather, "temp"); ok {
		s.Lines = append(s.Lines, fmt.Sprintf("Temperature: %.1f°C", temp))
	} else if temp, ok := floatField(weather, "temperature"); ok {
		s.Lines = append(s.Lines, fmt.Sprintf("Temperature: %.1f°C", temp))
	}
	if cond := firstString(weather, "description", "condition"); cond != "" {
		s.Lines = append(s.Lines, "Conditions: "+cases.Title(language.English).String(cond))
	}
	if hum, ok := floatField(weather, "humidity"); ok {
		s.Lines = append(s.Lines, fmt.Sprintf("Humidity: %d%%", int(math.Round(hum))))
	}
	return s, len(s.Lines) > 0
}
