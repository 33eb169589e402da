package transcript

import (
	"sort"

	"github.com/samber/lo"
)

// Stats summarises a transcript for status lines and reports.
type Stats struct {
	UserEntries      int
	AssistantEntries int
	ToolEvents       int
	Running          int
	Errors           int
	Streaming        bool
	ToolCounts       map[string]int
}

// ComputeStats tallies entries and tool events.
func ComputeStats(entries []Entry) Stats {
	s := Stats{ToolCounts: make(map[string]int)}

	for _, e := range entries {
		switch e.Role {
		case RoleUser:
			s.UserEntries++
		case RoleAssistant:
			s.AssistantEntries++
		}
		if e.IsStreaming {
			s.Streaming = true
		}

		for _, te := range e.ToolEvents {
			s.ToolEvents++
			s.ToolCounts[te.ToolName]++
			switch te.Status {
			case StatusRunning:
				s.Running++
			case StatusError:
				s.Errors++
			}
		}
	}

	return s
}

// ToolNames returns the distinct tool names, most used first.
func (s Stats) ToolNames() []string {
	names := lo.Keys(s.ToolCounts)
	sort.Slice(names, func(i, j int) bool {
		if s.ToolCounts[names[i]] != s.ToolCounts[names[j]] {
			return s.ToolCounts[names[i]] > s.ToolCounts[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
