package transcript

import "testing"

func TestComputeStats(t *testing.T) {
	entries := []Entry{
		{Role: RoleUser, Content: "q"},
		{Role: RoleAssistant, Content: "a", IsStreaming: true, ToolEvents: []ToolEvent{
			{ToolName: "tavily_search", Status: StatusCompleted},
			{ToolName: "tavily_search", Status: StatusRunning},
			{ToolName: "memory_retriever", Status: StatusCompleted},
			{ToolName: "error", Status: StatusError},
		}},
	}

	s := ComputeStats(entries)
	if s.UserEntries != 1 || s.AssistantEntries != 1 {
		t.Errorf("entries = %d/%d, want 1/1", s.UserEntries, s.AssistantEntries)
	}
	if s.ToolEvents != 4 {
		t.Errorf("ToolEvents = %d, want 4", s.ToolEvents)
	}
	if s.Running != 1 || s.Errors != 1 {
		t.Errorf("Running=%d Errors=%d, want 1/1", s.Running, s.Errors)
	}
	if !s.Streaming {
		t.Error("Streaming should be true")
	}

	names := s.ToolNames()
	want := []string{"tavily_search", "error", "memory_retriever"}
	if len(names) != len(want) {
		t.Fatalf("ToolNames = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ToolNames[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
