package provider

import (
	"strings"
	"testing"
)

func TestBuildPrompt_Minimal(t *testing.T) {
	t.Parallel()

	got := BuildPrompt("hello", "", nil)
	if !strings.HasSuffix(got, "\n\nPrompt: hello") {
		t.Errorf("prompt should end with the user input, got %q", got)
	}
	if strings.Contains(got, "Context:") {
		t.Error("empty context should not render a context block")
	}
	if strings.Contains(got, "TOOL:") {
		t.Error("no tools should mean no tool instructions")
	}
}

func TestBuildPrompt_WithContext(t *testing.T) {
	t.Parallel()

	got := BuildPrompt("next question", "User: hi\nAgent: hello", nil)
	if !strings.Contains(got, "Context: User: hi\nAgent: hello") {
		t.Errorf("context block missing: %q", got)
	}

	ctxIdx := strings.Index(got, "Context:")
	promptIdx := strings.Index(got, "Prompt:")
	if ctxIdx == -1 || promptIdx == -1 || ctxIdx > promptIdx {
		t.Errorf("context must precede the prompt: %q", got)
	}
}

func TestBuildPrompt_ToolsSortedWithMarkerInstruction(t *testing.T) {
	t.Parallel()

	tools := map[string]string{
		"web_search": "Search the web",
		"calculate":  "Do math",
		"get_time":   "Current time",
	}
	got := BuildPrompt("what time is it", "", tools)

	if !strings.Contains(got, "TOOL: <name>: <argument>") {
		t.Errorf("marker instruction missing: %q", got)
	}

	calcIdx := strings.Index(got, "- calculate:")
	timeIdx := strings.Index(got, "- get_time:")
	searchIdx := strings.Index(got, "- web_search:")
	if calcIdx == -1 || timeIdx == -1 || searchIdx == -1 {
		t.Fatalf("tool lines missing: %q", got)
	}
	if !(calcIdx < timeIdx && timeIdx < searchIdx) {
		t.Errorf("tool lines not sorted by name: %q", got)
	}
}
