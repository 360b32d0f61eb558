package provider

import (
	"sort"
	"strings"
)

// systemPreamble opens every prompt.
const systemPreamble = "You are an AI agent that helps users by reasoning clearly, " +
	"calling tools when needed, and giving structured answers."

// BuildPrompt renders the single-shot prompt handed to a backend: the
// system preamble, the assembled context block, a tool instruction block
// when tools are available, then the user input. Tool lines are sorted
// by name so the prompt is deterministic.
func BuildPrompt(userInput, contextStr string, tools map[string]string) string {
	var b strings.Builder
	b.WriteString(systemPreamble)

	if contextStr != "" {
		b.WriteString("\n\nContext: ")
		b.WriteString(contextStr)
	}

	if len(tools) > 0 {
		names := make([]string, 0, len(tools))
		for name := range tools {
			names = append(names, name)
		}
		sort.Strings(names)

		b.WriteString("\n\nYou have access to the following tools:\n")
		for _, name := range names {
			b.WriteString("- ")
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(tools[name])
			b.WriteString("\n")
		}
		b.WriteString("To use a tool, reply with exactly one line: TOOL: <name>: <argument>")
	}

	b.WriteString("\n\nPrompt: ")
	b.WriteString(userInput)
	return b.String()
}
