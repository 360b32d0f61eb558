package agent

import "strings"

// toolMarker is the literal first segment of a tool-call reply.
const toolMarker = "TOOL"

// parseToolCall recognizes the "TOOL: <name>: <argument>" reply format.
// Only the first two colons delimit: later colons belong to the
// argument, so "TOOL: file_write: note.txt: 12:30 lunch" carries the
// argument "note.txt: 12:30 lunch". ok is false when the reply does
// not lead with the marker.
func parseToolCall(reply string) (name, argument string, ok bool) {
	marker, rest, found := strings.Cut(strings.TrimSpace(reply), ":")
	if !found || strings.TrimSpace(marker) != toolMarker {
		return "", "", false
	}
	name, argument, _ = strings.Cut(rest, ":")
	return strings.TrimSpace(name), strings.TrimSpace(argument), true
}
