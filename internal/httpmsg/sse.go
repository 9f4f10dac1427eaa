package httpmsg

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseSSE splits a decompressed SSE response body on blank lines and
// parses each block into an SSEEvent. Multi-line "data:" fields are
// concatenated with "\n". A data value that is valid JSON also populates
// ParsedData; gjson.Valid is used instead of a full unmarshal so a
// malformed data block doesn't abort the whole stream.
func ParseSSE(body []byte) []SSEEvent {
	raw := string(body)
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	blocks := strings.Split(raw, "\n\n")

	events := make([]SSEEvent, 0, len(blocks))
	for _, block := range blocks {
		block = strings.Trim(block, "\n")
		if block == "" {
			continue
		}
		ev := parseSSEBlock(block)
		events = append(events, ev)
	}
	return events
}

func parseSSEBlock(block string) SSEEvent {
	var ev SSEEvent
	var dataLines []string

	for _, line := range strings.Split(block, "\n") {
		switch {
		case strings.HasPrefix(line, "event:"):
			ev.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "id:"):
			ev.ID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		case strings.HasPrefix(line, "retry:"):
			ev.Retry = strings.TrimSpace(strings.TrimPrefix(line, "retry:"))
		}
	}

	ev.Data = strings.Join(dataLines, "\n")
	if ev.Data != "" && gjson.Valid(ev.Data) {
		var parsed any
		if err := json.Unmarshal([]byte(ev.Data), &parsed); err == nil {
			ev.ParsedData = parsed
		}
	}
	return ev
}
