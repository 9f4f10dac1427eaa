package reassemble

import (
	"encoding/json"
	"time"

	"github.com/agentsight/agentsight/internal/event"
	"github.com/agentsight/agentsight/internal/httpmsg"
)

// completeMessage builds the Message for a connection that reached
// stateComplete: headers parsed, body fully collected.
func completeMessage(cs *connState) httpmsg.Message {
	return buildMessage(cs, false, false)
}

// partialMessage builds the Message for a connection evicted before
// completion (idle timeout or malformed headers). Returns nil if no
// start line was ever parsed — there is nothing worth reporting.
func partialMessage(cs *connState) *httpmsg.Message {
	if cs.state == stateAwaitingHeaders && cs.headers == nil {
		return nil
	}
	m := buildMessage(cs, true, false)
	return &m
}

// truncatedMessage builds the Message for a connection evicted for
// exceeding the per-connection buffer cap.
func truncatedMessage(cs *connState) *httpmsg.Message {
	m := buildMessage(cs, false, true)
	return &m
}

func buildMessage(cs *connState, partial, truncated bool) httpmsg.Message {
	dir := httpmsg.DirectionRequest
	if !cs.startLine.isRequest {
		dir = httpmsg.DirectionResponse
	}

	headers := cs.headers
	if headers == nil {
		headers = map[string]string{}
	}

	m := httpmsg.Message{
		Direction: dir,
		Method:    cs.startLine.method,
		Path:      cs.startLine.path,
		Version:   cs.startLine.version,
		Status:    cs.startLine.status,
		Reason:    cs.startLine.reason,
		Headers:   headers,
		Partial:   partial,
		Truncated: truncated,
		LatencyMs: cs.lastSeen.Sub(cs.firstSeen).Milliseconds(),
	}

	if len(cs.body) > 0 {
		encodings := httpmsg.ContentEncodings(headers)
		decoded, applied, err := httpmsg.Decompress(encodings, cs.body)
		if err != nil {
			m.DecompressionError = err.Error()
			decoded = cs.body
		}
		m.ContentEncodingApplied = applied

		if httpmsg.IsSSE(headers) {
			m.SSEEvents = httpmsg.ParseSSE(decoded)
		}

		// Body always carries the text view (lossy for non-textual bodies);
		// BodyBytes additionally keeps the raw bytes when the body is not text.
		text, raw, isText := httpmsg.ExtractBodyText(headers, decoded)
		m.Body = text
		if !isText {
			m.BodyBytes = raw
		}
	}

	return m
}

// toHTTPEvent wraps a reassembled Message as an Event with source="http",
// stamped with the wall-clock epoch-ms timestamp of emission (reassembly
// happens strictly after the timestamp normalizer, so downstream Events
// carry no boot-ns timestamps left to normalize).
func toHTTPEvent(m httpmsg.Message, pid, tid uint32) event.Event {
	m.PID = pid
	m.TID = tid
	data, _ := json.Marshal(m)
	return event.Event{
		Timestamp: uint64(time.Now().UnixMilli()),
		Source:    event.SourceHTTP,
		PID:       pid,
		Data:      data,
	}
}
