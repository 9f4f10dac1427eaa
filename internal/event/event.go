// Package event defines the Event record carried through every stage of
// the AgentSight pipeline and the boot-time/epoch conversion service used
// to normalize its timestamp.
package event

import "encoding/json"

// Source tags the origin of an Event. The core sources are fixed by the
// probes and built-in analyzers; user-defined analyzers may mint their own.
type Source string

const (
	SourceSSL     Source = "ssl"
	SourceProcess Source = "process"
	SourceSystem  Source = "system"
	SourceHTTP    Source = "http"
	SourceSSE     Source = "sse"
	SourceFake    Source = "fake"
)

// Event is the universal record passed between Runners and Analyzers.
//
// Invariants: Source is immutable after creation. Data is replaced, never
// mutated in place, when an analyzer enriches an event — analyzers that
// want to add fields must build a new json.RawMessage and assign it here.
// Timestamp is boot-nanoseconds until the timestamp normalizer (the first
// analyzer after any kernel-probe Runner) converts it to epoch-ms; no
// analyzer downstream of that point ever sees boot-ns.
type Event struct {
	Timestamp uint64          `json:"timestamp"`
	Source    Source          `json:"source"`
	PID       uint32          `json:"pid"`
	Comm      string          `json:"comm"`
	Data      json.RawMessage `json:"data"`
}

// WithData returns a shallow copy of e with a replaced Data payload, the
// pattern every enriching analyzer should use instead of mutating e.Data
// in place.
func (e Event) WithData(data json.RawMessage) Event {
	e.Data = data
	return e
}
