// Package agentsighterr defines the error kinds that cross component
// boundaries in the AgentSight pipeline. Most errors here are attached to
// events or counters rather than propagated — see each Kind's doc comment
// for its propagation policy.
package agentsighterr

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies a category of pipeline error.
type Kind string

const (
	// KindSpawnFailed: fatal to the owning Runner; composite continues others.
	KindSpawnFailed Kind = "spawn_failed"
	// KindChildCrashed: fatal to the owning Runner.
	KindChildCrashed Kind = "child_crashed"
	// KindMalformedLine: skipped, counter incremented.
	KindMalformedLine Kind = "malformed_line"
	// KindMalformedJSON: skipped, counter incremented.
	KindMalformedJSON Kind = "malformed_json"
	// KindReassemblyTimeout: emits a partial event, evicts the connection.
	KindReassemblyTimeout Kind = "reassembly_timeout"
	// KindReassemblyOverflow: emits a truncated event, evicts the connection.
	KindReassemblyOverflow Kind = "reassembly_overflow"
	// KindDecompressionError: attached to the event as metadata.
	KindDecompressionError Kind = "decompression_error"
	// KindMalformedHeaders: attached to the event as metadata.
	KindMalformedHeaders Kind = "malformed_headers"
	// KindTruncatedBody: attached to the event as metadata.
	KindTruncatedBody Kind = "truncated_body"
	// KindFilterExpression: construction-time, fails CLI/config load.
	KindFilterExpression Kind = "filter_expression_error"
	// KindLogWrite: retry-once-then-drop; never surfaced upstream.
	KindLogWrite Kind = "log_write_error"
	// KindBroadcastSubscriberSlow: disconnect subscriber; logged once.
	KindBroadcastSubscriberSlow Kind = "broadcast_subscriber_slow"
	// KindBinaryExtraction: fatal at startup.
	KindBinaryExtraction Kind = "binary_extraction_failed"
)

// Error is a structured pipeline error carrying a correlation id so a
// user-visible failure message (spec §7) can be traced back to a log line.
type Error struct {
	Kind          Kind
	Message       string
	CorrelationID string
	Cause         error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Kind, e.CorrelationID, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.CorrelationID, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error, minting a fresh correlation id.
func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:          kind,
		Message:       message,
		CorrelationID: uuid.NewString(),
		Cause:         cause,
	}
}

// Is supports errors.Is matching by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
