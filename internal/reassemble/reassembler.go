// Package reassemble groups SSL read/write fragments by connection into
// complete HTTP messages (spec component C7), driving a small per-
// connection state machine over the decoded byte stream. The connection
// table lives entirely inside this Analyzer's own goroutine — single
// ownership replaces the Arc<Mutex<HashMap>> pattern the source uses.
package reassemble

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/agentsight/agentsight/internal/agentsighterr"
	"github.com/agentsight/agentsight/internal/event"
	"github.com/agentsight/agentsight/internal/httpmsg"
	"github.com/agentsight/agentsight/internal/logging"
	"github.com/agentsight/agentsight/internal/runner/sslschema"
	"github.com/agentsight/agentsight/internal/sslcodec"
)

// Reassembler implements analyzer.Analyzer, consuming "ssl" events and
// emitting "http" events (and, on timeout/overflow, partial/truncated
// variants of the same).
type Reassembler struct {
	idleTimeout   time.Duration
	maxBufferSize int
	logger        *logging.Logger

	conns map[ConnKey]*connState
}

// New builds a Reassembler with the given idle timeout and per-connection
// buffer cap (spec defaults: 30s, 8MiB).
func New(idleTimeout time.Duration, maxBufferSize int, logger *logging.Logger) *Reassembler {
	if logger == nil {
		logger = logging.Noop()
	}
	return &Reassembler{
		idleTimeout:   idleTimeout,
		maxBufferSize: maxBufferSize,
		logger:        logger,
		conns:         make(map[ConnKey]*connState),
	}
}

func (r *Reassembler) Name() string { return "reassembler" }

func (r *Reassembler) Process(ctx context.Context, in <-chan event.Event, errs chan<- *agentsighterr.Error) <-chan event.Event {
	out := make(chan event.Event)

	go func() {
		defer close(out)

		var sweepC <-chan time.Time
		if r.idleTimeout > 0 {
			sweep := time.NewTicker(r.idleTimeout / 2)
			defer sweep.Stop()
			sweepC = sweep.C
		}

		emit := func(ev event.Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return

			case <-sweepC:
				for key, cs := range r.conns {
					if time.Since(cs.lastSeen) >= r.idleTimeout {
						r.logger.LogReassemblyEvict(key.String(), "idle_timeout", len(cs.buffer))
						if msg := partialMessage(cs); msg != nil {
							if !emit(toHTTPEvent(*msg, cs.pidOf(key), cs.tidOf(key))) {
								return
							}
						}
						delete(r.conns, key)
					}
				}

			case ev, ok := <-in:
				if !ok {
					return
				}
				if ev.Source != event.SourceSSL {
					if !emit(ev) {
						return
					}
					continue
				}
				msgs, evictKeys := r.ingest(ev)
				for _, m := range msgs {
					if !emit(m) {
						return
					}
				}
				_ = evictKeys
			}
		}
	}()

	return out
}

// ingest decodes one ssl event, drives its connection's state machine,
// and returns zero or more emitted events (http/partial/truncated).
func (r *Reassembler) ingest(ev event.Event) ([]event.Event, []ConnKey) {
	var data sslschema.EventData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		r.logger.Warn("reassembly_bad_ssl_payload", "error", err.Error())
		return nil, nil
	}

	key := ConnKey{PID: ev.PID, TID: data.TID, Direction: string(data.Direction)}
	cs, ok := r.conns[key]
	if !ok {
		cs = newConnState(time.Now())
		r.conns[key] = cs
	}

	raw := sslcodec.Decode(data.Data)
	// buf_size is authoritative: never trust Len for how much was copied.
	if data.BufSize > 0 && data.BufSize < len(raw) {
		raw = raw[:data.BufSize]
	}

	cs.buffer = append(cs.buffer, raw...)
	cs.lastSeen = time.Now()

	if len(cs.buffer) > r.maxBufferSize {
		r.logger.LogReassemblyEvict(key.String(), "overflow", len(cs.buffer))
		msg := truncatedMessage(cs)
		delete(r.conns, key)
		return []event.Event{toHTTPEvent(*msg, ev.PID, data.TID)}, []ConnKey{key}
	}

	var out []event.Event
	for {
		completed, malformed := r.drive(cs)
		if malformed {
			r.logger.LogReassemblyEvict(key.String(), "malformed_headers", len(cs.buffer))
			msg := partialMessage(cs)
			delete(r.conns, key)
			if msg != nil {
				out = append(out, toHTTPEvent(*msg, ev.PID, data.TID))
			}
			return out, []ConnKey{key}
		}
		if !completed {
			break
		}
		msg := completeMessage(cs)
		out = append(out, toHTTPEvent(msg, ev.PID, data.TID))
		// Reset to accept any pipelined bytes left over in the buffer.
		leftover := cs.buffer
		*cs = *newConnState(time.Now())
		cs.buffer = leftover
		if len(cs.buffer) == 0 {
			break
		}
	}

	return out, nil
}

// drive advances the connection's state machine as far as the currently
// buffered bytes allow. Returns (completed, malformed).
func (r *Reassembler) drive(cs *connState) (bool, bool) {
	switch cs.state {
	case stateAwaitingHeaders:
		// Skip blank lines ahead of a message, such as the final CRLF of a
		// chunked body, which driveChunked leaves behind after the 0 chunk.
		for bytes.HasPrefix(cs.buffer, []byte("\r\n")) {
			cs.buffer = cs.buffer[2:]
		}
		idx := bytes.Index(cs.buffer, []byte("\r\n\r\n"))
		if idx < 0 {
			return false, false
		}
		headerBlock := cs.buffer[:idx]
		cs.buffer = cs.buffer[idx+4:]

		lines := splitCRLF(headerBlock)
		if len(lines) == 0 {
			return false, true
		}
		sl, err := httpmsg.ParseStartLine(lines[0])
		if err != nil {
			return false, true
		}
		headers, err := httpmsg.ParseHeaderBlock(lines[1:])
		if err != nil {
			return false, true
		}

		cs.startLine = startLineInfo{
			isRequest: sl.IsRequest,
			method:    sl.Method,
			path:      sl.Path,
			version:   sl.Version,
			status:    sl.Status,
			reason:    sl.Reason,
		}
		cs.headers = headers

		switch {
		case httpmsg.IsChunked(headers):
			cs.state = stateReadingChunked
		case httpmsg.ContentLength(headers) >= 0:
			n := httpmsg.ContentLength(headers)
			if n == 0 {
				cs.state = stateComplete
				return true, false
			}
			cs.state = stateReadingFixed
			cs.fixedRemaining = n
		default:
			cs.state = stateComplete
			return true, false
		}
		return r.drive(cs)

	case stateReadingFixed:
		take := cs.fixedRemaining
		if take > len(cs.buffer) {
			take = len(cs.buffer)
		}
		cs.body = append(cs.body, cs.buffer[:take]...)
		cs.buffer = cs.buffer[take:]
		cs.fixedRemaining -= take
		if cs.fixedRemaining == 0 {
			cs.state = stateComplete
			return true, false
		}
		return false, false

	case stateReadingChunked:
		complete, malformed := driveChunked(cs)
		if malformed {
			return false, true
		}
		if complete {
			cs.state = stateComplete
			return true, false
		}
		return false, false

	case stateComplete:
		return true, false
	}
	return false, false
}

func splitCRLF(b []byte) []string {
	raw := bytes.Split(b, []byte("\r\n"))
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		out = append(out, string(l))
	}
	return out
}

func (cs *connState) pidOf(key ConnKey) uint32 { return key.PID }
func (cs *connState) tidOf(key ConnKey) uint32 { return key.TID }
