package runner

import (
	"context"
	"encoding/json"

	"github.com/agentsight/agentsight/internal/config"
	"github.com/agentsight/agentsight/internal/event"
	"github.com/agentsight/agentsight/internal/logging"
	"github.com/agentsight/agentsight/internal/probe"
	"github.com/agentsight/agentsight/internal/runner/sslschema"
)

// SSLRunner wraps the kernel ssl probe binary, turning each RawLine into
// an Event tagged source="ssl" for the reassembler downstream.
type SSLRunner struct {
	exec *probe.Executor
}

// NewSSL builds an SSLRunner for the given probe binary and argument
// vector. env carries optional process environment overrides (e.g.
// AGENTSIGHT_SSL_FILTER for the probe's own comm/pid filtering).
func NewSSL(binaryPath string, args, env []string, opts config.RunnerOptions, logger *logging.Logger) *SSLRunner {
	opts = opts.WithDefaults()
	return &SSLRunner{
		exec: probe.New("ssl", binaryPath, args, env, opts.StopGrace, logger),
	}
}

func (r *SSLRunner) Name() string { return "ssl" }

// Run starts the probe child and returns a channel of decoded Events. The
// channel closes once the probe's stdout reaches EOF and its reader
// goroutines exit.
func (r *SSLRunner) Run(ctx context.Context) <-chan event.Event {
	out := make(chan event.Event, 256)
	if err := r.exec.Start(ctx); err != nil {
		close(out)
		return out
	}

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-r.exec.Lines():
				if !ok {
					return
				}
				ev, ok := decodeSSLLine(raw)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

func (r *SSLRunner) Stop() error { return r.exec.Stop() }

func decodeSSLLine(raw json.RawMessage) (event.Event, bool) {
	var line sslschema.RawLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return event.Event{}, false
	}

	data := sslschema.EventData{
		Function:    line.Function,
		Direction:   sslschema.FunctionDirection(line.Function),
		TID:         line.TID,
		UID:         line.UID,
		Len:         line.Len,
		BufSize:     line.BufSize,
		Data:        line.Data,
		LatencyNs:   line.LatencyNs,
		IsHandshake: line.IsHandshake,
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return event.Event{}, false
	}

	return event.Event{
		Timestamp: line.TimestampNs,
		Source:    event.SourceSSL,
		PID:       line.PID,
		Comm:      line.Comm,
		Data:      encoded,
	}, true
}
