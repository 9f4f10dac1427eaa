package runner

import (
	"context"
	"encoding/json"

	"github.com/agentsight/agentsight/internal/config"
	"github.com/agentsight/agentsight/internal/event"
	"github.com/agentsight/agentsight/internal/logging"
	"github.com/agentsight/agentsight/internal/probe"
	"github.com/agentsight/agentsight/internal/runner/processschema"
)

// ProcessRunner wraps the process/file lifecycle probe binary, turning
// each RawLine into an Event tagged source="process".
type ProcessRunner struct {
	exec *probe.Executor
}

// NewProcess builds a ProcessRunner for the given probe binary and
// argument vector.
func NewProcess(binaryPath string, args, env []string, opts config.RunnerOptions, logger *logging.Logger) *ProcessRunner {
	opts = opts.WithDefaults()
	return &ProcessRunner{
		exec: probe.New("process", binaryPath, args, env, opts.StopGrace, logger),
	}
}

func (r *ProcessRunner) Name() string { return "process" }

func (r *ProcessRunner) Run(ctx context.Context) <-chan event.Event {
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
				ev, ok := decodeProcessLine(raw)
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

func (r *ProcessRunner) Stop() error { return r.exec.Stop() }

func decodeProcessLine(raw json.RawMessage) (event.Event, bool) {
	var line processschema.RawLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return event.Event{}, false
	}

	data := processschema.EventData{
		Event:    line.Event,
		PPID:     line.PPID,
		Filename: line.Filename,
		Flags:    line.Flags,
		ExitCode: line.ExitCode,
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return event.Event{}, false
	}

	return event.Event{
		Timestamp: line.TimestampNs,
		Source:    event.SourceProcess,
		PID:       line.PID,
		Comm:      line.Comm,
		Data:      encoded,
	}, true
}
