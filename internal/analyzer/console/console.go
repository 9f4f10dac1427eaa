// Package console implements the C12 console output analyzer: it writes
// every event to stdout as one JSON line, optionally pretty-printed and
// colorized by source, never blocking the pipeline longer than a
// configurable timeout.
package console

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/agentsight/agentsight/internal/agentsighterr"
	"github.com/agentsight/agentsight/internal/event"
)

var sourceColors = map[event.Source]*color.Color{
	event.SourceSSL:     color.New(color.FgCyan),
	event.SourceProcess: color.New(color.FgYellow),
	event.SourceSystem:  color.New(color.FgGreen),
	event.SourceHTTP:    color.New(color.FgMagenta),
	event.SourceSSE:     color.New(color.FgBlue),
	event.SourceFake:    color.New(color.FgHiBlack),
}

// Options configures the Console analyzer.
type Options struct {
	Pretty       bool
	Color        bool
	Fields       []string // when non-empty, only these top-level data fields are printed
	WriteTimeout time.Duration
	Writer       io.Writer // defaults to os.Stdout
}

// Console writes events to stdout (or Options.Writer) as JSON lines.
type Console struct {
	opts Options
}

// New builds a Console analyzer from opts, backfilling zero-valued
// timeout/writer with their defaults.
func New(opts Options) *Console {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Millisecond
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	return &Console{opts: opts}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Process(ctx context.Context, in <-chan event.Event, errs chan<- *agentsighterr.Error) <-chan event.Event {
	out := make(chan event.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-in:
				if !ok {
					return
				}
				c.writeBounded(ev)
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

// writeBounded renders and writes ev to the configured writer, abandoning
// the write if it doesn't complete within WriteTimeout — the console is
// diagnostic output, never allowed to stall the pipeline.
func (c *Console) writeBounded(ev event.Event) {
	line, err := c.render(ev)
	if err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.opts.Writer.Write(line)
	}()

	select {
	case <-done:
	case <-time.After(c.opts.WriteTimeout):
	}
}

func (c *Console) render(ev event.Event) ([]byte, error) {
	payload := ev.Data
	if len(c.opts.Fields) > 0 {
		filtered, err := filterFields(ev.Data, c.opts.Fields)
		if err == nil {
			payload = filtered
		}
	}

	out := struct {
		Timestamp uint64          `json:"timestamp"`
		Source    event.Source    `json:"source"`
		PID       uint32          `json:"pid"`
		Comm      string          `json:"comm,omitempty"`
		Data      json.RawMessage `json:"data"`
	}{ev.Timestamp, ev.Source, ev.PID, ev.Comm, payload}

	var rendered []byte
	var err error
	if c.opts.Pretty {
		rendered, err = json.MarshalIndent(out, "", "  ")
	} else {
		rendered, err = json.Marshal(out)
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if c.opts.Color {
		if col, ok := sourceColors[ev.Source]; ok {
			buf.WriteString(col.Sprint(string(rendered)))
		} else {
			buf.Write(rendered)
		}
	} else {
		buf.Write(rendered)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func filterFields(data json.RawMessage, fields []string) (json.RawMessage, error) {
	var full map[string]json.RawMessage
	if err := json.Unmarshal(data, &full); err != nil {
		return nil, err
	}
	filtered := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		if v, ok := full[f]; ok {
			filtered[f] = v
		}
	}
	return json.Marshal(filtered)
}
