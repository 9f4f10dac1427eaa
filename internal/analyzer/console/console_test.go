package console

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/agentsight/agentsight/internal/agentsighterr"
	"github.com/agentsight/agentsight/internal/event"
)

func run(t *testing.T, c *Console, events []event.Event) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	in := make(chan event.Event)
	errs := make(chan *agentsighterr.Error, 4)
	out := c.Process(ctx, in, errs)

	done := make(chan struct{})
	count := 0
	go func() {
		defer close(done)
		for range out {
			count++
		}
	}()
	for _, ev := range events {
		in <- ev
	}
	close(in)
	<-done
	return count
}

func TestConsoleWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	c := New(Options{Writer: &buf})
	events := []event.Event{
		{Source: event.SourceSystem, Data: json.RawMessage(`{"cpu_pct":1.5}`)},
		{Source: event.SourceSystem, Data: json.RawMessage(`{"cpu_pct":2.5}`)},
	}
	n := run(t, c, events)
	if n != 2 {
		t.Fatalf("expected 2 events passed through, got %d", n)
	}

	time.Sleep(20 * time.Millisecond) // writeBounded's write goroutine is async
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 output lines, got %d: %q", len(lines), buf.String())
	}
	for _, l := range lines {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(l), &decoded); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
	}
}

func TestConsolePassesEventsThroughUnmodified(t *testing.T) {
	var buf bytes.Buffer
	c := New(Options{Writer: &buf})
	ev := event.Event{Source: event.SourceHTTP, Data: json.RawMessage(`{"status":200}`)}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	in := make(chan event.Event, 1)
	errs := make(chan *agentsighterr.Error, 1)
	out := c.Process(ctx, in, errs)
	in <- ev
	close(in)

	got := <-out
	if string(got.Data) != `{"status":200}` {
		t.Fatalf("event data was mutated: %s", got.Data)
	}
}

func TestConsoleFieldFilterLimitsOutput(t *testing.T) {
	var buf bytes.Buffer
	c := New(Options{Writer: &buf, Fields: []string{"status"}})
	ev := event.Event{Source: event.SourceHTTP, Data: json.RawMessage(`{"status":200,"body":"secret stuff"}`)}
	run(t, c, []event.Event{ev})

	time.Sleep(20 * time.Millisecond)
	if strings.Contains(buf.String(), "secret stuff") {
		t.Fatalf("field filter should have excluded body, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), `"status":200`) {
		t.Fatalf("expected status field in output, got %q", buf.String())
	}
}
