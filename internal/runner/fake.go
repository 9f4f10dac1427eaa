package runner

import (
	"context"
	"time"

	"github.com/agentsight/agentsight/internal/event"
)

// FakeRunner emits a fixed, caller-supplied sequence of Events at a fixed
// interval, source-tagged "fake". It owns no child process; Stop simply
// cancels the emission goroutine via the context passed to Run. Events
// keep whatever Timestamp the caller supplied; only an empty Source is
// filled in.
type FakeRunner struct {
	events   []event.Event
	interval time.Duration
	cancel   context.CancelFunc
}

// NewFake builds a FakeRunner that replays events in order, spaced
// interval apart (0 emits them back-to-back).
func NewFake(events []event.Event, interval time.Duration) *FakeRunner {
	stamped := make([]event.Event, len(events))
	copy(stamped, events)
	for i := range stamped {
		if stamped[i].Source == "" {
			stamped[i].Source = event.SourceFake
		}
	}
	return &FakeRunner{events: stamped, interval: interval}
}

func (r *FakeRunner) Name() string { return "fake" }

func (r *FakeRunner) Run(ctx context.Context) <-chan event.Event {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	out := make(chan event.Event, len(r.events)+1)
	go func() {
		defer close(out)
		for i, ev := range r.events {
			if i > 0 && r.interval > 0 {
				select {
				case <-time.After(r.interval):
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (r *FakeRunner) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}
