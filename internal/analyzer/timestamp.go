package analyzer

import (
	"context"

	"github.com/agentsight/agentsight/internal/agentsighterr"
	"github.com/agentsight/agentsight/internal/event"
)

// TimestampNormalizer replaces every event's boot-ns Timestamp with
// epoch-ms, using a Clock computed once at construction. It must run
// first in the chain after any kernel-probe Runner — every analyzer
// declared after it may assume epoch-ms.
type TimestampNormalizer struct {
	clock *event.Clock
}

// NewTimestampNormalizer wraps a pre-built Clock (shared across Runners
// so every normalized stream agrees on boot epoch).
func NewTimestampNormalizer(clock *event.Clock) *TimestampNormalizer {
	return &TimestampNormalizer{clock: clock}
}

func (n *TimestampNormalizer) Name() string { return "timestamp_normalizer" }

func (n *TimestampNormalizer) Process(ctx context.Context, in <-chan event.Event, errs chan<- *agentsighterr.Error) <-chan event.Event {
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
				ev.Timestamp = n.clock.ToEpochMs(ev.Timestamp)
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
