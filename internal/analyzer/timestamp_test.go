package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/agentsight/agentsight/internal/agentsighterr"
	"github.com/agentsight/agentsight/internal/event"
)

func TestTimestampNormalizerConvertsBootNsToEpochMs(t *testing.T) {
	clock := event.NewClockFromBootEpochMs(1_000_000)
	n := NewTimestampNormalizer(clock)

	in := make(chan event.Event, 1)
	in <- event.Event{Timestamp: 5_000_000, Source: event.SourceSSL}
	close(in)

	errs := make(chan *agentsighterr.Error, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out := n.Process(ctx, in, errs)

	select {
	case ev := <-out:
		if ev.Timestamp != 1_000_005 {
			t.Errorf("Timestamp = %d, want 1000005", ev.Timestamp)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for normalized event")
	}
}

func TestTimestampNormalizerMonotonicWithinStream(t *testing.T) {
	clock := event.NewClockFromBootEpochMs(0)
	n := NewTimestampNormalizer(clock)

	in := make(chan event.Event, 3)
	in <- event.Event{Timestamp: 1_000_000}
	in <- event.Event{Timestamp: 2_000_000}
	in <- event.Event{Timestamp: 3_000_000}
	close(in)

	errs := make(chan *agentsighterr.Error, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out := n.Process(ctx, in, errs)

	var last uint64
	for ev := range out {
		if ev.Timestamp < last {
			t.Fatalf("timestamps not monotonic: %d then %d", last, ev.Timestamp)
		}
		last = ev.Timestamp
	}
}
