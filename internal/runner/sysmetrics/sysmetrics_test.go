package sysmetrics

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/agentsight/agentsight/internal/event"
)

func TestSystemEmitsOneEventPerTrackedPIDPerTick(t *testing.T) {
	pid := int32(os.Getpid())
	s := New(Options{PIDs: []int32{pid}, Interval: 20 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	out := s.Run(ctx)

	select {
	case ev, ok := <-out:
		if !ok {
			t.Fatal("channel closed before any sample")
		}
		if ev.Source != event.SourceSystem || ev.PID != uint32(pid) {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first sample")
	}
}

func TestSystemSkipsDeadPIDsWithoutError(t *testing.T) {
	const implausiblePID = int32(1 << 30)
	s := New(Options{PIDs: []int32{implausiblePID}, Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	out := s.Run(ctx)
	for range out {
		t.Fatal("expected no events for a dead pid")
	}
}

func TestStopClosesChannel(t *testing.T) {
	s := New(Options{PIDs: nil, Interval: 10 * time.Millisecond})
	out := s.Run(context.Background())
	s.Stop()

	select {
	case _, ok := <-out:
		if ok {
			t.Fatal("expected channel to be closed after Stop with no PIDs")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close after Stop")
	}
}
