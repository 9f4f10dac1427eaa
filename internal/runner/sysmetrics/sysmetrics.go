// Package sysmetrics implements the system-metrics Runner (C13): on a
// fixed interval it samples CPU and memory for a configured set of
// tracked PIDs via gopsutil, emitting one Event per PID per tick. It
// deliberately does not import internal/runner — its method set
// satisfies that package's Runner interface structurally, keeping this
// package free to be used standalone (e.g. from tests) without pulling
// in the rest of the runner graph.
package sysmetrics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/agentsight/agentsight/internal/event"
)

// Options configures a System runner.
type Options struct {
	// PIDs is the fixed set of process ids to sample each tick.
	PIDs []int32
	// IncludeChildren additionally samples each tracked PID's children
	// at the time of each tick (the child set is re-enumerated every
	// tick, since children come and go).
	IncludeChildren bool
	// Interval is the sample period. Zero uses the package default.
	Interval time.Duration
}

const defaultInterval = time.Second

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = defaultInterval
	}
	return o
}

// EventData is the payload carried in an agentsight Event.Data for
// source="system".
type EventData struct {
	CPUPct      float64 `json:"cpu_pct"`
	RSSKb       uint64  `json:"rss_kb"`
	ThreadCount int32   `json:"thread_count"`
	ParentPID   int32   `json:"parent_pid"`
}

// System polls gopsutil for the tracked PIDs on a ticker, producing one
// Event per PID per tick. Dead PIDs (those that no longer resolve to a
// live process) are silently skipped for that tick rather than erroring.
type System struct {
	opts    Options
	coreCnt float64
	cancel  context.CancelFunc
}

// New builds a System runner. It reads the host's logical CPU count once
// (via cpu.Counts, falling back to 1) to scale CPU percentages.
func New(opts Options) *System {
	opts = opts.withDefaults()
	cores, err := cpu.Counts(true)
	if err != nil || cores <= 0 {
		cores = 1
	}
	return &System{opts: opts, coreCnt: float64(cores)}
}

func (s *System) Name() string { return "system" }

// Run starts the sampling loop and returns the Event channel. The
// channel closes when ctx is canceled or Stop is called.
func (s *System) Run(ctx context.Context) <-chan event.Event {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	out := make(chan event.Event, 64)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sampleOnce(ctx, out)
			}
		}
	}()
	return out
}

func (s *System) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *System) sampleOnce(ctx context.Context, out chan<- event.Event) {
	pids := s.opts.PIDs
	if s.opts.IncludeChildren {
		pids = append(append([]int32(nil), pids...), s.childPIDs()...)
	}

	now := uint64(time.Now().UnixMilli())
	for _, pid := range pids {
		ev, ok := s.sampleOne(pid, now)
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

func (s *System) childPIDs() []int32 {
	var children []int32
	for _, pid := range s.opts.PIDs {
		proc, err := process.NewProcess(pid)
		if err != nil {
			continue
		}
		kids, err := proc.Children()
		if err != nil {
			continue
		}
		for _, k := range kids {
			children = append(children, k.Pid)
		}
	}
	return children
}

func (s *System) sampleOne(pid int32, now uint64) (event.Event, bool) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return event.Event{}, false
	}

	cpuPct, err := proc.CPUPercent()
	if err != nil {
		return event.Event{}, false
	}
	mem, err := proc.MemoryInfo()
	if err != nil || mem == nil {
		return event.Event{}, false
	}
	threads, err := proc.NumThreads()
	if err != nil {
		threads = 0
	}
	ppid, err := proc.Ppid()
	if err != nil {
		ppid = 0
	}
	comm, err := proc.Name()
	if err != nil {
		comm = ""
	}

	data := EventData{
		CPUPct:      cpuPct / s.coreCnt,
		RSSKb:       mem.RSS / 1024,
		ThreadCount: threads,
		ParentPID:   ppid,
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return event.Event{}, false
	}

	return event.Event{
		Timestamp: now,
		Source:    event.SourceSystem,
		PID:       uint32(pid),
		Comm:      comm,
		Data:      encoded,
	}, true
}
