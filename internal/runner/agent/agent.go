// Package agent implements the composite Runner (C14) backing the CLI's
// "trace" and "record" subcommands: it runs several child Runners
// concurrently and fair-merges their Event streams into one output
// channel, grounded on the per-assignment goroutine + context.CancelFunc
// lifecycle in the teacher's internal/worker/assignment_executor.go.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/agentsight/agentsight/internal/event"
	"github.com/agentsight/agentsight/internal/logging"
	"github.com/agentsight/agentsight/internal/runner"
)

// ShutdownDeadline bounds how long Stop waits for children to drain
// before the merge loop gives up on them.
const ShutdownDeadline = 5 * time.Second

// childQueueCapacity bounds each child's pending-event backlog. A
// forwarding goroutine blocks once its child's queue is full instead of
// growing it unbounded, the same backpressure-over-buffering policy the
// rest of the pipeline's channels apply.
const childQueueCapacity = 256

// Agent merges the Event streams of a fixed set of child Runners with
// cooperative round-robin fairness: at each step it emits the next
// available event from the child at the current cursor position,
// scanning forward by index when that child has nothing buffered, so no
// single fast child can monopolize the merged stream (spec S6's
// sliding-window-of-20 fairness guarantee).
type Agent struct {
	children []runner.Runner
	logger   *logging.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	cond   *sync.Cond
	queues [][]event.Event
	closed []bool
}

// New builds a composite Runner over children. children must already be
// constructed (ssl/process/system/fake Runners); Agent only owns their
// lifecycle from Run/Stop onward, not their construction.
func New(children []runner.Runner, logger *logging.Logger) *Agent {
	if logger == nil {
		logger = logging.Noop()
	}
	a := &Agent{children: children, logger: logger}
	a.cond = sync.NewCond(&a.mu)
	return a
}

func (a *Agent) Name() string { return "agent" }

// Run starts every child into its own bounded per-child queue and a
// single round-robin merge goroutine that drains those queues by cursor
// position into the returned channel. A child that fails to start or
// whose stream ends early does not stop the others; the merged channel
// closes once every child's forwarding goroutine has exited and every
// queue has drained.
func (a *Agent) Run(ctx context.Context) <-chan event.Event {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	n := len(a.children)
	a.queues = make([][]event.Event, n)
	a.closed = make([]bool, n)

	out := make(chan event.Event)

	var wg sync.WaitGroup
	for i, child := range a.children {
		i, child := i, child
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.forward(ctx, i, child)
		}()
	}

	go func() {
		wg.Wait()
		a.mu.Lock()
		for i := range a.closed {
			a.closed[i] = true
		}
		a.mu.Unlock()
		a.cond.Broadcast()
	}()

	// Wake the merge loop's cond.Wait on cancellation too, so Stop's
	// ctx.Done() is observed even while every child queue is empty.
	go func() {
		<-ctx.Done()
		a.cond.Broadcast()
	}()

	go a.mergeRoundRobin(ctx, out, n)

	return out
}

func (a *Agent) forward(ctx context.Context, idx int, child runner.Runner) {
	in := child.Run(ctx)
	for {
		select {
		case ev, ok := <-in:
			if !ok {
				return
			}
			a.mu.Lock()
			for len(a.queues[idx]) >= childQueueCapacity && ctx.Err() == nil {
				a.cond.Wait()
			}
			if ctx.Err() != nil {
				a.mu.Unlock()
				return
			}
			a.queues[idx] = append(a.queues[idx], ev)
			a.mu.Unlock()
			a.cond.Broadcast()
		case <-ctx.Done():
			return
		}
	}
}

// mergeRoundRobin drains a.queues in cursor order: each pass starts its
// scan at the cursor and advances to the next index once a queue yields
// an event, so a child with a standing backlog is revisited every full
// round instead of being starved by a faster sibling.
func (a *Agent) mergeRoundRobin(ctx context.Context, out chan<- event.Event, n int) {
	defer close(out)
	defer close(a.done)

	if n == 0 {
		return
	}

	cursor := 0
	for {
		a.mu.Lock()
		idx := -1
		for {
			for step := 0; step < n; step++ {
				candidate := (cursor + step) % n
				if len(a.queues[candidate]) > 0 {
					idx = candidate
					break
				}
			}
			if idx >= 0 {
				break
			}
			if a.allDrainedLocked(n) || ctx.Err() != nil {
				a.mu.Unlock()
				return
			}
			a.cond.Wait()
		}

		ev := a.queues[idx][0]
		a.queues[idx] = a.queues[idx][1:]
		cursor = (idx + 1) % n
		a.mu.Unlock()
		a.cond.Broadcast() // wake any forwarder blocked on queue space

		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// allDrainedLocked reports whether every child has both closed and
// emptied its queue. Caller must hold a.mu.
func (a *Agent) allDrainedLocked(n int) bool {
	for i := 0; i < n; i++ {
		if !a.closed[i] || len(a.queues[i]) > 0 {
			return false
		}
	}
	return true
}

// Stop cancels every child's context and waits up to ShutdownDeadline
// for the merge loop to finish draining them before returning. Children
// still running past the deadline are abandoned — their goroutines will
// observe ctx.Done() and exit on their own next select, and the merged
// channel still closes once they do, just not before Stop returns.
func (a *Agent) Stop() error {
	if a.cancel == nil {
		return nil
	}
	a.cancel()
	for _, child := range a.children {
		_ = child.Stop()
	}

	select {
	case <-a.done:
	case <-time.After(ShutdownDeadline):
		a.logger.Warn("agent_shutdown_deadline_exceeded", "children", len(a.children))
	}
	return nil
}
