// Package filter implements the C9 boolean filter analyzer: a small
// recursive-descent expression language over an event's dotted-path
// field values, grounded on the hand-written parsers elsewhere in the
// pipeline rather than a general expression-engine dependency.
package filter

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/agentsight/agentsight/internal/agentsighterr"
	"github.com/agentsight/agentsight/internal/event"
)

// compileCache memoizes parsed expression trees by the xxhash of their
// source text, so a subcommand composing several filters from the same
// small set of expressions (ssl-filter/http-filter reused across
// trace/record) doesn't re-run the recursive-descent parser per instance.
var compileCache sync.Map // map[uint64]node

// Filter drops events whose data does not match a compiled expression.
// Counters follow the atomic-counter style of the teacher's bounded
// queue rather than a mutex-guarded struct.
type Filter struct {
	name string
	expr node

	evaluated atomic.Int64
	passed    atomic.Int64
	dropped   atomic.Int64
}

// New compiles expr and returns a ready-to-run Filter. Parse errors fail
// at construction time, never at runtime.
func New(name, expr string) (*Filter, error) {
	key := xxhash.Sum64String(expr)
	if cached, ok := compileCache.Load(key); ok {
		return &Filter{name: name, expr: cached.(node)}, nil
	}

	n, err := parse(expr)
	if err != nil {
		return nil, agentsighterr.New(agentsighterr.KindFilterExpression, "compiling filter expression "+expr, err)
	}
	compileCache.Store(key, n)
	return &Filter{name: name, expr: n}, nil
}

func (f *Filter) Name() string { return f.name }

func (f *Filter) Process(ctx context.Context, in <-chan event.Event, errs chan<- *agentsighterr.Error) <-chan event.Event {
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
				f.evaluated.Add(1)
				if f.expr.eval(ev.Data) {
					f.passed.Add(1)
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				} else {
					f.dropped.Add(1)
				}
			}
		}
	}()
	return out
}

// Stats returns the current (evaluated, passed, dropped) counters.
func (f *Filter) Stats() (evaluated, passed, dropped int64) {
	return f.evaluated.Load(), f.passed.Load(), f.dropped.Load()
}
