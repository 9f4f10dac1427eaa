// Package analyzer defines the stream-to-stream transform contract every
// pipeline stage implements, and the Chain that composes them in strict
// declared order. An Analyzer may drop events, emit zero or more events
// per input, mutate fields (by replacing Data, never in place), or buffer
// state internally — but it must never panic; errors go to a dedicated
// error channel instead.
package analyzer

import (
	"context"

	"github.com/agentsight/agentsight/internal/agentsighterr"
	"github.com/agentsight/agentsight/internal/event"
)

// Analyzer transforms one event stream into another.
type Analyzer interface {
	Name() string
	Process(ctx context.Context, in <-chan event.Event, errs chan<- *agentsighterr.Error) <-chan event.Event
}

// Chain runs a fixed, ordered sequence of Analyzers. Events traverse them
// in declaration order; the chain itself never panics — a panicking
// Analyzer is a defect in that Analyzer, not something Chain guards
// against, matching the "analyzers never throw across the chain" policy
// for ordinary errors (reported via errs instead).
type Chain struct {
	stages []Analyzer
}

// NewChain builds a Chain from stages in application order.
func NewChain(stages ...Analyzer) *Chain {
	return &Chain{stages: stages}
}

// Run threads in through every stage in order and returns the final
// output channel. errs receives every error any stage reports; it is
// never closed by Run (the caller owns its lifetime).
func (c *Chain) Run(ctx context.Context, in <-chan event.Event, errs chan<- *agentsighterr.Error) <-chan event.Event {
	out := in
	for _, stage := range c.stages {
		out = stage.Process(ctx, out, errs)
	}
	return out
}

// Stages returns the ordered analyzers, primarily for introspection/tests.
func (c *Chain) Stages() []Analyzer {
	return c.stages
}
