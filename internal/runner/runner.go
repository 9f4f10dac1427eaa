// Package runner defines the Runner contract every event producer
// implements (C4) and the concrete ssl/process Runners (C4) that wrap
// internal/probe.Executor, mapping one probe's line-delimited JSON into
// typed agentsight Events.
package runner

import (
	"context"

	"github.com/agentsight/agentsight/internal/event"
)

// Runner produces a finite or unbounded stream of Events from one
// source (a probe child process, a polling loop, or a composite of
// other Runners). Stop releases the Runner's resources; Run's returned
// channel closes once the Runner has fully stopped producing.
type Runner interface {
	Name() string
	Run(ctx context.Context) <-chan event.Event
	Stop() error
}
