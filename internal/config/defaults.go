// Package config holds process-wide default tunables for the AgentSight
// pipeline, so a single place documents the defaults named in the spec.
// Most components use these as zero-value fallbacks. The console
// analyzer's write timeout, the composite runner's shutdown deadline, the
// system runner's sample interval and the CLI's --server-port default are
// equal literals in their own packages, and ServerRequestBodyMax is not
// enforced anywhere.
package config

import "time"

const (
	// ReassemblyIdleTimeout is how long a connection's reassembly state may
	// sit without progress before it is evicted as a partial message.
	ReassemblyIdleTimeout = 30 * time.Second

	// ReassemblyMaxBufferBytes bounds per-connection buffered bytes before a
	// truncated event is emitted and the connection is evicted.
	ReassemblyMaxBufferBytes = 8 * 1024 * 1024

	// LogRotateMaxSize is the post-write file size that triggers rotation.
	LogRotateMaxSize = 100 * 1024 * 1024

	// LogRotateMaxFiles is the number of rotated files retained on disk.
	LogRotateMaxFiles = 10

	// LogWriterBufferSize is the buffered-writer size for the file logger.
	LogWriterBufferSize = 64 * 1024

	// LogFlushInterval is the periodic flush cadence for the file logger.
	LogFlushInterval = time.Second

	// LogBackpressureChannelSize bounds the log writer's inbound channel.
	LogBackpressureChannelSize = 10000

	// BroadcastRingCapacity bounds the in-memory live-event ring.
	BroadcastRingCapacity = 1000

	// BroadcastSubscriberMaxQueue disconnects a subscriber once its
	// undelivered queue depth exceeds this.
	BroadcastSubscriberMaxQueue = 500

	// ConsoleWriteTimeout bounds how long the console analyzer may block
	// the pipeline on a slow stdout.
	ConsoleWriteTimeout = 10 * time.Millisecond

	// ChildStopGrace is how long Stop() waits after SIGTERM before SIGKILL.
	ChildStopGrace = 2 * time.Second

	// CompositeShutdownDeadline bounds how long the composite runner waits
	// for children to exit before force-closing their streams.
	CompositeShutdownDeadline = 5 * time.Second

	// ServerRequestBodyMax is the maximum accepted request body size.
	ServerRequestBodyMax = 10 * 1024 * 1024

	// ServerReadTimeout bounds server request reads.
	ServerReadTimeout = 30 * time.Second

	// DefaultServerAddr is the embedded live server's default bind address.
	DefaultServerAddr = "127.0.0.1:7395"

	// DefaultSystemMetricsInterval is the system runner's default sample period.
	DefaultSystemMetricsInterval = time.Second
)

// RunnerOptions carries the tunables shared by every Runner variant that
// wraps a child probe.
type RunnerOptions struct {
	StopGrace time.Duration
}

// WithDefaults backfills zero-valued fields with package defaults.
func (o RunnerOptions) WithDefaults() RunnerOptions {
	if o.StopGrace <= 0 {
		o.StopGrace = ChildStopGrace
	}
	return o
}
