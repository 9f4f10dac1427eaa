// Package logging provides structured logging for the AgentSight pipeline
// over the standard library's slog, mirroring the teacher's one-method-
// per-domain-event convention instead of ad hoc Info/Warn call sites.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger wraps a JSON slog.Logger with AgentSight-specific event methods.
type Logger struct {
	logger *slog.Logger
}

// New creates a Logger writing JSON lines to stdout at the given level.
func New(level slog.Level) *Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter creates a Logger over an arbitrary writer, useful for tests.
func NewWithWriter(w io.Writer, level slog.Level) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{logger: slog.New(handler)}
}

// Noop returns a Logger that discards everything.
func Noop() *Logger {
	return NewWithWriter(io.Discard, slog.LevelError)
}

// LevelFromEnv parses AGENTSIGHT_LOG_LEVEL ("debug"|"info"|"warn"|"error"),
// defaulting to info on anything unrecognized or unset.
func LevelFromEnv(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogRunnerSpawn logs a Runner starting its child probe.
// event: "runner_spawn"
func (l *Logger) LogRunnerSpawn(runnerID, binary string, args []string) {
	l.logger.Info("runner_spawn", "runner_id", runnerID, "binary", binary, "args", args)
}

// LogRunnerExit logs a Runner's child terminating.
// event: "runner_exit"
func (l *Logger) LogRunnerExit(runnerID string, exitCode int, err error) {
	attrs := []any{"runner_id", runnerID, "exit_code", exitCode}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	l.logger.Warn("runner_exit", attrs...)
}

// LogMalformedLine logs a skipped, unparseable probe line.
// event: "malformed_line"
func (l *Logger) LogMalformedLine(runnerID string, snippet string) {
	l.logger.Warn("malformed_line", "runner_id", runnerID, "snippet", snippet)
}

// LogReassemblyEvict logs a connection leaving the reassembly table.
// event: "reassembly_evict"
func (l *Logger) LogReassemblyEvict(connKey string, reason string, bufferedBytes int) {
	l.logger.Info("reassembly_evict", "conn_key", connKey, "reason", reason, "buffered_bytes", bufferedBytes)
}

// LogFilterDrop logs a filter analyzer construction or evaluation error.
// event: "filter_error"
func (l *Logger) LogFilterDrop(expr string, err error) {
	l.logger.Error("filter_error", "expression", expr, "error", err.Error())
}

// LogBroadcastDisconnect logs a subscriber being dropped for falling behind.
// event: "broadcast_disconnect"
func (l *Logger) LogBroadcastDisconnect(subscriberID string, queueDepth int) {
	l.logger.Warn("broadcast_disconnect", "subscriber_id", subscriberID, "queue_depth", queueDepth)
}

// LogRotation logs a file-logger rollover.
// event: "log_rotated"
func (l *Logger) LogRotation(from, to string, sizeBytes int64) {
	l.logger.Info("log_rotated", "from", from, "to", to, "size_bytes", sizeBytes)
}

// LogWriteDropped logs a dropped event after the retry-once policy failed.
// event: "log_write_dropped"
func (l *Logger) LogWriteDropped(err error) {
	l.logger.Error("log_write_dropped", "error", err.Error())
}

// Stderr forwards a line from a child's stderr at warn level.
// event: "probe_stderr"
func (l *Logger) Stderr(runnerID, line string) {
	l.logger.Warn("probe_stderr", "runner_id", runnerID, "line", line)
}

// Warn and Info expose the underlying logger for call sites that don't
// warrant a dedicated named method.
func (l *Logger) Warn(msg string, args ...any) { l.logger.Warn(msg, args...) }
func (l *Logger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// Global logger management, mirroring the teacher's package-level
// singleton accessor guarded by a RWMutex.
var (
	global   *Logger
	globalMu sync.RWMutex
)

// SetGlobal installs the process-wide logger.
func SetGlobal(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = l
}

// Global returns the process-wide logger, or a no-op logger if unset.
func Global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if global != nil {
		return global
	}
	return Noop()
}
