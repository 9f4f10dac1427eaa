// Package logstore implements the C11 file logger: a buffered NDJSON
// writer over a rotating set of files, grounded on the teacher's
// internal/telemetry.Emitter (buffered writer + atomic counters) with
// rotation driven by the teacher's internal/retention.Manager's periodic
// background-goroutine shape, adapted from TTL-based deletion to
// size-based rollover plus a max-files retention count.
package logstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/agentsight/agentsight/internal/agentsighterr"
	"github.com/agentsight/agentsight/internal/config"
	"github.com/agentsight/agentsight/internal/event"
	"github.com/agentsight/agentsight/internal/logging"
)

// Options configures a Store.
type Options struct {
	BasePath      string // current file path; rotated files become <base>.<ts>.<seq>
	MaxSize       int64
	MaxFiles      int
	BufferSize    int
	FlushInterval time.Duration
	ChannelSize   int
}

func (o Options) withDefaults() Options {
	if o.MaxSize <= 0 {
		o.MaxSize = config.LogRotateMaxSize
	}
	if o.MaxFiles <= 0 {
		o.MaxFiles = config.LogRotateMaxFiles
	}
	if o.BufferSize <= 0 {
		o.BufferSize = config.LogWriterBufferSize
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = config.LogFlushInterval
	}
	if o.ChannelSize <= 0 {
		o.ChannelSize = config.LogBackpressureChannelSize
	}
	return o
}

// Store appends one JSON line per event to a rotating file, flushed on
// an interval or when the buffer fills. Write is asynchronous: it
// enqueues onto a bounded channel and never blocks the pipeline beyond
// that — a full channel drops the event and counts it.
type Store struct {
	opts Options
	seq  int

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	size   int64

	in     chan []byte
	stopCh chan struct{}
	doneCh chan struct{}

	logger *logging.Logger

	written atomic.Int64
	dropped atomic.Int64
}

// Open creates (or appends to) the current file at opts.BasePath and
// starts the background writer goroutine.
func Open(opts Options, logger *logging.Logger) (*Store, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = logging.Noop()
	}

	s := &Store{
		opts:   opts,
		in:     make(chan []byte, opts.ChannelSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		logger: logger,
	}

	if err := s.openCurrent(); err != nil {
		return nil, agentsighterr.New(agentsighterr.KindLogWrite, "opening log file "+opts.BasePath, err)
	}

	go s.run()
	return s, nil
}

func (s *Store) openCurrent() error {
	if err := os.MkdirAll(filepath.Dir(s.opts.BasePath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.opts.BasePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	s.file = f
	s.writer = bufio.NewWriterSize(f, s.opts.BufferSize)
	s.size = info.Size()
	return nil
}

// WriteEvent enqueues ev for writing. Returns false if the channel is
// full — the caller never blocks on a slow or failing log writer.
func (s *Store) WriteEvent(ev event.Event) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		return false
	}
	select {
	case s.in <- data:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Stats returns the current (written, dropped) counters.
func (s *Store) Stats() (written, dropped int64) {
	return s.written.Load(), s.dropped.Load()
}

// BasePath returns the current log file's path, as configured at Open.
func (s *Store) BasePath() string {
	return s.opts.BasePath
}

func (s *Store) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case line := <-s.in:
			s.writeLine(line)
		case <-ticker.C:
			s.mu.Lock()
			s.writer.Flush()
			s.mu.Unlock()
		case <-s.stopCh:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case line := <-s.in:
					s.writeLine(line)
				default:
					s.mu.Lock()
					s.writer.Flush()
					s.mu.Unlock()
					return
				}
			}
		}
	}
}

func (s *Store) writeLine(line []byte) {
	if err := s.tryWrite(line); err != nil {
		// Retry once with the logged backoff interval, then drop.
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = 0
		d := b.NextBackOff()
		time.Sleep(d)
		if err := s.tryWrite(line); err != nil {
			s.dropped.Add(1)
			s.logger.Warn("log_write_dropped", "error", err.Error(), "retry_delay", d.String())
			return
		}
	}
	s.written.Add(1)
}

func (s *Store) tryWrite(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(line); err != nil {
		return err
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return err
	}
	s.size += int64(len(line) + 1)

	if s.opts.BufferSize > 0 && s.writer.Buffered() >= s.opts.BufferSize {
		if err := s.writer.Flush(); err != nil {
			return err
		}
	}

	if s.size >= s.opts.MaxSize {
		if err := s.rotateLocked(); err != nil {
			s.logger.Warn("log_rotation_failed", "error", err.Error())
		}
	}
	return nil
}

// rotateLocked closes the current file, renames it with a UTC timestamp
// and sequence suffix, opens a fresh current file, and enforces
// MaxFiles by deleting the oldest rotated files. Caller must hold s.mu.
func (s *Store) rotateLocked() error {
	if err := s.writer.Flush(); err != nil {
		return err
	}
	if err := s.file.Close(); err != nil {
		return err
	}

	s.seq++
	rotated := fmt.Sprintf("%s.%s.%04d", s.opts.BasePath, time.Now().UTC().Format("20060102T150405Z"), s.seq)
	if err := os.Rename(s.opts.BasePath, rotated); err != nil {
		return err
	}
	s.logger.LogRotation(s.opts.BasePath, rotated, s.size)

	f, err := os.OpenFile(s.opts.BasePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	s.file = f
	s.writer = bufio.NewWriterSize(f, s.opts.BufferSize)
	s.size = 0

	s.enforceMaxFiles()
	return nil
}

func (s *Store) enforceMaxFiles() {
	matches, err := filepath.Glob(s.opts.BasePath + ".*")
	if err != nil || len(matches) <= s.opts.MaxFiles {
		return
	}
	sort.Strings(matches) // timestamp+seq suffix sorts chronologically
	toDelete := matches[:len(matches)-s.opts.MaxFiles]
	for _, path := range toDelete {
		if err := os.Remove(path); err != nil {
			s.logger.Warn("log_retention_delete_failed", "path", path, "error", err.Error())
		}
	}
}

// Close flushes and stops the background writer, then closes the
// current file.
func (s *Store) Close() error {
	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// RunUntil drains ev into the store until ctx is done or in closes,
// matching the Analyzer-adjacent sink shape the pipeline wires into its
// terminal stages (C11 is a sink, not an Analyzer: it never re-emits).
func (s *Store) RunUntil(ctx context.Context, in <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			s.WriteEvent(ev)
		}
	}
}
