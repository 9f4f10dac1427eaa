package logstore

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentsight/agentsight/internal/event"
)

func TestStoreWritesNDJSONLines(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "events.log")

	s, err := Open(Options{BasePath: base, FlushInterval: 5 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for i := 0; i < 3; i++ {
		s.WriteEvent(event.Event{Source: event.SourceSystem, PID: uint32(i)})
	}

	time.Sleep(50 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(base)
	if err != nil {
		t.Fatalf("open written file: %v", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for _, l := range lines {
		var ev event.Event
		if err := json.Unmarshal([]byte(l), &ev); err != nil {
			t.Fatalf("line not valid JSON event: %v", err)
		}
	}

	written, dropped := s.Stats()
	if written != 3 || dropped != 0 {
		t.Fatalf("unexpected stats: written=%d dropped=%d", written, dropped)
	}
}

func TestStoreRotatesOnMaxSize(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "events.log")

	s, err := Open(Options{
		BasePath:      base,
		MaxSize:       50, // tiny, forces rotation quickly
		MaxFiles:      5,
		FlushInterval: 5 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for i := 0; i < 20; i++ {
		s.WriteEvent(event.Event{Source: event.SourceSystem, PID: uint32(i), Comm: "padding-comm-name"})
	}
	time.Sleep(50 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	matches, err := filepath.Glob(base + ".*")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) == 0 {
		t.Fatal("expected at least one rotated file")
	}
	if len(matches) > 5 {
		t.Fatalf("expected max_files retention to cap rotated files at 5, got %d", len(matches))
	}
}

func TestStoreDropsWhenChannelFull(t *testing.T) {
	// Build the Store directly without starting its drain goroutine, so
	// the bounded channel fills deterministically instead of racing a
	// consumer that would otherwise keep pace with a handful of writes.
	s := &Store{
		opts: Options{ChannelSize: 1}.withDefaults(),
		in:   make(chan []byte, 1),
	}

	first := s.WriteEvent(event.Event{Source: event.SourceSystem})
	second := s.WriteEvent(event.Event{Source: event.SourceSystem})

	if !first {
		t.Fatal("expected the first write to be accepted")
	}
	if second {
		t.Fatal("expected the second write to be dropped once the channel is full")
	}
	if _, dropped := s.Stats(); dropped != 1 {
		t.Fatalf("expected dropped counter of 1, got %d", dropped)
	}
}
