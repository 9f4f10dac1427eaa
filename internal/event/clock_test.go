package event

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeUptimeFile(t *testing.T, seconds string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "uptime")
	if err := os.WriteFile(path, []byte(seconds+" 123.45\n"), 0o644); err != nil {
		t.Fatalf("write fake uptime file: %v", err)
	}
	return path
}

func TestReadUptimeSeconds(t *testing.T) {
	path := writeUptimeFile(t, "3600.5")
	got, err := readUptimeSeconds(path)
	if err != nil {
		t.Fatalf("readUptimeSeconds: %v", err)
	}
	if got != 3600.5 {
		t.Errorf("got %v, want 3600.5", got)
	}
}

func TestToEpochMsConvertsBootNs(t *testing.T) {
	clock := NewClockFromBootEpochMs(1_000_000) // boot at epoch-ms 1,000,000
	got := clock.ToEpochMs(5_000_000)            // 5ms after boot, in ns
	want := uint64(1_000_005)
	if got != want {
		t.Errorf("ToEpochMs = %d, want %d", got, want)
	}
}

func TestToEpochMsIsIdempotentAboveThreshold(t *testing.T) {
	clock := NewClockFromBootEpochMs(1_000_000)
	alreadyNormalized := uint64(1_800_000_000_000) // > 10^12, looks like epoch-ms already
	if got := clock.ToEpochMs(alreadyNormalized); got != alreadyNormalized {
		t.Errorf("expected pass-through, got %d", got)
	}
}

func TestNewClockPlausibleAgainstWallClock(t *testing.T) {
	clock, err := NewClock()
	if err != nil {
		t.Fatalf("NewClock: %v", err)
	}
	nowMs := uint64(time.Now().UnixMilli())
	got := clock.ToEpochMs(0)
	const dayMs = 24 * 60 * 60 * 1000
	if got > nowMs+dayMs || got+dayMs < nowMs {
		t.Errorf("boot-derived epoch-ms %d implausible vs now %d", got, nowMs)
	}
}
