package event

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// alreadyNormalizedThreshold is the magnitude above which a timestamp is
// assumed to already be epoch-ms rather than boot-ns-derived ms, making
// the normalizer idempotent per the round-trip law in the spec.
const alreadyNormalizedThreshold = 1_000_000_000_000 // 10^12

// Clock converts kernel boot-nanosecond timestamps into Unix epoch
// milliseconds. It reads the machine's boot time exactly once, at
// construction, the way the teacher's components capture a fixed
// reference point (e.g. an assignment's startedAt) rather than
// recomputing it per event.
type Clock struct {
	bootEpochMs int64
}

// NewClock computes boot time as wall_clock_epoch_s - /proc/uptime seconds,
// recorded in milliseconds.
func NewClock() (*Clock, error) {
	uptimeSeconds, err := readUptimeSeconds("/proc/uptime")
	if err != nil {
		return nil, fmt.Errorf("read /proc/uptime: %w", err)
	}
	nowMs := time.Now().UnixMilli()
	bootEpochMs := nowMs - int64(uptimeSeconds*1000)
	return &Clock{bootEpochMs: bootEpochMs}, nil
}

// NewClockFromBootEpochMs builds a Clock from an already-known boot epoch,
// used by tests that need deterministic output.
func NewClockFromBootEpochMs(bootEpochMs int64) *Clock {
	return &Clock{bootEpochMs: bootEpochMs}
}

// ToEpochMs converts a boot-nanosecond timestamp to epoch-ms. Idempotent:
// a value already above alreadyNormalizedThreshold is assumed to already
// be epoch-ms and is passed through unchanged.
func (c *Clock) ToEpochMs(ts uint64) uint64 {
	if ts > alreadyNormalizedThreshold {
		return ts
	}
	return uint64(c.bootEpochMs) + ts/1_000_000
}

func readUptimeSeconds(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("empty %s", path)
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) == 0 {
		return 0, fmt.Errorf("malformed %s", path)
	}
	return strconv.ParseFloat(fields[0], 64)
}
