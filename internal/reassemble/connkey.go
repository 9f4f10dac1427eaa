package reassemble

import "fmt"

// ConnKey identifies one reassembly connection: a (pid, tid, direction)
// triple, matching the spec's connection state key.
type ConnKey struct {
	PID       uint32
	TID       uint32
	Direction string
}

func (k ConnKey) String() string {
	return fmt.Sprintf("%d:%d:%s", k.PID, k.TID, k.Direction)
}
