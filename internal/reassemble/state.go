package reassemble

import "time"

// parseState names the HTTP message parser's current phase for one
// connection, per the spec's state machine.
type parseState int

const (
	stateAwaitingHeaders parseState = iota
	stateReadingChunked
	stateReadingFixed
	stateComplete
)

// connState is the per-connection reassembly buffer and parser state.
// Owned exclusively by the Reassembler's single goroutine — no mutex is
// needed because there is exactly one owner, unlike the
// Arc<Mutex<HashMap>> pattern this replaces.
type connState struct {
	buffer []byte

	firstSeen time.Time
	lastSeen  time.Time

	state parseState

	// Parsed once headers complete.
	startLine startLineInfo
	headers   map[string]string

	// reading-fixed / reading-chunked bookkeeping.
	fixedRemaining       int
	chunkRemaining       int
	inChunk              bool
	awaitingChunkTrailer bool
	body                 []byte

	totalBytesConsumed int
}

type startLineInfo struct {
	isRequest bool
	method    string
	path      string
	version   string
	status    int
	reason    string
}

func newConnState(now time.Time) *connState {
	return &connState{
		state:     stateAwaitingHeaders,
		firstSeen: now,
		lastSeen:  now,
	}
}
