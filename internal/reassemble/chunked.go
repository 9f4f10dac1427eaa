package reassemble

import (
	"bytes"
	"strconv"
)

// driveChunked consumes as much chunked-transfer body as is available in
// cs.buffer, appending decoded bytes to cs.body. Returns true if the
// terminal 0-size chunk was seen (message complete), and an error flag if
// the chunk framing is malformed.
func driveChunked(cs *connState) (complete bool, malformed bool) {
	for {
		if cs.awaitingChunkTrailer {
			if len(cs.buffer) < 2 {
				return false, false
			}
			cs.buffer = cs.buffer[2:]
			cs.awaitingChunkTrailer = false
			continue
		}

		if cs.inChunk {
			if cs.chunkRemaining > len(cs.buffer) {
				cs.body = append(cs.body, cs.buffer...)
				cs.chunkRemaining -= len(cs.buffer)
				cs.buffer = cs.buffer[:0]
				return false, false
			}
			cs.body = append(cs.body, cs.buffer[:cs.chunkRemaining]...)
			cs.buffer = cs.buffer[cs.chunkRemaining:]
			cs.chunkRemaining = 0
			cs.inChunk = false
			cs.awaitingChunkTrailer = true
			continue
		}

		// Need a full "<hex size>[;ext]\r\n" line.
		idx := bytes.Index(cs.buffer, []byte("\r\n"))
		if idx < 0 {
			if len(cs.buffer) > 64 {
				return false, true // chunk-size line absurdly long: malformed
			}
			return false, false
		}
		sizeLine := cs.buffer[:idx]
		if semi := bytes.IndexByte(sizeLine, ';'); semi >= 0 {
			sizeLine = sizeLine[:semi]
		}
		size, err := strconv.ParseInt(string(bytes.TrimSpace(sizeLine)), 16, 64)
		if err != nil || size < 0 {
			return false, true
		}
		cs.buffer = cs.buffer[idx+2:]

		if size == 0 {
			// Terminal chunk; spec doesn't require waiting for trailer
			// headers + final CRLF before considering the message complete.
			return true, false
		}

		cs.inChunk = true
		cs.chunkRemaining = int(size)
	}
}
