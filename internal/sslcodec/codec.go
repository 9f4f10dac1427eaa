// Package sslcodec implements the byte<->codepoint escape convention the
// kernel probe uses to carry raw TLS cleartext bytes inside a JSON string
// field. This is the load-bearing contract called out in the spec: every
// byte 0..255 that is not part of a valid UTF-8 sequence is encoded as
// the single code point U+00xx (matching that byte value exactly); bytes
// that do form valid UTF-8 sequences are left as their natural
// characters, except sequences for U+0080..U+00FF, whose bytes are each
// escaped the same way. Decode must invert this exactly or binary
// reassembly silently corrupts data.
package sslcodec

import "unicode/utf8"

// Encode turns raw bytes into the probe's escape convention: valid UTF-8
// runs pass through unchanged, and any byte that isn't part of one, or is
// part of a U+0080..U+00FF sequence, becomes the single code point U+00xx
// equal to that byte's value.
func Encode(raw []byte) string {
	out := make([]rune, 0, len(raw))
	i := 0
	for i < len(raw) {
		r, size := utf8.DecodeRune(raw[i:])
		if (r == utf8.RuneError && size <= 1) || (r >= 0x80 && r <= 0xFF) {
			// Decode reads any code point <= 0xFF back as one byte, so a valid
			// U+0080..U+00FF sequence is escaped byte by byte as well.
			for _, b := range raw[i : i+size] {
				out = append(out, rune(b))
			}
			i += size
			continue
		}
		out = append(out, r)
		i += size
	}
	return string(out)
}

// Decode reconstructs raw bytes from the escape convention: every code
// point <= 0xFF maps to exactly one byte; higher code points are
// re-encoded as their natural UTF-8 byte sequence.
func Decode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r <= 0xFF {
			out = append(out, byte(r))
			continue
		}
		var buf [utf8.UTFMax]byte
		n := utf8.EncodeRune(buf[:], r)
		out = append(out, buf[:n]...)
	}
	return out
}
