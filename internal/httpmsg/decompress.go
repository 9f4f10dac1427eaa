package httpmsg

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// Decompress applies the decoders named in contentEncodings in reverse
// wire order (the last-applied encoding is undone first), supporting
// gzip, deflate, and br; "identity" is a no-op. Decoders are lenient to
// trailing bytes after the compressed stream (gzip footer variations
// seen mid-chunked-stream): io.ReadAll on a gzip.Reader stops cleanly at
// the logical end of the compressed member, so trailing garbage appended
// by the reassembler is simply never read.
func Decompress(contentEncodings []string, body []byte) ([]byte, []string, error) {
	if len(contentEncodings) == 0 {
		return body, nil, nil
	}

	applied := make([]string, 0, len(contentEncodings))
	current := body

	for i := len(contentEncodings) - 1; i >= 0; i-- {
		enc := contentEncodings[i]
		decoded, err := decodeOne(enc, current)
		if err != nil {
			return current, applied, fmt.Errorf("decompress %s: %w", enc, err)
		}
		current = decoded
		if enc != "identity" {
			applied = append(applied, enc)
		}
	}

	return current, applied, nil
}

func decodeOne(encoding string, body []byte) ([]byte, error) {
	switch encoding {
	case "identity", "":
		return body, nil
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		r.Multistream(false)
		out, err := io.ReadAll(r)
		if err != nil && len(out) == 0 {
			return nil, err
		}
		return out, nil
	case "deflate":
		r := flate.NewReader(bytes.NewReader(body))
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil && len(out) == 0 {
			return nil, err
		}
		return out, nil
	case "br":
		r := brotli.NewReader(bytes.NewReader(body))
		out, err := io.ReadAll(r)
		if err != nil && len(out) == 0 {
			return nil, err
		}
		return out, nil
	default:
		return body, fmt.Errorf("unsupported content-encoding %q", encoding)
	}
}
