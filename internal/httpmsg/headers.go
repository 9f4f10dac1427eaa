package httpmsg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agentsight/agentsight/internal/agentsighterr"
)

// StartLine is the parsed first line of an HTTP request or response.
type StartLine struct {
	IsRequest bool
	Method    string
	Path      string
	Status    int
	Reason    string
	Version   string
}

// ParseStartLine parses either "METHOD path HTTP/1.1" or
// "HTTP/1.1 200 OK".
func ParseStartLine(line string) (StartLine, error) {
	line = strings.TrimSpace(line)
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return StartLine{}, agentsighterr.New(agentsighterr.KindMalformedHeaders, fmt.Sprintf("malformed start line %q", line), nil)
	}

	if strings.HasPrefix(parts[0], "HTTP/") {
		status, err := strconv.Atoi(parts[1])
		if err != nil {
			return StartLine{}, agentsighterr.New(agentsighterr.KindMalformedHeaders, fmt.Sprintf("malformed status %q", parts[1]), err)
		}
		reason := ""
		if len(parts) == 3 {
			reason = parts[2]
		}
		return StartLine{IsRequest: false, Version: parts[0], Status: status, Reason: reason}, nil
	}

	if len(parts) < 3 {
		return StartLine{}, agentsighterr.New(agentsighterr.KindMalformedHeaders, fmt.Sprintf("malformed request line %q", line), nil)
	}
	return StartLine{IsRequest: true, Method: parts[0], Path: parts[1], Version: parts[2]}, nil
}

// ParseHeaderBlock parses CRLF-separated "Name: value" lines into a
// case-folded (lower-cased key) map. Duplicate headers are joined with
// ", " per HTTP semantics.
func ParseHeaderBlock(lines []string) (map[string]string, error) {
	headers := make(map[string]string, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			return nil, agentsighterr.New(agentsighterr.KindMalformedHeaders, fmt.Sprintf("malformed header line %q", line), nil)
		}
		name := lower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		if existing, ok := headers[name]; ok {
			headers[name] = existing + ", " + value
		} else {
			headers[name] = value
		}
	}
	return headers, nil
}

// ContentLength returns the parsed Content-Length header, or -1 if absent
// or invalid.
func ContentLength(headers map[string]string) int {
	v, ok := headers["content-length"]
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// IsChunked reports whether Transfer-Encoding names "chunked". Per
// RFC 7230 §3.3.3, when both Content-Length and chunked are present,
// chunked wins — callers should check IsChunked before ContentLength.
func IsChunked(headers map[string]string) bool {
	te, ok := headers["transfer-encoding"]
	if !ok {
		return false
	}
	for _, enc := range strings.Split(te, ",") {
		if strings.EqualFold(strings.TrimSpace(enc), "chunked") {
			return true
		}
	}
	return false
}

// IsSSE reports whether Content-Type indicates a Server-Sent Events
// response body.
func IsSSE(headers map[string]string) bool {
	ct, ok := headers["content-type"]
	if !ok {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(strings.ToLower(ct)), "text/event-stream")
}

// ContentEncodings splits a comma-separated Content-Encoding header into
// its component codings, in wire order.
func ContentEncodings(headers map[string]string) []string {
	v, ok := headers["content-encoding"]
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsTextual reports whether Content-Type suggests a textual (JSON/text)
// body worth exposing as a string rather than raw bytes.
func IsTextual(headers map[string]string) bool {
	ct, ok := headers["content-type"]
	if !ok {
		return false
	}
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "json") || strings.HasPrefix(ct, "text/") || strings.Contains(ct, "xml")
}
