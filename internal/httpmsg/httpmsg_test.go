package httpmsg

import (
	"bytes"
	"compress/gzip"
	"testing"
)

func TestParseStartLineRequest(t *testing.T) {
	sl, err := ParseStartLine("POST /v1/chat HTTP/1.1")
	if err != nil {
		t.Fatalf("ParseStartLine: %v", err)
	}
	if !sl.IsRequest || sl.Method != "POST" || sl.Path != "/v1/chat" || sl.Version != "HTTP/1.1" {
		t.Errorf("got %+v", sl)
	}
}

func TestParseStartLineResponse(t *testing.T) {
	sl, err := ParseStartLine("HTTP/1.1 200 OK")
	if err != nil {
		t.Fatalf("ParseStartLine: %v", err)
	}
	if sl.IsRequest || sl.Status != 200 || sl.Reason != "OK" {
		t.Errorf("got %+v", sl)
	}
}

func TestParseStartLineMalformed(t *testing.T) {
	if _, err := ParseStartLine("garbage"); err == nil {
		t.Fatal("expected error for malformed start line")
	}
}

func TestParseHeaderBlockCaseFolds(t *testing.T) {
	headers, err := ParseHeaderBlock([]string{"Content-Type: application/json", "X-Foo: bar"})
	if err != nil {
		t.Fatalf("ParseHeaderBlock: %v", err)
	}
	if headers["content-type"] != "application/json" {
		t.Errorf("headers = %+v", headers)
	}
}

func TestIsChunkedWinsOverContentLength(t *testing.T) {
	headers := map[string]string{
		"content-length":    "10",
		"transfer-encoding": "chunked",
	}
	if !IsChunked(headers) {
		t.Fatal("expected chunked to win per RFC 7230 3.3.3")
	}
}

func TestContentLengthZero(t *testing.T) {
	if n := ContentLength(map[string]string{"content-length": "0"}); n != 0 {
		t.Errorf("ContentLength = %d, want 0", n)
	}
}

func TestDecompressGzipRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	w.Write([]byte("hello world"))
	w.Close()

	out, applied, err := Decompress([]string{"gzip"}, buf.Bytes())
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != "hello world" {
		t.Errorf("out = %q", out)
	}
	if len(applied) != 1 || applied[0] != "gzip" {
		t.Errorf("applied = %v", applied)
	}
}

func TestDecompressGzipTrailingGarbageIgnored(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	w.Write([]byte("payload"))
	w.Close()
	buf.Write([]byte("trailing-garbage"))

	out, _, err := Decompress([]string{"gzip"}, buf.Bytes())
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != "payload" {
		t.Errorf("out = %q", out)
	}
}

func TestDecompressIdentityIsNoop(t *testing.T) {
	out, applied, err := Decompress([]string{"identity"}, []byte("raw"))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != "raw" || len(applied) != 0 {
		t.Errorf("out=%q applied=%v", out, applied)
	}
}

func TestParseSSESplitsOnBlankLineAndConcatenatesData(t *testing.T) {
	body := "event: message\ndata: line1\ndata: line2\n\ndata: {\"x\":1}\n\n"
	events := ParseSSE([]byte(body))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Data != "line1\nline2" {
		t.Errorf("Data = %q", events[0].Data)
	}
	if events[1].ParsedData == nil {
		t.Errorf("expected ParsedData to be populated for JSON data block")
	}
}

func TestExtractBodyTextJSON(t *testing.T) {
	text, raw, isText := ExtractBodyText(map[string]string{"content-type": "application/json"}, []byte(`{"a":1}`))
	if !isText || text != `{"a":1}` || raw != nil {
		t.Errorf("text=%q raw=%v isText=%v", text, raw, isText)
	}
}

func TestExtractBodyTextBinary(t *testing.T) {
	bin := []byte{0xff, 0xfe, 0x00, 0x01}
	_, raw, isText := ExtractBodyText(map[string]string{"content-type": "application/octet-stream"}, bin)
	if isText || raw == nil {
		t.Errorf("expected binary treatment, isText=%v raw=%v", isText, raw)
	}
}
