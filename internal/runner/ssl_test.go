package runner

import (
	"encoding/json"
	"testing"

	"github.com/agentsight/agentsight/internal/event"
	"github.com/agentsight/agentsight/internal/runner/sslschema"
)

func TestDecodeSSLLineMapsDirectionAndBufSize(t *testing.T) {
	raw := json.RawMessage(`{
		"timestamp_ns": 1000,
		"pid": 42,
		"comm": "curl",
		"function": "SSL_read",
		"tid": 7,
		"uid": 1000,
		"len": 100,
		"buf_size": 42,
		"data": "hello",
		"latency_ns": 500,
		"is_handshake": false
	}`)

	ev, ok := decodeSSLLine(raw)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if ev.Source != event.SourceSSL || ev.PID != 42 || ev.Comm != "curl" {
		t.Fatalf("unexpected event envelope: %+v", ev)
	}

	var data sslschema.EventData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.Direction != sslschema.DirectionRead {
		t.Fatalf("expected read direction, got %s", data.Direction)
	}
	if data.BufSize != 42 {
		t.Fatalf("expected buf_size 42 to win over len 100, got %d", data.BufSize)
	}
}

func TestDecodeSSLLineRejectsMalformedJSON(t *testing.T) {
	if _, ok := decodeSSLLine(json.RawMessage(`not json`)); ok {
		t.Fatal("expected decode to fail on malformed input")
	}
}
