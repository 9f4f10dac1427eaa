package runner

import (
	"encoding/json"
	"testing"

	"github.com/agentsight/agentsight/internal/event"
	"github.com/agentsight/agentsight/internal/runner/processschema"
)

func TestDecodeProcessLineMapsExecEvent(t *testing.T) {
	raw := json.RawMessage(`{
		"timestamp_ns": 2000,
		"pid": 99,
		"comm": "python3",
		"event": "EXEC",
		"ppid": 1,
		"filename": "/usr/bin/python3",
		"flags": 0,
		"exit_code": 0
	}`)

	ev, ok := decodeProcessLine(raw)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if ev.Source != event.SourceProcess || ev.PID != 99 {
		t.Fatalf("unexpected event envelope: %+v", ev)
	}

	var data processschema.EventData
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.Event != processschema.KindExec || data.Filename != "/usr/bin/python3" {
		t.Fatalf("unexpected data payload: %+v", data)
	}
}

func TestDecodeProcessLineRejectsMalformedJSON(t *testing.T) {
	if _, ok := decodeProcessLine(json.RawMessage(`{bad`)); ok {
		t.Fatal("expected decode to fail on malformed input")
	}
}
