package sanitize

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/agentsight/agentsight/internal/agentsighterr"
	"github.com/agentsight/agentsight/internal/event"
	"github.com/agentsight/agentsight/internal/httpmsg"
)

func run(t *testing.T, events []event.Event) []event.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s := New()
	in := make(chan event.Event)
	errs := make(chan *agentsighterr.Error, 4)
	out := s.Process(ctx, in, errs)

	done := make(chan struct{})
	var got []event.Event
	go func() {
		defer close(done)
		for ev := range out {
			got = append(got, ev)
		}
	}()
	for _, ev := range events {
		in <- ev
	}
	close(in)
	<-done
	return got
}

func httpEvent(t *testing.T, m httpmsg.Message) event.Event {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	return event.Event{Source: event.SourceHTTP, Data: data}
}

func TestSanitizerDropsAuthorizationHeader(t *testing.T) {
	in := httpEvent(t, httpmsg.Message{
		Headers: map[string]string{"authorization": "Bearer xyz", "content-type": "application/json"},
	})
	out := run(t, []event.Event{in})

	var m httpmsg.Message
	json.Unmarshal(out[0].Data, &m)
	if _, ok := m.Headers["authorization"]; ok {
		t.Fatal("authorization header should have been dropped")
	}
	if _, ok := m.Headers["content-type"]; !ok {
		t.Fatal("unrelated headers must survive")
	}
}

func TestSanitizerDropsHeadersContainingSecretSubstrings(t *testing.T) {
	in := httpEvent(t, httpmsg.Message{
		Headers: map[string]string{
			"x-internal-api-key": "abc",
			"x-my-token":         "def",
			"x-shared-secret":    "ghi",
			"host":               "example.com",
		},
	})
	out := run(t, []event.Event{in})

	var m httpmsg.Message
	json.Unmarshal(out[0].Data, &m)
	for _, name := range []string{"x-internal-api-key", "x-my-token", "x-shared-secret"} {
		if _, ok := m.Headers[name]; ok {
			t.Fatalf("header %q should have been dropped", name)
		}
	}
	if _, ok := m.Headers["host"]; !ok {
		t.Fatal("host header must survive")
	}
}

func TestSanitizerRedactsQueryParameters(t *testing.T) {
	in := httpEvent(t, httpmsg.Message{
		Path:    "/v1/chat?api_key=secret123&model=gpt",
		Headers: map[string]string{},
	})
	out := run(t, []event.Event{in})

	var m httpmsg.Message
	json.Unmarshal(out[0].Data, &m)
	if strings.Contains(m.Path, "secret123") {
		t.Fatalf("api_key value should have been redacted, got path %q", m.Path)
	}
	if !strings.Contains(m.Path, "model=gpt") {
		t.Fatalf("unrelated query params must survive, got path %q", m.Path)
	}
	// Marker must stay literal (not percent-encoded) and params must keep
	// their original left-to-right order.
	want := "/v1/chat?api_key=[redacted]&model=gpt"
	if m.Path != want {
		t.Fatalf("expected path %q, got %q", want, m.Path)
	}
}

func TestSanitizerIgnoresNonHTTPEvents(t *testing.T) {
	ev := event.Event{Source: event.SourceSystem, Data: json.RawMessage(`{"cpu_pct":1.5}`)}
	out := run(t, []event.Event{ev})
	if string(out[0].Data) != `{"cpu_pct":1.5}` {
		t.Fatalf("non-http event must pass through unmodified, got %s", out[0].Data)
	}
}
