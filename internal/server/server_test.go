package server

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentsight/agentsight/internal/analyzer/filter"
	"github.com/agentsight/agentsight/internal/broadcast"
	"github.com/agentsight/agentsight/internal/event"
	"github.com/agentsight/agentsight/internal/logstore"
)

func newTestServer(t *testing.T) (*Server, *logstore.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := logstore.Open(logstore.Options{BasePath: filepath.Join(dir, "agentsight.log")}, nil)
	if err != nil {
		t.Fatalf("logstore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ring := broadcast.NewRing(10, nil)
	f, err := filter.New("drop_nothing", `status>=0`)
	if err != nil {
		t.Fatalf("filter.New: %v", err)
	}

	s := New(Options{Ring: ring, LogStore: store, Filters: []*filter.Filter{f}})
	return s, store
}

func TestHandleEventsReturnsContentFromOffset(t *testing.T) {
	s, store := newTestServer(t)
	store.WriteEvent(event.Event{PID: 1, Data: []byte(`{"a":1}`)})
	store.WriteEvent(event.Event{PID: 2, Data: []byte(`{"a":2}`)})
	time.Sleep(100 * time.Millisecond) // let the async writer flush

	req := httptest.NewRequest(http.MethodGet, "/api/events?offset=0", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"pid":1`) {
		t.Fatalf("expected first event in body, got %q", rec.Body.String())
	}
	if rec.Header().Get("X-Agentsight-Offset") == "" {
		t.Fatal("expected offset header to be set")
	}
}

func TestHandleEventsRejectsInvalidOffset(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/events?offset=not-a-number", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleAssetsListsCurrentFile(t *testing.T) {
	s, _ := newTestServer(t)
	s.refreshAssets()

	req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []assetInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].Name != "agentsight.log" {
		t.Fatalf("expected one asset named agentsight.log, got %+v", got)
	}
}

func TestHandleMetricsIncludesKnownCounters(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{"agentsight_logstore_written_total", "agentsight_filter_evaluated_total", "agentsight_broadcast_subscribers"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics body to contain %s, got:\n%s", want, body)
		}
	}
}

func TestHandleHealthzReturnsOK(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandleStreamReplaysRingThenLiveEvents(t *testing.T) {
	s, _ := newTestServer(t)
	s.opts.Ring.Publish(event.Event{PID: 1, Source: event.SourceSystem, Data: []byte(`{}`)})

	srv := httptest.NewServer(s.mux)
	defer srv.Close()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(srv.URL + "/api/stream")
	if err != nil {
		t.Fatalf("GET /api/stream: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %s", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			if !strings.Contains(line, `"pid":1`) {
				t.Fatalf("expected replayed event, got %q", line)
			}
			return
		}
	}
	t.Fatal("never received a replayed event")
}
