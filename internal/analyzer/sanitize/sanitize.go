// Package sanitize implements the C10 auth-header remover: it strips
// secret-bearing headers and redacts known query-string parameters from
// "http" events, grounded on spec §4.C10's exact denylist.
package sanitize

import (
	"context"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/agentsight/agentsight/internal/agentsighterr"
	"github.com/agentsight/agentsight/internal/event"
)

var droppedHeaders = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"cookie":              {},
	"set-cookie":          {},
	"x-api-key":           {},
	"x-auth-token":        {},
}

var droppedHeaderSubstrings = []string{"api-key", "token", "secret"}

var redactedQueryParams = map[string]struct{}{
	"token":        {},
	"api_key":      {},
	"key":          {},
	"access_token": {},
}

const redactedValue = "[redacted]"

// Sanitizer drops secret-bearing headers and redacts secret query
// parameters from http events; every other event passes through
// unmodified.
type Sanitizer struct{}

// New returns a ready-to-run Sanitizer.
func New() *Sanitizer { return &Sanitizer{} }

func (s *Sanitizer) Name() string { return "auth_sanitizer" }

func (s *Sanitizer) Process(ctx context.Context, in <-chan event.Event, errs chan<- *agentsighterr.Error) <-chan event.Event {
	out := make(chan event.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-in:
				if !ok {
					return
				}
				if ev.Source == event.SourceHTTP {
					ev = sanitizeEvent(ev)
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// sanitizeEvent redacts directly on the raw JSON via gjson/sjson rather
// than round-tripping through httpmsg.Message, so fields this analyzer
// doesn't know about survive untouched.
func sanitizeEvent(ev event.Event) event.Event {
	data := []byte(ev.Data)

	var toDrop []string
	gjson.GetBytes(data, "headers").ForEach(func(key, _ gjson.Result) bool {
		if shouldDropHeader(key.String()) {
			toDrop = append(toDrop, key.String())
		}
		return true
	})
	for _, name := range toDrop {
		if updated, err := sjson.DeleteBytes(data, "headers."+name); err == nil {
			data = updated
		}
	}

	if path := gjson.GetBytes(data, "path"); path.Exists() && path.String() != "" {
		if redacted := redactQuery(path.String()); redacted != path.String() {
			if updated, err := sjson.SetBytes(data, "path", redacted); err == nil {
				data = updated
			}
		}
	}

	return ev.WithData(data)
}

func shouldDropHeader(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := droppedHeaders[lower]; ok {
		return true
	}
	for _, s := range droppedHeaderSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// redactQuery rewrites secret-bearing query parameter values to the
// literal "[redacted]" marker, preserving every other parameter's
// original text and the original left-to-right order rather than
// round-tripping through url.Values (which percent-encodes the marker
// and re-sorts parameters alphabetically).
func redactQuery(path string) string {
	qIdx := strings.IndexByte(path, '?')
	if qIdx < 0 {
		return path
	}
	base, rawQuery := path[:qIdx], path[qIdx+1:]
	if rawQuery == "" {
		return path
	}

	parts := strings.Split(rawQuery, "&")
	for i, part := range parts {
		name := part
		if eqIdx := strings.IndexByte(part, '='); eqIdx >= 0 {
			name = part[:eqIdx]
		}
		decoded, err := url.QueryUnescape(name)
		if err != nil {
			decoded = name
		}
		if _, ok := redactedQueryParams[strings.ToLower(decoded)]; ok {
			parts[i] = name + "=" + redactedValue
		}
	}
	return base + "?" + strings.Join(parts, "&")
}
