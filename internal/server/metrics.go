package server

import (
	"fmt"
	"net/http"
)

// handleMetrics writes a Prometheus text-exposition snapshot of the
// pipeline's own atomic counters (filter, logstore, broadcast), read
// directly from those components for a Prometheus-style scrape with no
// collector dependency. The OTel counters in internal/otelinit are not
// fed from these values.
// There is no third-party Prometheus client in the dependency pack, so
// this hand-rolled writer covers exactly the handful of gauges/counters
// the pipeline already tracks (see DESIGN.md).
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	if s.opts.LogStore != nil {
		written, dropped := s.opts.LogStore.Stats()
		writeMetric(w, "agentsight_logstore_written_total", "counter", "events written to the rotating log file", float64(written))
		writeMetric(w, "agentsight_logstore_dropped_total", "counter", "events dropped by the log writer", float64(dropped))
	}

	for _, f := range s.opts.Filters {
		evaluated, passed, dropped := f.Stats()
		labels := fmt.Sprintf(`{filter=%q}`, f.Name())
		writeMetricLabeled(w, "agentsight_filter_evaluated_total", "counter", "events evaluated by a filter analyzer", labels, float64(evaluated))
		writeMetricLabeled(w, "agentsight_filter_passed_total", "counter", "events passed by a filter analyzer", labels, float64(passed))
		writeMetricLabeled(w, "agentsight_filter_dropped_total", "counter", "events dropped by a filter analyzer", labels, float64(dropped))
	}

	if s.opts.Ring != nil {
		writeMetric(w, "agentsight_broadcast_subscribers", "gauge", "live SSE subscriber count", float64(s.opts.Ring.SubscriberCount()))
		writeMetric(w, "agentsight_broadcast_published_total", "counter", "events accepted by the broadcast ring", float64(s.opts.Ring.Published()))
		writeMetric(w, "agentsight_broadcast_buffered", "gauge", "events currently buffered in the broadcast ring", float64(s.opts.Ring.Len()))
	}
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value float64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %g\n", name, help, name, kind, name, value)
}

func writeMetricLabeled(w http.ResponseWriter, name, kind, help, labels string, value float64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s%s %g\n", name, help, name, kind, name, labels, value)
}
