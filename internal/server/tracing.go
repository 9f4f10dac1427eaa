package server

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentsight/agentsight/internal/otelinit"
)

// tracingMiddleware wraps every request in a server-kind span when tel is
// non-nil, adapted from the teacher's HTTP tracing middleware: W3C
// traceparent extraction on the way in, response status tagged on the
// way out.
func tracingMiddleware(tel *otelinit.Telemetry, next http.Handler) http.Handler {
	if tel == nil {
		return next
	}
	propagator := propagation.TraceContext{}
	tracer := tel.Tracer()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.URLPath(r.URL.Path),
			),
		)
		defer span.End()

		sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))

		span.SetAttributes(semconv.HTTPResponseStatusCode(sw.statusCode))
		if sw.statusCode >= 400 {
			span.SetAttributes(attribute.Bool("error", true))
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Flush passes through to the wrapped writer so streaming handlers such
// as /api/stream still find an http.Flusher behind this middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
