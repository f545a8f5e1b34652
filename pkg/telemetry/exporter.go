package telemetry

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"hydroengine/pkg/logger"
)

// logExporter is a sdktrace.SpanExporter that writes finished spans to
// the structured logger instead of shipping them to a collector. It
// exists so Init can wire a real batcher/sampler pipeline without
// depending on an OTLP transport this library-mode engine has nowhere
// to send spans to.
type logExporter struct{}

func newLogExporter() *logExporter { return &logExporter{} }

// ExportSpans implements sdktrace.SpanExporter.
func (e *logExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		logger.Log.Debug("span finished",
			"name", s.Name(),
			"trace_id", s.SpanContext().TraceID().String(),
			"span_id", s.SpanContext().SpanID().String(),
			"duration", s.EndTime().Sub(s.StartTime()),
			"status", s.Status().Code.String(),
		)
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *logExporter) Shutdown(context.Context) error { return nil }
