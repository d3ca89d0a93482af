package exporters

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel/sdk/trace"
)

// ConsoleExporter writes spans to a writer as JSON lines. It is meant for
// local development when no OTLP collector is running.
type ConsoleExporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleExporter creates a console exporter writing to stdout
func NewConsoleExporter() *ConsoleExporter {
	return &ConsoleExporter{w: os.Stdout}
}

type consoleSpan struct {
	Name       string `json:"name"`
	TraceID    string `json:"trace_id"`
	SpanID     string `json:"span_id"`
	DurationMS int64  `json:"duration_ms"`
}

func (c *ConsoleExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	enc := json.NewEncoder(c.w)
	for _, s := range spans {
		line := consoleSpan{
			Name:       s.Name(),
			TraceID:    s.SpanContext().TraceID().String(),
			SpanID:     s.SpanContext().SpanID().String(),
			DurationMS: s.EndTime().Sub(s.StartTime()).Milliseconds(),
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

func (c *ConsoleExporter) Shutdown(ctx context.Context) error {
	return nil
}
