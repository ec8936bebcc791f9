package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/whattodo/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceHandler_AddsIDsWhenSpanPresent(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.InfoContext(ctx, "with span")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON log line: %v (%s)", err, buf.String())
	}
	if rec["trace_id"] != traceID.String() || rec["span_id"] != spanID.String() {
		t.Fatalf("missing trace ids: %v", rec)
	}

	buf.Reset()
	log.InfoContext(context.Background(), "without span")
	if strings.Contains(buf.String(), "trace_id") {
		t.Fatalf("unexpected trace id: %s", buf.String())
	}
}

func TestTraceHandler_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	ctx := WithRequestID(context.Background(), "req-42")
	log.With("op", "test").InfoContext(ctx, "searching")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON log line: %v (%s)", err, buf.String())
	}
	if rec["request_id"] != "req-42" {
		t.Fatalf("missing request id: %v", rec)
	}
	if RequestIDFrom(context.Background()) != "" {
		t.Fatalf("empty context must not carry a request id")
	}
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer

	newLogger(&buf, "prod").Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug must be off outside dev: %s", buf.String())
	}

	newLogger(&buf, "dev").Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("debug must be on in dev")
	}
}

func TestPrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "local").With(slog.String("op", "test"))

	log.Warn("source call failed", slog.String("source", "Yelp"))

	out := buf.String()
	for _, want := range []string{"source call failed", `"op": "test"`, `"source": "Yelp"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestProm_RecordsPipelineObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm(reg)

	p.ObserveSourceCall("SeatGeek", "ok", 120*time.Millisecond, 4)
	p.ObserveSourceCall("Yelp", "timeout", 10*time.Second, 0)
	p.ObserveStage("fanout", 300*time.Millisecond)
	p.ObserveMerge(10, 7, 3)

	if got := counterValue(t, reg, "whattodo_source_calls_total", map[string]string{"source": "Yelp", "outcome": "timeout"}); got != 1 {
		t.Fatalf("expected 1 timeout call, got %v", got)
	}
	if got := counterValue(t, reg, "whattodo_source_events_total", map[string]string{"source": "SeatGeek"}); got != 4 {
		t.Fatalf("expected 4 events, got %v", got)
	}

	snap := p.Stats.Snapshot()
	want := RunStatsSnapshot{
		Runs:              1,
		SourceCalls:       2,
		FailedSourceCalls: 1,
		EventsReturned:    3,
		DuplicatesDropped: 3,
		AvgFanOutMillis:   300,
		MaxFanOutMillis:   300,
	}
	if snap != want {
		t.Fatalf("got %+v, want %+v", snap, want)
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] == lp.GetValue() {
					matched++
				}
			}
			if matched == len(labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestInitTracer_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), config.TracingConfig{ServiceName: "whattodo"}, "test")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{ratio: 0, want: "AlwaysOnSampler"},
		{ratio: 1, want: "AlwaysOnSampler"},
		{ratio: 7, want: "AlwaysOnSampler"},
		{ratio: 0.25, want: "TraceIDRatioBased"},
	}
	for _, tt := range tests {
		if got := sampler(tt.ratio).Description(); !strings.Contains(got, tt.want) {
			t.Fatalf("ratio %v: got %q, want %s", tt.ratio, got, tt.want)
		}
	}
}
