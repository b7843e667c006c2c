package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "valid minimal",
			cfg:  Config{ServiceName: "sales-analytics"},
		},
		{
			name: "invalid tracing exporter",
			cfg: Config{
				ServiceName: "sales-analytics",
				Tracing:     TracingConfig{Enabled: true, Exporter: "carrier-pigeon"},
			},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "sample pct out of range",
			cfg: Config{
				ServiceName: "sales-analytics",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.5},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "invalid metrics exporter",
			cfg: Config{
				ServiceName: "sales-analytics",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "graphite"},
			},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name: "invalid log level",
			cfg: Config{
				ServiceName: "sales-analytics",
				Logging:     LoggingConfig{Enabled: true, Level: "loud"},
			},
			wantErr: ErrInvalidLogLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "sales-analytics"})
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}
	defer obs.Shutdown(context.Background())

	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Error("disabled observer should still return usable primitives")
	}
}

func TestLogger_WritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("debug", &buf)

	log.Info(context.Background(), "result cached", Field{Key: "key", Value: "abc123"})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
	}
	if line["message"] != "result cached" {
		t.Errorf("message = %v", line["message"])
	}
	if line["key"] != "abc123" {
		t.Errorf("field key = %v", line["key"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("warn", &buf)

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Errorf("below-level entries were written: %q", buf.String())
	}

	log.Warn(context.Background(), "visible")
	if buf.Len() == 0 {
		t.Error("warn entry was filtered out")
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("info", &buf).With(Field{Key: "component", Value: "querycache"})

	log.Info(context.Background(), "sweep complete")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if line["component"] != "querycache" {
		t.Errorf("attached field missing: %v", line)
	}
}

func TestQueryMeta_SpanName(t *testing.T) {
	if got := (QueryMeta{Name: "sales_by_country"}).SpanName(); got != "db.query.sales_by_country" {
		t.Errorf("SpanName = %q", got)
	}
	if got := (QueryMeta{}).SpanName(); got != "db.query" {
		t.Errorf("SpanName for empty meta = %q", got)
	}
}

func TestQueryMetrics_RecordsWithoutPanic(t *testing.T) {
	meter := metricnoop.NewMeterProvider().Meter("test")
	m, err := NewQueryMetrics(meter)
	if err != nil {
		t.Fatalf("NewQueryMetrics failed: %v", err)
	}

	ctx := context.Background()
	m.RecordQuery(ctx, QueryMeta{Name: "q", Table: "sales"}, 12*time.Millisecond, nil)
	m.RecordQuery(ctx, QueryMeta{}, time.Millisecond, errors.New("boom"))
	m.CacheHit(ctx, "memory")
	m.CacheHit(ctx, "disk")
	m.CacheMiss(ctx)
	m.CacheStore(ctx, 2048)
	m.CacheEviction(ctx, 3)
}

func TestTracer_EndSpanWithError(t *testing.T) {
	tr := NewTracer(tracenoop.NewTracerProvider().Tracer("test"))

	_, span := tr.StartSpan(context.Background(), QueryMeta{Name: "q"})
	tr.EndSpan(span, errors.New("query failed"))
	tr.EndSpan(nil, nil) // must not panic
}
