package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/jarfang/pkg/observability"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	assert.Equal(t, "jarfang", cfg.ServiceName)
	assert.Equal(t, observability.ModeCLI, cfg.Mode)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 5, cfg.ShutdownTimeoutSec)
	assert.Empty(t, cfg.OTLPEndpoint)
	assert.Empty(t, cfg.MetricsTextfile)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		got, err := observability.ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := observability.ParseLevel("loud")
	require.ErrorIs(t, err, observability.ErrInvalidLogLevel)
}

func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "jarfang", "ci", observability.ModeCLI))

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.WithGroup("jar").InfoContext(ctx, "processing", "entries", 3)

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "jarfang", record["service"])
	assert.Equal(t, "ci", record["env"])
	assert.Equal(t, "cli", record["mode"])

	group, ok := record["jar"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 3, group["entries"], 0)
	assert.NotContains(t, group, "trace_id")
}

func TestTracingHandler_NestedGroupsKeepTraceTopLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, "jarfang", "", observability.ModeCLI)).
		With("run", 1).
		WithGroup("jar").
		With("file", "app.jar").
		WithGroup("entry")

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.InfoContext(ctx, "skipped", "name", "A.class")

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.InDelta(t, 1, record["run"], 0)

	jarGroup, ok := record["jar"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "app.jar", jarGroup["file"])

	entry, ok := jarGroup["entry"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "A.class", entry["name"])
}

func TestTracingHandler_NoSpan(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewTracingHandler(inner, "jarfang", "", observability.ModeMCP))

	logger.InfoContext(context.Background(), "no span")

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "env")
	assert.Equal(t, "mcp", record["mode"])
}

func TestComponent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := observability.Component(slog.New(slog.NewJSONHandler(&buf, nil)), "jar")
	logger.Info("hello")

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "jar", record[observability.AttrComponent])

	assert.NotPanics(t, func() { observability.Component(nil, "x").Info("dropped") })
}

func TestInit_Noop(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)

	_, span := providers.Tracer.Start(context.Background(), "op")
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_MetricsTextfile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "jarfang.prom")

	cfg := observability.DefaultConfig()
	cfg.MetricsTextfile = path

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	am, err := observability.NewAnalysisMetrics(providers.Meter)
	require.NoError(t, err)

	am.RecordArchive(context.Background(), observability.ArchiveStats{Classes: 7, Duration: time.Second})

	require.NoError(t, providers.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, `classes[._]parsed`, string(data))
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{"empty", "", nil},
		{"single", "key=value", map[string]string{"key": "value"}},
		{"spaces", " k1 = v1 , k2 = v2 ", map[string]string{"k1": "v1", "k2": "v2"}},
		{"no_equals", "invalid", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, observability.ParseOTLPHeaders(tt.input))
		})
	}
}

func newReader(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()

	reader := sdkmetric.NewManualReader()

	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}

	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestREDMetrics_Observe(t *testing.T) {
	t.Parallel()

	reader, mp := newReader(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	require.NoError(t, red.Observe(context.Background(), "analyze", func() error { return nil }))
	require.Error(t, red.Observe(context.Background(), "analyze", func() error { return assert.AnError }))

	got := collect(t, reader)

	assert.Equal(t, int64(2), sumOf(t, got["jarfang.requests.total"]))
	assert.Equal(t, int64(1), sumOf(t, got["jarfang.errors.total"]))
	assert.Equal(t, int64(0), sumOf(t, got["jarfang.inflight.requests"]))
}

func TestAnalysisMetrics(t *testing.T) {
	t.Parallel()

	reader, mp := newReader(t)

	am, err := observability.NewAnalysisMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	am.RecordArchive(ctx, observability.ArchiveStats{
		Classes:  10,
		Duration: 50 * time.Millisecond,
		Skipped:  map[string]int{"parse": 2, "size": 1},
	})
	am.RecordCache(ctx, "classes", true)
	am.RecordCache(ctx, "classes", false)
	am.RecordCache(ctx, "classes", false)

	got := collect(t, reader)

	assert.Equal(t, int64(1), sumOf(t, got["jarfang.analysis.archives.total"]))
	assert.Equal(t, int64(10), sumOf(t, got["jarfang.analysis.classes.parsed.total"]))
	assert.Equal(t, int64(3), sumOf(t, got["jarfang.analysis.classes.skipped.total"]))
	assert.Equal(t, int64(1), sumOf(t, got["jarfang.analysis.cache.hits.total"]))
	assert.Equal(t, int64(2), sumOf(t, got["jarfang.analysis.cache.misses.total"]))
}

func TestMetrics_NilReceivers(t *testing.T) {
	t.Parallel()

	var (
		am  *observability.AnalysisMetrics
		red *observability.REDMetrics
	)

	assert.NotPanics(t, func() {
		am.RecordArchive(context.Background(), observability.ArchiveStats{Classes: 1})
		am.RecordCache(context.Background(), "classes", true)
		red.RecordRequest(context.Background(), "op", observability.StatusOK, time.Millisecond)
		red.TrackInflight(context.Background(), "op")()
	})
}
