package xspan

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestTracerProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, exporter
}

func newTestObserver(t *testing.T) (Observer, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()
	tp, exporter := newTestTracerProvider(t)
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	obs, err := NewOTelObserver(
		WithInstrumentationName("xspan-test"),
		WithTracerProvider(tp),
		WithMeterProvider(mp),
	)
	require.NoError(t, err)
	return obs, exporter, reader
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestNewOTelObserver_Default(t *testing.T) {
	obs, err := NewOTelObserver(WithInstrumentationName(""), WithTracerProvider(nil), WithMeterProvider(nil), nil)
	require.NoError(t, err)
	require.NotNil(t, obs)
}

func TestOTelObserver_SpanOK(t *testing.T) {
	obs, exporter, _ := newTestObserver(t)

	ctx, span := obs.Start(context.Background(), SpanOptions{
		Estimator: "Pipeline",
		Method:    "fit",
		Attrs:     []Attr{String("xinstrument.id", "abc"), {Key: "", Value: 1}, {Key: "nil", Value: nil}},
	})
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	span.End(Result{Attrs: []Attr{Int("rows", 3)}})
	span.End(Result{Err: errors.New("second end is ignored")})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "Pipeline.fit", got.Name)
	assert.Equal(t, trace.SpanKindInternal, got.SpanKind)
	assert.Equal(t, codes.Ok, got.Status.Code)

	v, ok := attrValue(got.Attributes, AttrClass)
	require.True(t, ok)
	assert.Equal(t, "Pipeline", v.AsString())
	v, ok = attrValue(got.Attributes, AttrMethod)
	require.True(t, ok)
	assert.Equal(t, "fit", v.AsString())
	v, ok = attrValue(got.Attributes, "rows")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.AsInt64())
	_, ok = attrValue(got.Attributes, "nil")
	assert.False(t, ok)
}

func TestOTelObserver_SpanError(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		desc   string
	}{
		{"error", Result{Err: errors.New("fit failed")}, "fit failed"},
		{"panic", Result{Err: errors.New("panic: boom"), Panicked: true}, "panic: boom"},
		{"status only", Result{Status: StatusError}, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, exporter, _ := newTestObserver(t)
			_, span := obs.Start(context.Background(), SpanOptions{Estimator: "LinearSVC", Method: "predict"})
			span.End(tt.result)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, codes.Error, spans[0].Status.Code)
			assert.Equal(t, tt.desc, spans[0].Status.Description)
		})
	}
}

func TestOTelObserver_Metrics(t *testing.T) {
	obs, _, reader := newTestObserver(t)

	for _, err := range []error{nil, nil, errors.New("x")} {
		_, span := obs.Start(context.Background(), SpanOptions{Estimator: "StandardScaler", Method: "transform"})
		span.End(Result{Err: err})
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	calls, ok := byName[MetricMethodCalls].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	statuses := map[string]int64{}
	for _, dp := range calls.DataPoints {
		total += dp.Value
		s, _ := dp.Attributes.Value("status")
		statuses[s.AsString()] += dp.Value
	}
	assert.Equal(t, int64(3), total)
	assert.Equal(t, map[string]int64{"ok": 2, "error": 1}, statuses)

	duration, ok := byName[MetricMethodDuration].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range duration.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestOTelObserver_InstrumentationScope(t *testing.T) {
	obs, exporter, reader := newTestObserver(t)
	_, span := obs.Start(context.Background(), SpanOptions{Estimator: "Pipeline", Method: "fit"})
	span.End(Result{})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "xspan-test", spans[0].InstrumentationScope.Name)
	assert.Equal(t, Version, spans[0].InstrumentationScope.Version)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Equal(t, Version, rm.ScopeMetrics[0].Scope.Version)

	tp, custom := newTestTracerProvider(t)
	obs, err := NewOTelObserver(WithTracerProvider(tp), WithInstrumentationVersion("v9.9.9"), WithInstrumentationVersion(""))
	require.NoError(t, err)
	_, span = obs.Start(context.Background(), SpanOptions{Estimator: "Pipeline", Method: "predict"})
	span.End(Result{})
	require.Len(t, custom.GetSpans(), 1)
	assert.Equal(t, DefaultInstrumentationName, custom.GetSpans()[0].InstrumentationScope.Name)
	assert.Equal(t, "v9.9.9", custom.GetSpans()[0].InstrumentationScope.Version)
}

func TestOTelObserver_CanceledContextStillRecords(t *testing.T) {
	obs, exporter, reader := newTestObserver(t)

	ctx, cancel := context.WithCancel(context.Background())
	_, span := obs.Start(ctx, SpanOptions{Method: "fit"})
	cancel()
	span.End(Result{Err: context.Canceled})

	assert.Len(t, exporter.GetSpans(), 1)
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	assert.NotEmpty(t, rm.ScopeMetrics)
}

func TestOTelObserver_Concurrent(t *testing.T) {
	obs, exporter, _ := newTestObserver(t)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, span := obs.Start(context.Background(), SpanOptions{Estimator: "Pipeline", Method: "predict"})
			span.End(Result{})
		}()
	}
	wg.Wait()
	assert.Len(t, exporter.GetSpans(), 16)
}

func TestMapSpanKind(t *testing.T) {
	assert.Equal(t, trace.SpanKindServer, mapSpanKind(KindServer))
	assert.Equal(t, trace.SpanKindClient, mapSpanKind(KindClient))
	assert.Equal(t, trace.SpanKindInternal, mapSpanKind(KindInternal))
	assert.Equal(t, trace.SpanKindInternal, mapSpanKind(Kind(42)))
}

func TestToKeyValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  attribute.Value
	}{
		{"string", "v", attribute.StringValue("v")},
		{"bool", true, attribute.BoolValue(true)},
		{"int", 7, attribute.IntValue(7)},
		{"int64", int64(7), attribute.Int64Value(7)},
		{"uint64", uint64(7), attribute.Int64Value(7)},
		{"uint64 overflow", uint64(math.MaxUint64), attribute.StringValue("18446744073709551615")},
		{"float64", 1.5, attribute.Float64Value(1.5)},
		{"strings", []string{"a", "b"}, attribute.StringSliceValue([]string{"a", "b"})},
		{"duration", 2 * time.Millisecond, attribute.Int64Value(2_000_000)},
		{"other", struct{ A int }{1}, attribute.StringValue("{1}")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := toKeyValue(Attr{Key: "k", Value: tt.value})
			assert.Equal(t, tt.want, kv.Value)
		})
	}
}
