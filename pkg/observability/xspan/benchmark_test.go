package xspan

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// sinkKV 防止属性转换被编译器消除。
var sinkKV []attribute.KeyValue

func BenchmarkStart_Noop(b *testing.B) {
	ctx := context.Background()
	opts := SpanOptions{Estimator: "Pipeline", Method: "fit"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, span := Start(ctx, NoopObserver{}, opts)
		span.End(Result{})
	}
}

func BenchmarkStart_OTel(b *testing.B) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(
		sdktrace.NewSimpleSpanProcessor(tracetest.NewNoopExporter())))
	b.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	obs, err := NewOTelObserver(WithTracerProvider(tp))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	opts := SpanOptions{Estimator: "Pipeline", Method: "fit", Attrs: []Attr{String("xinstrument.id", "bench")}}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, span := obs.Start(ctx, opts)
		span.End(Result{})
	}
}

func BenchmarkAttrsToOTel(b *testing.B) {
	attrs := []Attr{String("class", "Pipeline"), Int("rows", 3), Bool("inherited", true)}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		sinkKV = attrsToOTel(attrs)
	}
}
