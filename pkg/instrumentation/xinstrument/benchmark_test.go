package xinstrument

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
	"github.com/omeyang/xestimator/pkg/observability/xspan"
)

// sinkOut 防止基准测试中的调用结果被编译器消除。
var sinkOut any

// sinkPatched 防止 IsPatched 调用被消除。
var sinkPatched bool

func benchMethod() *xestimator.Func {
	return xestimator.NewFunc("predict", func(context.Context, xestimator.Estimator, ...any) (any, error) {
		return 1, nil
	})
}

// ============================================================================
// 调用热路径
// ============================================================================

func BenchmarkInvoke_Plain(b *testing.B) {
	f := benchMethod()
	obj := xestimator.BaseEstimator.New()
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sinkOut, _ = f.Invoke(ctx, obj)
	}
}

func BenchmarkInvoke_SpanWrapperNoop(b *testing.B) {
	f := NewSpanner(xspan.NoopObserver{})(benchMethod(), "Bench")
	obj := xestimator.BaseEstimator.New()
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sinkOut, _ = f.Invoke(ctx, obj)
	}
}

func BenchmarkInvoke_SpanWrapperOTel(b *testing.B) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(
		sdktrace.NewSimpleSpanProcessor(tracetest.NewNoopExporter())))
	b.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	obs, err := xspan.NewOTelObserver(xspan.WithTracerProvider(tp))
	if err != nil {
		b.Fatal(err)
	}
	f := NewSpanner(obs)(benchMethod(), "Bench")
	obj := xestimator.BaseEstimator.New()
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sinkOut, _ = f.Invoke(ctx, obj)
	}
}

func BenchmarkCall_InstancePatched(b *testing.B) {
	cls := xestimator.NewClass("Bench", xestimator.BaseEstimator, xestimator.WithFunc(benchMethod()))
	obj := cls.New()
	inst := New(WithObserver(xspan.NoopObserver{}), WithExclude())
	ctx := context.Background()
	inst.patch(ctx, instanceTarget{est: obj}, "predict")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sinkOut, _ = xestimator.Call(ctx, obj, "predict")
	}
}

// ============================================================================
// 账本
// ============================================================================

func BenchmarkLedger_IsPatched(b *testing.B) {
	base := xestimator.NewClass("Base", xestimator.BaseEstimator)
	child := xestimator.NewClass("Child", base)
	obj := child.New()
	original := benchMethod()
	wrapper := NewSpanner(xspan.NoopObserver{})(original, "Child")

	l := NewLedger()
	l.Record(PatchRecord{Owner: base, Method: "predict", Original: original, Wrapper: wrapper, State: WrappedByLibrary})
	l.Record(PatchRecord{Owner: obj, Method: "predict", Original: original, Wrapper: wrapper, State: WrappedByInstance})

	b.Run("own", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			sinkPatched = l.IsPatched(obj, "predict", wrapper)
		}
	})
	b.Run("inherited_miss", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			sinkPatched = l.IsPatched(child, "predict", wrapper)
		}
	})
}
