package xspan

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultInstrumentationName 为默认的 OTel instrumentation 名称。
	DefaultInstrumentationName = "github.com/omeyang/xestimator"
	// Version 为默认的 OTel instrumentation 版本。
	Version = "v0.1.0"

	// MetricMethodCalls 为方法调用计数器名称。
	MetricMethodCalls = "xestimator.method.calls"
	// MetricMethodDuration 为方法耗时直方图名称（秒）。
	MetricMethodDuration = "xestimator.method.duration"

	// AttrClass 为 span 上的估计器类名属性。
	AttrClass = "xestimator.class"
	// AttrMethod 为 span 上的方法名属性。
	AttrMethod = "xestimator.method"
)

type otelConfig struct {
	instrumentationName    string
	instrumentationVersion string
	tracerProvider         trace.TracerProvider
	meterProvider          metric.MeterProvider
}

// Option 定义 OTel Observer 的配置选项。
type Option func(*otelConfig)

// WithInstrumentationName 设置 OTel instrumentation 名称，空字符串被忽略。
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithInstrumentationVersion 设置 OTel instrumentation 版本，空字符串被忽略。
func WithInstrumentationVersion(version string) Option {
	return func(cfg *otelConfig) {
		if version != "" {
			cfg.instrumentationVersion = version
		}
	}
}

// WithTracerProvider 设置 TracerProvider，nil 被忽略。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracerProvider = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider，nil 被忽略。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer。
//
// 未指定 provider 时使用 otel 全局 provider。
func NewOTelObserver(opts ...Option) (Observer, error) {
	cfg := &otelConfig{
		instrumentationName:    DefaultInstrumentationName,
		instrumentationVersion: Version,
		tracerProvider:         otel.GetTracerProvider(),
		meterProvider:          otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	tracer := cfg.tracerProvider.Tracer(cfg.instrumentationName,
		trace.WithInstrumentationVersion(cfg.instrumentationVersion))
	meter := cfg.meterProvider.Meter(cfg.instrumentationName,
		metric.WithInstrumentationVersion(cfg.instrumentationVersion))

	calls, err := meter.Int64Counter(
		MetricMethodCalls,
		metric.WithDescription("estimator method calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateCounter, err)
	}

	duration, err := meter.Float64Histogram(
		MetricMethodDuration,
		metric.WithDescription("estimator method duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateHistogram, err)
	}

	return &otelObserver{
		tracer:   tracer,
		calls:    calls,
		duration: duration,
	}, nil
}

type otelObserver struct {
	tracer   trace.Tracer
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// Start 打开一个 OTel span。
func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := make([]attribute.KeyValue, 0, 2+len(opts.Attrs))
	if opts.Estimator != "" {
		attrs = append(attrs, attribute.String(AttrClass, opts.Estimator))
	}
	if opts.Method != "" {
		attrs = append(attrs, attribute.String(AttrMethod, opts.Method))
	}
	attrs = append(attrs, attrsToOTel(opts.Attrs)...)

	ctx, span := o.tracer.Start(
		ctx,
		opts.SpanName(),
		trace.WithSpanKind(mapSpanKind(opts.Kind)),
		trace.WithAttributes(attrs...),
	)

	return ctx, &otelSpan{
		span:     span,
		observer: o,
		ctx:      ctx,
		class:    opts.Estimator,
		method:   opts.Method,
		start:    time.Now(),
	}
}

type otelSpan struct {
	span     trace.Span
	observer *otelObserver
	ctx      context.Context
	class    string
	method   string
	start    time.Time
	endOnce  sync.Once
}

// End 结束 span 并记录指标，多次调用只记录一次。
func (s *otelSpan) End(result Result) {
	if s == nil {
		return
	}
	s.endOnce.Do(func() {
		status := resolveStatus(result)

		switch status {
		case StatusError, StatusPanic:
			if result.Err != nil {
				s.span.RecordError(result.Err)
				s.span.SetStatus(codes.Error, result.Err.Error())
			} else {
				s.span.SetStatus(codes.Error, string(status))
			}
		default:
			if result.Err != nil {
				s.span.RecordError(result.Err)
			}
			s.span.SetStatus(codes.Ok, "")
		}
		if len(result.Attrs) > 0 {
			s.span.SetAttributes(attrsToOTel(result.Attrs)...)
		}
		s.span.End()

		// 指标使用不可取消的 context，超时/取消的调用同样计入。
		metricsCtx := context.WithoutCancel(s.ctx)
		set := metric.WithAttributes(
			attribute.String("class", s.class),
			attribute.String("method", s.method),
			attribute.String("status", string(status)),
		)
		s.observer.calls.Add(metricsCtx, 1, set)
		s.observer.duration.Record(metricsCtx, time.Since(s.start).Seconds(), set)
	})
}

func mapSpanKind(kind Kind) trace.SpanKind {
	switch kind {
	case KindServer:
		return trace.SpanKindServer
	case KindClient:
		return trace.SpanKindClient
	default:
		return trace.SpanKindInternal
	}
}

func attrsToOTel(attrs []Attr) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	converted := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Key == "" || attr.Value == nil {
			continue
		}
		converted = append(converted, toKeyValue(attr))
	}
	return converted
}

func toKeyValue(attr Attr) attribute.KeyValue {
	switch v := attr.Value.(type) {
	case string:
		return attribute.String(attr.Key, v)
	case bool:
		return attribute.Bool(attr.Key, v)
	case int:
		return attribute.Int(attr.Key, v)
	case int64:
		return attribute.Int64(attr.Key, v)
	case uint64:
		if v <= math.MaxInt64 {
			return attribute.Int64(attr.Key, int64(v))
		}
		return attribute.String(attr.Key, fmt.Sprint(v))
	case float64:
		return attribute.Float64(attr.Key, v)
	case []string:
		return attribute.StringSlice(attr.Key, v)
	case time.Duration:
		return attribute.Int64(attr.Key, v.Nanoseconds())
	default:
		return attribute.String(attr.Key, fmt.Sprint(v))
	}
}
