package xspan

import (
	"context"
	"strconv"
)

// Kind 表示跨度类型。
type Kind int

const (
	// KindInternal 表示进程内操作（估计器方法调用的默认值）。
	KindInternal Kind = iota
	// KindClient 表示对外部服务的调用（如远程推理）。
	KindClient
	// KindServer 表示对外提供的服务端处理。
	KindServer
)

// String 返回 Kind 的可读字符串表示。
func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindClient:
		return "Client"
	case KindServer:
		return "Server"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Status 表示方法调用的结果状态。
type Status string

const (
	// StatusOK 表示成功。
	StatusOK Status = "ok"
	// StatusError 表示返回了错误。
	StatusError Status = "error"
	// StatusPanic 表示发生了 panic。
	StatusPanic Status = "panic"
)

// Attr 表示 span 属性。
type Attr struct {
	Key   string
	Value any
}

// SpanOptions 定义 span 的创建参数。
type SpanOptions struct {
	// Name 为 span 名称，形如 "Pipeline.fit"；为空时由 Estimator 与 Method 拼接。
	Name string
	// Estimator 为估计器运行时类名。
	Estimator string
	// Method 为方法名。
	Method string
	// Kind 为跨度类型。
	Kind Kind
	// Attrs 附加属性。
	Attrs []Attr
}

// SpanName 返回 span 名称。
func (o SpanOptions) SpanName() string {
	if o.Name != "" {
		return o.Name
	}
	switch {
	case o.Estimator != "" && o.Method != "":
		return o.Estimator + "." + o.Method
	case o.Method != "":
		return o.Method
	case o.Estimator != "":
		return o.Estimator
	default:
		return "unknown"
	}
}

// Result 表示 span 结束时的结果。
type Result struct {
	// Status 为结果状态；为空时根据 Err/Panicked 推导。
	Status Status
	// Err 为方法返回的错误。
	Err error
	// Panicked 表示方法发生了 panic（Err 中保存 panic 值）。
	Panicked bool
	// Attrs 附加属性。
	Attrs []Attr
}

// Span 表示一次打开的 span。
type Span interface {
	// End 结束 span 并记录结果，多次调用只生效一次。
	End(result Result)
}

// Observer 是 span 发射接口。
type Observer interface {
	// Start 打开一个 span。
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 是空实现。
type NoopObserver struct{}

// Start 返回 ctx 和空 span。ctx 为 nil 时返回 context.Background()。
func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 是空 span。
type NoopSpan struct{}

// End 空实现。
func (NoopSpan) End(_ Result) {}

// Start 使用 observer 打开 span，保证返回非 nil 的 context 和 Span。
//
// nil ctx 被替换为 context.Background()；nil observer 返回 [NoopSpan]；
// 自定义 Observer 返回 nil 值时同样兜底。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	retCtx, span := observer.Start(ctx, opts)
	if retCtx == nil {
		retCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return retCtx, span
}

func resolveStatus(result Result) Status {
	if result.Status != "" {
		return result.Status
	}
	if result.Panicked {
		return StatusPanic
	}
	if result.Err != nil {
		return StatusError
	}
	return StatusOK
}

// String 创建字符串属性。
func String(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// Int 创建整数属性。
func Int(key string, value int) Attr {
	return Attr{Key: key, Value: value}
}

// Bool 创建布尔属性。
func Bool(key string, value bool) Attr {
	return Attr{Key: key, Value: value}
}

// Any 创建任意类型属性。
func Any(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}
