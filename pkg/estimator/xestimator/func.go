package xestimator

import (
	"context"
	"sync/atomic"
)

// Method 是方法槽的实现签名。
// self 为调用时的接收者，args 为调用参数。
type Method func(ctx context.Context, self Estimator, args ...any) (any, error)

// Middleware 是装饰器的实现签名。
// next 为调用时被装饰的下一层，由 [Func.Invoke] 在每次调用时读取。
type Middleware func(ctx context.Context, self Estimator, args []any, next Method) (any, error)

// Availability 报告方法对接收者 self 是否可用。
type Availability func(self Estimator) bool

// Func 是方法槽中的可调用对象。
//
// Func 分两类：
//   - 叶子：由 [NewFunc] 创建，直接执行 Method
//   - 装饰器：由 [Decorate] 创建，持有被装饰对象的反向引用（[Func.Wrapped]）
//
// 比较两个 *Func 是否为同一可调用对象时，比较指针即可。
type Func struct {
	name    string
	label   string
	impl    Method
	around  Middleware
	avail   Availability
	wrapped atomic.Pointer[Func]
}

// NewFunc 创建叶子可调用对象。
func NewFunc(name string, impl Method) *Func {
	return &Func{name: name, impl: impl}
}

// Decorate 创建装饰 inner 的可调用对象。
//
// 返回值沿用 inner 的名称，label 标识装饰器来源（如 "available_if"）。
// inner 为 nil 时返回 nil。
func Decorate(label string, inner *Func, around Middleware) *Func {
	if inner == nil || around == nil {
		return nil
	}
	f := &Func{name: inner.name, label: label, around: around}
	f.wrapped.Store(inner)
	return f
}

// DecorateIf 与 [Decorate] 相同，并为装饰器附加可用性检查。
//
// available 不通过时实例不暴露该方法（见 [Has]），available 为 nil 时等同于 Decorate。
func DecorateIf(label string, inner *Func, available Availability, around Middleware) *Func {
	f := Decorate(label, inner, around)
	if f != nil {
		f.avail = available
	}
	return f
}

// Redecorate 返回与 f 标签、实现和可用性检查相同但装饰 inner 的新装饰器。
//
// f 本身不变。f 为叶子或 inner 为 nil 时返回 nil。
func (f *Func) Redecorate(inner *Func) *Func {
	if !f.IsDecorator() || inner == nil {
		return nil
	}
	return DecorateIf(f.label, inner, f.avail, f.around)
}

// Available 报告 f 对 self 是否可用：wrapped 链上每层的可用性检查都通过。
// nil 不可用。
func (f *Func) Available(self Estimator) bool {
	if f == nil {
		return false
	}
	for ; f != nil; f = f.Wrapped() {
		if f.avail != nil && !f.avail(self) {
			return false
		}
	}
	return true
}

// Name 返回方法名。
func (f *Func) Name() string {
	if f == nil {
		return ""
	}
	return f.name
}

// Label 返回装饰器标签，叶子返回空字符串。
func (f *Func) Label() string {
	if f == nil {
		return ""
	}
	return f.label
}

// IsDecorator 报告 f 是否为装饰器。
func (f *Func) IsDecorator() bool {
	return f != nil && f.around != nil
}

// Wrapped 返回被装饰的下一层，叶子返回 nil。
func (f *Func) Wrapped() *Func {
	if f == nil {
		return nil
	}
	return f.wrapped.Load()
}

// SetWrapped 将装饰器重新指向 inner，对叶子或 nil inner 无效果。
//
// 返回是否生效。修改立即对后续调用可见。
func (f *Func) SetWrapped(inner *Func) bool {
	if !f.IsDecorator() || inner == nil {
		return false
	}
	f.wrapped.Store(inner)
	return true
}

// Invoke 以 self 为接收者调用 f。
func (f *Func) Invoke(ctx context.Context, self Estimator, args ...any) (any, error) {
	if f == nil {
		return nil, ErrNoSuchMethod
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if f.around == nil {
		return f.impl(ctx, self, args...)
	}
	next := f.wrapped.Load()
	return f.around(ctx, self, args, next.Invoke)
}

// Unwrap 沿 wrapped 链返回最内层的可调用对象。
// 对叶子返回其自身，对 nil 返回 nil。
func Unwrap(f *Func) *Func {
	for f != nil {
		inner := f.Wrapped()
		if inner == nil {
			return f
		}
		f = inner
	}
	return nil
}

// InnermostDecorator 返回直接包裹叶子的那层装饰器。
// f 为叶子或 nil 时返回 nil。
func InnermostDecorator(f *Func) *Func {
	if !f.IsDecorator() {
		return nil
	}
	for {
		inner := f.Wrapped()
		if !inner.IsDecorator() {
			return f
		}
		f = inner
	}
}

// Depth 返回 f 之上的装饰层数，叶子为 0。
func Depth(f *Func) int {
	n := 0
	for f.IsDecorator() {
		n++
		f = f.Wrapped()
	}
	return n
}
