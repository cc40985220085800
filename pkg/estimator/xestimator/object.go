package xestimator

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Estimator 是可插桩对象的能力接口。
//
// 实现必须是指针类型（或其他可比较的引用类型）：插桩引擎以实例为键记录补丁。
type Estimator interface {
	// Class 返回实例的运行时类。
	Class() *Class

	// Methods 返回实例自身的方法表（实例槽）。
	Methods() *MethodTable

	// Attr 返回实例属性。
	Attr(name string) (any, bool)

	// SetAttr 设置实例属性。
	SetAttr(name string, value any)
}

// Named 是 (名称, 估计器) 对，用于 Pipeline 等按名称组合子估计器的场景。
type Named struct {
	Name      string
	Estimator Estimator
}

// Object 是 [Estimator] 的默认实现：属性袋 + 实例方法表。
type Object struct {
	class   *Class
	methods MethodTable

	mu    sync.RWMutex
	attrs map[string]any
}

// 编译时接口检查
var _ Estimator = (*Object)(nil)

// New 创建 class 的实例。
func New(class *Class) *Object {
	return &Object{class: class, attrs: make(map[string]any)}
}

// Class 返回实例的运行时类。
func (o *Object) Class() *Class {
	return o.class
}

// Methods 返回实例方法表。
func (o *Object) Methods() *MethodTable {
	return &o.methods
}

// Attr 返回实例属性。
func (o *Object) Attr(name string) (any, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.attrs[name]
	return v, ok
}

// SetAttr 设置实例属性。
func (o *Object) SetAttr(name string, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attrs == nil {
		o.attrs = make(map[string]any)
	}
	o.attrs[name] = value
}

// AttrNames 返回已排序的属性名。
func (o *Object) AttrNames() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.attrs))
	for name := range o.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call 调用实例方法，等价于 Call(ctx, o, name, args...)。
func (o *Object) Call(ctx context.Context, name string, args ...any) (any, error) {
	return Call(ctx, o, name, args...)
}

// String 实现 fmt.Stringer。
func (o *Object) String() string {
	return fmt.Sprintf("%s(%p)", o.class.Name(), o)
}

// Resolve 解析实例上的名称。
//
// 解析顺序：类链上的 property → 实例槽 → 类链上的方法。
func Resolve(e Estimator, name string) (Member, bool) {
	if e == nil {
		return Member{}, false
	}
	cls := e.Class()
	m, ok := cls.Lookup(name)
	if ok && m.IsProperty() {
		return m, true
	}
	if f, own := e.Methods().Get(name); own {
		return Member{Func: f}, true
	}
	return m, ok
}

// Has 报告实例是否暴露名称 name（方法或 property）。
//
// 方法的可用性检查（[DecorateIf]）不通过时视为不暴露。
func Has(e Estimator, name string) bool {
	m, ok := Resolve(e, name)
	if !ok {
		return false
	}
	return m.IsProperty() || m.Func.Available(e)
}

// Call 以 e 为接收者调用名称为 name 的方法。
func Call(ctx context.Context, e Estimator, name string, args ...any) (any, error) {
	if e == nil {
		return nil, ErrNilEstimator
	}
	m, ok := Resolve(e, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoSuchMethod, e.Class().Name(), name)
	}
	if m.IsProperty() {
		return nil, fmt.Errorf("%w: %s.%s", ErrNotCallable, e.Class().Name(), name)
	}
	return m.Func.Invoke(ctx, e, args...)
}

// Get 读取 property 的值；name 不是 property 时回退到实例属性。
func Get(e Estimator, name string) (any, bool) {
	if e == nil {
		return nil, false
	}
	if m, ok := e.Class().Lookup(name); ok && m.IsProperty() {
		return m.Property(e), true
	}
	return e.Attr(name)
}
