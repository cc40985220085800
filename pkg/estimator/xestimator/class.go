package xestimator

import (
	"context"
	"sort"
	"sync"
)

// Property 是计算属性的取值函数。
//
// 与方法不同，property 在名称解析时优先于实例槽（等同数据描述符），
// 插桩引擎不会包裹 property。
type Property func(self Estimator) any

// MethodTable 是名称到 [*Func] 的分派表。
//
// 表项在每次方法调用时读取，读写均受 RWMutex 保护。
type MethodTable struct {
	mu    sync.RWMutex
	slots map[string]*Func
}

// Get 返回 name 对应的表项。
func (t *MethodTable) Get(name string) (*Func, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.slots[name]
	return f, ok
}

// Set 设置 name 对应的表项，f 为 nil 时等同 Delete。
func (t *MethodTable) Set(name string, f *Func) {
	if f == nil {
		t.Delete(name)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.slots == nil {
		t.slots = make(map[string]*Func)
	}
	t.slots[name] = f
}

// Delete 删除 name 对应的表项，不存在时无操作。
func (t *MethodTable) Delete(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.slots, name)
}

// Names 返回已排序的表项名称。
func (t *MethodTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.slots))
	for name := range t.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len 返回表项数量。
func (t *MethodTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// Member 是名称解析的结果。
type Member struct {
	// Func 为方法；解析到 property 时为 nil。
	Func *Func
	// Property 为计算属性；解析到方法时为 nil。
	Property Property
	// Owner 为定义该成员的类；解析到实例槽时为 nil。
	Owner *Class
}

// IsProperty 报告成员是否为 property。
func (m Member) IsProperty() bool {
	return m.Property != nil
}

// Class 是估计器类型描述。
//
// 类为单继承，谱系（自身 + 全部祖先）在 [NewClass] 时一次性计算，
// [Class.IsSubclassOf] 只做集合查询。
type Class struct {
	name    string
	module  string
	parent  *Class
	lineage map[*Class]struct{}
	methods MethodTable

	propMu sync.RWMutex
	props  map[string]Property
}

// ClassOption 定义类的构造选项。
type ClassOption func(*Class)

// WithModule 设置类所在的模块（如 "xlearn.pipeline"），用于 [Class.QualName]。
func WithModule(module string) ClassOption {
	return func(c *Class) {
		c.module = module
	}
}

// WithMethod 在类上定义方法。
func WithMethod(name string, impl Method) ClassOption {
	return func(c *Class) {
		if impl != nil {
			c.methods.Set(name, NewFunc(name, impl))
		}
	}
}

// WithFunc 在类上安装一个已构造的可调用对象（例如装饰器）。
func WithFunc(f *Func) ClassOption {
	return func(c *Class) {
		if f != nil {
			c.methods.Set(f.Name(), f)
		}
	}
}

// WithProperty 在类上定义 property。
func WithProperty(name string, p Property) ClassOption {
	return func(c *Class) {
		c.setProperty(name, p)
	}
}

// NewClass 创建继承自 parent 的类，parent 可为 nil。
func NewClass(name string, parent *Class, opts ...ClassOption) *Class {
	c := &Class{
		name:    name,
		parent:  parent,
		lineage: map[*Class]struct{}{},
	}
	for p := c; p != nil; p = p.parent {
		c.lineage[p] = struct{}{}
	}
	if parent != nil {
		c.module = parent.module
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name 返回类名。
func (c *Class) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Module 返回定义类的模块。
func (c *Class) Module() string {
	if c == nil {
		return ""
	}
	return c.module
}

// QualName 返回 "模块.类名"，未设置模块时返回类名。
func (c *Class) QualName() string {
	if c == nil {
		return ""
	}
	if c.module == "" {
		return c.name
	}
	return c.module + "." + c.name
}

// String 实现 fmt.Stringer。
func (c *Class) String() string {
	return c.QualName()
}

// Parent 返回父类。
func (c *Class) Parent() *Class {
	if c == nil {
		return nil
	}
	return c.parent
}

// IsSubclassOf 报告 c 是否为 other 或其子类。
func (c *Class) IsSubclassOf(other *Class) bool {
	if c == nil || other == nil {
		return false
	}
	_, ok := c.lineage[other]
	return ok
}

// IsSubclassOfAny 报告 c 是否为 classes 中任一类或其子类。
func (c *Class) IsSubclassOfAny(classes []*Class) bool {
	for _, other := range classes {
		if c.IsSubclassOf(other) {
			return true
		}
	}
	return false
}

// Depth 返回 c 到 other 的继承距离；c 不是 other 的子类时返回 -1。
func (c *Class) Depth(other *Class) int {
	n := 0
	for p := c; p != nil; p = p.parent {
		if p == other {
			return n
		}
		n++
	}
	return -1
}

// Define 在类上定义（或覆写）方法并返回新的可调用对象。
func (c *Class) Define(name string, impl Method) *Func {
	f := NewFunc(name, impl)
	c.methods.Set(name, f)
	return f
}

// DefineFunc 在类上安装可调用对象，槽名取 f.Name()。
func (c *Class) DefineFunc(f *Func) {
	if f != nil {
		c.methods.Set(f.Name(), f)
	}
}

// DefineProperty 在类上定义 property。
func (c *Class) DefineProperty(name string, p Property) {
	c.setProperty(name, p)
}

func (c *Class) setProperty(name string, p Property) {
	if p == nil {
		return
	}
	c.propMu.Lock()
	defer c.propMu.Unlock()
	if c.props == nil {
		c.props = make(map[string]Property)
	}
	c.props[name] = p
}

func (c *Class) ownProperty(name string) (Property, bool) {
	c.propMu.RLock()
	defer c.propMu.RUnlock()
	p, ok := c.props[name]
	return p, ok
}

// OwnMethod 返回类自身（不含继承）定义的方法槽。
func (c *Class) OwnMethod(name string) (*Func, bool) {
	return c.methods.Get(name)
}

// SetOwnMethod 设置类自身的方法槽。
func (c *Class) SetOwnMethod(name string, f *Func) {
	c.methods.Set(name, f)
}

// DeleteOwnMethod 删除类自身的方法槽，恢复继承解析。
func (c *Class) DeleteOwnMethod(name string) {
	c.methods.Delete(name)
}

// Methods 返回类自身的方法表。
func (c *Class) Methods() *MethodTable {
	return &c.methods
}

// Lookup 沿类链解析名称。每一层先查 property 再查方法。
func (c *Class) Lookup(name string) (Member, bool) {
	for p := c; p != nil; p = p.parent {
		if prop, ok := p.ownProperty(name); ok {
			return Member{Property: prop, Owner: p}, true
		}
		if f, ok := p.methods.Get(name); ok {
			return Member{Func: f, Owner: p}, true
		}
	}
	return Member{}, false
}

// New 创建该类的实例。
func (c *Class) New() *Object {
	return New(c)
}

// Call 以 self 为接收者调用类链上解析到的方法，忽略实例槽。
// 用于子类实现中调用父类方法（相当于 super()）。
func (c *Class) Call(ctx context.Context, self Estimator, name string, args ...any) (any, error) {
	m, ok := c.Lookup(name)
	if !ok {
		return nil, ErrNoSuchMethod
	}
	if m.IsProperty() {
		return nil, ErrNotCallable
	}
	return m.Func.Invoke(ctx, self, args...)
}

// BaseEstimator 是估计器基础契约的根类。
// [Registry.Discover] 默认只收集它的子类（含自身）。
var BaseEstimator = NewClass("BaseEstimator", nil, WithModule("xestimator"))
