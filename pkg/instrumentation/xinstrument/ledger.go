package xinstrument

import (
	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
)

// WrapState 表示 (owner, method) 的插桩状态。
type WrapState int

const (
	// Unwrapped 表示未插桩。
	Unwrapped WrapState = iota
	// WrappedByLibrary 表示由库级插桩在类上安装了包装器。
	WrappedByLibrary
	// WrappedByInstance 表示由实例级插桩在实例上安装了包装器。
	WrappedByInstance
)

// String 返回 WrapState 的可读字符串表示。
func (s WrapState) String() string {
	switch s {
	case Unwrapped:
		return "unwrapped"
	case WrappedByLibrary:
		return "wrapped_by_library"
	case WrappedByInstance:
		return "wrapped_by_instance"
	default:
		return "unknown"
	}
}

// PatchRecord 记录一次补丁的恢复信息。
type PatchRecord struct {
	// Owner 为打补丁时的所有者（*xestimator.Class 或 xestimator.Estimator）。
	Owner any
	// Method 为方法名。
	Method string
	// Original 为被包裹的可调用对象。
	Original *xestimator.Func
	// Wrapper 为安装的 span 包装器。
	Wrapper *xestimator.Func
	// Host 为 span 被注入其下的外部装饰器；直接替换方法槽时为 nil。
	Host *xestimator.Func
	// Inherited 表示打补丁前所有者没有自身的方法槽。
	Inherited bool
	// State 为补丁类型。
	State WrapState
}

type ledgerKey struct {
	owner  any
	method string
}

// Ledger 记录已安装的补丁。
//
// Ledger 不做同步：对重叠对象图的插桩与反插桩需要由调用方串行化。
type Ledger struct {
	records map[ledgerKey]*PatchRecord
}

// NewLedger 创建空账本。
func NewLedger() *Ledger {
	return &Ledger{records: make(map[ledgerKey]*PatchRecord)}
}

// Record 写入记录，覆盖同一 (Owner, Method) 的旧记录。
func (l *Ledger) Record(rec PatchRecord) {
	l.records[ledgerKey{rec.Owner, rec.Method}] = &rec
}

// Erase 删除 (owner, method) 的记录。
func (l *Ledger) Erase(owner any, method string) {
	delete(l.records, ledgerKey{owner, method})
}

// Len 返回记录数量。
func (l *Ledger) Len() int {
	return len(l.records)
}

// Own 返回 owner 自身的记录，不沿继承链查找。
func (l *Ledger) Own(owner any, method string) (PatchRecord, bool) {
	rec, ok := l.records[ledgerKey{owner, method}]
	if !ok {
		return PatchRecord{}, false
	}
	return *rec, true
}

// Lookup 沿属性继承链（实例 → 类 → 父类）查找记录，返回最近的一条。
//
// 行为与方法解析一致：子类上看到的是父类补丁的记录，
// 因此调用方需要比较记录的 Owner 来判断补丁是否属于自己。
func (l *Ledger) Lookup(owner any, method string) (PatchRecord, bool) {
	for _, key := range lineage(owner) {
		if rec, ok := l.records[ledgerKey{key, method}]; ok {
			return *rec, true
		}
	}
	return PatchRecord{}, false
}

// IsPatched 报告 owner 的 method 是否已由 owner 自身的补丁包裹。
//
// 三个条件同时满足才成立：找到记录；记录属于 owner 而不是祖先；
// current 与记录中的原始对象解开后是同一个可调用对象。
// 最后一条使子类覆写或外部替换后的方法被视为未插桩。
func (l *Ledger) IsPatched(owner any, method string, current *xestimator.Func) bool {
	rec, ok := l.Lookup(owner, method)
	if !ok || rec.Owner != owner {
		return false
	}
	return current != nil && xestimator.Unwrap(current) == xestimator.Unwrap(rec.Original)
}

// State 返回 owner 自身记录的补丁类型，无记录时为 [Unwrapped]。
func (l *Ledger) State(owner any, method string) WrapState {
	if rec, ok := l.Own(owner, method); ok {
		return rec.State
	}
	return Unwrapped
}

// lineage 返回 owner 的属性继承链。
func lineage(owner any) []any {
	switch o := owner.(type) {
	case *xestimator.Class:
		return classChain(o, nil)
	case xestimator.Estimator:
		if o == nil {
			return nil
		}
		return classChain(o.Class(), []any{o})
	default:
		return []any{owner}
	}
}

func classChain(c *xestimator.Class, chain []any) []any {
	for p := c; p != nil; p = p.Parent() {
		chain = append(chain, p)
	}
	return chain
}
