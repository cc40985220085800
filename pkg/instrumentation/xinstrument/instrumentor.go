package xinstrument

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
	"github.com/omeyang/xestimator/pkg/observability/xlog"
	"github.com/omeyang/xestimator/pkg/observability/xspan"
)

// AttrInstrumentorID 为 span 上的 Instrumentor 标识属性。
const AttrInstrumentorID = "xinstrument.id"

// Instrumentor 是插桩入口。
//
// 配置在 [New] 时确定，此后不可修改。同一对象图同一时间只应由一个
// Instrumentor 负责：不同 Instrumentor 的账本互不可见。
type Instrumentor struct {
	id      string
	opts    *options
	spanner Spanner
	ledger  *Ledger
	logger  xlog.Logger
}

// New 创建 Instrumentor。
//
// 未指定 Observer 时使用基于 otel 全局 provider 的 OTel Observer；
// 创建失败时降级为 [xspan.NoopObserver] 并记录警告。
func New(opts ...Option) *Instrumentor {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	id := uuid.NewString()
	i := &Instrumentor{
		id:     id,
		opts:   o,
		ledger: NewLedger(),
		logger: o.logger.With(xlog.Component("xinstrument"), slog.String("instrumentor_id", id)),
	}

	if o.observer == nil {
		obs, err := xspan.NewOTelObserver()
		if err != nil {
			i.logger.Warn(context.Background(), "failed to create otel observer, spans disabled", xlog.Err(err))
			obs = xspan.NoopObserver{}
		}
		o.observer = obs
	}
	i.spanner = o.spanner
	if i.spanner == nil {
		i.spanner = NewSpanner(o.observer, xspan.String(AttrInstrumentorID, id))
	}
	return i
}

// ID 返回 Instrumentor 的唯一标识。
func (i *Instrumentor) ID() string {
	return i.id
}

// Methods 返回插桩的方法名。
func (i *Instrumentor) Methods() []string {
	return append([]string(nil), i.opts.methods...)
}

// Packages 返回库级插桩发现的包。
func (i *Instrumentor) Packages() []string {
	return append([]string(nil), i.opts.packages...)
}

// Excluded 报告 cls 是否在排除集中（含子类）。
func (i *Instrumentor) Excluded(cls *xestimator.Class) bool {
	return cls.IsSubclassOfAny(i.opts.exclude)
}

// Ledger 返回补丁账本，用于检查。
func (i *Instrumentor) Ledger() *Ledger {
	return i.ledger
}

// State 返回 owner（*xestimator.Class 或 xestimator.Estimator）上 method 的插桩状态。
//
// 只反映 owner 自身的补丁：子类通过继承看到的父类补丁不计入。
func (i *Instrumentor) State(owner any, method string) WrapState {
	var (
		member xestimator.Member
		ok     bool
	)
	switch o := owner.(type) {
	case *xestimator.Class:
		member, ok = o.Lookup(method)
	case xestimator.Estimator:
		member, ok = xestimator.Resolve(o, method)
	}
	if !ok || !i.ledger.IsPatched(owner, method, member.Func) {
		return Unwrapped
	}
	return i.ledger.State(owner, method)
}

// InstrumentLibrary 在配置包中发现的全部估计器类上安装 span 包装器。
//
// 排除集中的类（含子类）被跳过；已插桩的方法被跳过。导入失败的模块记录警告后跳过。
func (i *Instrumentor) InstrumentLibrary(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, cls := range i.discover(ctx) {
		if i.Excluded(cls) {
			i.logger.Debug(ctx, "not instrumenting excluded class", xlog.Class(cls.QualName()))
			continue
		}
		i.logger.Debug(ctx, "instrumenting class", xlog.Class(cls.QualName()))
		i.forEachMethod(cls, func(method string) {
			i.patch(ctx, classTarget{cls: cls}, method)
		})
	}
}

// UninstrumentLibrary 撤销 InstrumentLibrary。
//
// 不做排除检查：排除类从未被插桩，反插桩对其是无操作。
func (i *Instrumentor) UninstrumentLibrary(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, cls := range i.discover(ctx) {
		i.logger.Debug(ctx, "uninstrumenting class", xlog.Class(cls.QualName()))
		i.forEachMethod(cls, func(method string) {
			i.unpatch(ctx, classTarget{cls: cls}, method)
		})
	}
}

// InstrumentEstimator 遍历 e 及其子估计器，在实例上安装 span 包装器。
func (i *Instrumentor) InstrumentEstimator(ctx context.Context, e xestimator.Estimator) {
	if ctx == nil {
		ctx = context.Background()
	}
	i.newWalker(actionInstrument).visit(ctx, e)
}

// UninstrumentEstimator 撤销 InstrumentEstimator。对从未插桩的估计器是无操作。
func (i *Instrumentor) UninstrumentEstimator(ctx context.Context, e xestimator.Estimator) {
	if ctx == nil {
		ctx = context.Background()
	}
	i.newWalker(actionUninstrument).visit(ctx, e)
}

func (i *Instrumentor) discover(ctx context.Context) []*xestimator.Class {
	classes := i.opts.registry.Discover(ctx, i.opts.packages, xestimator.WithLogger(i.logger))
	return xestimator.UniqueClasses(classes)
}

func (i *Instrumentor) forEachMethod(cls *xestimator.Class, fn func(method string)) {
	for _, method := range i.opts.methods {
		if _, ok := cls.Lookup(method); ok {
			fn(method)
		}
	}
}

var (
	globalMu sync.Mutex
	global   *Instrumentor
)

// Global 返回进程级 Instrumentor。
//
// 首次调用时用 opts 创建实例；之后的调用忽略 opts，返回同一实例。
// 需要不同配置时使用 [New]。
func Global(opts ...Option) *Instrumentor {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New(opts...)
		return global
	}
	if len(opts) > 0 {
		global.logger.Debug(context.Background(), "global instrumentor already configured, options ignored")
	}
	return global
}

// ResetGlobal 丢弃进程级 Instrumentor，不撤销其已安装的补丁。仅用于测试。
func ResetGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = nil
}
