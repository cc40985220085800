package xinstrument

import (
	"context"
	"log/slog"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
	"github.com/omeyang/xestimator/pkg/observability/xlog"
)

// patch 在 t 上为 method 安装 span 包装器。
//
// 类目标：
//   - 自身槽为装饰器链：span 注入最内层装饰器之下，记录 Host
//   - 自身槽为普通方法：替换
//   - 继承而来：安装自身槽。祖先的外部装饰器被复制到子类槽中，span 位于复制的
//     装饰器之下；祖先已安装的 span 被跳过，每次调用只产生一个 span
//
// 实例目标总是在自身槽上包裹解析结果，可与类补丁叠加。
func (i *Instrumentor) patch(ctx context.Context, t target, method string) {
	member, ok := t.resolve(method)
	if !ok {
		return
	}
	log := i.logger.With(xlog.Class(t.label()), xlog.Method(method))
	if member.IsProperty() {
		log.Debug(ctx, "not instrumenting found property")
		return
	}
	if i.ledger.IsPatched(t.key(), method, member.Func) {
		log.Debug(ctx, "already instrumented")
		return
	}

	rec := PatchRecord{Owner: t.key(), Method: method, State: t.state()}
	own, hasOwn := t.own(method)
	_, isClass := t.(classTarget)

	switch {
	case isClass && hasOwn && own.IsDecorator():
		host := xestimator.InnermostDecorator(own)
		original := host.Wrapped()
		wrapper := i.wrap(ctx, original, t.label())
		if wrapper == nil {
			return
		}
		rec.Original, rec.Wrapper, rec.Host = original, wrapper, host
		host.SetWrapped(wrapper)
	case hasOwn:
		wrapper := i.wrap(ctx, own, t.label())
		if wrapper == nil {
			return
		}
		rec.Original, rec.Wrapper = own, wrapper
		t.setOwn(method, wrapper)
	default:
		base := member.Func
		var decorators []*xestimator.Func
		if isClass {
			decorators, base = i.inheritedChain(member, method)
		}
		wrapper := i.wrap(ctx, base, t.label())
		if wrapper == nil {
			return
		}
		slot := wrapper
		for j := len(decorators) - 1; j >= 0; j-- {
			slot = decorators[j].Redecorate(slot)
		}
		rec.Original, rec.Wrapper, rec.Inherited = base, wrapper, true
		t.setOwn(method, slot)
	}

	i.ledger.Record(rec)
	log.Debug(ctx, "instrumenting",
		slog.String("state", rec.State.String()),
		slog.Bool("inherited", rec.Inherited),
		slog.Bool("injected", rec.Host != nil))
}

// unpatch 撤销 patch，恢复插桩前的同一个可调用对象。
func (i *Instrumentor) unpatch(ctx context.Context, t target, method string) {
	member, ok := t.resolve(method)
	if !ok {
		return
	}
	log := i.logger.With(xlog.Class(t.label()), xlog.Method(method))
	if !i.ledger.IsPatched(t.key(), method, member.Func) {
		log.Debug(ctx, "already uninstrumented")
		return
	}
	rec, _ := i.ledger.Own(t.key(), method)
	switch {
	case rec.Host != nil:
		rec.Host.SetWrapped(rec.Original)
	case rec.Inherited:
		t.deleteOwn(method)
	default:
		t.setOwn(method, rec.Original)
	}
	i.ledger.Erase(t.key(), method)
	log.Debug(ctx, "uninstrumenting")
}

// wrap 调用 Spanner 并校验输出，不合格时返回 nil。
func (i *Instrumentor) wrap(ctx context.Context, original *xestimator.Func, owner string) *xestimator.Func {
	wrapper := i.spanner(original, owner)
	if !acceptWrapper(wrapper, original) {
		i.logger.Warn(ctx, "spanner output does not wrap the original method, skipping",
			xlog.Class(owner), xlog.Method(original.Name()))
		return nil
	}
	return wrapper
}

// inheritedChain 拆分类继承到的方法 member：返回需要为子类复制的外部装饰器
// （由外到内）与 span 应包裹的可调用对象。
//
// 定义 member 的祖先若已由本 Instrumentor 打补丁，其 span 包装器被跳过，
// 改为沿其原始方法继续。
func (i *Instrumentor) inheritedChain(member xestimator.Member, method string) ([]*xestimator.Func, *xestimator.Func) {
	var ancestor *PatchRecord
	if member.Owner != nil {
		if rec, ok := i.ledger.Own(member.Owner, method); ok {
			ancestor = &rec
		}
	}
	var decorators []*xestimator.Func
	f := member.Func
	for f.IsDecorator() {
		if ancestor != nil && f == ancestor.Wrapper {
			f = ancestor.Original
			ancestor = nil
			continue
		}
		decorators = append(decorators, f)
		f = f.Wrapped()
	}
	return decorators, f
}
