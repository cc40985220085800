package xinstrument

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
	"github.com/omeyang/xestimator/pkg/observability/xlog"
)

type action int

const (
	actionInstrument action = iota
	actionUninstrument
)

func (a action) String() string {
	if a == actionUninstrument {
		return "uninstrument"
	}
	return "instrument"
}

// walker 执行一次层级遍历。visited 以实例为键，防止环与共享子节点重复处理。
type walker struct {
	inst    *Instrumentor
	act     action
	visited map[xestimator.Estimator]struct{}
}

func (i *Instrumentor) newWalker(act action) *walker {
	return &walker{inst: i, act: act, visited: make(map[xestimator.Estimator]struct{})}
}

// visit 处理一个节点：排除检查 → NamedPair 子节点 → Direct 子节点 → 自身方法。
func (w *walker) visit(ctx context.Context, e xestimator.Estimator) {
	if isNil(e) {
		return
	}
	if _, seen := w.visited[e]; seen {
		return
	}
	w.visited[e] = struct{}{}

	cls := e.Class()
	if cls == nil {
		w.inst.logger.Debug(ctx, "estimator has no class, skipping", slog.String("estimator", fmt.Sprint(e)))
		return
	}
	if cls.IsSubclassOfAny(w.inst.opts.exclude) {
		w.inst.logger.Debug(ctx, "not instrumenting excluded estimator",
			xlog.Class(cls.Name()), slog.String("action", w.act.String()))
		return
	}

	for _, attr := range attrsFor(w.inst.opts.namedPairRules, cls) {
		value, _ := e.Attr(attr)
		for _, child := range namedChildren(value) {
			w.visit(ctx, child)
		}
	}
	for _, attr := range attrsFor(w.inst.opts.directRules, cls) {
		value, ok := e.Attr(attr)
		if !ok {
			w.inst.logger.Debug(ctx, "attribute not set, skipping",
				xlog.Class(cls.Name()), slog.String("attr", attr), slog.String("traversal", Direct.String()))
			continue
		}
		children := directChildren(value)
		if len(children) == 0 {
			w.inst.logger.Debug(ctx, "attribute holds no estimators, skipping",
				xlog.Class(cls.Name()), slog.String("attr", attr), slog.String("traversal", Direct.String()))
		}
		for _, child := range children {
			w.visit(ctx, child)
		}
	}

	t := instanceTarget{est: e}
	for _, method := range w.inst.opts.methods {
		if w.act == actionUninstrument {
			w.inst.unpatch(ctx, t, method)
			continue
		}
		// 可用性检查不通过的方法不插桩；反插桩不做此检查，可用性可能在两次遍历间变化。
		if xestimator.Has(e, method) {
			w.inst.patch(ctx, t, method)
		}
	}
}

// attrsFor 返回适用于 cls 的规则属性：规则的类为 cls 或其祖先。
// 多条规则适用时取并集，距离 cls 近的规则在前。
func attrsFor(rules []Rule, cls *xestimator.Class) []string {
	type match struct {
		depth int
		attrs []string
	}
	var matches []match
	for _, r := range rules {
		if d := cls.Depth(r.Class); d >= 0 {
			matches = append(matches, match{depth: d, attrs: r.Attrs})
		}
	}
	if len(matches) == 0 {
		return nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].depth < matches[j].depth
	})
	var attrs []string
	seen := make(map[string]struct{})
	for _, m := range matches {
		for _, a := range m.attrs {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			attrs = append(attrs, a)
		}
	}
	return attrs
}

// namedChildren 从 NamedPair 属性值中取出估计器，保持顺序。
func namedChildren(value any) []xestimator.Estimator {
	switch v := value.(type) {
	case []xestimator.Named:
		out := make([]xestimator.Estimator, 0, len(v))
		for _, p := range v {
			out = append(out, p.Estimator)
		}
		return out
	case []*xestimator.Named:
		out := make([]xestimator.Estimator, 0, len(v))
		for _, p := range v {
			if p != nil {
				out = append(out, p.Estimator)
			}
		}
		return out
	default:
		return nil
	}
}

var estimatorType = reflect.TypeFor[xestimator.Estimator]()

// directChildren 从 Direct 属性值中取出估计器：单个估计器、序列元素或 map 值。
// map 按 key 的字符串形式排序，非估计器元素被忽略。
func directChildren(value any) []xestimator.Estimator {
	switch v := value.(type) {
	case nil:
		return nil
	case xestimator.Estimator:
		return []xestimator.Estimator{v}
	case []xestimator.Estimator:
		return v
	case map[string]xestimator.Estimator:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]xestimator.Estimator, 0, len(v))
		for _, k := range keys {
			out = append(out, v[k])
		}
		return out
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]xestimator.Estimator, 0, rv.Len())
		for idx := range rv.Len() {
			if est, ok := asEstimator(rv.Index(idx)); ok {
				out = append(out, est)
			}
		}
		return out
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		out := make([]xestimator.Estimator, 0, len(keys))
		for _, k := range keys {
			if est, ok := asEstimator(rv.MapIndex(k)); ok {
				out = append(out, est)
			}
		}
		return out
	default:
		return nil
	}
}

func asEstimator(v reflect.Value) (xestimator.Estimator, bool) {
	if !v.IsValid() || !v.Type().Implements(estimatorType) && v.Kind() != reflect.Interface {
		return nil, false
	}
	if (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) && v.IsNil() {
		return nil, false
	}
	est, ok := v.Interface().(xestimator.Estimator)
	return est, ok
}

// isNil 报告 e 是否为 nil 或包裹 nil 指针的接口值。
func isNil(e xestimator.Estimator) bool {
	if e == nil {
		return true
	}
	rv := reflect.ValueOf(e)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
