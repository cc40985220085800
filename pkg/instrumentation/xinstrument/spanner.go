package xinstrument

import (
	"context"
	"fmt"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
	"github.com/omeyang/xestimator/pkg/observability/xspan"
)

// SpanLabel 是 span 包装器的装饰器标签。
const SpanLabel = "xinstrument.span"

// Spanner 为 original 生成 span 包装器，owner 为 span 名称中的类名部分。
//
// 返回值必须沿 wrapped 链回到 original（[xestimator.Unwrap] 相等）且不能是
// original 本身，否则引擎拒绝安装并记录警告。
type Spanner func(original *xestimator.Func, owner string) *xestimator.Func

// NewSpanner 返回基于 obs 的 Spanner。
//
// 包装器打开名为 "{owner}.{method}" 的 span，调用 original，
// 在正常返回、返回错误或 panic 时关闭 span。panic 记录后原样重新抛出。
// attrs 附加到每个 span 上。
func NewSpanner(obs xspan.Observer, attrs ...xspan.Attr) Spanner {
	return func(original *xestimator.Func, owner string) *xestimator.Func {
		method := original.Name()
		opts := xspan.SpanOptions{
			Name:      owner + "." + method,
			Estimator: owner,
			Method:    method,
			Kind:      xspan.KindInternal,
			Attrs:     attrs,
		}
		return xestimator.Decorate(SpanLabel, original,
			func(ctx context.Context, self xestimator.Estimator, args []any, next xestimator.Method) (out any, err error) {
				ctx, span := xspan.Start(ctx, obs, opts)
				defer func() {
					if r := recover(); r != nil {
						span.End(xspan.Result{Err: fmt.Errorf("panic: %v", r), Panicked: true})
						panic(r)
					}
					span.End(xspan.Result{Err: err})
				}()
				return next(ctx, self, args...)
			})
	}
}

// IsSpanWrapper 报告 f 是否为 [NewSpanner] 生成的包装器。
func IsSpanWrapper(f *xestimator.Func) bool {
	return f.IsDecorator() && f.Label() == SpanLabel
}

// acceptWrapper 校验 Spanner 的输出。
func acceptWrapper(wrapper, original *xestimator.Func) bool {
	return wrapper != nil && wrapper != original &&
		xestimator.Unwrap(wrapper) == xestimator.Unwrap(original)
}
