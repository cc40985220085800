package xlearn

import (
	"context"
	"fmt"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
)

// PackageName 是 xlearn 在注册表中的包名。
const PackageName = "xlearn"

var (
	// TransformerMixin 是转换器的基类。
	TransformerMixin = xestimator.NewClass("TransformerMixin", xestimator.BaseEstimator,
		xestimator.WithModule("xlearn.base"),
		xestimator.WithMethod("fit_transform", fitTransform),
	)

	// ClassifierMixin 是分类器的基类。
	ClassifierMixin = xestimator.NewClass("ClassifierMixin", xestimator.BaseEstimator,
		xestimator.WithModule("xlearn.base"),
		xestimator.WithMethod("score", score),
	)
)

// Step 构造 Pipeline 与 FeatureUnion 的一个命名步骤。
func Step(name string, e xestimator.Estimator) xestimator.Named {
	return xestimator.Named{Name: name, Estimator: e}
}

// AvailableIf 用检查函数装饰 inner：检查失败时调用返回 [ErrNotAvailable]，
// [xestimator.Has] 也报告该方法不存在。
//
// 返回的可调用对象沿用 inner 的名称，标签为 "available_if"。
func AvailableIf(check func(self xestimator.Estimator) bool, inner *xestimator.Func) *xestimator.Func {
	return xestimator.DecorateIf("available_if", inner, check,
		func(ctx context.Context, self xestimator.Estimator, args []any, next xestimator.Method) (any, error) {
			if !check(self) {
				return nil, fmt.Errorf("%w: %s.%s", ErrNotAvailable, self.Class().Name(), inner.Name())
			}
			return next(ctx, self, args...)
		})
}

// fitTransform 依次调用 fit 与 transform，两者都经过实例分派。
func fitTransform(ctx context.Context, self xestimator.Estimator, args ...any) (any, error) {
	if _, err := xestimator.Call(ctx, self, "fit", args...); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: missing argument 0", ErrInvalidInput)
	}
	return xestimator.Call(ctx, self, "transform", args[0])
}

// score 返回 predict 的准确率。
func score(ctx context.Context, self xestimator.Estimator, args ...any) (any, error) {
	X, err := matrixArg(args, 0)
	if err != nil {
		return nil, err
	}
	y, err := labelsArg(args, 1, len(X))
	if err != nil {
		return nil, err
	}
	out, err := xestimator.Call(ctx, self, "predict", X)
	if err != nil {
		return nil, err
	}
	pred, err := predictionsOf(out)
	if err != nil {
		return nil, err
	}
	var hit int
	for i := range y {
		if pred[i] == y[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(y)), nil
}

func loadBase() (xestimator.Namespace, error) {
	return xestimator.Namespace{
		"BaseEstimator":    xestimator.BaseEstimator,
		"TransformerMixin": TransformerMixin,
		"ClassifierMixin":  ClassifierMixin,
		"Step":             Step,
	}, nil
}
