package xlearn

import (
	"context"
	"fmt"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
)

var (
	// Pipeline 顺序组合转换器与最终估计器，属性 steps 为 []xestimator.Named。
	Pipeline = xestimator.NewClass("Pipeline", xestimator.BaseEstimator,
		xestimator.WithModule("xlearn.pipeline"),
		xestimator.WithMethod("fit", pipelineFit),
		xestimator.WithMethod("_fit", pipelineFitTransformers),
		xestimator.WithMethod("transform", pipelineTransform),
		xestimator.WithMethod("predict", pipelineFinal("predict")),
		xestimator.WithFunc(AvailableIf(finalHas("predict_proba"),
			xestimator.NewFunc("predict_proba", pipelineFinal("predict_proba")))),
	)

	// FeatureUnion 并行应用多个转换器并按列拼接结果，属性 transformer_list 为 []xestimator.Named。
	FeatureUnion = xestimator.NewClass("FeatureUnion", TransformerMixin,
		xestimator.WithModule("xlearn.pipeline"),
		xestimator.WithMethod("fit", unionFit),
		xestimator.WithMethod("transform", unionTransform),
	)
)

// NewPipeline 创建 Pipeline。
func NewPipeline(steps ...xestimator.Named) *xestimator.Object {
	p := Pipeline.New()
	p.SetAttr("steps", steps)
	return p
}

// NewFeatureUnion 创建 FeatureUnion。
func NewFeatureUnion(transformers ...xestimator.Named) *xestimator.Object {
	u := FeatureUnion.New()
	u.SetAttr("transformer_list", transformers)
	return u
}

func namedAttr(self xestimator.Estimator, name string) ([]xestimator.Named, error) {
	v, ok := self.Attr(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %s", ErrInvalidInput, self.Class().Name(), name)
	}
	named, ok := v.([]xestimator.Named)
	if !ok || len(named) == 0 {
		return nil, fmt.Errorf("%w: %s.%s must be a non-empty []Named", ErrInvalidInput, self.Class().Name(), name)
	}
	return named, nil
}

func finalHas(method string) func(xestimator.Estimator) bool {
	return func(self xestimator.Estimator) bool {
		steps, err := namedAttr(self, "steps")
		if err != nil {
			return false
		}
		return xestimator.Has(steps[len(steps)-1].Estimator, method)
	}
}

// pipelineFitTransformers 拟合除最后一步外的转换器，返回转换后的特征。
func pipelineFitTransformers(ctx context.Context, self xestimator.Estimator, args ...any) (any, error) {
	steps, err := namedAttr(self, "steps")
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: missing argument 0", ErrInvalidInput)
	}
	Xt := args[0]
	rest := args[1:]
	for _, step := range steps[:len(steps)-1] {
		fitArgs := append([]any{Xt}, rest...)
		if _, err := xestimator.Call(ctx, step.Estimator, "fit", fitArgs...); err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Name, err)
		}
		if Xt, err = xestimator.Call(ctx, step.Estimator, "transform", Xt); err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Name, err)
		}
	}
	return Xt, nil
}

func pipelineFit(ctx context.Context, self xestimator.Estimator, args ...any) (any, error) {
	Xt, err := xestimator.Call(ctx, self, "_fit", args...)
	if err != nil {
		return nil, err
	}
	steps, _ := namedAttr(self, "steps")
	final := steps[len(steps)-1]
	fitArgs := append([]any{Xt}, args[1:]...)
	if _, err := xestimator.Call(ctx, final.Estimator, "fit", fitArgs...); err != nil {
		return nil, fmt.Errorf("step %s: %w", final.Name, err)
	}
	return self, nil
}

func transformThrough(ctx context.Context, steps []xestimator.Named, X any) (any, error) {
	var err error
	for _, step := range steps {
		if X, err = xestimator.Call(ctx, step.Estimator, "transform", X); err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Name, err)
		}
	}
	return X, nil
}

func pipelineTransform(ctx context.Context, self xestimator.Estimator, args ...any) (any, error) {
	steps, err := namedAttr(self, "steps")
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: missing argument 0", ErrInvalidInput)
	}
	return transformThrough(ctx, steps, args[0])
}

// pipelineFinal 返回"转换后交给最后一步的 method"的实现。
func pipelineFinal(method string) xestimator.Method {
	return func(ctx context.Context, self xestimator.Estimator, args ...any) (any, error) {
		steps, err := namedAttr(self, "steps")
		if err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: missing argument 0", ErrInvalidInput)
		}
		Xt, err := transformThrough(ctx, steps[:len(steps)-1], args[0])
		if err != nil {
			return nil, err
		}
		final := steps[len(steps)-1]
		return xestimator.Call(ctx, final.Estimator, method, append([]any{Xt}, args[1:]...)...)
	}
}

func unionFit(ctx context.Context, self xestimator.Estimator, args ...any) (any, error) {
	transformers, err := namedAttr(self, "transformer_list")
	if err != nil {
		return nil, err
	}
	for _, t := range transformers {
		if _, err := xestimator.Call(ctx, t.Estimator, "fit", args...); err != nil {
			return nil, fmt.Errorf("transformer %s: %w", t.Name, err)
		}
	}
	return self, nil
}

func unionTransform(ctx context.Context, self xestimator.Estimator, args ...any) (any, error) {
	transformers, err := namedAttr(self, "transformer_list")
	if err != nil {
		return nil, err
	}
	var blocks [][][]float64
	for _, t := range transformers {
		out, err := xestimator.Call(ctx, t.Estimator, "transform", args...)
		if err != nil {
			return nil, fmt.Errorf("transformer %s: %w", t.Name, err)
		}
		block, ok := out.([][]float64)
		if !ok {
			return nil, fmt.Errorf("%w: transformer %s returned %T", ErrInvalidInput, t.Name, out)
		}
		blocks = append(blocks, block)
	}
	return hstack(blocks)
}

func hstack(blocks [][][]float64) ([][]float64, error) {
	rows := len(blocks[0])
	out := make([][]float64, rows)
	for _, b := range blocks {
		if len(b) != rows {
			return nil, fmt.Errorf("%w: blocks with %d and %d rows", ErrInvalidInput, rows, len(b))
		}
		for i := range b {
			out[i] = append(out[i], b[i]...)
		}
	}
	return out, nil
}

// MakePipeline 以 "step0"、"step1" … 命名步骤创建 Pipeline。
func MakePipeline(estimators ...xestimator.Estimator) *xestimator.Object {
	steps := make([]xestimator.Named, len(estimators))
	for i, e := range estimators {
		steps[i] = Step(fmt.Sprintf("step%d", i), e)
	}
	return NewPipeline(steps...)
}

func loadPipeline() (xestimator.Namespace, error) {
	return xestimator.Namespace{
		"Pipeline":      Pipeline,
		"FeatureUnion":  FeatureUnion,
		"make_pipeline": MakePipeline,
	}, nil
}
