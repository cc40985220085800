package xlearn

import (
	"context"
	"math"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
)

// StandardScaler 将每个特征标准化为零均值、单位方差。
var StandardScaler = xestimator.NewClass("StandardScaler", TransformerMixin,
	xestimator.WithModule("xlearn.preprocessing"),
	xestimator.WithMethod("fit", scalerFit),
	xestimator.WithMethod("transform", scalerTransform),
)

// NewStandardScaler 创建 StandardScaler。
func NewStandardScaler() *xestimator.Object {
	return StandardScaler.New()
}

func scalerFit(_ context.Context, self xestimator.Estimator, args ...any) (any, error) {
	X, err := matrixArg(args, 0)
	if err != nil {
		return nil, err
	}
	n, width := float64(len(X)), len(X[0])
	mean := make([]float64, width)
	for _, row := range X {
		for j, v := range row {
			mean[j] += v / n
		}
	}
	scale := make([]float64, width)
	for _, row := range X {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d / n
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j])
		if scale[j] == 0 {
			scale[j] = 1
		}
	}
	self.SetAttr("mean_", mean)
	self.SetAttr("scale_", scale)
	return self, nil
}

func scalerTransform(_ context.Context, self xestimator.Estimator, args ...any) (any, error) {
	X, err := matrixArg(args, 0)
	if err != nil {
		return nil, err
	}
	mean, err := fitted[[]float64](self, "mean_")
	if err != nil {
		return nil, err
	}
	scale, err := fitted[[]float64](self, "scale_")
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(mean) {
			return nil, ErrInvalidInput
		}
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = (v - mean[j]) / scale[j]
		}
	}
	return out, nil
}

func loadPreprocessing() (xestimator.Namespace, error) {
	return xestimator.Namespace{"StandardScaler": StandardScaler}, nil
}
