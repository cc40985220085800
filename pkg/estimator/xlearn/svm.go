package xlearn

import (
	"context"
	"fmt"
	"math"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
)

const (
	svmEpochs       = 50
	svmLearningRate = 0.1
)

// LinearSVC 是二分类线性支持向量机（合页损失的次梯度下降）。
//
// predict_proba 是 property：取值得到一个基于 decision_function 的
// sigmoid 概率函数，而不是可调用的方法槽。
var LinearSVC = xestimator.NewClass("LinearSVC", ClassifierMixin,
	xestimator.WithModule("xlearn.svm"),
	xestimator.WithMethod("fit", svcFit),
	xestimator.WithMethod("decision_function", svcDecision),
	xestimator.WithMethod("predict", svcPredict),
	xestimator.WithProperty("predict_proba", svcProbaProperty),
)

// ProbaFunc 是 LinearSVC.predict_proba property 的取值类型。
type ProbaFunc func(ctx context.Context, X [][]float64) ([][]float64, error)

// NewLinearSVC 创建 LinearSVC。
func NewLinearSVC() *xestimator.Object {
	return LinearSVC.New()
}

func svcFit(_ context.Context, self xestimator.Estimator, args ...any) (any, error) {
	X, err := matrixArg(args, 0)
	if err != nil {
		return nil, err
	}
	y, err := labelsArg(args, 1, len(X))
	if err != nil {
		return nil, err
	}
	classes := uniqueLabels(y)
	if len(classes) != 2 {
		return nil, fmt.Errorf("%w: LinearSVC needs exactly 2 classes, got %d", ErrInvalidInput, len(classes))
	}
	w := make([]float64, len(X[0]))
	var b float64
	for range svmEpochs {
		for i, row := range X {
			sign := -1.0
			if y[i] == classes[1] {
				sign = 1
			}
			if sign*(dot(w, row)+b) < 1 {
				for j, v := range row {
					w[j] += svmLearningRate * sign * v
				}
				b += svmLearningRate * sign
			}
		}
	}
	self.SetAttr("classes_", classes)
	self.SetAttr("coef_", w)
	self.SetAttr("intercept_", b)
	return self, nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func svcScores(self xestimator.Estimator, X [][]float64) ([]float64, error) {
	w, err := fitted[[]float64](self, "coef_")
	if err != nil {
		return nil, err
	}
	b, err := fitted[float64](self, "intercept_")
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != len(w) {
			return nil, ErrInvalidInput
		}
		out[i] = dot(w, row) + b
	}
	return out, nil
}

func svcDecision(_ context.Context, self xestimator.Estimator, args ...any) (any, error) {
	X, err := matrixArg(args, 0)
	if err != nil {
		return nil, err
	}
	return svcScores(self, X)
}

func svcPredict(_ context.Context, self xestimator.Estimator, args ...any) (any, error) {
	X, err := matrixArg(args, 0)
	if err != nil {
		return nil, err
	}
	scores, err := svcScores(self, X)
	if err != nil {
		return nil, err
	}
	classes, err := fitted[[]float64](self, "classes_")
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(scores))
	for i, s := range scores {
		if s >= 0 {
			out[i] = classes[1]
		} else {
			out[i] = classes[0]
		}
	}
	return out, nil
}

func svcProbaProperty(self xestimator.Estimator) any {
	return ProbaFunc(func(_ context.Context, X [][]float64) ([][]float64, error) {
		scores, err := svcScores(self, X)
		if err != nil {
			return nil, err
		}
		out := make([][]float64, len(scores))
		for i, s := range scores {
			p := 1 / (1 + math.Exp(-s))
			out[i] = []float64{1 - p, p}
		}
		return out, nil
	})
}

func loadSVM() (xestimator.Namespace, error) {
	return xestimator.Namespace{"LinearSVC": LinearSVC}, nil
}
