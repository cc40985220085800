package xlearn

import (
	"fmt"
	"math"
	"sort"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
)

func matrixArg(args []any, idx int) ([][]float64, error) {
	if idx >= len(args) {
		return nil, fmt.Errorf("%w: missing argument %d", ErrInvalidInput, idx)
	}
	X, ok := args[idx].([][]float64)
	if !ok {
		return nil, fmt.Errorf("%w: argument %d is %T, want [][]float64", ErrInvalidInput, idx, args[idx])
	}
	if len(X) == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrInvalidInput)
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrInvalidInput, i, len(row), width)
		}
	}
	return X, nil
}

func labelsArg(args []any, idx int, n int) ([]float64, error) {
	if idx >= len(args) {
		return nil, fmt.Errorf("%w: missing labels", ErrInvalidInput)
	}
	y, ok := args[idx].([]float64)
	if !ok {
		return nil, fmt.Errorf("%w: labels are %T, want []float64", ErrInvalidInput, args[idx])
	}
	if len(y) != n {
		return nil, fmt.Errorf("%w: %d labels for %d samples", ErrInvalidInput, len(y), n)
	}
	return y, nil
}

// fitted 读取 fit 产生的属性。
func fitted[T any](e xestimator.Estimator, name string) (T, error) {
	var zero T
	v, ok := e.Attr(name)
	if !ok {
		return zero, fmt.Errorf("%w: %s has no %s", ErrNotFitted, e.Class().Name(), name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s.%s is %T", ErrInvalidInput, e.Class().Name(), name, v)
	}
	return t, nil
}

func param[T any](e xestimator.Estimator, name string, def T) T {
	if v, ok := e.Attr(name); ok {
		if t, ok := v.(T); ok {
			return t
		}
	}
	return def
}

// uniqueLabels 返回排序后的不同标签。
func uniqueLabels(y []float64) []float64 {
	seen := make(map[float64]struct{}, len(y))
	out := make([]float64, 0)
	for _, v := range y {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

func classIndex(classes []float64, label float64) int {
	return sort.SearchFloat64s(classes, label)
}

func sqDist(a, b []float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}

func softmax(scores []float64) []float64 {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		maxScore = math.Max(maxScore, s)
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

// majority 返回票数最多的标签，平票取较小值。
func majority(votes []float64) float64 {
	counts := make(map[float64]int, len(votes))
	for _, v := range votes {
		counts[v]++
	}
	best, bestCount := math.Inf(1), -1
	for label, c := range counts {
		if c > bestCount || c == bestCount && label < best {
			best, bestCount = label, c
		}
	}
	return best
}

func predictionsOf(v any) ([]float64, error) {
	p, ok := v.([]float64)
	if !ok {
		return nil, fmt.Errorf("%w: prediction is %T", ErrInvalidInput, v)
	}
	return p, nil
}

func probasOf(v any) ([][]float64, error) {
	p, ok := v.([][]float64)
	if !ok {
		return nil, fmt.Errorf("%w: probabilities are %T", ErrInvalidInput, v)
	}
	return p, nil
}
