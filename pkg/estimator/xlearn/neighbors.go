package xlearn

import (
	"context"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
)

// NearestCentroid 以各类别的特征均值为原型，按最近原型分类。
var NearestCentroid = xestimator.NewClass("NearestCentroid", ClassifierMixin,
	xestimator.WithModule("xlearn.neighbors"),
	xestimator.WithMethod("fit", centroidFit),
	xestimator.WithMethod("predict", centroidPredict),
	xestimator.WithMethod("predict_proba", centroidPredictProba),
)

// NewNearestCentroid 创建 NearestCentroid。
func NewNearestCentroid() *xestimator.Object {
	return NearestCentroid.New()
}

func centroidFit(_ context.Context, self xestimator.Estimator, args ...any) (any, error) {
	X, err := matrixArg(args, 0)
	if err != nil {
		return nil, err
	}
	y, err := labelsArg(args, 1, len(X))
	if err != nil {
		return nil, err
	}
	classes := uniqueLabels(y)
	centroids := make([][]float64, len(classes))
	counts := make([]float64, len(classes))
	for c := range centroids {
		centroids[c] = make([]float64, len(X[0]))
	}
	for i, row := range X {
		c := classIndex(classes, y[i])
		counts[c]++
		for j, v := range row {
			centroids[c][j] += v
		}
	}
	for c := range centroids {
		for j := range centroids[c] {
			centroids[c][j] /= counts[c]
		}
	}
	self.SetAttr("classes_", classes)
	self.SetAttr("centroids_", centroids)
	return self, nil
}

// centroidDistances 返回每个样本到各原型的平方距离。
func centroidDistances(self xestimator.Estimator, args []any) ([]float64, [][]float64, error) {
	X, err := matrixArg(args, 0)
	if err != nil {
		return nil, nil, err
	}
	classes, err := fitted[[]float64](self, "classes_")
	if err != nil {
		return nil, nil, err
	}
	centroids, err := fitted[[][]float64](self, "centroids_")
	if err != nil {
		return nil, nil, err
	}
	dist := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(centroids[0]) {
			return nil, nil, ErrInvalidInput
		}
		dist[i] = make([]float64, len(centroids))
		for c, centroid := range centroids {
			dist[i][c] = sqDist(row, centroid)
		}
	}
	return classes, dist, nil
}

func centroidPredict(_ context.Context, self xestimator.Estimator, args ...any) (any, error) {
	classes, dist, err := centroidDistances(self, args)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(dist))
	for i, d := range dist {
		neg := make([]float64, len(d))
		for c := range d {
			neg[c] = -d[c]
		}
		out[i] = classes[argmax(neg)]
	}
	return out, nil
}

func centroidPredictProba(_ context.Context, self xestimator.Estimator, args ...any) (any, error) {
	_, dist, err := centroidDistances(self, args)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(dist))
	for i, d := range dist {
		neg := make([]float64, len(d))
		for c := range d {
			neg[c] = -d[c]
		}
		out[i] = softmax(neg)
	}
	return out, nil
}

func loadNeighbors() (xestimator.Namespace, error) {
	return xestimator.Namespace{"NearestCentroid": NearestCentroid}, nil
}
