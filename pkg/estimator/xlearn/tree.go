package xlearn

import (
	"context"
	"math"
	"sort"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
)

var (
	// BaseDecisionTree 是决策树的基类，实现单层决策树（decision stump）。
	//
	// 可选参数 feature（int）限定分裂特征，未设置时搜索全部特征。
	BaseDecisionTree = xestimator.NewClass("BaseDecisionTree", ClassifierMixin,
		xestimator.WithModule("xlearn.tree"),
		xestimator.WithMethod("fit", treeFit),
		xestimator.WithMethod("predict", treePredict),
	)

	// DecisionTreeClassifier 在 BaseDecisionTree 上增加 predict_proba。
	DecisionTreeClassifier = xestimator.NewClass("DecisionTreeClassifier", BaseDecisionTree,
		xestimator.WithMethod("predict_proba", treePredictProba),
	)
)

// NewDecisionTreeClassifier 创建 DecisionTreeClassifier。
func NewDecisionTreeClassifier() *xestimator.Object {
	return DecisionTreeClassifier.New()
}

// stump 是分裂结果：x[feature] <= threshold 走左叶。
type stump struct {
	feature   int
	threshold float64
	left      []float64
	right     []float64
}

func treeFit(_ context.Context, self xestimator.Estimator, args ...any) (any, error) {
	X, err := matrixArg(args, 0)
	if err != nil {
		return nil, err
	}
	y, err := labelsArg(args, 1, len(X))
	if err != nil {
		return nil, err
	}
	classes := uniqueLabels(y)

	features := make([]int, 0, len(X[0]))
	if f := param(self, "feature", -1); f >= 0 && f < len(X[0]) {
		features = append(features, f)
	} else {
		for j := range X[0] {
			features = append(features, j)
		}
	}

	best := stump{}
	bestGini := math.Inf(1)
	for _, j := range features {
		values := make([]float64, len(X))
		for i, row := range X {
			values[i] = row[j]
		}
		sort.Float64s(values)
		for k := 0; k+1 < len(values); k++ {
			if values[k] == values[k+1] {
				continue
			}
			threshold := (values[k] + values[k+1]) / 2
			s := split(X, y, classes, j, threshold)
			if g := weightedGini(s); g < bestGini {
				best, bestGini = s, g
			}
		}
	}
	if math.IsInf(bestGini, 1) {
		// 特征全部相同：退化为常数预测。
		best = split(X, y, classes, features[0], math.Inf(1))
	}

	self.SetAttr("classes_", classes)
	self.SetAttr("feature_", best.feature)
	self.SetAttr("threshold_", best.threshold)
	self.SetAttr("leaves_", [][]float64{best.left, best.right})
	return self, nil
}

func split(X [][]float64, y, classes []float64, feature int, threshold float64) stump {
	s := stump{
		feature:   feature,
		threshold: threshold,
		left:      make([]float64, len(classes)),
		right:     make([]float64, len(classes)),
	}
	for i, row := range X {
		c := classIndex(classes, y[i])
		if row[feature] <= threshold {
			s.left[c]++
		} else {
			s.right[c]++
		}
	}
	return s
}

func gini(counts []float64) (float64, float64) {
	var total float64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0, 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / total
		g -= p * p
	}
	return g, total
}

func weightedGini(s stump) float64 {
	gl, nl := gini(s.left)
	gr, nr := gini(s.right)
	return (gl*nl + gr*nr) / (nl + nr)
}

func treeLeaves(self xestimator.Estimator, X [][]float64) ([]float64, [][]float64, error) {
	classes, err := fitted[[]float64](self, "classes_")
	if err != nil {
		return nil, nil, err
	}
	feature, err := fitted[int](self, "feature_")
	if err != nil {
		return nil, nil, err
	}
	threshold, err := fitted[float64](self, "threshold_")
	if err != nil {
		return nil, nil, err
	}
	leaves, err := fitted[[][]float64](self, "leaves_")
	if err != nil {
		return nil, nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		if feature >= len(row) {
			return nil, nil, ErrInvalidInput
		}
		leaf := leaves[1]
		if row[feature] <= threshold {
			leaf = leaves[0]
		}
		// 空叶回退到另一侧。
		if _, n := gini(leaf); n == 0 {
			leaf = leaves[0]
			if row[feature] <= threshold {
				leaf = leaves[1]
			}
		}
		out[i] = leaf
	}
	return classes, out, nil
}

func treePredict(_ context.Context, self xestimator.Estimator, args ...any) (any, error) {
	X, err := matrixArg(args, 0)
	if err != nil {
		return nil, err
	}
	classes, leaves, err := treeLeaves(self, X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(leaves))
	for i, leaf := range leaves {
		out[i] = classes[argmax(leaf)]
	}
	return out, nil
}

func treePredictProba(_ context.Context, self xestimator.Estimator, args ...any) (any, error) {
	X, err := matrixArg(args, 0)
	if err != nil {
		return nil, err
	}
	_, leaves, err := treeLeaves(self, X)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(leaves))
	for i, leaf := range leaves {
		_, n := gini(leaf)
		out[i] = make([]float64, len(leaf))
		for c, v := range leaf {
			out[i][c] = v / n
		}
	}
	return out, nil
}

func loadTree() (xestimator.Namespace, error) {
	return xestimator.Namespace{
		"BaseDecisionTree":       BaseDecisionTree,
		"DecisionTreeClassifier": DecisionTreeClassifier,
	}, nil
}
