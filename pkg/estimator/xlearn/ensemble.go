package xlearn

import (
	"context"
	"fmt"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
)

var (
	// RandomForestClassifier 是决策树桩的集成，拟合后属性 estimators_ 为 []xestimator.Estimator。
	//
	// 第 i 棵树在去掉第 i 折样本的子集上拟合，分裂特征轮换，结果可复现。
	RandomForestClassifier = xestimator.NewClass("RandomForestClassifier", ClassifierMixin,
		xestimator.WithModule("xlearn.ensemble"),
		xestimator.WithMethod("fit", forestFit),
		xestimator.WithMethod("predict", forestPredict),
		xestimator.WithMethod("predict_proba", forestPredictProba),
	)

	// VotingClassifier 对命名的分类器做多数投票。
	// 参数属性 estimators 为 []xestimator.Named，拟合后 named_estimators_ 为 map[string]xestimator.Estimator。
	VotingClassifier = xestimator.NewClass("VotingClassifier", ClassifierMixin,
		xestimator.WithModule("xlearn.ensemble"),
		xestimator.WithMethod("fit", votingFit),
		xestimator.WithMethod("predict", votingPredict),
	)
)

// NewRandomForestClassifier 创建包含 n 棵树的 RandomForestClassifier，n 小于 1 时取 1。
func NewRandomForestClassifier(n int) *xestimator.Object {
	f := RandomForestClassifier.New()
	f.SetAttr("n_estimators", max(n, 1))
	return f
}

// NewVotingClassifier 创建 VotingClassifier。
func NewVotingClassifier(estimators ...xestimator.Named) *xestimator.Object {
	v := VotingClassifier.New()
	v.SetAttr("estimators", estimators)
	return v
}

func forestFit(ctx context.Context, self xestimator.Estimator, args ...any) (any, error) {
	X, err := matrixArg(args, 0)
	if err != nil {
		return nil, err
	}
	y, err := labelsArg(args, 1, len(X))
	if err != nil {
		return nil, err
	}
	n := param(self, "n_estimators", 1)
	width := len(X[0])

	trees := make([]xestimator.Estimator, 0, n)
	for i := range n {
		var Xi [][]float64
		var yi []float64
		for r := range X {
			if n > 1 && len(X) > n && r%n == i {
				continue
			}
			Xi = append(Xi, X[r])
			yi = append(yi, y[r])
		}
		tree := NewDecisionTreeClassifier()
		tree.SetAttr("feature", i%width)
		if _, err := xestimator.Call(ctx, tree, "fit", Xi, yi); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		trees = append(trees, tree)
	}
	self.SetAttr("classes_", uniqueLabels(y))
	self.SetAttr("estimators_", trees)
	return self, nil
}

func forestPredict(ctx context.Context, self xestimator.Estimator, args ...any) (any, error) {
	trees, err := fitted[[]xestimator.Estimator](self, "estimators_")
	if err != nil {
		return nil, err
	}
	return vote(ctx, trees, args)
}

func forestPredictProba(ctx context.Context, self xestimator.Estimator, args ...any) (any, error) {
	trees, err := fitted[[]xestimator.Estimator](self, "estimators_")
	if err != nil {
		return nil, err
	}
	classes, err := fitted[[]float64](self, "classes_")
	if err != nil {
		return nil, err
	}
	var sum [][]float64
	for i, tree := range trees {
		out, err := xestimator.Call(ctx, tree, "predict_proba", args...)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		proba, err := probasOf(out)
		if err != nil {
			return nil, err
		}
		treeClasses, err := fitted[[]float64](tree, "classes_")
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = make([][]float64, len(proba))
			for r := range sum {
				sum[r] = make([]float64, len(classes))
			}
		}
		// 树的子集可能缺少部分类别，按标签对齐列。
		for r, row := range proba {
			for c, p := range row {
				sum[r][classIndex(classes, treeClasses[c])] += p / float64(len(trees))
			}
		}
	}
	return sum, nil
}

// vote 对 estimators 的 predict 结果逐样本多数投票。
func vote(ctx context.Context, estimators []xestimator.Estimator, args []any) ([]float64, error) {
	var ballots [][]float64
	for i, e := range estimators {
		out, err := xestimator.Call(ctx, e, "predict", args...)
		if err != nil {
			return nil, fmt.Errorf("estimator %d: %w", i, err)
		}
		pred, err := predictionsOf(out)
		if err != nil {
			return nil, err
		}
		ballots = append(ballots, pred)
	}
	if len(ballots) == 0 {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(ballots[0]))
	votes := make([]float64, len(ballots))
	for r := range out {
		for b := range ballots {
			votes[b] = ballots[b][r]
		}
		out[r] = majority(votes)
	}
	return out, nil
}

func votingFit(ctx context.Context, self xestimator.Estimator, args ...any) (any, error) {
	named, err := namedAttr(self, "estimators")
	if err != nil {
		return nil, err
	}
	fittedByName := make(map[string]xestimator.Estimator, len(named))
	for _, n := range named {
		if _, dup := fittedByName[n.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate estimator name %q", ErrInvalidInput, n.Name)
		}
		if _, err := xestimator.Call(ctx, n.Estimator, "fit", args...); err != nil {
			return nil, fmt.Errorf("estimator %s: %w", n.Name, err)
		}
		fittedByName[n.Name] = n.Estimator
	}
	self.SetAttr("named_estimators_", fittedByName)
	return self, nil
}

func votingPredict(ctx context.Context, self xestimator.Estimator, args ...any) (any, error) {
	named, err := namedAttr(self, "estimators")
	if err != nil {
		return nil, err
	}
	if _, err := fitted[map[string]xestimator.Estimator](self, "named_estimators_"); err != nil {
		return nil, err
	}
	estimators := make([]xestimator.Estimator, len(named))
	for i, n := range named {
		estimators[i] = n.Estimator
	}
	return vote(ctx, estimators, args)
}

func loadEnsemble() (xestimator.Namespace, error) {
	return xestimator.Namespace{
		"RandomForestClassifier": RandomForestClassifier,
		"VotingClassifier":       VotingClassifier,
	}, nil
}
