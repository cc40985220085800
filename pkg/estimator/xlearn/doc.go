// Package xlearn 是基于 xestimator 分派表的小型估计器库。
//
// 它提供插桩引擎默认配置引用的类（Pipeline、FeatureUnion、BaseDecisionTree 等），
// 也作为测试与命令行演示的宿主库。所有类在 init 中注册到
// [xestimator.DefaultRegistry]，包名为 [PackageName]，子模块为：
//
//   - base：BaseEstimator、TransformerMixin、ClassifierMixin
//   - pipeline：Pipeline、FeatureUnion
//   - preprocessing：StandardScaler
//   - neighbors：NearestCentroid
//   - svm：LinearSVC（predict_proba 为 property）
//   - tree：BaseDecisionTree、DecisionTreeClassifier
//   - ensemble：RandomForestClassifier、VotingClassifier
//   - gpu：加速后端，当前构建下导入总是失败（[ErrBackendUnavailable]）
//
// # 数据约定
//
// 特征为 [][]float64（行为样本），标签为 []float64。
// fit 返回估计器自身，transform 返回 [][]float64，predict 返回 []float64，
// predict_proba 返回 [][]float64（列顺序与 classes_ 一致）。
//
// # 使用示例
//
//	model := xlearn.NewPipeline(
//		xlearn.Step("scale", xlearn.NewStandardScaler()),
//		xlearn.Step("clf", xlearn.NewNearestCentroid()),
//	)
//	if _, err := model.Call(ctx, "fit", X, y); err != nil {
//		return err
//	}
//	pred, err := model.Call(ctx, "predict", X)
package xlearn
