package xlearn

import "github.com/omeyang/xestimator/pkg/estimator/xestimator"

// Modules 返回 xlearn 的子模块，顺序即发现顺序。
func Modules() []xestimator.Module {
	return []xestimator.Module{
		{Name: "base", Load: loadBase},
		{Name: "pipeline", Load: loadPipeline},
		{Name: "preprocessing", Load: loadPreprocessing},
		{Name: "neighbors", Load: loadNeighbors},
		{Name: "svm", Load: loadSVM},
		{Name: "tree", Load: loadTree},
		{Name: "ensemble", Load: loadEnsemble},
		{Name: "gpu", Load: loadGPU},
	}
}

func init() {
	xestimator.MustRegisterPackage(PackageName, Modules()...)
}
