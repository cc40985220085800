package xlearn

import (
	"fmt"
	"runtime"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
)

// loadGPU 加载依赖本地加速库的 gpu 模块。当前构建未链接任何后端，导入总是失败。
func loadGPU() (xestimator.Namespace, error) {
	return nil, fmt.Errorf("%w: no accelerator for %s/%s", ErrBackendUnavailable, runtime.GOOS, runtime.GOARCH)
}
