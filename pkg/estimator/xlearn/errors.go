package xlearn

import "errors"

var (
	// ErrInvalidInput 表示参数类型或形状不合法。
	ErrInvalidInput = errors.New("xlearn: invalid input")

	// ErrNotFitted 表示估计器尚未 fit。
	ErrNotFitted = errors.New("xlearn: estimator not fitted")

	// ErrNotAvailable 表示方法在当前配置下不可用（available_if 检查失败）。
	ErrNotAvailable = errors.New("xlearn: method not available")

	// ErrBackendUnavailable 表示加速后端不可用。
	ErrBackendUnavailable = errors.New("xlearn: accelerated backend unavailable")
)
