package xestimator

import "errors"

// 方法分派相关错误。
var (
	// ErrNoSuchMethod 表示估计器上不存在该方法。
	ErrNoSuchMethod = errors.New("xestimator: no such method")

	// ErrNotCallable 表示名称解析到 property 而非方法。
	ErrNotCallable = errors.New("xestimator: attribute is not callable")

	// ErrNilEstimator 表示传入了 nil 估计器。
	ErrNilEstimator = errors.New("xestimator: nil estimator")
)

// 包注册表相关错误。
var (
	// ErrDuplicatePackage 表示包名已注册。
	ErrDuplicatePackage = errors.New("xestimator: package already registered")

	// ErrPackageNotFound 表示包未注册。
	ErrPackageNotFound = errors.New("xestimator: package not found")

	// ErrModuleNotFound 表示包内不存在该子模块。
	ErrModuleNotFound = errors.New("xestimator: module not found")

	// ErrInvalidName 表示包名或模块名为空或包含非法字符。
	ErrInvalidName = errors.New("xestimator: invalid name")
)
