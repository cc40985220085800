package xlog

import "log/slog"

// 常用属性 Key 常量
const (
	// KeyError 错误字段的标准 key
	KeyError = "error"

	// KeyCount 计数字段的标准 key
	KeyCount = "count"

	// KeyComponent 组件名称字段的标准 key
	KeyComponent = "component"

	// KeyClass 估计器类字段的标准 key
	KeyClass = "class"

	// KeyMethod 估计器方法字段的标准 key
	KeyMethod = "method"

	// KeyPackage 包名字段的标准 key
	KeyPackage = "package"

	// KeyModule 模块名字段的标准 key
	KeyModule = "module"
)

// Err 创建错误属性
//
// err 为 nil 时返回空属性（会被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Class 创建估计器类属性（通常为限定名，如 "xlearn.pipeline.Pipeline"）
func Class(name string) slog.Attr {
	return slog.String(KeyClass, name)
}

// Method 创建估计器方法属性
func Method(name string) slog.Attr {
	return slog.String(KeyMethod, name)
}

// Package 创建包名属性
func Package(name string) slog.Attr {
	return slog.String(KeyPackage, name)
}

// Module 创建模块名属性
func Module(name string) slog.Attr {
	return slog.String(KeyModule, name)
}

// Count 创建计数属性
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}
