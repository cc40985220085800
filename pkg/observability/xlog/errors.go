package xlog

import "errors"

// Builder 配置相关错误。
var (
	// ErrUnknownLevel 表示无法识别的日志级别字符串。
	ErrUnknownLevel = errors.New("xlog: unknown level")

	// ErrUnknownFormat 表示无法识别的输出格式。
	ErrUnknownFormat = errors.New("xlog: unknown format")

	// ErrNilOutput 表示输出目标为 nil。
	ErrNilOutput = errors.New("xlog: nil output")

	// ErrNilHandler 当 NewEnrichHandler 的 base handler 为 nil 时返回
	ErrNilHandler = errors.New("xlog: base handler is nil")
)
