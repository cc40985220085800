package xinstrument

import "errors"

// 配置相关错误。插桩操作本身从不返回错误，异常情况降级为日志。
var (
	// ErrUnknownClass 表示配置中的类限定名无法通过发现解析。
	ErrUnknownClass = errors.New("xinstrument: unknown class")

	// ErrInvalidConfig 表示配置内容无效。
	ErrInvalidConfig = errors.New("xinstrument: invalid config")

	// ErrUnsupportedFormat 表示不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xinstrument: unsupported config format")

	// ErrLoadFailed 表示配置文件读取失败。
	ErrLoadFailed = errors.New("xinstrument: failed to load config")

	// ErrParseFailed 表示配置解析失败。
	ErrParseFailed = errors.New("xinstrument: failed to parse config")
)
