package xlog

import (
	"context"
	"log/slog"
)

// Logger 是插桩组件使用的日志接口。
//
// 每个方法都接收 ctx：被插桩方法内部记录的日志经 [EnrichHandler]
// 与当前 span 关联。属性只接受 slog.Attr。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 返回附带 attrs 的派生 Logger，派生 Logger 与父级共享级别。
	With(attrs ...slog.Attr) Logger

	// WithGroup 返回将后续属性归入 name 分组的派生 Logger。
	WithGroup(name string) Logger
}

// Leveler 支持运行时调整级别。
type Leveler interface {
	SetLevel(level Level)
	GetLevel() Level
	Enabled(ctx context.Context, level Level) bool
}

// LoggerWithLevel 是 [Builder.Build] 的返回类型。
type LoggerWithLevel interface {
	Logger
	Leveler
}

// Discard 返回丢弃全部输出的 Logger。
func Discard() Logger {
	return &xlogger{handler: slog.DiscardHandler, levelVar: new(slog.LevelVar)}
}
