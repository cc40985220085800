package xlog

import (
	"log/slog"
	"os"
	"sync"
)

var (
	globalMu     sync.Mutex
	globalLogger LoggerWithLevel
)

// Default 返回进程级 Logger，未通过 [SetDefault] 设置时惰性创建。
//
// 默认 Logger 写 stderr、text 格式、Warn 级别：插桩的逐方法调试记录默认不输出，
// 模块导入失败等警告照常输出。
func Default() LoggerWithLevel {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		logger, _, err := New().SetLevel(LevelWarn).Build()
		if err != nil {
			levelVar := new(slog.LevelVar)
			levelVar.Set(slog.LevelWarn)
			logger = &xlogger{
				handler:  slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}),
				levelVar: levelVar,
			}
		}
		globalLogger = logger
	}
	return globalLogger
}

// SetDefault 替换进程级 Logger，nil 被忽略。
//
// 只影响此后创建的注册表发现与 Instrumentor；已创建的对象保留原 Logger。
func SetDefault(l LoggerWithLevel) {
	if l == nil {
		return
	}
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// ResetDefault 恢复为未初始化状态，仅用于测试。
func ResetDefault() {
	globalMu.Lock()
	globalLogger = nil
	globalMu.Unlock()
}
