// Package xlog 基于 log/slog 的结构化日志库。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式）
//   - 自动从 context 注入 OpenTelemetry trace_id、span_id（EnrichHandler，默认启用）
//   - 动态级别调整（运行时热更新）
//
// # 创建 Logger
//
// 使用 Builder 模式（first-error-wins：遇到第一个配置错误后，后续 Set 操作被跳过）：
//
//	logger, cleanup, err := xlog.New().
//		SetLevel(xlog.LevelDebug).
//		SetFormat("json").
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// # 进程级 Logger
//
// 注册表发现与 Instrumentor 未注入 Logger 时使用 [Default]：惰性创建，
// stderr、Warn 级别、text 格式。[SetDefault] 替换它，[ResetDefault] 仅用于测试。
//
// # 日志级别
//
// LevelDebug、LevelInfo、LevelWarn、LevelError 与 slog 数值一致，[ParseLevel] 从配置字符串解析。
//
// # 便捷属性
//
// [Err]、[Component]、[Class]、[Method]、[Package]、[Module]、[Count]。
package xlog
