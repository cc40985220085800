// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，自动注入 trace_id/span_id
//   - xspan: 估计器方法调用的 span 与指标（OpenTelemetry）
//   - xrotate: 日志文件轮转
package observability
