// Package xspan 定义估计器方法调用的 span 发射接口。
//
// # 设计理念
//
// xspan 仅定义最小化接口：Observer/Span，插桩引擎只依赖接口；
// 默认实现基于 OpenTelemetry（追踪 + 指标）。
//
// # 使用示例
//
//	obs, _ := xspan.NewOTelObserver()
//	ctx, span := xspan.Start(ctx, obs, xspan.SpanOptions{
//		Name:      "Pipeline.fit",
//		Estimator: "Pipeline",
//		Method:    "fit",
//	})
//	defer func() { span.End(xspan.Result{Err: err}) }()
//
// # 指标命名
//
//   - xestimator.method.calls（计数）
//   - xestimator.method.duration（直方图，秒）
//
// 统一属性：class / method / status。
//
// # 并发安全
//
// 同一 Observer 可被多个 goroutine 同时 Start；每个 Span 的 End 是幂等的。
// span 与 goroutine 的亲和规则由 OpenTelemetry 负责。
package xspan
