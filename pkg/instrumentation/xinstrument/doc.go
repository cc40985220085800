// Package xinstrument 为估计器库与单个估计器实例提供 span 插桩。
//
// 插桩不修改估计器实现：引擎改写 [xestimator.MethodTable] 中的表项，
// 把 fit、transform、predict 等生命周期方法替换为打开 span 的包装器，
// 并在 [Ledger] 中记录恢复所需的信息。
//
// # 两种粒度
//
//   - 库级：[Instrumentor.InstrumentLibrary] 发现配置包中的全部估计器类，
//     在类方法表上安装包装器，影响所有实例与未覆写该方法的子类
//   - 实例级：[Instrumentor.InstrumentEstimator] 遍历一个（通常已 fit 的）
//     估计器及其子估计器，在实例方法表上安装包装器
//
// 两种粒度互相独立且可以叠加：同时启用时一次调用会产生嵌套的两个 span。
//
// # 层级遍历
//
// 组合估计器通过两类规则展开：
//
//   - NamedPair：属性是 [xestimator.Named] 序列，如 Pipeline.steps
//   - Direct：属性是估计器、估计器序列或以估计器为值的 map，如 RandomForest.estimators_
//
// 子节点先于父节点自身的方法处理；排除集中的类（含子类）整棵子树跳过。
//
// # 幂等与恢复
//
// 对同一 (owner, method) 重复插桩是无操作；对从未插桩的对象反插桩也是无操作。
// 反插桩把方法槽恢复为插桩前的同一个 [*xestimator.Func]（引用相等）。
// 子类覆写已插桩父类的方法后，覆写版本视为未插桩，需要单独插桩。
//
// # 并发
//
// 插桩与反插桩是同步的内存操作。针对同一对象图的并发插桩调用不做同步，
// 调用方负责串行化；被插桩的方法本身可以被多个 goroutine 并发调用。
//
// # 使用示例
//
//	inst := xinstrument.New()
//	model := xlearn.NewPipeline(
//		xlearn.Step("scale", xlearn.NewStandardScaler()),
//		xlearn.Step("clf", xlearn.NewNearestCentroid()),
//	)
//	inst.InstrumentEstimator(ctx, model)
//	_, err := model.Call(ctx, "fit", X, y) // span: Pipeline.fit
package xinstrument
