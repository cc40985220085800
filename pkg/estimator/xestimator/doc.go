// Package xestimator 定义可插桩估计器的反射面：方法分派表、类谱系与包注册表。
//
// # 设计理念
//
// Go 不支持在运行时替换方法，因此 xestimator 把方法分派建模为数据：
// 每个 [Class] 与每个实例（[Estimator]）各自持有一张 [MethodTable]，
// 表项是 [*Func]。插桩只修改表项，不触碰估计器的实现代码。
//
//   - [Func]：方法槽中的可调用对象，指针身份即引用身份
//   - [Decorate]：装饰器，显式保存 wrapped-origin 反向引用
//   - [Unwrap]：沿 wrapped 链找到最内层实现
//   - [Class]：单继承，谱系（自身 + 祖先）在 [NewClass] 时一次性计算
//   - [Object]：默认 [Estimator] 实现，属性袋 + 实例方法表
//
// # 方法解析
//
// [Resolve] 按以下顺序查找名称：
//
//  1. 类链上的属性（property，等同数据描述符，优先于实例槽）
//  2. 实例方法表
//  3. 类链上的方法（自身 → 父类）
//
// # 包注册表与发现
//
// [Registry] 是模块加载面：包由若干子模块组成，子模块通过 [Loader] 按需加载，
// 加载可能失败。[Registry.Discover] 遍历子模块，加载失败记录一条警告并跳过，
// 收集继承自 [BaseEstimator] 的类：
//
//	xestimator.RegisterPackage("mylib",
//		xestimator.Module{Name: "linear", Load: loadLinear},
//	)
//	classes := xestimator.DefaultRegistry().Discover(ctx, []string{"mylib"})
//
// # 并发安全
//
// [MethodTable] 与 [Func] 的 wrapped 指针是并发安全的，方法调用可以与插桩并发。
// 类定义（[NewClass] 之后的 Define 系列）应在初始化阶段完成。
package xestimator
