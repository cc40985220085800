// Package xrotate 提供按大小轮转的日志文件输出。
//
// 插桩日志（发现阶段的模块导入警告、逐方法的插桩调试记录）在长时间运行的
// 训练进程中可能持续写入，[NewLumberjack] 返回的 [Rotator] 可直接作为
// xlog 的输出目标：
//
//	r, err := xrotate.NewLumberjack("/var/log/app/xinstrument.log", xrotate.WithMaxSize(100))
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//	logger, _, err := xlog.New().SetOutput(r).Build()
package xrotate
