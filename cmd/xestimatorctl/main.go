// xestimatorctl 是估计器插桩的命令行工具。
//
// 用法:
//
//	xestimatorctl <命令> [命令参数]
//
// 命令:
//
//	discover          列出发现的估计器类
//	demo              插桩一个 xlearn 流水线，拟合、预测并打印记录的 span
//	check-config <f>  解析并校验插桩配置文件
//	help              显示帮助信息
//
// 退出码:
//
//	0: 命令执行成功
//	1: 命令执行失败
//	2: 参数错误（缺少必需参数、未知 flag 等）
//
// 示例:
//
//	xestimatorctl discover --package xlearn
//	xestimatorctl demo --library --log-level debug
//	xestimatorctl check-config instrument.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// createApp 创建 CLI 应用，输出写入 out，诊断信息写入 errOut。
func createApp(out, errOut io.Writer) *cli.Command {
	return &cli.Command{
		Name:         "xestimatorctl",
		Usage:        "估计器 OpenTelemetry 插桩工具",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:       out,
		ErrWriter:    errOut,
		Commands:     createCommands(),
		OnUsageError: onUsageError,
		// 禁止 urfave/cli 直接调用 os.Exit，退出码由 run 统一映射。
		ExitErrHandler: func(_ context.Context, cmd *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(cmd.Root().ErrWriter, err)
			}
		},
	}
}

func run(args []string, out, errOut io.Writer) int {
	app := createApp(out, errOut)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	return exitCode(app.Run(ctx, args), errOut)
}

// exitCode 将命令错误映射为退出码并输出错误信息。
func exitCode(err error, errOut io.Writer) int {
	if err == nil {
		return 0
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(errOut, "参数错误: %v\n", usageErr)
		return 2
	}
	fmt.Fprintf(errOut, "错误: %v\n", err)
	return 1
}
