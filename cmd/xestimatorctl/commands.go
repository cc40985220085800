package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
	"github.com/omeyang/xestimator/pkg/estimator/xlearn"
	"github.com/omeyang/xestimator/pkg/instrumentation/xinstrument"
	"github.com/omeyang/xestimator/pkg/observability/xlog"
	"github.com/omeyang/xestimator/pkg/observability/xspan"
)

// usageError 表示命令参数错误，对应退出码 2。
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func newUsageError(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// onUsageError 将 flag 解析错误转换为 usageError。
func onUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return &usageError{err: err}
}

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createDiscoverCommand(),
		createDemoCommand(),
		createCheckConfigCommand(),
	}
}

func createDiscoverCommand() *cli.Command {
	return &cli.Command{
		Name:         "discover",
		Aliases:      []string{"d"},
		Usage:        "列出发现的估计器类",
		OnUsageError: onUsageError,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "package",
				Aliases: []string{"p"},
				Usage:   "发现的包（可重复）",
				Value:   xinstrument.DefaultPackages(),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 (debug/info/warn/error)",
				Value: "warn",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			root := cmd.Root()
			logger, err := buildLogger(root.ErrWriter, cmd.String("log-level"))
			if err != nil {
				return err
			}
			return cmdDiscover(ctx, root.Writer, logger, cmd.StringSlice("package"))
		},
	}
}

func createDemoCommand() *cli.Command {
	return &cli.Command{
		Name:         "demo",
		Usage:        "插桩 xlearn 流水线并打印记录的 span",
		OnUsageError: onUsageError,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "插桩配置文件（yaml/json）",
			},
			&cli.BoolFlag{
				Name:  "library",
				Usage: "库级插桩（默认对估计器对象图插桩）",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别，覆盖配置文件 (debug/info/warn/error)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "日志写入按大小轮转的文件，覆盖配置文件",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			root := cmd.Root()
			return cmdDemo(ctx, root.Writer, root.ErrWriter, demoParams{
				configPath: cmd.String("config"),
				library:    cmd.Bool("library"),
				logLevel:   cmd.String("log-level"),
				logFile:    cmd.String("log-file"),
			})
		},
	}
}

func createCheckConfigCommand() *cli.Command {
	return &cli.Command{
		Name:         "check-config",
		Usage:        "解析并校验插桩配置文件",
		ArgsUsage:    "<file>",
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return newUsageError("check-config 需要且仅需要一个文件参数")
			}
			return cmdCheckConfig(ctx, cmd.Root().Writer, cmd.Args().First())
		},
	}
}

func buildLogger(w io.Writer, level string) (xlog.Logger, error) {
	if level == "" {
		level = "warn"
	}
	logger, _, err := xlog.New().SetOutput(w).SetLevelString(level).Build()
	if err != nil {
		return nil, &usageError{err: err}
	}
	return logger, nil
}

// cmdDiscover 打印发现键及其类，按发现键排序。
func cmdDiscover(ctx context.Context, w io.Writer, logger xlog.Logger, packages []string) error {
	classes := xestimator.Discover(ctx, packages, xestimator.WithLogger(logger))
	keys := make([]string, 0, len(classes))
	for key := range classes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(w, "%s\t%s\n", key, classes[key].QualName())
	}
	fmt.Fprintf(w, "%d classes\n", len(keys))
	return nil
}

type demoParams struct {
	configPath string
	library    bool
	logLevel   string
	logFile    string
}

var (
	demoX = [][]float64{{0, 0}, {0, 1}, {1, 0}, {5, 5}, {5, 6}, {6, 5}}
	demoY = []float64{0, 0, 0, 1, 1, 1}
	demoQ = [][]float64{{0.5, 0.5}, {5.5, 5.5}}
)

// demoModel 构建演示用的流水线：标准化后交给投票分类器。
func demoModel() *xestimator.Object {
	return xlearn.NewPipeline(
		xlearn.Step("scale", xlearn.NewStandardScaler()),
		xlearn.Step("vote", xlearn.NewVotingClassifier(
			xlearn.Step("centroid", xlearn.NewNearestCentroid()),
			xlearn.Step("tree", xlearn.NewDecisionTreeClassifier()),
		)),
	)
}

func demoOptions(ctx context.Context, errOut io.Writer, p demoParams) ([]xinstrument.Option, xlog.Logger, func() error, string, error) {
	cfg := &xinstrument.FileConfig{}
	if p.configPath != "" {
		loaded, err := xinstrument.LoadConfig(p.configPath)
		if err != nil {
			return nil, nil, nil, "", err
		}
		cfg = loaded
	}
	if p.logLevel != "" {
		cfg.Log.Level = p.logLevel
	}
	if p.logFile != "" {
		cfg.Log.File = p.logFile
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	logger, closeLog, err := cfg.BuildLogger(errOut)
	if err != nil {
		return nil, nil, nil, "", &usageError{err: err}
	}
	opts, err := cfg.Options(ctx, nil)
	if err != nil {
		_ = closeLog()
		return nil, nil, nil, "", err
	}
	return append(opts, xinstrument.WithLogger(logger)), logger, closeLog, cfg.InstrumentationName, nil
}

// cmdDemo 在进程内的 OTel SDK provider 上运行一次插桩演示。
func cmdDemo(ctx context.Context, w, errOut io.Writer, p demoParams) error {
	opts, logger, closeLog, name, err := demoOptions(ctx, errOut, p)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.WithoutCancel(ctx)) }()

	obs, err := xspan.NewOTelObserver(
		xspan.WithInstrumentationName(name),
		xspan.WithTracerProvider(tp),
		xspan.WithMeterProvider(mp),
	)
	if err != nil {
		return err
	}
	inst := xinstrument.New(append(opts, xinstrument.WithObserver(obs))...)

	model := demoModel()
	if p.library {
		inst.InstrumentLibrary(ctx)
		defer inst.UninstrumentLibrary(ctx)
	} else {
		inst.InstrumentEstimator(ctx, model)
		defer inst.UninstrumentEstimator(ctx, model)
	}
	logger.Info(ctx, "demo instrumented", slog.Bool("library", p.library))

	if _, err := xestimator.Call(ctx, model, "fit", demoX, demoY); err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	pred, err := xestimator.Call(ctx, model, "predict", demoQ)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}

	fmt.Fprintf(w, "predictions: %v\n", pred)
	fmt.Fprintln(w, "spans:")
	for _, s := range exporter.GetSpans() {
		fmt.Fprintf(w, "  %s %s\n", s.Name, s.Status.Code)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}
	fmt.Fprintf(w, "method calls: %d\n", totalCalls(rm))
	return nil
}

// totalCalls 汇总方法调用计数器的所有数据点。
func totalCalls(rm metricdata.ResourceMetrics) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != xspan.MetricMethodCalls {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

// cmdCheckConfig 解析配置并解析其中的类名。
func cmdCheckConfig(ctx context.Context, w io.Writer, path string) error {
	cfg, err := xinstrument.LoadConfig(path)
	if err != nil {
		return err
	}
	opts, err := cfg.Options(ctx, nil)
	if err != nil {
		return err
	}
	inst := xinstrument.New(append(opts, xinstrument.WithLogger(xlog.Discard()))...)
	fmt.Fprintf(w, "config ok: %s\n", path)
	fmt.Fprintf(w, "  methods:  %s\n", strings.Join(inst.Methods(), ", "))
	fmt.Fprintf(w, "  packages: %s\n", strings.Join(inst.Packages(), ", "))
	return nil
}

// setupSignalHandler 第一次信号取消 context，第二次信号强制退出（130 = 128 + SIGINT）。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}
