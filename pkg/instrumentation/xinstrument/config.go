package xinstrument

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
	"github.com/omeyang/xestimator/pkg/observability/xlog"
	"github.com/omeyang/xestimator/pkg/observability/xrotate"
	"github.com/omeyang/xestimator/pkg/observability/xspan"
)

// Format 表示配置格式。
type Format string

const (
	// FormatYAML YAML 格式。
	FormatYAML Format = "yaml"
	// FormatJSON JSON 格式。
	FormatJSON Format = "json"
)

// RuleConfig 是配置文件中的一条遍历规则。
type RuleConfig struct {
	// Class 为类的发现键，形如 "xlearn.pipeline.Pipeline"。
	Class string `koanf:"class"`
	// Attrs 为子估计器属性名。
	Attrs []string `koanf:"attrs"`
}

// LogConfig 是日志配置。
//
// File 非空时日志写入按大小轮转的文件，而不是 BuildLogger 的 w。
type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
}

// FileConfig 是 Instrumentor 的文件配置。
//
// 未出现的字段使用默认值；exclude 显式写为空列表表示不排除任何类。
type FileConfig struct {
	InstrumentationName string       `koanf:"instrumentation_name"`
	Methods             []string     `koanf:"methods"`
	Packages            []string     `koanf:"packages"`
	Exclude             []string     `koanf:"exclude"`
	NamedPairRules      []RuleConfig `koanf:"named_pair_rules"`
	DirectRules         []RuleConfig `koanf:"direct_rules"`
	Log                 LogConfig    `koanf:"log"`

	excludeSet bool
}

// LoadConfig 读取配置文件，格式由扩展名（.yaml/.yml/.json）决定。
func LoadConfig(path string) (*FileConfig, error) {
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return ParseConfig(data, format)
}

// ParseConfig 解析配置内容并校验。空内容得到全默认配置。
func ParseConfig(data []byte, format Format) (*FileConfig, error) {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	k := koanf.New(".")
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
	}

	cfg := &FileConfig{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	cfg.excludeSet = k.Exists("exclude")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置，返回的错误可用 errors.Is 匹配 [ErrInvalidConfig]。
func (c *FileConfig) Validate() error {
	var errs []error
	for idx, m := range c.Methods {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, fmt.Errorf("methods[%d]: empty method name", idx))
		}
	}
	for idx, p := range c.Packages {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("packages[%d]: empty package name", idx))
		}
	}
	for idx, name := range c.Exclude {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("exclude[%d]: empty class name", idx))
		}
	}
	errs = append(errs, validateRules("named_pair_rules", c.NamedPairRules)...)
	errs = append(errs, validateRules("direct_rules", c.DirectRules)...)
	if c.Log.Level != "" {
		if _, err := xlog.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if c.Log.MaxSizeMB < 0 {
		errs = append(errs, fmt.Errorf("log.max_size_mb: negative size %d", c.Log.MaxSizeMB))
	}
	if c.Log.MaxBackups < 0 {
		errs = append(errs, fmt.Errorf("log.max_backups: negative count %d", c.Log.MaxBackups))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func validateRules(section string, rules []RuleConfig) []error {
	var errs []error
	for idx, r := range rules {
		if strings.TrimSpace(r.Class) == "" {
			errs = append(errs, fmt.Errorf("%s[%d]: empty class", section, idx))
		}
		if len(r.Attrs) == 0 {
			errs = append(errs, fmt.Errorf("%s[%d]: no attrs", section, idx))
		}
	}
	return errs
}

// Options 将配置转换为 [Option]。
//
// 规则与排除集中的类名通过 reg（nil 时为进程级注册表）的发现结果解析，
// 发现范围为 packages 与类名首段的并集。无法解析的类名返回 [ErrUnknownClass]。
func (c *FileConfig) Options(ctx context.Context, reg *xestimator.Registry) ([]Option, error) {
	if reg == nil {
		reg = xestimator.DefaultRegistry()
	}
	classes := reg.Discover(ctx, c.discoveryPackages(), xestimator.WithLogger(xlog.Discard()))
	resolve := func(name string) (*xestimator.Class, error) {
		cls, ok := classes[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
		}
		return cls, nil
	}

	opts := []Option{WithRegistry(reg), WithMethods(c.Methods...), WithPackages(c.Packages...)}

	if c.excludeSet || len(c.Exclude) > 0 {
		exclude := make([]*xestimator.Class, 0, len(c.Exclude))
		for _, name := range c.Exclude {
			cls, err := resolve(name)
			if err != nil {
				return nil, err
			}
			exclude = append(exclude, cls)
		}
		opts = append(opts, WithExclude(exclude...))
	}

	named, err := resolveRules(c.NamedPairRules, resolve)
	if err != nil {
		return nil, err
	}
	direct, err := resolveRules(c.DirectRules, resolve)
	if err != nil {
		return nil, err
	}
	opts = append(opts, WithNamedPairRules(named), WithDirectRules(direct))

	if c.InstrumentationName != "" {
		obs, err := xspan.NewOTelObserver(xspan.WithInstrumentationName(c.InstrumentationName))
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithObserver(obs))
	}
	return opts, nil
}

// BuildLogger 按 Log 配置构建日志记录器。
//
// 未配置 Log.File 时写入 w；返回的 cleanup 关闭日志文件，须在退出前调用。
func (c *FileConfig) BuildLogger(w io.Writer) (xlog.LoggerWithLevel, func() error, error) {
	format := c.Log.Format
	if format == "" {
		format = "text"
	}
	if c.Log.File != "" {
		var opts []xrotate.Option
		if c.Log.MaxSizeMB > 0 {
			opts = append(opts, xrotate.WithMaxSize(c.Log.MaxSizeMB))
		}
		if c.Log.MaxBackups > 0 {
			opts = append(opts, xrotate.WithMaxBackups(c.Log.MaxBackups))
		}
		r, err := xrotate.NewLumberjack(c.Log.File, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: log.file: %w", ErrInvalidConfig, err)
		}
		w = r
	}
	logger, cleanup, err := xlog.New().
		SetOutput(w).
		SetLevelString(c.Log.Level).
		SetFormat(strings.ToLower(format)).
		SetEnrich(true).
		Build()
	if err != nil {
		if closer, ok := w.(io.Closer); ok && c.Log.File != "" {
			_ = closer.Close()
		}
		return nil, nil, err
	}
	return logger, cleanup, nil
}

func (c *FileConfig) discoveryPackages() []string {
	pkgs := append([]string(nil), c.Packages...)
	if len(pkgs) == 0 {
		pkgs = DefaultPackages()
	}
	names := append(append([]string(nil), c.Exclude...), ruleClasses(c.NamedPairRules)...)
	names = append(names, ruleClasses(c.DirectRules)...)
	for _, name := range names {
		if pkg, _, ok := strings.Cut(name, "."); ok {
			pkgs = append(pkgs, pkg)
		}
	}
	return dedupe(pkgs)
}

func ruleClasses(rules []RuleConfig) []string {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.Class)
	}
	return names
}

func resolveRules(rules []RuleConfig, resolve func(string) (*xestimator.Class, error)) (Rules, error) {
	out := make(Rules, len(rules))
	for _, r := range rules {
		cls, err := resolve(r.Class)
		if err != nil {
			return nil, err
		}
		out[cls] = append(out[cls], r.Attrs...)
	}
	return out, nil
}

func detectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, ext)
	}
}
