package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Builder 构建 Logger。遇到第一个配置错误后其余 Set 调用被跳过，错误由 Build 返回。
type Builder struct {
	output   io.Writer
	closer   io.Closer
	levelVar *slog.LevelVar
	format   string
	enrich   bool
	err      error
}

// New 返回默认配置的 Builder：stderr、Info 级别、text 格式、启用 trace 字段注入。
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	return &Builder{
		output:   os.Stderr,
		levelVar: levelVar,
		format:   "text",
		enrich:   true,
	}
}

// SetOutput 设置输出目标。w 实现 io.Closer 时由 cleanup 关闭（os.Stdout、os.Stderr 除外）。
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if b.err != nil {
		return b
	}
	if w == nil {
		b.err = ErrNilOutput
		return b
	}
	b.output, b.closer = w, nil
	if c, ok := w.(io.Closer); ok && w != os.Stdout && w != os.Stderr {
		b.closer = c
	}
	return b
}

// SetLevel 设置最低输出级别，默认 Info。构建后可通过 [Leveler] 动态调整。
func (b *Builder) SetLevel(level Level) *Builder {
	if b.err == nil {
		b.levelVar.Set(slog.Level(level))
	}
	return b
}

// SetLevelString 按名称设置级别，空串保持当前级别。
func (b *Builder) SetLevelString(s string) *Builder {
	if b.err != nil || strings.TrimSpace(s) == "" {
		return b
	}
	level, err := ParseLevel(s)
	if err != nil {
		b.err = err
		return b
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式 text 或 json，空串为 text。
func (b *Builder) SetFormat(format string) *Builder {
	if b.err != nil {
		return b
	}
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "":
		b.format = "text"
	case "text", "json":
		b.format = f
	default:
		b.err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return b
}

// SetEnrich 开关 trace_id/span_id 注入。
func (b *Builder) SetEnrich(enable bool) *Builder {
	b.enrich = enable
	return b
}

// Build 返回 Logger 与 cleanup。cleanup 关闭输出目标，可重复调用。
func (b *Builder) Build() (LoggerWithLevel, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{Level: b.levelVar}
	var handler slog.Handler = slog.NewTextHandler(b.output, opts)
	if b.format == "json" {
		handler = slog.NewJSONHandler(b.output, opts)
	}
	if b.enrich {
		enriched, err := NewEnrichHandler(handler)
		if err != nil {
			return nil, nil, err
		}
		handler = enriched
	}

	closer := b.closer
	cleanup := sync.OnceValue(func() error {
		if closer == nil {
			return nil
		}
		return closer.Close()
	})
	return &xlogger{handler: handler, levelVar: b.levelVar}, cleanup, nil
}
