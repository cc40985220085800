package xestimator

import "github.com/omeyang/xestimator/pkg/observability/xlog"

type discoverOptions struct {
	logger xlog.Logger
	base   *Class
}

// DiscoverOption 定义 Discover 的配置选项。
type DiscoverOption func(*discoverOptions)

func defaultDiscoverOptions() *discoverOptions {
	return &discoverOptions{
		logger: xlog.Default(),
		base:   BaseEstimator,
	}
}

// WithLogger 设置发现过程使用的 Logger，nil 被忽略。
func WithLogger(logger xlog.Logger) DiscoverOption {
	return func(o *discoverOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBase 设置估计器基础契约的根类，nil 被忽略。默认为 [BaseEstimator]。
func WithBase(base *Class) DiscoverOption {
	return func(o *discoverOptions) {
		if base != nil {
			o.base = base
		}
	}
}
