package xinstrument

import (
	"sort"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
	"github.com/omeyang/xestimator/pkg/estimator/xlearn"
	"github.com/omeyang/xestimator/pkg/observability/xlog"
	"github.com/omeyang/xestimator/pkg/observability/xspan"
)

// Traversal 表示遍历规则的属性形态。
type Traversal int

const (
	// Direct 属性值为估计器、估计器序列或以估计器为值的 map。
	Direct Traversal = iota
	// NamedPair 属性值为 [xestimator.Named] 序列。
	NamedPair
)

// String 返回 Traversal 的可读字符串表示。
func (t Traversal) String() string {
	switch t {
	case Direct:
		return "direct"
	case NamedPair:
		return "named_pair"
	default:
		return "unknown"
	}
}

// Rule 描述某个类（含其子类）上需要展开的子估计器属性。
type Rule struct {
	Class *xestimator.Class
	Attrs []string
}

// Rules 是类到属性名列表的映射，用于 [WithDirectRules] 与 [WithNamedPairRules]。
type Rules map[*xestimator.Class][]string

// DefaultMethods 返回默认插桩的生命周期方法。
func DefaultMethods() []string {
	return []string{
		"fit", "transform", "predict", "predict_proba",
		"_fit", "_transform", "_predict", "_predict_proba",
	}
}

// DefaultNamedPairRules 返回默认的 NamedPair 规则。
func DefaultNamedPairRules() Rules {
	return Rules{
		xlearn.Pipeline:     {"steps"},
		xlearn.FeatureUnion: {"transformer_list"},
	}
}

// DefaultExclude 返回默认排除的类。
// 决策树在集成模型中大量出现，默认不产生 span。
func DefaultExclude() []*xestimator.Class {
	return []*xestimator.Class{xlearn.BaseDecisionTree}
}

// DefaultPackages 返回库级插桩默认发现的包。
func DefaultPackages() []string {
	return []string{xlearn.PackageName}
}

type options struct {
	methods        []string
	directRules    []Rule
	namedPairRules []Rule
	spanner        Spanner
	packages       []string
	exclude        []*xestimator.Class
	observer       xspan.Observer
	logger         xlog.Logger
	registry       *xestimator.Registry
}

func defaultOptions() *options {
	return &options{
		methods:        DefaultMethods(),
		namedPairRules: rulesFromMap(DefaultNamedPairRules()),
		packages:       DefaultPackages(),
		exclude:        DefaultExclude(),
		logger:         xlog.Default(),
		registry:       xestimator.DefaultRegistry(),
	}
}

// Option 定义 Instrumentor 的配置选项。
type Option func(*options)

// WithMethods 设置插桩的方法名，空列表保留默认值。
func WithMethods(methods ...string) Option {
	return func(o *options) {
		if d := dedupe(methods); len(d) > 0 {
			o.methods = d
		}
	}
}

// WithDirectRules 设置 Direct 遍历规则，空映射保留默认值。
func WithDirectRules(rules Rules) Option {
	return func(o *options) {
		if len(rules) > 0 {
			o.directRules = rulesFromMap(rules)
		}
	}
}

// WithNamedPairRules 设置 NamedPair 遍历规则，空映射保留默认值。
func WithNamedPairRules(rules Rules) Option {
	return func(o *options) {
		if len(rules) > 0 {
			o.namedPairRules = rulesFromMap(rules)
		}
	}
}

// WithSpanner 设置 span 包装器工厂，nil 使用基于 Observer 的默认工厂。
func WithSpanner(s Spanner) Option {
	return func(o *options) {
		o.spanner = s
	}
}

// WithPackages 设置库级插桩发现的包，空列表保留默认值。
func WithPackages(packages ...string) Option {
	return func(o *options) {
		if d := dedupe(packages); len(d) > 0 {
			o.packages = d
		}
	}
}

// WithExclude 设置排除的类（含子类）。
//
// 与其他选项不同，不带参数调用表示"不排除任何类"。
func WithExclude(classes ...*xestimator.Class) Option {
	return func(o *options) {
		o.exclude = make([]*xestimator.Class, 0, len(classes))
		for _, c := range classes {
			if c != nil {
				o.exclude = append(o.exclude, c)
			}
		}
	}
}

// WithObserver 设置 span 发射器，nil 被忽略。
func WithObserver(obs xspan.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithLogger 设置日志记录器，nil 被忽略。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRegistry 设置库级插桩使用的注册表，nil 被忽略。
func WithRegistry(r *xestimator.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// rulesFromMap 将映射转为按类限定名排序的规则列表，保证遍历顺序确定。
func rulesFromMap(m Rules) []Rule {
	rules := make([]Rule, 0, len(m))
	for cls, attrs := range m {
		if cls == nil || len(attrs) == 0 {
			continue
		}
		rules = append(rules, Rule{Class: cls, Attrs: append([]string(nil), attrs...)})
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].Class.QualName() < rules[j].Class.QualName()
	})
	return rules
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
