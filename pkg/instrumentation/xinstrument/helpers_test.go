package xinstrument_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
	"github.com/omeyang/xestimator/pkg/instrumentation/xinstrument"
	"github.com/omeyang/xestimator/pkg/observability/xlog"
	"github.com/omeyang/xestimator/pkg/observability/xspan"
)

// recorder 是记录已结束 span 的 Observer。
type recorder struct {
	mu    sync.Mutex
	ended []endedSpan
}

type endedSpan struct {
	name   string
	result xspan.Result
}

type recordedSpan struct {
	r    *recorder
	name string
	once sync.Once
}

func (r *recorder) Start(ctx context.Context, opts xspan.SpanOptions) (context.Context, xspan.Span) {
	return ctx, &recordedSpan{r: r, name: opts.SpanName()}
}

func (s *recordedSpan) End(result xspan.Result) {
	s.once.Do(func() {
		s.r.mu.Lock()
		defer s.r.mu.Unlock()
		s.r.ended = append(s.r.ended, endedSpan{name: s.name, result: result})
	})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.ended))
	for _, s := range r.ended {
		out = append(out, s.name)
	}
	return out
}

func (r *recorder) last() endedSpan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended[len(r.ended)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = nil
}

func newCaptureLogger(t *testing.T) (xlog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, cleanup, err := xlog.New().
		SetOutput(&buf).
		SetFormat("json").
		SetLevel(xlog.LevelDebug).
		SetEnrich(false).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })
	return logger, &buf
}

func countWarnings(buf *bytes.Buffer) int {
	return strings.Count(buf.String(), `"level":"WARN"`)
}

func returns(v any) xestimator.Method {
	return func(context.Context, xestimator.Estimator, ...any) (any, error) {
		return v, nil
	}
}

func passthrough(ctx context.Context, self xestimator.Estimator, args []any, next xestimator.Method) (any, error) {
	return next(ctx, self, args...)
}

// fixture 是测试专用的估计器库，注册在独立的 Registry 中，
// 库级插桩不会影响其他测试。
type fixture struct {
	reg       *xestimator.Registry
	root      *xestimator.Class
	model     *xestimator.Class
	child     *xestimator.Class
	override  *xestimator.Class
	decorated *xestimator.Class
	tree      *xestimator.Class
	subtree   *xestimator.Class

	// cacheDecorator 是 decorated.predict 槽中的外部装饰器。
	cacheDecorator *xestimator.Func
	cachedLeaf     *xestimator.Func
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{reg: xestimator.NewRegistry()}
	f.root = xestimator.NewClass("LibBase", xestimator.BaseEstimator, xestimator.WithModule("lib.base"))
	f.model = xestimator.NewClass("Model", f.root,
		xestimator.WithModule("lib.models"),
		xestimator.WithMethod("fit", func(_ context.Context, self xestimator.Estimator, _ ...any) (any, error) {
			return self, nil
		}),
		xestimator.WithMethod("predict", returns([]float64{1})),
		xestimator.WithProperty("predict_proba", func(xestimator.Estimator) any { return nil }),
	)
	f.child = xestimator.NewClass("Child", f.model)
	f.override = xestimator.NewClass("Override", f.model,
		xestimator.WithMethod("fit", returns("override")),
	)
	f.cachedLeaf = xestimator.NewFunc("predict", returns("cached"))
	f.cacheDecorator = xestimator.Decorate("cache", f.cachedLeaf, passthrough)
	f.decorated = xestimator.NewClass("Decorated", f.root,
		xestimator.WithModule("lib.models"),
		xestimator.WithFunc(f.cacheDecorator),
	)
	f.tree = xestimator.NewClass("Tree", f.root,
		xestimator.WithModule("lib.tree"),
		xestimator.WithMethod("fit", returns("tree")),
		xestimator.WithMethod("predict", returns("tree")),
	)
	f.subtree = xestimator.NewClass("SubTree", f.tree)

	require.NoError(t, f.reg.Register("lib",
		xestimator.Module{Name: "base", Load: func() (xestimator.Namespace, error) {
			return xestimator.Namespace{"LibBase": f.root}, nil
		}},
		xestimator.Module{Name: "models", Load: func() (xestimator.Namespace, error) {
			return xestimator.Namespace{
				"Model": f.model, "Child": f.child, "Override": f.override, "Decorated": f.decorated,
			}, nil
		}},
		xestimator.Module{Name: "tree", Load: func() (xestimator.Namespace, error) {
			return xestimator.Namespace{"Tree": f.tree, "SubTree": f.subtree}, nil
		}},
	))
	return f
}

func (f *fixture) classes() []*xestimator.Class {
	return []*xestimator.Class{f.root, f.model, f.child, f.override, f.decorated, f.tree, f.subtree}
}

// newInstrumentor 创建作用于 fixture 的 Instrumentor。
func (f *fixture) newInstrumentor(rec *recorder, opts ...xinstrument.Option) *xinstrument.Instrumentor {
	base := []xinstrument.Option{
		xinstrument.WithRegistry(f.reg),
		xinstrument.WithPackages("lib"),
		xinstrument.WithExclude(f.tree),
		xinstrument.WithObserver(rec),
		xinstrument.WithLogger(xlog.Discard()),
	}
	return xinstrument.New(append(base, opts...)...)
}

// slotSnapshot 记录每个类自身方法槽的指针。
type slotSnapshot map[*xestimator.Class]map[string]*xestimator.Func

func snapshot(classes []*xestimator.Class, methods []string) slotSnapshot {
	s := make(slotSnapshot)
	for _, c := range classes {
		s[c] = make(map[string]*xestimator.Func)
		for _, m := range methods {
			if f, ok := c.OwnMethod(m); ok {
				s[c][m] = f
			}
		}
	}
	return s
}
