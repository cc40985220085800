package xestimator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/omeyang/xestimator/pkg/observability/xlog"
)

// ErrImportFailed 表示子模块加载失败。
var ErrImportFailed = errors.New("xestimator: import failed")

// Namespace 是模块的顶层属性表。
type Namespace map[string]any

// Loader 加载模块并返回其顶层属性，加载可能失败。
type Loader func() (Namespace, error)

// Module 是包内的一个子模块。
type Module struct {
	// Name 模块名，不含包名前缀，不可包含 "."。
	Name string
	// Load 模块加载函数。
	Load Loader
}

// Registry 是包与模块的加载面。
//
// 加载成功的模块会被缓存；加载失败不缓存，下次 Import 会重试。
// 同一模块的并发 Import 通过 singleflight 合并为一次加载。
type Registry struct {
	mu       sync.RWMutex
	packages map[string][]Module
	loaded   map[string]Namespace
	group    singleflight.Group
}

// NewRegistry 创建空注册表。
func NewRegistry() *Registry {
	return &Registry{
		packages: make(map[string][]Module),
		loaded:   make(map[string]Namespace),
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry 返回进程级注册表。估计器库通常在 init 中向它注册。
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// RegisterPackage 向进程级注册表注册包。
func RegisterPackage(name string, modules ...Module) error {
	return defaultRegistry.Register(name, modules...)
}

// MustRegisterPackage 与 RegisterPackage 相同，但失败时 panic。
// 适用于 init 中注册固定的包。
func MustRegisterPackage(name string, modules ...Module) {
	if err := RegisterPackage(name, modules...); err != nil {
		panic(err)
	}
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, ". \t\n")
}

// Register 注册包及其子模块。
func (r *Registry) Register(name string, modules ...Module) error {
	if !validName(name) {
		return fmt.Errorf("%w: package %q", ErrInvalidName, name)
	}
	seen := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		if !validName(m.Name) || m.Load == nil {
			return fmt.Errorf("%w: module %q in package %s", ErrInvalidName, m.Name, name)
		}
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("%w: duplicate module %s.%s", ErrInvalidName, name, m.Name)
		}
		seen[m.Name] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.packages[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePackage, name)
	}
	r.packages[name] = append([]Module(nil), modules...)
	return nil
}

// Packages 返回已注册的包名（已排序）。
func (r *Registry) Packages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.packages))
	for name := range r.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Submodules 返回包的直接子模块名（注册顺序）。
func (r *Registry) Submodules(pkg string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	modules, ok := r.packages[pkg]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, pkg)
	}
	names := make([]string, len(modules))
	for i, m := range modules {
		names[i] = m.Name
	}
	return names, nil
}

// Import 按 "包.模块" 加载模块。
func (r *Registry) Import(qualified string) (Namespace, error) {
	pkg, mod, ok := strings.Cut(qualified, ".")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, qualified)
	}

	r.mu.RLock()
	if ns, cached := r.loaded[qualified]; cached {
		r.mu.RUnlock()
		return ns, nil
	}
	loader, err := r.loaderLocked(pkg, mod)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	v, err, _ := r.group.Do(qualified, func() (any, error) {
		ns, err := safeLoad(loader)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrImportFailed, qualified, err)
		}
		r.mu.Lock()
		r.loaded[qualified] = ns
		r.mu.Unlock()
		return ns, nil
	})
	if err != nil {
		return nil, err
	}
	ns, _ := v.(Namespace)
	return ns, nil
}

func (r *Registry) loaderLocked(pkg, mod string) (Loader, error) {
	modules, ok := r.packages[pkg]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, pkg)
	}
	for _, m := range modules {
		if m.Name == mod {
			return m.Load, nil
		}
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrModuleNotFound, pkg, mod)
}

// safeLoad 执行 loader，panic 视为加载失败。
func safeLoad(load Loader) (ns Namespace, err error) {
	defer func() {
		if r := recover(); r != nil {
			ns, err = nil, fmt.Errorf("panic during load: %v", r)
		}
	}()
	ns, err = load()
	if err == nil && ns == nil {
		ns = Namespace{}
	}
	return ns, err
}

// Discover 遍历 packages 的直接子模块，收集估计器类。
//
// 返回值的 key 为 "包.模块.属性名"。子模块加载失败时记录一条警告并跳过，
// 该模块的类不出现在结果中；未注册的包同样记录警告并跳过。Discover 从不失败。
func (r *Registry) Discover(ctx context.Context, packages []string, opts ...DiscoverOption) map[string]*Class {
	if ctx == nil {
		ctx = context.Background()
	}
	o := defaultDiscoverOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	classes := make(map[string]*Class)
	for _, pkg := range packages {
		modules, err := r.Submodules(pkg)
		if err != nil {
			o.logger.Warn(ctx, "unable to import package", xlog.Package(pkg), xlog.Err(err))
			continue
		}
		for _, mod := range modules {
			ns, err := r.Import(pkg + "." + mod)
			if err != nil {
				o.logger.Warn(ctx, "unable to import module",
					xlog.Package(pkg), xlog.Module(pkg+"."+mod), xlog.Err(err))
				continue
			}
			for attr, value := range ns {
				cls, ok := value.(*Class)
				if !ok || !cls.IsSubclassOf(o.base) {
					continue
				}
				classes[pkg+"."+mod+"."+attr] = cls
			}
		}
	}
	o.logger.Debug(ctx, "discovered estimator classes", xlog.Count(len(classes)))
	return classes
}

// Discover 使用进程级注册表执行发现。
func Discover(ctx context.Context, packages []string, opts ...DiscoverOption) map[string]*Class {
	return defaultRegistry.Discover(ctx, packages, opts...)
}

// UniqueClasses 返回 classes 中去重后的类，按限定名排序。
//
// 同一个类可能以多个 key 出现（被多个模块导出），插桩时每个类只需处理一次。
func UniqueClasses(classes map[string]*Class) []*Class {
	seen := make(map[*Class]struct{}, len(classes))
	out := make([]*Class, 0, len(classes))
	for _, cls := range classes {
		if _, ok := seen[cls]; ok {
			continue
		}
		seen[cls] = struct{}{}
		out = append(out, cls)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QualName() < out[j].QualName()
	})
	return out
}
