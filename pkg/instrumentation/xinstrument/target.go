package xinstrument

import (
	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
)

// target 抽象补丁的落点：类方法表或实例方法表。
type target interface {
	// key 为账本中的所有者。
	key() any
	// label 为 span 名称中的类名。
	label() string
	// resolve 按运行时语义解析名称。
	resolve(method string) (xestimator.Member, bool)
	// own 返回目标自身的方法槽。
	own(method string) (*xestimator.Func, bool)
	setOwn(method string, f *xestimator.Func)
	deleteOwn(method string)
	state() WrapState
}

type classTarget struct {
	cls *xestimator.Class
}

func (t classTarget) key() any      { return t.cls }
func (t classTarget) label() string { return t.cls.Name() }

func (t classTarget) resolve(method string) (xestimator.Member, bool) {
	return t.cls.Lookup(method)
}

func (t classTarget) own(method string) (*xestimator.Func, bool) {
	return t.cls.OwnMethod(method)
}

func (t classTarget) setOwn(method string, f *xestimator.Func) {
	t.cls.SetOwnMethod(method, f)
}

func (t classTarget) deleteOwn(method string) {
	t.cls.DeleteOwnMethod(method)
}

func (t classTarget) state() WrapState { return WrappedByLibrary }

type instanceTarget struct {
	est xestimator.Estimator
}

func (t instanceTarget) key() any      { return t.est }
func (t instanceTarget) label() string { return t.est.Class().Name() }

func (t instanceTarget) resolve(method string) (xestimator.Member, bool) {
	return xestimator.Resolve(t.est, method)
}

func (t instanceTarget) own(method string) (*xestimator.Func, bool) {
	return t.est.Methods().Get(method)
}

func (t instanceTarget) setOwn(method string, f *xestimator.Func) {
	t.est.Methods().Set(method, f)
}

func (t instanceTarget) deleteOwn(method string) {
	t.est.Methods().Delete(method)
}

func (t instanceTarget) state() WrapState { return WrappedByInstance }
