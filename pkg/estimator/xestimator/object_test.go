package xestimator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xestimator/pkg/estimator/xestimator"
)

func TestResolve_Order(t *testing.T) {
	cls := xestimator.NewClass("Model", xestimator.BaseEstimator,
		xestimator.WithMethod("fit", constant("class")),
		xestimator.WithProperty("classes", func(self xestimator.Estimator) any { return "prop" }),
	)
	obj := cls.New()

	m, ok := xestimator.Resolve(obj, "fit")
	require.True(t, ok)
	assert.Same(t, cls, m.Owner)

	own := xestimator.NewFunc("fit", constant("instance"))
	obj.Methods().Set("fit", own)
	m, ok = xestimator.Resolve(obj, "fit")
	require.True(t, ok)
	assert.Same(t, own, m.Func, "instance slot shadows class method")
	assert.Nil(t, m.Owner)

	obj.Methods().Set("classes", xestimator.NewFunc("classes", constant(nil)))
	m, ok = xestimator.Resolve(obj, "classes")
	require.True(t, ok)
	assert.True(t, m.IsProperty(), "property shadows instance slot")

	_, ok = xestimator.Resolve(nil, "fit")
	assert.False(t, ok)
}

func TestCall(t *testing.T) {
	cls := xestimator.NewClass("Model", xestimator.BaseEstimator,
		xestimator.WithMethod("fit", func(_ context.Context, self xestimator.Estimator, args ...any) (any, error) {
			self.SetAttr("n", len(args))
			return self, nil
		}),
		xestimator.WithProperty("size", func(self xestimator.Estimator) any {
			n, _ := self.Attr("n")
			return n
		}),
	)
	obj := cls.New()

	out, err := obj.Call(context.Background(), "fit", 1, 2)
	require.NoError(t, err)
	assert.Same(t, obj, out)

	v, ok := xestimator.Get(obj, "size")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, err = obj.Call(context.Background(), "predict")
	assert.ErrorIs(t, err, xestimator.ErrNoSuchMethod)

	_, err = obj.Call(context.Background(), "size")
	assert.ErrorIs(t, err, xestimator.ErrNotCallable)

	_, err = xestimator.Call(context.Background(), nil, "fit")
	assert.ErrorIs(t, err, xestimator.ErrNilEstimator)

	assert.True(t, xestimator.Has(obj, "size"))
	assert.False(t, xestimator.Has(obj, "transform"))
}

func TestObject_Attrs(t *testing.T) {
	obj := xestimator.New(xestimator.BaseEstimator)
	obj.SetAttr("b", 1)
	obj.SetAttr("a", 2)

	assert.Equal(t, []string{"a", "b"}, obj.AttrNames())
	v, ok := xestimator.Get(obj, "a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Contains(t, obj.String(), "BaseEstimator(")
}
